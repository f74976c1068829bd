package relay

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/labstack/gommon/log"

	"uk.co.dudmesh.crosspost/internal/dispatch"
	"uk.co.dudmesh.crosspost/internal/model"
)

type CheckpointStore interface {
	Load() (*model.Checkpoint, error)
	Save(checkpoint *model.Checkpoint) error
}

type Source interface {
	StatusesSince(ctx context.Context, userID string, minID model.StatusID) iter.Seq2[*model.Status, error]
}

type Builder interface {
	Build(ctx context.Context, status *model.Status) (*model.Post, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, post *model.Post) (*dispatch.Outcome, error)
}

type Authenticator interface {
	Login(ctx context.Context) error
}

type Ledger interface {
	StartRun(run *model.Run) error
	FinishRun(id model.RunID, outcome model.RunOutcome) error
	Record(delivery *model.Delivery) error
}

type Metrics interface {
	Delivered(action string, at time.Time)
	Skipped(action string)
	Failed(kind model.FailureKind)
}

type Components struct {
	Checkpoints CheckpointStore
	Source      Source
	Builder     Builder
	Dispatcher  Dispatcher
	Auth        Authenticator
	Ledger      Ledger
	Metrics     Metrics
}

type Options struct {
	RunID  model.RunID
	UserID string
	DryRun bool
}

// Summary counts what a run did. Last is the id of the last status whose
// checkpoint was written.
type Summary struct {
	Submitted int
	Skipped   int
	Last      model.StatusID
}

type relay struct {
	Components
	options Options
	now     func() time.Time
}

func New(components Components, options Options) *relay {
	return &relay{
		Components: components,
		options:    options,
		now:        time.Now,
	}
}

// Run mirrors every status newer than the checkpoint, one at a time and
// oldest first. It stops at the first failure and records it in the
// checkpoint, after which every later run halts until the checkpoint is
// fixed by hand.
func (r *relay) Run(ctx context.Context) (*Summary, error) {
	checkpoint, err := r.Checkpoints.Load()
	if err != nil {
		return nil, fmt.Errorf("loading checkpoint: %w", err)
	}

	if checkpoint.Halted() {
		log.Errorf("status %s failed in a previous run: %s", checkpoint.ID, *checkpoint.Error)
		r.startRun()
		r.finishRun(model.RunOutcomeHalted)
		return nil, fmt.Errorf("%w: status %s: %s", model.ErrorHalted, checkpoint.ID, *checkpoint.Error)
	}

	if r.options.DryRun {
		log.Infof("dry run: nothing will be posted and the checkpoint stays at %s", checkpoint.ID)
	} else if err := r.Auth.Login(ctx); err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}

	r.startRun()
	summary := &Summary{Last: checkpoint.ID}
	log.Infof("run %s: relaying statuses after %s", r.options.RunID, checkpoint.ID)

	for status, err := range r.Source.StatusesSince(ctx, r.options.UserID, checkpoint.ID) {
		if err != nil {
			r.finishRun(model.RunOutcomeFailed)
			return summary, fmt.Errorf("fetching statuses after %s: %w", summary.Last, err)
		}
		if err := ctx.Err(); err != nil {
			r.finishRun(model.RunOutcomeFailed)
			return summary, err
		}

		outcome, err := r.process(ctx, status)
		if err != nil {
			return summary, r.fail(status, err)
		}

		if outcome.Skipped {
			summary.Skipped++
		} else {
			summary.Submitted++
		}
		if r.options.DryRun {
			continue
		}

		if err := r.Checkpoints.Save(model.CleanCheckpoint(status.ID)); err != nil {
			r.finishRun(model.RunOutcomeFailed)
			return summary, fmt.Errorf("saving checkpoint %s: %w", status.ID, err)
		}
		summary.Last = status.ID
		r.record(status, outcome, nil)
		if outcome.Skipped {
			r.Metrics.Skipped(string(outcome.Action))
		} else {
			r.Metrics.Delivered(string(outcome.Action), r.now())
		}
	}

	r.finishRun(model.RunOutcomeDone)
	log.Infof("run %s: %d submitted, %d skipped, checkpoint at %s", r.options.RunID, summary.Submitted, summary.Skipped, summary.Last)
	return summary, nil
}

func (r *relay) process(ctx context.Context, status *model.Status) (*dispatch.Outcome, error) {
	post, err := r.Builder.Build(ctx, status)
	if err != nil {
		return nil, err
	}
	outcome, err := r.Dispatcher.Dispatch(ctx, post)
	if err != nil {
		return nil, err
	}

	switch {
	case outcome.Skipped:
		log.Infof("status %s: %s skipped (%s)", status.ID, outcome.Action, outcome.Reason)
	case outcome.Ref != nil:
		log.Infof("status %s: %s posted as %s", status.ID, outcome.Action, outcome.Ref.URI)
	default:
		log.Infof("status %s: %s", status.ID, outcome.Action)
	}
	return outcome, nil
}

// fail writes the halt marker for status. The returned error carries the
// failure kind so the exit path can report it.
func (r *relay) fail(status *model.Status, err error) error {
	kind := model.KindOf(err)
	failure := fmt.Errorf("%s: %w", kind, err)
	log.Errorf("status %s failed: %v", status.ID, failure)
	if r.options.DryRun {
		return failure
	}

	r.Metrics.Failed(kind)
	if saveErr := r.Checkpoints.Save(model.FailedCheckpoint(status.ID, failure)); saveErr != nil {
		log.Errorf("saving failed checkpoint %s: %v", status.ID, saveErr)
	}
	r.record(status, nil, failure)
	r.finishRun(model.RunOutcomeFailed)
	return failure
}

func (r *relay) startRun() {
	if r.options.DryRun {
		return
	}
	err := r.Ledger.StartRun(&model.Run{
		ID:        r.options.RunID,
		StartedAt: r.now(),
		Outcome:   model.RunOutcomeRunning,
	})
	if err != nil {
		log.Warnf("ledger: starting run %s: %v", r.options.RunID, err)
	}
}

func (r *relay) finishRun(outcome model.RunOutcome) {
	if r.options.DryRun {
		return
	}
	if err := r.Ledger.FinishRun(r.options.RunID, outcome); err != nil {
		log.Warnf("ledger: finishing run %s: %v", r.options.RunID, err)
	}
}

func (r *relay) record(status *model.Status, outcome *dispatch.Outcome, failure error) {
	delivery := &model.Delivery{
		RunID:     r.options.RunID,
		StatusID:  status.ID,
		CreatedAt: r.now(),
	}
	switch {
	case failure != nil:
		delivery.Outcome = model.DeliveryOutcomeFailed
		delivery.Error = failure.Error()
	case outcome.Skipped:
		delivery.Action = string(outcome.Action)
		delivery.Outcome = model.DeliveryOutcomeSkipped
		delivery.Error = outcome.Reason
	default:
		delivery.Action = string(outcome.Action)
		delivery.Outcome = model.DeliveryOutcomeSubmitted
		if outcome.Ref != nil {
			delivery.URI = outcome.Ref.URI
		}
	}
	if err := r.Ledger.Record(delivery); err != nil {
		log.Warnf("ledger: recording status %s: %v", status.ID, err)
	}
}
