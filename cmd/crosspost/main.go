package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"

	"uk.co.dudmesh.crosspost/internal/boot"
	"uk.co.dudmesh.crosspost/internal/builder"
	"uk.co.dudmesh.crosspost/internal/checkpoint"
	"uk.co.dudmesh.crosspost/internal/content"
	"uk.co.dudmesh.crosspost/internal/destination/bluesky"
	"uk.co.dudmesh.crosspost/internal/dispatch"
	"uk.co.dudmesh.crosspost/internal/imagefetch"
	"uk.co.dudmesh.crosspost/internal/metrics"
	"uk.co.dudmesh.crosspost/internal/model"
	"uk.co.dudmesh.crosspost/internal/relay"
	"uk.co.dudmesh.crosspost/internal/source/mastodon"
	"uk.co.dudmesh.crosspost/internal/store"
)

const (
	exitFailure = 1
	exitHalted  = 2
	exitStartup = 3
)

// startupError wraps anything that stops a run before the first status is
// looked at.
type startupError struct {
	err error
}

func (e *startupError) Error() string { return e.err.Error() }
func (e *startupError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var startup *startupError
	switch {
	case errors.Is(err, model.ErrorHalted):
		return exitHalted
	case errors.Is(err, model.ErrorCheckpointMissing), errors.As(err, &startup):
		return exitStartup
	default:
		return exitFailure
	}
}

func main() {
	var dryRun bool

	cmd := &cobra.Command{
		Use:           "crosspost",
		Short:         "Mirror new Mastodon statuses to Bluesky",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log what would be posted without posting or moving the checkpoint")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		log.Errorf("crosspost: %v", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, dryRun bool) error {
	config, err := boot.Load(ctx)
	if err != nil {
		return &startupError{fmt.Errorf("boot: %w", err)}
	}
	log.SetLevel(config.Level())

	runID := model.NewRunID()
	log.Infof("run %s starting (env=%s, dry-run=%t)", runID, config.Env, dryRun)

	httpClient := &http.Client{Timeout: config.HTTPTimeout}

	var ledger relay.Ledger
	if !dryRun {
		l, err := store.NewLedger(config)
		if err != nil {
			return &startupError{fmt.Errorf("ledger: %w", err)}
		}
		defer l.Close()
		ledger = l
	}

	cache, err := store.NewHandleCache("handles-" + string(runID))
	if err != nil {
		return &startupError{fmt.Errorf("handle cache: %w", err)}
	}
	defer cache.Close()

	destination := bluesky.New(config.Bluesky.URL, config.Bluesky.Identifier, config.Bluesky.Password, httpClient, cache)

	dispatcher, err := dispatch.New(destination, dispatch.Options{
		WebURL:    config.Bluesky.WebURL,
		MaxLength: config.Bluesky.MaxPostLength,
		DryRun:    dryRun,
	})
	if err != nil {
		return &startupError{fmt.Errorf("dispatcher: %w", err)}
	}

	recorder := metrics.New()
	r := relay.New(relay.Components{
		Checkpoints: checkpoint.NewFileStore(config.CheckpointFile),
		Source:      mastodon.New(config.Mastodon.URL, config.Mastodon.Token, httpClient),
		Builder:     builder.New(content.NewDecoder(config.Bluesky.WebURL), imagefetch.New(httpClient, "crosspost")),
		Dispatcher:  dispatcher,
		Auth:        destination,
		Ledger:      ledger,
		Metrics:     recorder,
	}, relay.Options{
		RunID:  runID,
		UserID: config.Mastodon.UserID,
		DryRun: dryRun,
	})

	_, err = r.Run(ctx)
	pushMetrics(recorder, config.PushgatewayURL, runID, dryRun)
	return err
}

type pusher interface {
	Push(url string, runID model.RunID) error
}

// pushMetrics publishes the run's metrics. A dry run changes nothing, so it
// reports nothing.
func pushMetrics(p pusher, url string, runID model.RunID, dryRun bool) {
	if dryRun {
		return
	}
	if err := p.Push(url, runID); err != nil {
		log.Warnf("%v", err)
	}
}
