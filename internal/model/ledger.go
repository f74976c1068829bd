package model

import "time"

type RunOutcome string

const (
	RunOutcomeRunning RunOutcome = "running"
	RunOutcomeDone    RunOutcome = "done"
	RunOutcomeFailed  RunOutcome = "failed"
	RunOutcomeHalted  RunOutcome = "halted"
)

type DeliveryOutcome string

const (
	DeliveryOutcomeSubmitted DeliveryOutcome = "submitted"
	DeliveryOutcomeSkipped   DeliveryOutcome = "skipped"
	DeliveryOutcomeFailed    DeliveryOutcome = "failed"
)

type Run struct {
	ID         RunID      `db:"ID"`
	StartedAt  time.Time  `db:"StartedAt"`
	FinishedAt *time.Time `db:"FinishedAt"`
	Outcome    RunOutcome `db:"Outcome"`
	DryRun     bool       `db:"DryRun"`
}

// Delivery is the audit record of one processed status.
type Delivery struct {
	ID        DeliveryID      `db:"ID"`
	RunID     RunID           `db:"RunID"`
	StatusID  StatusID        `db:"StatusID"`
	CreatedAt time.Time       `db:"CreatedAt"`
	Action    string          `db:"Action"`
	URI       string          `db:"URI"`
	Outcome   DeliveryOutcome `db:"Outcome"`
	Error     string          `db:"Error"`
}
