package store

import (
	"fmt"
	"os"
	"path"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"uk.co.dudmesh.crosspost/internal/model"
)

type Config interface {
	DataDirectory() string
}

type ledger struct {
	db *sqlx.DB
}

// NewLedger opens DATA_DIR/ledger.db, creating the directory and tables on
// first use.
func NewLedger(config Config) (*ledger, error) {
	if err := os.MkdirAll(config.DataDirectory(), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbName := path.Join(config.DataDirectory(), "ledger.db")

	db, err := sqlx.Connect("sqlite3", "file:"+dbName+"?_journal_mode=WAL&_synchronous=FULL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	l := &ledger{db}
	if err := l.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return l, nil
}

func (l *ledger) Close() error {
	return l.db.Close()
}

func (l *ledger) createTables() error {
	_, err := l.db.Exec(`create table if not exists run(
		ID text not null primary key,
		StartedAt  DATETIME not null,
		FinishedAt DATETIME null,
		Outcome    text not null,
		DryRun     boolean not null default 0
	)`)
	if err != nil {
		return fmt.Errorf("creating run table: %w", err)
	}

	_, err = l.db.Exec(`create table if not exists delivery(
		ID text not null primary key,
		RunID     text not null references run(ID),
		StatusID  text not null,
		CreatedAt DATETIME not null,
		Action    text not null,
		URI       text not null default '',
		Outcome   text not null,
		Error     text not null default ''
	)`)
	if err != nil {
		return fmt.Errorf("creating delivery table: %w", err)
	}

	_, err = l.db.Exec(`create index if not exists delivery_status on delivery(StatusID)`)
	if err != nil {
		return fmt.Errorf("creating delivery index: %w", err)
	}

	return nil
}

func (l *ledger) StartRun(run *model.Run) error {
	res, err := l.db.NamedExec(`insert into run
		(ID, StartedAt, Outcome, DryRun)
		values(:ID, :StartedAt, :Outcome, :DryRun)`, run)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return expectOneRow(res.RowsAffected())
}

func (l *ledger) FinishRun(id model.RunID, outcome model.RunOutcome) error {
	res, err := l.db.Exec(`update run set FinishedAt = ?, Outcome = ? where ID = ?`,
		time.Now().UTC(), outcome, id)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	return expectOneRow(res.RowsAffected())
}

func (l *ledger) Record(delivery *model.Delivery) error {
	if delivery.ID == "" {
		delivery.ID = model.NewDeliveryID()
	}
	res, err := l.db.NamedExec(`insert into delivery
		(ID, RunID, StatusID, CreatedAt, Action, URI, Outcome, Error)
		values(:ID, :RunID, :StatusID, :CreatedAt, :Action, :URI, :Outcome, :Error)`, delivery)
	if err != nil {
		return fmt.Errorf("inserting delivery: %w", err)
	}
	return expectOneRow(res.RowsAffected())
}

func (l *ledger) Run(id model.RunID) (*model.Run, error) {
	run := &model.Run{}
	if err := l.db.Get(run, `select * from run where ID = ?`, id); err != nil {
		return nil, fmt.Errorf("fetching run: %w", err)
	}
	return run, nil
}

func (l *ledger) Deliveries(id model.RunID) ([]model.Delivery, error) {
	var deliveries []model.Delivery
	err := l.db.Select(&deliveries, `select * from delivery where RunID = ? order by CreatedAt, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("fetching deliveries: %w", err)
	}
	return deliveries, nil
}

func expectOneRow(rows int64, err error) error {
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("expected 1 row to be affected, got %d", rows)
	}
	return nil
}
