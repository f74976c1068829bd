package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uk.co.dudmesh.crosspost/internal/model"
)

type testConfig struct {
	dir string
}

func (c testConfig) DataDirectory() string {
	return c.dir
}

func TestHandleCache(t *testing.T) {
	assert := assert.New(t)

	cache, err := NewHandleCache("test-handle-cache")
	require.NoError(t, err)
	defer cache.Close()

	t.Run("Miss", func(t *testing.T) {
		_, err := cache.Get("alice.example.com")
		assert.ErrorIs(err, model.ErrorNotFound)
	})

	t.Run("Set And Get", func(t *testing.T) {
		assert.Nil(cache.Set("alice.example.com", "did:plc:alice"))
		did, err := cache.Get("alice.example.com")
		assert.Nil(err)
		assert.Equal("did:plc:alice", did)
	})

	t.Run("Overwrite", func(t *testing.T) {
		assert.Nil(cache.Set("alice.example.com", "did:plc:alice2"))
		did, err := cache.Get("alice.example.com")
		assert.Nil(err)
		assert.Equal("did:plc:alice2", did)
	})
}

func TestLedger(t *testing.T) {
	assert := assert.New(t)
	config := testConfig{dir: t.TempDir()}

	ledger, err := NewLedger(config)
	require.NoError(t, err)

	runID := model.NewRunID()

	t.Run("Start Run", func(t *testing.T) {
		assert.Nil(ledger.StartRun(&model.Run{
			ID:        runID,
			StartedAt: time.Now().UTC(),
			Outcome:   model.RunOutcomeRunning,
		}))
		run, err := ledger.Run(runID)
		assert.Nil(err)
		if assert.NotNil(run) {
			assert.Equal(model.RunOutcomeRunning, run.Outcome)
			assert.Nil(run.FinishedAt)
			assert.False(run.DryRun)
		}
	})

	t.Run("Record Deliveries", func(t *testing.T) {
		assert.Nil(ledger.Record(&model.Delivery{
			RunID:     runID,
			StatusID:  "1",
			CreatedAt: time.Now().UTC(),
			Action:    "text",
			URI:       "at://did:plc:me/app.bsky.feed.post/1",
			Outcome:   model.DeliveryOutcomeSubmitted,
		}))
		assert.Nil(ledger.Record(&model.Delivery{
			RunID:     runID,
			StatusID:  "2",
			CreatedAt: time.Now().UTC(),
			Action:    "reply",
			Outcome:   model.DeliveryOutcomeFailed,
			Error:     "transient: boom",
		}))

		deliveries, err := ledger.Deliveries(runID)
		assert.Nil(err)
		if assert.Len(deliveries, 2) {
			assert.Equal(model.StatusID("1"), deliveries[0].StatusID)
			assert.NotEmpty(deliveries[0].ID)
			assert.Equal(model.DeliveryOutcomeFailed, deliveries[1].Outcome)
			assert.Equal("transient: boom", deliveries[1].Error)
		}
	})

	t.Run("Finish Run", func(t *testing.T) {
		assert.Nil(ledger.FinishRun(runID, model.RunOutcomeFailed))
		run, err := ledger.Run(runID)
		assert.Nil(err)
		if assert.NotNil(run) {
			assert.Equal(model.RunOutcomeFailed, run.Outcome)
			assert.NotNil(run.FinishedAt)
		}
	})

	t.Run("Finish Unknown Run", func(t *testing.T) {
		assert.NotNil(ledger.FinishRun("nope", model.RunOutcomeDone))
	})

	t.Run("Reopen", func(t *testing.T) {
		assert.Nil(ledger.Close())
		reopened, err := NewLedger(config)
		assert.Nil(err)
		if reopened == nil {
			return
		}
		defer reopened.Close()
		deliveries, err := reopened.Deliveries(runID)
		assert.Nil(err)
		assert.Len(deliveries, 2)
	})
}
