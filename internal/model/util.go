package model

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
	"github.com/nrednav/cuid2"
)

type RunID string      // one invocation of the relay, e.g. tz4a98xxat96iws9zmbrgj3a
type DeliveryID string // ledger row, base58 encoded uuid

func NewRunID() RunID {
	return RunID(cuid2.Generate())
}

func NewDeliveryID() DeliveryID {
	id := uuid.New()
	return DeliveryID(base58.Encode(id[:]))
}
