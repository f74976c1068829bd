package model

// Checkpoint is the only state that survives between runs. A non-nil Error
// is a durable halt marker.
type Checkpoint struct {
	ID    StatusID `json:"id"`
	Error *string  `json:"error"`
}

func (c *Checkpoint) Halted() bool {
	return c.Error != nil
}

func CleanCheckpoint(id StatusID) *Checkpoint {
	return &Checkpoint{ID: id}
}

func FailedCheckpoint(id StatusID, err error) *Checkpoint {
	msg := err.Error()
	return &Checkpoint{ID: id, Error: &msg}
}
