package model

import (
	"errors"
	"fmt"
)

var ErrorNotFound = errors.New("not found")
var ErrorHalted = errors.New("halted on previous error")
var ErrorCheckpointMissing = errors.New("checkpoint not found")
var ErrorInvalidPostURL = errors.New("invalid post url")

type FailureKind string

const (
	FailureKindRejected  FailureKind = "rejected"
	FailureKindTransient FailureKind = "transient"
)

// RejectedError marks a failure where the destination refused the request
// itself, as opposed to the network or the service failing.
type RejectedError struct {
	StatusCode int
	Err        error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected (%d): %v", e.StatusCode, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

func KindOf(err error) FailureKind {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return FailureKindRejected
	}
	return FailureKindTransient
}
