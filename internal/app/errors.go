package service

import "errors"

var (
	// ErrBackpressure is returned by Submit when the ingestion queue is full.
	// The event was not recorded and may be resubmitted.
	ErrBackpressure = errors.New("ingestion queue is full")

	// ErrNotStarted is returned by operations that need the worker pool.
	ErrNotStarted = errors.New("service not started")

	// ErrUnknownParticipant is returned by Submit for a participant that is
	// not on the competition roster.
	ErrUnknownParticipant = errors.New("participant not on roster")
)
