package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound             = errors.New("competition not found")
	ErrExists               = errors.New("already exists")
	ErrCompleted            = errors.New("competition already completed")
	ErrDuplicateParticipant = errors.New("participant already on roster")
	ErrLogAdvanced          = errors.New("event log changed since it was scored")
)
