package domain

import "errors"

var (
	// ErrValidation marks input that fails domain validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a state transition rejected by current entity state.
	ErrConflict = errors.New("conflict")
	// ErrParse marks an unparseable pickup/dropoff clock time.
	ErrParse = errors.New("parse error")
	// ErrDuplicateAction marks an idempotency guard rejecting a repeated
	// (order set, message type) action. Expected under overlapping ticks.
	ErrDuplicateAction = errors.New("duplicate action")
	// ErrStaleState marks an escalation step that lost a check-then-act race.
	ErrStaleState = errors.New("stale state")
)
