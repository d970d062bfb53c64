package services

import "fmt"

// ValidationError rejects a send before anything is persisted; a rejected
// send leaves no rows behind.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

var (
	ErrEmptyBody       = &ValidationError{Reason: "message body is required"}
	ErrNoTarget        = &ValidationError{Reason: "message needs a receiver or a group"}
	ErrBothTargets     = &ValidationError{Reason: "message cannot target both a receiver and a group"}
	ErrNotAGroupMember = &ValidationError{Reason: "not a member of this group"}
)

// PersistenceError means the durable write (or the storage read validating
// it) failed. Nothing was broadcast; retrying is up to the client.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("failed to save message: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }
