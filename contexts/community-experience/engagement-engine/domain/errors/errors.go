package errors

import (
	"errors"
	"fmt"
)

// Error classes. Specific errors below match one class via errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrConflict      = errors.New("already in requested state")
	ErrStore         = errors.New("store operation failed")
	ErrStaleResponse = errors.New("stale response dropped")
)

var (
	ErrEmptyBallot             = validation("ballot is empty")
	ErrUnknownOption           = validation("poll option not found")
	ErrPollExpired             = validation("poll has expired")
	ErrResultsLocked           = validation("poll is showing results; revert to voting first")
	ErrRevertNotAllowed        = validation("revert requires a submitted ballot on an open poll")
	ErrPollNotFound            = validation("poll not found")
	ErrCounterNotFound         = validation("counter not found")
	ErrNotificationNotFound    = validation("notification not found")
	ErrUnknownNotificationType = validation("unknown notification type")
	ErrInvalidTab              = validation("invalid notification tab")
	ErrInvalidInput            = validation("invalid input")

	ErrSubmissionInFlight = errors.New("vote submission already in flight")
	ErrToggleInFlight     = errors.New("toggle already in flight")
)

type classified struct {
	class error
	msg   string
}

func validation(msg string) error {
	return &classified{class: ErrValidation, msg: msg}
}

func (e *classified) Error() string { return e.msg }

func (e *classified) Is(target error) bool { return target == e.class }

// StoreError wraps a collaborator failure. It matches ErrStore.
type StoreError struct {
	Op  string
	Err error
}

func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// IsUserVisible reports whether err should reach user-facing messaging. Only
// store failures qualify.
func IsUserVisible(err error) bool {
	return err != nil && errors.Is(err, ErrStore)
}
