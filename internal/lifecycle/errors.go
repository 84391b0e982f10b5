package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition is returned when a status change violates terminal-state or ordering rules
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrOpenIssuesRemain is returned when a project cannot be completed because of unresolved issues
	ErrOpenIssuesRemain = errors.New("open issues remain")
	// ErrAlreadyCompleted is returned when completing a milestone twice
	ErrAlreadyCompleted = errors.New("already completed")
)

// TransitionError describes a rejected status change
type TransitionError struct {
	Entity string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s status cannot change from %s to %s: %s", e.Entity, e.From, e.To, e.Reason)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// OpenIssuesError carries the number of active issues blocking completion
type OpenIssuesError struct {
	Count int64
}

func (e *OpenIssuesError) Error() string {
	return fmt.Sprintf("%d open issues must be resolved before completing the project", e.Count)
}

func (e *OpenIssuesError) Unwrap() error {
	return ErrOpenIssuesRemain
}

func invalid[S ~string](entity string, from, to S, reason string) error {
	return &TransitionError{Entity: entity, From: string(from), To: string(to), Reason: reason}
}
