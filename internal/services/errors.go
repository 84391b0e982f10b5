package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is wrapped by every entity-specific not found error
	ErrNotFound = errors.New("not found")
	// ErrValidation is wrapped by every input validation error
	ErrValidation = errors.New("validation failed")
	// ErrPermissionDenied is returned when the actor lacks the required permission
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict is wrapped by errors about operations the current state does not allow
	ErrConflict = errors.New("operation not allowed in the current state")
)

var (
	ErrProjectNotFound   = fmt.Errorf("project %w", ErrNotFound)
	ErrMilestoneNotFound = fmt.Errorf("milestone %w", ErrNotFound)
	ErrIssueNotFound     = fmt.Errorf("issue %w", ErrNotFound)
	ErrDecisionNotFound  = fmt.Errorf("decision %w", ErrNotFound)
	ErrDocumentNotFound  = fmt.Errorf("document %w", ErrNotFound)

	ErrNameRequired         = fmt.Errorf("%w: name is required", ErrValidation)
	ErrTitleRequired        = fmt.Errorf("%w: title is required", ErrValidation)
	ErrContentRequired      = fmt.Errorf("%w: content is required", ErrValidation)
	ErrPMRequired           = fmt.Errorf("%w: pm_id is required", ErrValidation)
	ErrInvalidDateRange     = fmt.Errorf("%w: end date must be after start date", ErrValidation)
	ErrTargetDateOutOfRange = fmt.Errorf("%w: target date must be within the project period", ErrValidation)
	ErrInvalidImpact        = fmt.Errorf("%w: unknown impact", ErrValidation)
	ErrInvalidDocumentType  = fmt.Errorf("%w: unknown document type", ErrValidation)
	ErrInvalidURL           = fmt.Errorf("%w: url must be an absolute http(s) url", ErrValidation)
	ErrInvalidTimezone      = fmt.Errorf("%w: unknown timezone", ErrValidation)
	ErrCannotRemovePM       = fmt.Errorf("%w: the project PM cannot be removed", ErrValidation)

	ErrProjectCompleted = fmt.Errorf("%w: project is completed", ErrConflict)
	ErrIssueClosed      = fmt.Errorf("%w: issue is closed", ErrConflict)
)

// tooLong builds the validation error for a field over its length limit
func tooLong(field string, limit int) error {
	return fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, field, limit)
}

// notFound maps gorm's missing-row error to the entity's sentinel
func notFound(err error, sentinel error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
