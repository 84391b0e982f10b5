package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IssueImpact string

const (
	IssueImpactLow      IssueImpact = "LOW"
	IssueImpactMedium   IssueImpact = "MEDIUM"
	IssueImpactHigh     IssueImpact = "HIGH"
	IssueImpactCritical IssueImpact = "CRITICAL"
)

// Valid reports whether i is a known impact level
func (i IssueImpact) Valid() bool {
	return i.Rank() > 0
}

// Rank orders impacts from LOW (1) to CRITICAL (4); unknown values rank 0
func (i IssueImpact) Rank() int {
	switch i {
	case IssueImpactLow:
		return 1
	case IssueImpactMedium:
		return 2
	case IssueImpactHigh:
		return 3
	case IssueImpactCritical:
		return 4
	}
	return 0
}

type IssueStatus string

const (
	IssueStatusOpen     IssueStatus = "OPEN"
	IssueStatusInAction IssueStatus = "IN_ACTION"
	IssueStatusResolved IssueStatus = "RESOLVED"
	IssueStatusClosed   IssueStatus = "CLOSED"
)

// ActiveIssueStatuses are the statuses that count as an unresolved issue
var ActiveIssueStatuses = []IssueStatus{IssueStatusOpen, IssueStatusInAction}

// Valid reports whether s is a known issue status
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInAction, IssueStatusResolved, IssueStatusClosed:
		return true
	}
	return false
}

// Active reports whether s is OPEN or IN_ACTION
func (s IssueStatus) Active() bool {
	return s == IssueStatusOpen || s == IssueStatusInAction
}

type Issue struct {
	ID            string      `gorm:"type:varchar(36);primarykey" json:"id"`
	ProjectID     string      `gorm:"type:varchar(36);not null;index" json:"project_id"`
	Title         string      `gorm:"type:varchar(200);not null" json:"title"`
	Content       string      `gorm:"type:text;not null" json:"content"`
	AssigneeID    *string     `gorm:"type:varchar(32)" json:"assignee_id,omitempty"`
	ReporterID    string      `gorm:"type:varchar(32)" json:"reporter_id,omitempty"`
	Impact        IssueImpact `gorm:"type:varchar(20);not null;index" json:"impact"`
	Status        IssueStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Resolution    *string     `gorm:"type:text" json:"resolution,omitempty"`
	ResolvedAt    *time.Time  `json:"resolved_at,omitempty"`
	ClosedAt      *time.Time  `json:"closed_at,omitempty"`
	LastWarningAt *time.Time  `json:"last_warning_at,omitempty"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`

	// Relations
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (i *Issue) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}
