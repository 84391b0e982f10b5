package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "PLANNING"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusIssue      ProjectStatus = "ISSUE"
	ProjectStatusOnHold     ProjectStatus = "ON_HOLD"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
)

// ProjectStatuses lists every project status in display order
var ProjectStatuses = []ProjectStatus{
	ProjectStatusPlanning,
	ProjectStatusInProgress,
	ProjectStatusIssue,
	ProjectStatusOnHold,
	ProjectStatusCompleted,
}

// Valid reports whether s is a known project status
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusInProgress, ProjectStatusIssue, ProjectStatusOnHold, ProjectStatusCompleted:
		return true
	}
	return false
}

type Project struct {
	ID          string        `gorm:"type:varchar(36);primarykey" json:"id"`
	GuildID     string        `gorm:"type:varchar(32);not null;index" json:"guild_id"`
	Name        string        `gorm:"type:varchar(100);not null" json:"name"`
	Description string        `gorm:"type:text" json:"description"`
	PMID        string        `gorm:"column:pm_id;type:varchar(32);not null" json:"pm_id"`
	ChannelID   *string       `gorm:"type:varchar(32)" json:"channel_id,omitempty"`
	StartDate   time.Time     `gorm:"not null" json:"start_date"`
	EndDate     time.Time     `gorm:"not null" json:"end_date"`
	Status      ProjectStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ManHours    *float64      `json:"man_hours,omitempty"`
	Personnel   string        `gorm:"type:varchar(200)" json:"personnel,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Relations
	Participants []ProjectParticipant `gorm:"foreignKey:ProjectID" json:"participants,omitempty"`
	Milestones   []Milestone          `gorm:"foreignKey:ProjectID" json:"milestones,omitempty"`
	Issues       []Issue              `gorm:"foreignKey:ProjectID" json:"issues,omitempty"`
	Decisions    []Decision           `gorm:"foreignKey:ProjectID" json:"decisions,omitempty"`
	Documents    []Document           `gorm:"foreignKey:ProjectID" json:"documents,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
