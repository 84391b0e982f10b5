package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MilestoneStatus string

const (
	MilestoneStatusScheduled MilestoneStatus = "SCHEDULED"
	MilestoneStatusCompleted MilestoneStatus = "COMPLETED"
	MilestoneStatusDelayed   MilestoneStatus = "DELAYED"
)

// Valid reports whether s is a known milestone status
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestoneStatusScheduled, MilestoneStatusCompleted, MilestoneStatusDelayed:
		return true
	}
	return false
}

// NotificationKind identifies one of the one-shot milestone alerts
type NotificationKind string

const (
	NotificationD7      NotificationKind = "D7"
	NotificationD1      NotificationKind = "D1"
	NotificationDelayed NotificationKind = "DELAYED"
)

type Milestone struct {
	ID          string          `gorm:"type:varchar(36);primarykey" json:"id"`
	ProjectID   string          `gorm:"type:varchar(36);not null;index" json:"project_id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	TargetDate  time.Time       `gorm:"not null;index" json:"target_date"`
	AssigneeID  *string         `gorm:"type:varchar(32)" json:"assignee_id,omitempty"`
	Status      MilestoneStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	// Relations
	Project       *Project                `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Notifications []MilestoneNotification `gorm:"foreignKey:MilestoneID" json:"notifications,omitempty"`
}

// MilestoneNotification records when a given alert kind was delivered.
// A missing row means the alert was never sent.
type MilestoneNotification struct {
	MilestoneID string           `gorm:"type:varchar(36);primarykey" json:"milestone_id"`
	Kind        NotificationKind `gorm:"type:varchar(20);primarykey" json:"kind"`
	SentAt      time.Time        `gorm:"not null" json:"sent_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (m *Milestone) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// NotifiedAt returns when the alert of the given kind was sent, or nil
func (m *Milestone) NotifiedAt(kind NotificationKind) *time.Time {
	for i := range m.Notifications {
		if m.Notifications[i].Kind == kind {
			return &m.Notifications[i].SentAt
		}
	}
	return nil
}

// Notified reports whether the alert of the given kind was already sent
func (m *Milestone) Notified(kind NotificationKind) bool {
	return m.NotifiedAt(kind) != nil
}

// RecordNotification marks kind as sent at the given time
func (m *Milestone) RecordNotification(kind NotificationKind, at time.Time) {
	for i := range m.Notifications {
		if m.Notifications[i].Kind == kind {
			m.Notifications[i].SentAt = at
			return
		}
	}
	m.Notifications = append(m.Notifications, MilestoneNotification{
		MilestoneID: m.ID,
		Kind:        kind,
		SentAt:      at,
	})
}
