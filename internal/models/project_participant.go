package models

import "time"

type ParticipantRole string

const (
	ParticipantRolePM     ParticipantRole = "PM"
	ParticipantRoleMember ParticipantRole = "MEMBER"
)

type ProjectParticipant struct {
	ProjectID string          `gorm:"type:varchar(36);primarykey" json:"project_id"`
	UserID    string          `gorm:"type:varchar(32);primarykey" json:"user_id"`
	Role      ParticipantRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time       `gorm:"autoCreateTime" json:"joined_at"`
}
