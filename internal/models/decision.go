package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Decision struct {
	ID           string                     `gorm:"type:varchar(36);primarykey" json:"id"`
	ProjectID    string                     `gorm:"type:varchar(36);not null;index" json:"project_id"`
	Content      string                     `gorm:"type:text;not null" json:"content"`
	Reason       string                     `gorm:"type:text" json:"reason,omitempty"`
	DeciderID    string                     `gorm:"type:varchar(32);not null" json:"decider_id"`
	RelatedLinks datatypes.JSONSlice[string] `json:"related_links,omitempty"`
	CreatedAt    time.Time                  `json:"created_at"`

	// Relations
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (d *Decision) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
