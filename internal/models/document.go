package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentType string

const (
	DocumentTypePlan      DocumentType = "기획서"
	DocumentTypeDesign    DocumentType = "설계서"
	DocumentTypeMeeting   DocumentType = "회의록"
	DocumentTypeReference DocumentType = "참고자료"
	DocumentTypeContract  DocumentType = "계약서"
	DocumentTypeReport    DocumentType = "보고서"
	DocumentTypeOther     DocumentType = "기타"
)

// Valid reports whether t is one of the registered document types
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypePlan, DocumentTypeDesign, DocumentTypeMeeting, DocumentTypeReference,
		DocumentTypeContract, DocumentTypeReport, DocumentTypeOther:
		return true
	}
	return false
}

type Document struct {
	ID           string       `gorm:"type:varchar(36);primarykey" json:"id"`
	ProjectID    string       `gorm:"type:varchar(36);not null;index" json:"project_id"`
	Name         string       `gorm:"type:varchar(200);not null" json:"name"`
	Type         DocumentType `gorm:"type:varchar(20);not null" json:"type"`
	URL          string       `gorm:"type:varchar(2048);not null" json:"url"`
	RegistrantID string       `gorm:"type:varchar(32);not null" json:"registrant_id"`
	CreatedAt    time.Time    `json:"created_at"`

	// Relations
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// BeforeCreate assigns a UUID when the caller did not provide one
func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
