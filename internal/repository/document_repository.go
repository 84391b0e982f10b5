package repository

import (
	"github.com/yukikurage/pmbot/internal/models"
	"gorm.io/gorm"
)

// GormDocumentRepository is a GORM implementation of DocumentRepository
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Create creates a new document link
func (r *GormDocumentRepository) Create(document *models.Document) error {
	return r.db.Omit("Project").Create(document).Error
}

// FindByID finds a document by ID with its project
func (r *GormDocumentRepository) FindByID(id string) (*models.Document, error) {
	var document models.Document
	if err := r.db.Preload("Project").Where("id = ?", id).First(&document).Error; err != nil {
		return nil, err
	}
	return &document, nil
}

// List lists documents, newest first
func (r *GormDocumentRepository) List(filter DocumentFilter) ([]models.Document, error) {
	var documents []models.Document

	query := r.db.Model(&models.Document{})
	if filter.ProjectID != nil {
		query = query.Where("documents.project_id = ?", *filter.ProjectID)
	}
	if filter.GuildID != nil {
		query = query.Joins("JOIN projects ON projects.id = documents.project_id").
			Where("projects.guild_id = ?", *filter.GuildID)
	}
	if filter.Type != nil {
		query = query.Where("documents.type = ?", *filter.Type)
	}

	if err := query.Order("documents.created_at DESC").Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}

// Delete deletes a document
func (r *GormDocumentRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Document{}).Error
}

// CountByProjectAndType groups a project's documents by type
func (r *GormDocumentRepository) CountByProjectAndType(projectID string) (map[models.DocumentType]int64, error) {
	var rows []struct {
		Type  models.DocumentType
		Count int64
	}
	if err := r.db.Model(&models.Document{}).
		Select("type, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.DocumentType]int64, len(rows))
	for _, row := range rows {
		counts[row.Type] = row.Count
	}
	return counts, nil
}
