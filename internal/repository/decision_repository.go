package repository

import (
	"github.com/yukikurage/pmbot/internal/models"
	"gorm.io/gorm"
)

// GormDecisionRepository is a GORM implementation of DecisionRepository
type GormDecisionRepository struct {
	db *gorm.DB
}

// NewDecisionRepository creates a new DecisionRepository
func NewDecisionRepository(db *gorm.DB) DecisionRepository {
	return &GormDecisionRepository{db: db}
}

// Create creates a new decision
func (r *GormDecisionRepository) Create(decision *models.Decision) error {
	return r.db.Omit("Project").Create(decision).Error
}

// FindByID finds a decision by ID with its project
func (r *GormDecisionRepository) FindByID(id string) (*models.Decision, error) {
	var decision models.Decision
	if err := r.db.Preload("Project").Where("id = ?", id).First(&decision).Error; err != nil {
		return nil, err
	}
	return &decision, nil
}

// ListByProject lists a project's decisions, newest first
func (r *GormDecisionRepository) ListByProject(projectID string, limit int) ([]models.Decision, error) {
	var decisions []models.Decision
	query := r.db.Where("project_id = ?", projectID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&decisions).Error; err != nil {
		return nil, err
	}
	return decisions, nil
}

// ListRecentByGuild lists the latest decisions across a guild's projects
func (r *GormDecisionRepository) ListRecentByGuild(guildID string, limit int) ([]models.Decision, error) {
	var decisions []models.Decision
	query := r.db.
		Joins("JOIN projects ON projects.id = decisions.project_id").
		Where("projects.guild_id = ?", guildID).
		Order("decisions.created_at DESC").
		Preload("Project")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&decisions).Error; err != nil {
		return nil, err
	}
	return decisions, nil
}

// Delete deletes a decision
func (r *GormDecisionRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Decision{}).Error
}

// CountByProject counts a project's decisions
func (r *GormDecisionRepository) CountByProject(projectID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Decision{}).Where("project_id = ?", projectID).Count(&count).Error
	return count, err
}
