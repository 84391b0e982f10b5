package repository

import (
	"github.com/yukikurage/pmbot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project together with its initial participants
func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// FindByID finds a project by ID with optional preloading
func (r *GormProjectRepository) FindByID(id string, preload ...string) (*models.Project, error) {
	var project models.Project
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}

	return &project, nil
}

// List retrieves projects with filtering and pagination
func (r *GormProjectRepository) List(filter ProjectFilter) ([]models.Project, int64, error) {
	var projects []models.Project

	query := r.db.Model(&models.Project{}).Where("projects.guild_id = ?", filter.GuildID)

	if filter.Status != nil {
		query = query.Where("projects.status = ?", *filter.Status)
	}
	if filter.PMID != nil {
		query = query.Where("projects.pm_id = ?", *filter.PMID)
	}
	if filter.ParticipantID != nil {
		participantSubQuery := r.db.Model(&models.ProjectParticipant{}).
			Select("1").
			Where("project_participants.project_id = projects.id").
			Where("project_participants.user_id = ?", *filter.ParticipantID)
		query = query.Where("EXISTS (?)", participantSubQuery)
	}
	if filter.Search != nil && *filter.Search != "" {
		query = query.Where("projects.name LIKE ?", "%"+*filter.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("projects.created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Participants").Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// Update saves the project's own columns
func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Omit(clause.Associations).Save(project).Error
}

// UpdateStatus moves a project from one status to another
func (r *GormProjectRepository) UpdateStatus(id string, from, to models.ProjectStatus) (bool, error) {
	result := r.db.Model(&models.Project{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete deletes a project and everything it owns in a transaction
func (r *GormProjectRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		milestoneIDs := tx.Model(&models.Milestone{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("milestone_id IN (?)", milestoneIDs).Delete(&models.MilestoneNotification{}).Error; err != nil {
			return err
		}

		for _, owned := range []interface{}{
			&models.Milestone{},
			&models.Issue{},
			&models.Decision{},
			&models.Document{},
			&models.ProjectParticipant{},
		} {
			if err := tx.Where("project_id = ?", id).Delete(owned).Error; err != nil {
				return err
			}
		}

		return tx.Where("id = ?", id).Delete(&models.Project{}).Error
	})
}

// AddParticipant adds a user to a project, ignoring duplicates
func (r *GormProjectRepository) AddParticipant(participant *models.ProjectParticipant) error {
	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(participant).Error
}

// RemoveParticipant removes a user from a project
func (r *GormProjectRepository) RemoveParticipant(projectID, userID string) error {
	return r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectParticipant{}).Error
}

// FindParticipant finds a specific project participant
func (r *GormProjectRepository) FindParticipant(projectID, userID string) (*models.ProjectParticipant, error) {
	var participant models.ProjectParticipant
	if err := r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&participant).Error; err != nil {
		return nil, err
	}
	return &participant, nil
}

// Count counts projects matching the filter
func (r *GormProjectRepository) Count(filter ProjectCountFilter) (int64, error) {
	query := r.db.Model(&models.Project{}).Where("guild_id = ?", filter.GuildID)

	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if len(filter.ExcludeStatuses) > 0 {
		query = query.Where("status NOT IN ?", filter.ExcludeStatuses)
	}
	if filter.CompletedFrom != nil {
		query = query.Where("completed_at >= ?", filter.CompletedFrom.UTC())
	}
	if filter.CompletedTo != nil {
		query = query.Where("completed_at <= ?", filter.CompletedTo.UTC())
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// CountByStatus groups a guild's projects by status
func (r *GormProjectRepository) CountByStatus(guildID string) (map[models.ProjectStatus]int64, error) {
	var rows []struct {
		Status models.ProjectStatus
		Count  int64
	}
	if err := r.db.Model(&models.Project{}).
		Select("status, COUNT(*) AS count").
		Where("guild_id = ?", guildID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[models.ProjectStatus]int64, len(models.ProjectStatuses))
	for _, status := range models.ProjectStatuses {
		counts[status] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
