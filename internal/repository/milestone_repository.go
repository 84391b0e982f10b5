package repository

import (
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMilestoneRepository is a GORM implementation of MilestoneRepository
type GormMilestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new MilestoneRepository
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &GormMilestoneRepository{db: db}
}

// Create creates a new milestone
func (r *GormMilestoneRepository) Create(milestone *models.Milestone) error {
	return r.db.Omit("Project").Create(milestone).Error
}

// FindByID finds a milestone by ID with its project and notification history
func (r *GormMilestoneRepository) FindByID(id string) (*models.Milestone, error) {
	var milestone models.Milestone
	if err := r.db.Preload("Project").Preload("Notifications").
		Where("id = ?", id).
		First(&milestone).Error; err != nil {
		return nil, err
	}
	return &milestone, nil
}

// List retrieves milestones ordered by target date
func (r *GormMilestoneRepository) List(filter MilestoneFilter) ([]models.Milestone, error) {
	var milestones []models.Milestone

	query := r.filtered(filter).Order("milestones.target_date ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Preload("Project").Preload("Notifications").Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

// Update saves the milestone's own columns
func (r *GormMilestoneRepository) Update(milestone *models.Milestone) error {
	return r.db.Omit(clause.Associations).Save(milestone).Error
}

// Delete deletes a milestone and its notification history
func (r *GormMilestoneRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("milestone_id = ?", id).Delete(&models.MilestoneNotification{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Milestone{}).Error
	})
}

// MarkDelayed moves the given SCHEDULED milestones to DELAYED.
// Milestones that changed status in the meantime are left alone.
func (r *GormMilestoneRepository) MarkDelayed(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result := r.db.Model(&models.Milestone{}).
		Where("id IN ? AND status = ?", ids, models.MilestoneStatusScheduled).
		Update("status", models.MilestoneStatusDelayed)
	return result.RowsAffected, result.Error
}

// MarkNotified records that the alert of the given kind was delivered
func (r *GormMilestoneRepository) MarkNotified(id string, kind models.NotificationKind, at time.Time) error {
	notification := models.MilestoneNotification{
		MilestoneID: id,
		Kind:        kind,
		SentAt:      at.UTC(),
	}
	return r.db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "milestone_id"}, {Name: "kind"}},
			DoUpdates: clause.AssignmentColumns([]string{"sent_at"}),
		}).
		Create(&notification).Error
}

// Count counts milestones matching the filter
func (r *GormMilestoneRepository) Count(filter MilestoneFilter) (int64, error) {
	var count int64
	err := r.filtered(filter).Count(&count).Error
	return count, err
}

// StatsByProject returns status counts for one project
func (r *GormMilestoneRepository) StatsByProject(projectID string) (MilestoneStats, error) {
	var rows []struct {
		Status models.MilestoneStatus
		Count  int64
	}
	if err := r.db.Model(&models.Milestone{}).
		Select("status, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return MilestoneStats{}, err
	}

	var stats MilestoneStats
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.MilestoneStatusScheduled:
			stats.Scheduled = row.Count
		case models.MilestoneStatusCompleted:
			stats.Completed = row.Count
		case models.MilestoneStatusDelayed:
			stats.Delayed = row.Count
		}
	}
	return stats, nil
}

func (r *GormMilestoneRepository) filtered(filter MilestoneFilter) *gorm.DB {
	query := r.db.Model(&models.Milestone{})

	if filter.ProjectID != nil {
		query = query.Where("milestones.project_id = ?", *filter.ProjectID)
	}
	if filter.GuildID != nil {
		projectSubQuery := r.db.Model(&models.Project{}).
			Select("1").
			Where("projects.id = milestones.project_id").
			Where("projects.guild_id = ?", *filter.GuildID)
		query = query.Where("EXISTS (?)", projectSubQuery)
	}
	if filter.Status != nil {
		query = query.Where("milestones.status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("milestones.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.TargetFrom != nil {
		query = query.Where("milestones.target_date >= ?", filter.TargetFrom.UTC())
	}
	if filter.TargetTo != nil {
		query = query.Where("milestones.target_date < ?", filter.TargetTo.UTC())
	}
	if filter.CompletedFrom != nil {
		query = query.Where("milestones.completed_at >= ?", filter.CompletedFrom.UTC())
	}
	if filter.CompletedTo != nil {
		query = query.Where("milestones.completed_at <= ?", filter.CompletedTo.UTC())
	}
	if filter.NotNotified != nil {
		sentSubQuery := r.db.Model(&models.MilestoneNotification{}).
			Select("1").
			Where("milestone_notifications.milestone_id = milestones.id").
			Where("milestone_notifications.kind = ?", *filter.NotNotified)
		query = query.Where("NOT EXISTS (?)", sentSubQuery)
	}

	return query
}
