package repository

import (
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// impactOrder ranks impacts so that CRITICAL sorts first
const impactOrder = "CASE issues.impact WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 WHEN 'LOW' THEN 1 ELSE 0 END DESC"

// GormIssueRepository is a GORM implementation of IssueRepository
type GormIssueRepository struct {
	db *gorm.DB
}

// NewIssueRepository creates a new IssueRepository
func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &GormIssueRepository{db: db}
}

// Create creates a new issue
func (r *GormIssueRepository) Create(issue *models.Issue) error {
	return r.db.Omit("Project").Create(issue).Error
}

// FindByID finds an issue by ID with its project
func (r *GormIssueRepository) FindByID(id string) (*models.Issue, error) {
	var issue models.Issue
	if err := r.db.Preload("Project").Where("id = ?", id).First(&issue).Error; err != nil {
		return nil, err
	}
	return &issue, nil
}

// List retrieves issues ordered by impact, most severe first, then newest first
func (r *GormIssueRepository) List(filter IssueFilter) ([]models.Issue, int64, error) {
	var issues []models.Issue

	query := r.filtered(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order(impactOrder).Order("issues.created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		listQuery = listQuery.Offset(offset).Limit(filter.PageSize)
	}

	if err := listQuery.Preload("Project").Find(&issues).Error; err != nil {
		return nil, 0, err
	}

	return issues, total, nil
}

// Update saves the issue's own columns
func (r *GormIssueRepository) Update(issue *models.Issue) error {
	return r.db.Omit(clause.Associations).Save(issue).Error
}

// Delete deletes an issue
func (r *GormIssueRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Issue{}).Error
}

// CountActiveCritical counts active CRITICAL issues of a project, optionally excluding one
func (r *GormIssueRepository) CountActiveCritical(projectID string, excludeID string) (int64, error) {
	query := r.db.Model(&models.Issue{}).
		Where("project_id = ?", projectID).
		Where("impact = ?", models.IssueImpactCritical).
		Where("status IN ?", models.ActiveIssueStatuses)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// MarkWarning records the time an unattended-issue warning was delivered
func (r *GormIssueRepository) MarkWarning(id string, at time.Time) error {
	return r.db.Model(&models.Issue{}).
		Where("id = ?", id).
		Update("last_warning_at", at.UTC()).Error
}

// Count counts issues matching the filter
func (r *GormIssueRepository) Count(filter IssueFilter) (int64, error) {
	var count int64
	err := r.filtered(filter).Count(&count).Error
	return count, err
}

// StatsByProject returns status counts for one project
func (r *GormIssueRepository) StatsByProject(projectID string) (IssueStats, error) {
	var rows []struct {
		Status models.IssueStatus
		Impact models.IssueImpact
		Count  int64
	}
	if err := r.db.Model(&models.Issue{}).
		Select("status, impact, COUNT(*) AS count").
		Where("project_id = ?", projectID).
		Group("status, impact").
		Scan(&rows).Error; err != nil {
		return IssueStats{}, err
	}

	var stats IssueStats
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case models.IssueStatusOpen:
			stats.Open += row.Count
		case models.IssueStatusInAction:
			stats.InAction += row.Count
		case models.IssueStatusResolved:
			stats.Resolved += row.Count
		case models.IssueStatusClosed:
			stats.Closed += row.Count
		}
		if row.Impact == models.IssueImpactCritical && row.Status.Active() {
			stats.Critical += row.Count
		}
	}
	return stats, nil
}

func (r *GormIssueRepository) filtered(filter IssueFilter) *gorm.DB {
	query := r.db.Model(&models.Issue{})

	if filter.ProjectID != nil {
		query = query.Where("issues.project_id = ?", *filter.ProjectID)
	}
	if filter.GuildID != nil {
		projectSubQuery := r.db.Model(&models.Project{}).
			Select("1").
			Where("projects.id = issues.project_id").
			Where("projects.guild_id = ?", *filter.GuildID)
		query = query.Where("EXISTS (?)", projectSubQuery)
	}
	if filter.Status != nil {
		query = query.Where("issues.status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("issues.status IN ?", filter.Statuses)
	}
	if filter.Impact != nil {
		query = query.Where("issues.impact = ?", *filter.Impact)
	}
	if filter.AssigneeID != nil {
		query = query.Where("issues.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("issues.created_at <= ?", filter.CreatedBefore.UTC())
	}
	if filter.CreatedFrom != nil {
		query = query.Where("issues.created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedTo != nil {
		query = query.Where("issues.created_at <= ?", filter.CreatedTo.UTC())
	}
	if filter.ClosedFrom != nil {
		query = query.Where("issues.closed_at >= ?", filter.ClosedFrom.UTC())
	}
	if filter.ClosedTo != nil {
		query = query.Where("issues.closed_at <= ?", filter.ClosedTo.UTC())
	}
	if filter.WarnedBefore != nil {
		query = query.Where("(issues.last_warning_at IS NULL OR issues.last_warning_at <= ?)", filter.WarnedBefore.UTC())
	}

	return query
}
