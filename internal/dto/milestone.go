package dto

import (
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
)

// MilestoneDTO represents a milestone in API responses
type MilestoneDTO struct {
	ID          string                 `json:"id"`
	ProjectID   string                 `json:"project_id"`
	ProjectName string                 `json:"project_name,omitempty"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	TargetDate  time.Time              `json:"target_date"`
	AssigneeID  *string                `json:"assignee_id,omitempty"`
	Status      models.MilestoneStatus `json:"status"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`

	// Notified maps each delivered alert kind to its send time
	Notified map[models.NotificationKind]time.Time `json:"notified,omitempty"`
}

// MilestoneStatsDTO holds milestone counters for a project
type MilestoneStatsDTO struct {
	Total          int64 `json:"total"`
	Scheduled      int64 `json:"scheduled"`
	Completed      int64 `json:"completed"`
	Delayed        int64 `json:"delayed"`
	CompletionRate int   `json:"completion_rate"`
}

// ToMilestoneDTO converts a Milestone model to MilestoneDTO
func ToMilestoneDTO(milestone models.Milestone) MilestoneDTO {
	dto := MilestoneDTO{
		ID:          milestone.ID,
		ProjectID:   milestone.ProjectID,
		Name:        milestone.Name,
		Description: milestone.Description,
		TargetDate:  milestone.TargetDate,
		AssigneeID:  milestone.AssigneeID,
		Status:      milestone.Status,
		CompletedAt: milestone.CompletedAt,
		CreatedAt:   milestone.CreatedAt,
		UpdatedAt:   milestone.UpdatedAt,
	}

	if milestone.Project != nil {
		dto.ProjectName = milestone.Project.Name
	}
	if len(milestone.Notifications) > 0 {
		dto.Notified = make(map[models.NotificationKind]time.Time, len(milestone.Notifications))
		for _, n := range milestone.Notifications {
			dto.Notified[n.Kind] = n.SentAt
		}
	}

	return dto
}

// ToMilestoneDTOs converts a slice of milestones
func ToMilestoneDTOs(milestones []models.Milestone) []MilestoneDTO {
	items := make([]MilestoneDTO, len(milestones))
	for i, milestone := range milestones {
		items[i] = ToMilestoneDTO(milestone)
	}
	return items
}

// ToMilestoneStatsDTO converts repository counters, adding the completion rate
func ToMilestoneStatsDTO(stats repository.MilestoneStats) MilestoneStatsDTO {
	return MilestoneStatsDTO{
		Total:          stats.Total,
		Scheduled:      stats.Scheduled,
		Completed:      stats.Completed,
		Delayed:        stats.Delayed,
		CompletionRate: stats.CompletionRate(),
	}
}
