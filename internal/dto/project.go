package dto

import (
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/utils"
)

// ParticipantDTO represents a project participant in API responses
type ParticipantDTO struct {
	UserID   string                 `json:"user_id"`
	Role     models.ParticipantRole `json:"role"`
	JoinedAt time.Time              `json:"joined_at"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID           string               `json:"id"`
	GuildID      string               `json:"guild_id"`
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	PMID         string               `json:"pm_id"`
	ChannelID    *string              `json:"channel_id,omitempty"`
	StartDate    time.Time            `json:"start_date"`
	EndDate      time.Time            `json:"end_date"`
	Status       models.ProjectStatus `json:"status"`
	ManHours     *float64             `json:"man_hours,omitempty"`
	Personnel    string               `json:"personnel,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	Participants []ParticipantDTO     `json:"participants,omitempty"`
}

// ProjectStatsDTO groups the counters shown on a project detail view
type ProjectStatsDTO struct {
	Milestones MilestoneStatsDTO `json:"milestones"`
	Issues     IssueStatsDTO     `json:"issues"`
	Decisions  int64             `json:"decisions"`
	Documents  int64             `json:"documents"`
	// Progress is the elapsed share of the project period, 0-100
	Progress int `json:"progress"`
}

// ProjectDetailDTO represents a project with its statistics
type ProjectDetailDTO struct {
	ProjectDTO
	Stats ProjectStatsDTO `json:"stats"`
}

// ProjectListResponse represents a paginated list of projects
type ProjectListResponse struct {
	Projects   []ProjectDTO `json:"projects"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalCount int64        `json:"total_count"`
	TotalPages int          `json:"total_pages"`
}

// GuildStatsDTO summarises the projects of a guild
type GuildStatsDTO struct {
	Total    int64                          `json:"total"`
	Active   int64                          `json:"active"`
	ByStatus map[models.ProjectStatus]int64 `json:"by_status"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          project.ID,
		GuildID:     project.GuildID,
		Name:        project.Name,
		Description: project.Description,
		PMID:        project.PMID,
		ChannelID:   project.ChannelID,
		StartDate:   project.StartDate,
		EndDate:     project.EndDate,
		Status:      project.Status,
		ManHours:    project.ManHours,
		Personnel:   project.Personnel,
		CompletedAt: project.CompletedAt,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}

	// Include participants if preloaded
	if len(project.Participants) > 0 {
		dto.Participants = make([]ParticipantDTO, len(project.Participants))
		for i, p := range project.Participants {
			dto.Participants[i] = ParticipantDTO{UserID: p.UserID, Role: p.Role, JoinedAt: p.JoinedAt}
		}
	}

	return dto
}

// ToProjectListResponse converts a slice of projects to ProjectListResponse
func ToProjectListResponse(projects []models.Project, page, pageSize int, totalCount int64) ProjectListResponse {
	items := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = ToProjectDTO(project)
	}

	return ProjectListResponse{
		Projects:   items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: utils.TotalPages(totalCount, pageSize),
	}
}
