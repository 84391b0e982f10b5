package dto

import (
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/utils"
)

// IssueDTO represents an issue in API responses
type IssueDTO struct {
	ID            string             `json:"id"`
	ProjectID     string             `json:"project_id"`
	ProjectName   string             `json:"project_name,omitempty"`
	Title         string             `json:"title"`
	Content       string             `json:"content"`
	AssigneeID    *string            `json:"assignee_id,omitempty"`
	ReporterID    string             `json:"reporter_id"`
	Impact        models.IssueImpact `json:"impact"`
	Status        models.IssueStatus `json:"status"`
	Resolution    *string            `json:"resolution,omitempty"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
	ClosedAt      *time.Time         `json:"closed_at,omitempty"`
	LastWarningAt *time.Time         `json:"last_warning_at,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// IssueStatsDTO holds issue counters for a project
type IssueStatsDTO struct {
	Total          int64 `json:"total"`
	Open           int64 `json:"open"`
	InAction       int64 `json:"in_action"`
	Resolved       int64 `json:"resolved"`
	Closed         int64 `json:"closed"`
	Critical       int64 `json:"critical"`
	ResolutionRate int   `json:"resolution_rate"`
}

// IssueListResponse represents a paginated list of issues
type IssueListResponse struct {
	Issues     []IssueDTO `json:"issues"`
	Page       int        `json:"page"`
	PageSize   int        `json:"page_size"`
	TotalCount int64      `json:"total_count"`
	TotalPages int        `json:"total_pages"`
}

// DecisionDTO represents a decision record in API responses
type DecisionDTO struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Content      string    `json:"content"`
	Reason       string    `json:"reason,omitempty"`
	DeciderID    string    `json:"decider_id"`
	RelatedLinks []string  `json:"related_links,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// DocumentDTO represents a document link in API responses
type DocumentDTO struct {
	ID           string              `json:"id"`
	ProjectID    string              `json:"project_id"`
	Name         string              `json:"name"`
	Type         models.DocumentType `json:"type"`
	URL          string              `json:"url"`
	RegistrantID string              `json:"registrant_id"`
	CreatedAt    time.Time           `json:"created_at"`
}

// ToIssueDTO converts an Issue model to IssueDTO
func ToIssueDTO(issue models.Issue) IssueDTO {
	dto := IssueDTO{
		ID:            issue.ID,
		ProjectID:     issue.ProjectID,
		Title:         issue.Title,
		Content:       issue.Content,
		AssigneeID:    issue.AssigneeID,
		ReporterID:    issue.ReporterID,
		Impact:        issue.Impact,
		Status:        issue.Status,
		Resolution:    issue.Resolution,
		ResolvedAt:    issue.ResolvedAt,
		ClosedAt:      issue.ClosedAt,
		LastWarningAt: issue.LastWarningAt,
		CreatedAt:     issue.CreatedAt,
		UpdatedAt:     issue.UpdatedAt,
	}
	if issue.Project != nil {
		dto.ProjectName = issue.Project.Name
	}
	return dto
}

// ToIssueListResponse converts a slice of issues to IssueListResponse
func ToIssueListResponse(issues []models.Issue, page, pageSize int, totalCount int64) IssueListResponse {
	items := make([]IssueDTO, len(issues))
	for i, issue := range issues {
		items[i] = ToIssueDTO(issue)
	}

	return IssueListResponse{
		Issues:     items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: utils.TotalPages(totalCount, pageSize),
	}
}

// ToIssueStatsDTO converts repository counters, adding the resolution rate
func ToIssueStatsDTO(stats repository.IssueStats) IssueStatsDTO {
	return IssueStatsDTO{
		Total:          stats.Total,
		Open:           stats.Open,
		InAction:       stats.InAction,
		Resolved:       stats.Resolved,
		Closed:         stats.Closed,
		Critical:       stats.Critical,
		ResolutionRate: stats.ResolutionRate(),
	}
}

// ToDecisionDTO converts a Decision model to DecisionDTO
func ToDecisionDTO(decision models.Decision) DecisionDTO {
	return DecisionDTO{
		ID:           decision.ID,
		ProjectID:    decision.ProjectID,
		Content:      decision.Content,
		Reason:       decision.Reason,
		DeciderID:    decision.DeciderID,
		RelatedLinks: []string(decision.RelatedLinks),
		CreatedAt:    decision.CreatedAt,
	}
}

// ToDocumentDTO converts a Document model to DocumentDTO
func ToDocumentDTO(document models.Document) DocumentDTO {
	return DocumentDTO{
		ID:           document.ID,
		ProjectID:    document.ProjectID,
		Name:         document.Name,
		Type:         document.Type,
		URL:          document.URL,
		RegistrantID: document.RegistrantID,
		CreatedAt:    document.CreatedAt,
	}
}
