package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/lifecycle"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/utils"
	"gorm.io/gorm"
)

// ProjectService handles project business logic
type ProjectService struct {
	projectRepo   repository.ProjectRepository
	milestoneRepo repository.MilestoneRepository
	issueRepo     repository.IssueRepository
	decisionRepo  repository.DecisionRepository
	documentRepo  repository.DocumentRepository
	now           func() time.Time
}

// NewProjectService creates a new ProjectService
func NewProjectService(
	projectRepo repository.ProjectRepository,
	milestoneRepo repository.MilestoneRepository,
	issueRepo repository.IssueRepository,
	decisionRepo repository.DecisionRepository,
	documentRepo repository.DocumentRepository,
) *ProjectService {
	return &ProjectService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		issueRepo:     issueRepo,
		decisionRepo:  decisionRepo,
		documentRepo:  documentRepo,
		now:           utcNow,
	}
}

// WithClock replaces the service clock
func (s *ProjectService) WithClock(now func() time.Time) *ProjectService {
	s.now = now
	return s
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	GuildID     string
	Name        string
	Description string
	PMID        string
	ChannelID   *string
	StartDate   time.Time
	EndDate     time.Time
	ManHours    *float64
	Personnel   string
	Status      models.ProjectStatus
	CreatorID   string
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string
	Description *string
	ChannelID   *string
	StartDate   *time.Time
	EndDate     *time.Time
	ManHours    *float64
	Personnel   *string
}

// ListProjectsInput represents filters for listing projects
type ListProjectsInput struct {
	GuildID       string
	Status        *models.ProjectStatus
	PMID          *string
	ParticipantID *string
	Search        *string
	Page          int
	PageSize      int
}

// ProjectDetail is a project with its aggregated counters
type ProjectDetail struct {
	Project    *models.Project
	Milestones repository.MilestoneStats
	Issues     repository.IssueStats
	Decisions  int64
	Documents  int64
	Progress   int
}

// GuildStats summarises the projects of a guild
type GuildStats struct {
	Total    int64
	Active   int64
	ByStatus map[models.ProjectStatus]int64
}

// Create creates a project with the PM and the creator as participants
func (s *ProjectService) Create(input CreateProjectInput) (*models.Project, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateProjectFields(input.Name, input.Description, input.Personnel); err != nil {
		return nil, err
	}
	if input.PMID == "" {
		return nil, ErrPMRequired
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, ErrInvalidDateRange
	}

	if input.Status == "" {
		input.Status = models.ProjectStatusPlanning
	}
	if !input.Status.Valid() || input.Status == models.ProjectStatusCompleted {
		return nil, fmt.Errorf("%w: projects cannot be created as %s", ErrValidation, input.Status)
	}

	project := &models.Project{
		GuildID:     input.GuildID,
		Name:        input.Name,
		Description: input.Description,
		PMID:        input.PMID,
		ChannelID:   input.ChannelID,
		StartDate:   input.StartDate.UTC(),
		EndDate:     input.EndDate.UTC(),
		Status:      input.Status,
		ManHours:    input.ManHours,
		Personnel:   input.Personnel,
		Participants: []models.ProjectParticipant{
			{UserID: input.PMID, Role: models.ParticipantRolePM},
		},
	}
	if input.CreatorID != "" && input.CreatorID != input.PMID {
		project.Participants = append(project.Participants, models.ProjectParticipant{
			UserID: input.CreatorID,
			Role:   models.ParticipantRoleMember,
		})
	}

	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return s.Get(project.ID)
}

// Get returns a project with its participants
func (s *ProjectService) Get(projectID string) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID, "Participants")
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	return project, nil
}

// GetDetail returns a project with milestone, issue, decision and document counters
func (s *ProjectService) GetDetail(projectID string) (*ProjectDetail, error) {
	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}

	milestones, err := s.milestoneRepo.StatsByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count milestones: %w", err)
	}
	issues, err := s.issueRepo.StatsByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues: %w", err)
	}
	decisions, err := s.decisionRepo.CountByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count decisions: %w", err)
	}
	documentsByType, err := s.documentRepo.CountByProjectAndType(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	var documents int64
	for _, count := range documentsByType {
		documents += count
	}

	return &ProjectDetail{
		Project:    project,
		Milestones: milestones,
		Issues:     issues,
		Decisions:  decisions,
		Documents:  documents,
		Progress:   utils.CalculateProgress(project.StartDate, project.EndDate, s.now()),
	}, nil
}

// List returns a guild's projects matching the filters
func (s *ProjectService) List(input ListProjectsInput) ([]models.Project, int64, error) {
	projects, total, err := s.projectRepo.List(repository.ProjectFilter{
		GuildID:       input.GuildID,
		Status:        input.Status,
		PMID:          input.PMID,
		ParticipantID: input.ParticipantID,
		Search:        input.Search,
		Page:          input.Page,
		PageSize:      input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// Update changes a project's fields. The resulting period must stay valid.
func (s *ProjectService) Update(projectID string, input UpdateProjectInput, actor Actor) (*models.Project, error) {
	project, err := s.managedProject(projectID, actor)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		project.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Personnel != nil {
		project.Personnel = *input.Personnel
	}
	if err := validateProjectFields(project.Name, project.Description, project.Personnel); err != nil {
		return nil, err
	}

	if input.ChannelID != nil {
		if *input.ChannelID == "" {
			project.ChannelID = nil
		} else {
			project.ChannelID = input.ChannelID
		}
	}
	if input.ManHours != nil {
		project.ManHours = input.ManHours
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate.UTC()
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate.UTC()
	}
	if !project.EndDate.After(project.StartDate) {
		return nil, ErrInvalidDateRange
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return s.Get(projectID)
}

// UpdateStatus applies an explicit status change
func (s *ProjectService) UpdateStatus(projectID string, status models.ProjectStatus, actor Actor) (*models.Project, error) {
	project, err := s.managedProject(projectID, actor)
	if err != nil {
		return nil, err
	}

	updated, err := lifecycle.TransitionProjectStatus(*project, status)
	if err != nil {
		return nil, err
	}

	if err := s.projectRepo.Update(&updated); err != nil {
		return nil, fmt.Errorf("failed to update project status: %w", err)
	}

	return s.Get(projectID)
}

// Complete marks the project COMPLETED once every issue is resolved or closed
func (s *ProjectService) Complete(projectID string, actor Actor) (*models.Project, error) {
	project, err := s.managedProject(projectID, actor)
	if err != nil {
		return nil, err
	}

	openIssues, err := s.issueRepo.Count(repository.IssueFilter{
		ProjectID: &projectID,
		Statuses:  models.ActiveIssueStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count open issues: %w", err)
	}

	completed, err := lifecycle.CompleteProject(*project, openIssues, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.projectRepo.Update(&completed); err != nil {
		return nil, fmt.Errorf("failed to complete project: %w", err)
	}

	return s.Get(projectID)
}

// Delete deletes a project and everything it owns
func (s *ProjectService) Delete(projectID string, actor Actor) error {
	if !actor.Level.AtLeast(PermissionAdmin) {
		return ErrPermissionDenied
	}
	if _, err := s.Get(projectID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// AddParticipant adds a member to the project
func (s *ProjectService) AddParticipant(projectID, userID string, actor Actor) (*models.Project, error) {
	if _, err := s.managedProject(projectID, actor); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	participant := &models.ProjectParticipant{
		ProjectID: projectID,
		UserID:    userID,
		Role:      models.ParticipantRoleMember,
	}
	if err := s.projectRepo.AddParticipant(participant); err != nil {
		return nil, fmt.Errorf("failed to add participant: %w", err)
	}

	return s.Get(projectID)
}

// RemoveParticipant removes a member from the project. The PM cannot be removed.
func (s *ProjectService) RemoveParticipant(projectID, userID string, actor Actor) (*models.Project, error) {
	project, err := s.managedProject(projectID, actor)
	if err != nil {
		return nil, err
	}
	if project.PMID == userID {
		return nil, ErrCannotRemovePM
	}

	if _, err := s.projectRepo.FindParticipant(projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("participant %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find participant: %w", err)
	}

	if err := s.projectRepo.RemoveParticipant(projectID, userID); err != nil {
		return nil, fmt.Errorf("failed to remove participant: %w", err)
	}

	return s.Get(projectID)
}

// GuildStats counts a guild's projects by status
func (s *ProjectService) GuildStats(guildID string) (*GuildStats, error) {
	byStatus, err := s.projectRepo.CountByStatus(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}

	stats := &GuildStats{ByStatus: byStatus}
	for _, count := range byStatus {
		stats.Total += count
	}
	stats.Active = stats.Total - byStatus[models.ProjectStatusCompleted]
	return stats, nil
}

// managedProject loads a project the actor is allowed to manage
func (s *ProjectService) managedProject(projectID string, actor Actor) (*models.Project, error) {
	project, err := s.Get(projectID)
	if err != nil {
		return nil, err
	}
	if project.GuildID != actor.GuildID {
		return nil, ErrProjectNotFound
	}
	if !canManageProject(project, actor) {
		return nil, ErrPermissionDenied
	}
	return project, nil
}

func validateProjectFields(name, description, personnel string) error {
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > constants.MaxProjectNameLength {
		return tooLong("name", constants.MaxProjectNameLength)
	}
	if utf8.RuneCountInString(description) > constants.MaxDescriptionLength {
		return tooLong("description", constants.MaxDescriptionLength)
	}
	if utf8.RuneCountInString(personnel) > constants.MaxPersonnelLength {
		return tooLong("personnel", constants.MaxPersonnelLength)
	}
	return nil
}
