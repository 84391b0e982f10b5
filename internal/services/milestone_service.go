package services

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/lifecycle"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/utils"
)

// MilestoneService handles milestone business logic
type MilestoneService struct {
	milestoneRepo repository.MilestoneRepository
	projectRepo   repository.ProjectRepository
	loc           *time.Location
	now           func() time.Time
}

// NewMilestoneService creates a new MilestoneService. Calendar days are read in loc.
func NewMilestoneService(milestoneRepo repository.MilestoneRepository, projectRepo repository.ProjectRepository, loc *time.Location) *MilestoneService {
	if loc == nil {
		loc = time.UTC
	}
	return &MilestoneService{
		milestoneRepo: milestoneRepo,
		projectRepo:   projectRepo,
		loc:           loc,
		now:           utcNow,
	}
}

// WithClock replaces the service clock
func (s *MilestoneService) WithClock(now func() time.Time) *MilestoneService {
	s.now = now
	return s
}

// CreateMilestoneInput represents input for creating a milestone
type CreateMilestoneInput struct {
	ProjectID   string
	Name        string
	Description string
	TargetDate  time.Time
	AssigneeID  *string
}

// UpdateMilestoneInput represents input for updating a milestone
type UpdateMilestoneInput struct {
	Name        *string
	Description *string
	TargetDate  *time.Time
	AssigneeID  *string
	Status      *models.MilestoneStatus
}

// ListMilestonesInput represents filters for listing milestones
type ListMilestonesInput struct {
	ProjectID  *string
	GuildID    *string
	Status     *models.MilestoneStatus
	AssigneeID *string
	Limit      int
}

// Create adds a milestone to an active project. The target date must fall
// within the project period.
func (s *MilestoneService) Create(input CreateMilestoneInput, actor Actor) (*models.Milestone, error) {
	project, err := s.findProject(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.GuildID != actor.GuildID {
		return nil, ErrProjectNotFound
	}
	if !canManageProject(project, actor) {
		return nil, ErrPermissionDenied
	}
	if project.Status == models.ProjectStatusCompleted {
		return nil, ErrProjectCompleted
	}

	input.Name = strings.TrimSpace(input.Name)
	if err := validateMilestoneFields(input.Name, input.Description); err != nil {
		return nil, err
	}
	if !withinPeriod(input.TargetDate, project) {
		return nil, ErrTargetDateOutOfRange
	}

	milestone := &models.Milestone{
		ProjectID:   project.ID,
		Name:        input.Name,
		Description: input.Description,
		TargetDate:  input.TargetDate.UTC(),
		AssigneeID:  emptyToNil(input.AssigneeID),
		Status:      models.MilestoneStatusScheduled,
	}
	if err := s.milestoneRepo.Create(milestone); err != nil {
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}

	return s.Get(milestone.ID)
}

// Get returns a milestone with its project and notification history
func (s *MilestoneService) Get(milestoneID string) (*models.Milestone, error) {
	milestone, err := s.milestoneRepo.FindByID(milestoneID)
	if err != nil {
		return nil, notFound(err, ErrMilestoneNotFound, "find milestone")
	}
	return milestone, nil
}

// List returns milestones ordered by target date
func (s *MilestoneService) List(input ListMilestonesInput) ([]models.Milestone, error) {
	milestones, err := s.milestoneRepo.List(repository.MilestoneFilter{
		ProjectID:  input.ProjectID,
		GuildID:    input.GuildID,
		Status:     input.Status,
		AssigneeID: input.AssigneeID,
		Limit:      input.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

// Update edits a milestone. Milestones of a completed project are read-only,
// and a status edit goes through the milestone status rules. Moving the
// target date re-arms the D-N reminders without touching the delay alert.
func (s *MilestoneService) Update(milestoneID string, input UpdateMilestoneInput, actor Actor) (*models.Milestone, error) {
	milestone, err := s.Get(milestoneID)
	if err != nil {
		return nil, err
	}
	project := milestone.Project
	if !sameGuild(project, actor) {
		return nil, ErrMilestoneNotFound
	}
	if !canManageProject(project, actor) {
		return nil, ErrPermissionDenied
	}
	if project.Status == models.ProjectStatusCompleted {
		return nil, ErrProjectCompleted
	}

	if input.Name != nil {
		milestone.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		milestone.Description = *input.Description
	}
	if err := validateMilestoneFields(milestone.Name, milestone.Description); err != nil {
		return nil, err
	}
	if input.TargetDate != nil {
		if !withinPeriod(*input.TargetDate, project) {
			return nil, ErrTargetDateOutOfRange
		}
		milestone.TargetDate = input.TargetDate.UTC()
	}
	if input.AssigneeID != nil {
		milestone.AssigneeID = emptyToNil(input.AssigneeID)
	}

	updated := *milestone
	if input.Status != nil && *input.Status != milestone.Status {
		updated, err = lifecycle.TransitionMilestoneStatus(*milestone, *input.Status, s.now())
		if err != nil {
			return nil, err
		}
	}

	if err := s.milestoneRepo.Update(&updated); err != nil {
		return nil, fmt.Errorf("failed to update milestone: %w", err)
	}

	return s.Get(milestoneID)
}

// Complete marks the milestone COMPLETED. The assignee, the project PM and
// pm-level actors may complete it.
func (s *MilestoneService) Complete(milestoneID string, actor Actor) (*models.Milestone, error) {
	milestone, err := s.Get(milestoneID)
	if err != nil {
		return nil, err
	}
	if !sameGuild(milestone.Project, actor) {
		return nil, ErrMilestoneNotFound
	}
	if !canHandle(milestone.Project, milestone.AssigneeID, actor) {
		return nil, ErrPermissionDenied
	}

	completed, err := lifecycle.CompleteMilestone(*milestone, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.milestoneRepo.Update(&completed); err != nil {
		return nil, fmt.Errorf("failed to complete milestone: %w", err)
	}

	return s.Get(milestoneID)
}

// Delete deletes a milestone
func (s *MilestoneService) Delete(milestoneID string, actor Actor) error {
	milestone, err := s.Get(milestoneID)
	if err != nil {
		return err
	}
	if !sameGuild(milestone.Project, actor) {
		return ErrMilestoneNotFound
	}
	if !canManageProject(milestone.Project, actor) {
		return ErrPermissionDenied
	}

	if err := s.milestoneRepo.Delete(milestoneID); err != nil {
		return fmt.Errorf("failed to delete milestone: %w", err)
	}
	return nil
}

// Upcoming returns a guild's SCHEDULED milestones due today or later,
// nearest first
func (s *MilestoneService) Upcoming(guildID string, limit int) ([]models.Milestone, error) {
	if limit <= 0 {
		limit = constants.DefaultUpcomingLimit
	}

	today := utils.DayIn(s.now(), s.loc)
	status := models.MilestoneStatusScheduled
	milestones, err := s.milestoneRepo.List(repository.MilestoneFilter{
		GuildID:    &guildID,
		Status:     &status,
		TargetFrom: &today,
		Limit:      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming milestones: %w", err)
	}
	return milestones, nil
}

// StatsByProject returns milestone counters for a project
func (s *MilestoneService) StatsByProject(projectID string) (repository.MilestoneStats, error) {
	if _, err := s.findProject(projectID); err != nil {
		return repository.MilestoneStats{}, err
	}

	stats, err := s.milestoneRepo.StatsByProject(projectID)
	if err != nil {
		return repository.MilestoneStats{}, fmt.Errorf("failed to count milestones: %w", err)
	}
	return stats, nil
}

func (s *MilestoneService) findProject(projectID string) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	return project, nil
}

// withinPeriod reports whether target lies in the project's [start, end] range
func withinPeriod(target time.Time, project *models.Project) bool {
	return !target.Before(project.StartDate) && !target.After(project.EndDate)
}

func validateMilestoneFields(name, description string) error {
	if name == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(name) > constants.MaxMilestoneNameLength {
		return tooLong("name", constants.MaxMilestoneNameLength)
	}
	if utf8.RuneCountInString(description) > constants.MaxDescriptionLength {
		return tooLong("description", constants.MaxDescriptionLength)
	}
	return nil
}

func emptyToNil(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	v := *value
	return &v
}
