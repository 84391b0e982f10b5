package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
	"gorm.io/datatypes"
)

// DecisionService handles decision records
type DecisionService struct {
	decisionRepo repository.DecisionRepository
	projectRepo  repository.ProjectRepository
}

// NewDecisionService creates a new DecisionService
func NewDecisionService(decisionRepo repository.DecisionRepository, projectRepo repository.ProjectRepository) *DecisionService {
	return &DecisionService{
		decisionRepo: decisionRepo,
		projectRepo:  projectRepo,
	}
}

// CreateDecisionInput represents input for recording a decision
type CreateDecisionInput struct {
	ProjectID    string
	Content      string
	Reason       string
	RelatedLinks []string
}

// Create records a decision on a project. The actor becomes the decider.
func (s *DecisionService) Create(input CreateDecisionInput, actor Actor) (*models.Decision, error) {
	project, err := s.projectRepo.FindByID(input.ProjectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	if project.GuildID != actor.GuildID {
		return nil, ErrProjectNotFound
	}
	if !canManageProject(project, actor) {
		return nil, ErrPermissionDenied
	}

	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrContentRequired
	}
	if utf8.RuneCountInString(content) > constants.MaxDecisionLength {
		return nil, tooLong("content", constants.MaxDecisionLength)
	}
	if utf8.RuneCountInString(input.Reason) > constants.MaxDecisionLength {
		return nil, tooLong("reason", constants.MaxDecisionLength)
	}

	links := make([]string, 0, len(input.RelatedLinks))
	for _, link := range input.RelatedLinks {
		link = strings.TrimSpace(link)
		if link == "" {
			continue
		}
		if !validURL(link) {
			return nil, ErrInvalidURL
		}
		links = append(links, link)
	}

	decision := &models.Decision{
		ProjectID:    project.ID,
		Content:      content,
		Reason:       input.Reason,
		DeciderID:    actor.UserID,
		RelatedLinks: datatypes.JSONSlice[string](links),
	}
	if err := s.decisionRepo.Create(decision); err != nil {
		return nil, fmt.Errorf("failed to create decision: %w", err)
	}

	return s.Get(decision.ID)
}

// Get returns a decision
func (s *DecisionService) Get(decisionID string) (*models.Decision, error) {
	decision, err := s.decisionRepo.FindByID(decisionID)
	if err != nil {
		return nil, notFound(err, ErrDecisionNotFound, "find decision")
	}
	return decision, nil
}

// ListByProject returns a project's decisions, newest first
func (s *DecisionService) ListByProject(projectID string, limit int) ([]models.Decision, error) {
	if _, err := s.projectRepo.FindByID(projectID); err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}

	decisions, err := s.decisionRepo.ListByProject(projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return decisions, nil
}

// ListRecent returns a guild's latest decisions across projects
func (s *DecisionService) ListRecent(guildID string, limit int) ([]models.Decision, error) {
	if limit <= 0 {
		limit = constants.DefaultRecentDecisionLimit
	}

	decisions, err := s.decisionRepo.ListRecentByGuild(guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	return decisions, nil
}

// Delete deletes a decision. Its decider and project managers may delete it.
func (s *DecisionService) Delete(decisionID string, actor Actor) error {
	decision, err := s.Get(decisionID)
	if err != nil {
		return err
	}
	project, err := s.projectRepo.FindByID(decision.ProjectID)
	if err != nil {
		return notFound(err, ErrProjectNotFound, "find project")
	}
	if project.GuildID != actor.GuildID {
		return ErrDecisionNotFound
	}
	if decision.DeciderID != actor.UserID && !canManageProject(project, actor) {
		return ErrPermissionDenied
	}

	if err := s.decisionRepo.Delete(decisionID); err != nil {
		return fmt.Errorf("failed to delete decision: %w", err)
	}
	return nil
}
