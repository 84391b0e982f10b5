package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/lifecycle"
	"github.com/yukikurage/pmbot/internal/logger"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/notifier"
	"github.com/yukikurage/pmbot/internal/repository"
)

// AlertSender delivers a message to a guild's notification channel
type AlertSender interface {
	Send(ctx context.Context, guildID string, msg notifier.Message) error
}

// IssueService handles issue business logic
type IssueService struct {
	issueRepo   repository.IssueRepository
	projectRepo repository.ProjectRepository
	alerts      AlertSender
	logger      *zap.Logger
	now         func() time.Time
}

// NewIssueService creates a new IssueService. alerts may be nil, in which
// case critical issues are not announced.
func NewIssueService(issueRepo repository.IssueRepository, projectRepo repository.ProjectRepository, alerts AlertSender, log *zap.Logger) *IssueService {
	return &IssueService{
		issueRepo:   issueRepo,
		projectRepo: projectRepo,
		alerts:      alerts,
		logger:      logger.OrNop(log),
		now:         utcNow,
	}
}

// WithClock replaces the service clock
func (s *IssueService) WithClock(now func() time.Time) *IssueService {
	s.now = now
	return s
}

// CreateIssueInput represents input for reporting an issue
type CreateIssueInput struct {
	ProjectID  string
	Title      string
	Content    string
	Impact     models.IssueImpact
	AssigneeID *string
}

// UpdateIssueInput represents input for editing an issue
type UpdateIssueInput struct {
	Title      *string
	Content    *string
	Impact     *models.IssueImpact
	AssigneeID *string
}

// ListIssuesInput represents filters for listing issues
type ListIssuesInput struct {
	ProjectID  *string
	GuildID    *string
	Status     *models.IssueStatus
	OpenOnly   bool
	Impact     *models.IssueImpact
	AssigneeID *string
	Page       int
	PageSize   int
}

// Create reports a new issue. A critical issue escalates an IN_PROGRESS
// project to ISSUE and is announced right away; a failed announcement does
// not fail the report.
func (s *IssueService) Create(ctx context.Context, input CreateIssueInput, actor Actor) (*models.Issue, error) {
	project, err := s.findProject(input.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.GuildID != actor.GuildID {
		return nil, ErrProjectNotFound
	}
	if project.Status == models.ProjectStatusCompleted {
		return nil, ErrProjectCompleted
	}

	input.Title = strings.TrimSpace(input.Title)
	if err := validateIssueFields(input.Title, input.Content); err != nil {
		return nil, err
	}
	if input.Impact == "" {
		input.Impact = models.IssueImpactMedium
	}
	if !input.Impact.Valid() {
		return nil, ErrInvalidImpact
	}

	issue := &models.Issue{
		ProjectID:  project.ID,
		Title:      input.Title,
		Content:    input.Content,
		Impact:     input.Impact,
		Status:     models.IssueStatusOpen,
		AssigneeID: emptyToNil(input.AssigneeID),
		ReporterID: actor.UserID,
		CreatedAt:  s.now(),
	}
	if err := s.issueRepo.Create(issue); err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	if change := lifecycle.ApplyIssueCreationEscalation(*project, *issue); change != nil {
		if err := s.applyStatusChange(change); err != nil {
			return nil, err
		}
	}

	created, err := s.Get(issue.ID)
	if err != nil {
		return nil, err
	}

	if lifecycle.DueForCriticalIssueImmediate(created) && s.alerts != nil {
		if err := s.alerts.Send(ctx, project.GuildID, notifier.CriticalIssue(created)); err != nil {
			s.logger.Warn("critical issue alert failed",
				zap.String("issue_id", created.ID),
				zap.String("guild_id", project.GuildID),
				zap.Error(err),
			)
		}
	}

	return created, nil
}

// Get returns an issue with its project
func (s *IssueService) Get(issueID string) (*models.Issue, error) {
	issue, err := s.issueRepo.FindByID(issueID)
	if err != nil {
		return nil, notFound(err, ErrIssueNotFound, "find issue")
	}
	return issue, nil
}

// List returns issues, most severe first
func (s *IssueService) List(input ListIssuesInput) ([]models.Issue, int64, error) {
	filter := repository.IssueFilter{
		ProjectID:  input.ProjectID,
		GuildID:    input.GuildID,
		Status:     input.Status,
		Impact:     input.Impact,
		AssigneeID: input.AssigneeID,
		Page:       input.Page,
		PageSize:   input.PageSize,
	}
	if input.OpenOnly {
		filter.Statuses = models.ActiveIssueStatuses
	}

	issues, total, err := s.issueRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list issues: %w", err)
	}
	return issues, total, nil
}

// Update edits an open issue. Raising an active issue to CRITICAL escalates
// the project; lowering the last one reverts it.
func (s *IssueService) Update(issueID string, input UpdateIssueInput, actor Actor) (*models.Issue, error) {
	issue, err := s.handledIssue(issueID, actor, true)
	if err != nil {
		return nil, err
	}
	if issue.Status == models.IssueStatusClosed {
		return nil, ErrIssueClosed
	}

	if input.Title != nil {
		issue.Title = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		issue.Content = *input.Content
	}
	if err := validateIssueFields(issue.Title, issue.Content); err != nil {
		return nil, err
	}
	if input.AssigneeID != nil {
		issue.AssigneeID = emptyToNil(input.AssigneeID)
	}

	previousImpact := issue.Impact
	if input.Impact != nil {
		if !input.Impact.Valid() {
			return nil, ErrInvalidImpact
		}
		issue.Impact = *input.Impact
	}

	if err := s.issueRepo.Update(issue); err != nil {
		return nil, fmt.Errorf("failed to update issue: %w", err)
	}

	if issue.Status.Active() && previousImpact != issue.Impact {
		wasCritical := previousImpact == models.IssueImpactCritical
		isCritical := issue.Impact == models.IssueImpactCritical
		if err := s.syncEscalation(*issue, isCritical && !wasCritical, wasCritical && !isCritical); err != nil {
			return nil, err
		}
	}

	return s.Get(issueID)
}

// UpdateStatus moves an issue through its lifecycle. The assignee, the
// project PM and pm-level actors may act on it.
func (s *IssueService) UpdateStatus(issueID string, status models.IssueStatus, actor Actor) (*models.Issue, error) {
	issue, err := s.handledIssue(issueID, actor, false)
	if err != nil {
		return nil, err
	}
	return s.transition(issue, status, nil)
}

// Close closes an issue and records its resolution. Only the project PM and
// pm-level actors may close issues.
func (s *IssueService) Close(issueID string, resolution string, actor Actor) (*models.Issue, error) {
	issue, err := s.Get(issueID)
	if err != nil {
		return nil, err
	}
	if !sameGuild(issue.Project, actor) {
		return nil, ErrIssueNotFound
	}
	if !canManageProject(issue.Project, actor) {
		return nil, ErrPermissionDenied
	}
	if utf8.RuneCountInString(resolution) > constants.MaxIssueContentLength {
		return nil, tooLong("resolution", constants.MaxIssueContentLength)
	}
	return s.transition(issue, models.IssueStatusClosed, &resolution)
}

// Delete deletes an issue, reverting the project escalation if it was the
// last active critical one
func (s *IssueService) Delete(issueID string, actor Actor) error {
	issue, err := s.Get(issueID)
	if err != nil {
		return err
	}
	if !sameGuild(issue.Project, actor) {
		return ErrIssueNotFound
	}
	if !canManageProject(issue.Project, actor) {
		return ErrPermissionDenied
	}

	if err := s.issueRepo.Delete(issueID); err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}

	if issue.Impact == models.IssueImpactCritical && issue.Status.Active() {
		return s.syncEscalation(*issue, false, true)
	}
	return nil
}

// StatsByProject returns issue counters for a project
func (s *IssueService) StatsByProject(projectID string) (repository.IssueStats, error) {
	if _, err := s.findProject(projectID); err != nil {
		return repository.IssueStats{}, err
	}

	stats, err := s.issueRepo.StatsByProject(projectID)
	if err != nil {
		return repository.IssueStats{}, fmt.Errorf("failed to count issues: %w", err)
	}
	return stats, nil
}

func (s *IssueService) transition(issue *models.Issue, status models.IssueStatus, resolution *string) (*models.Issue, error) {
	result, err := lifecycle.TransitionIssueStatus(*issue, status, resolution, s.now())
	if err != nil {
		return nil, err
	}

	updated := result.Issue
	if err := s.issueRepo.Update(&updated); err != nil {
		return nil, fmt.Errorf("failed to update issue status: %w", err)
	}

	if err := s.syncEscalation(updated, result.EscalateProject, result.RecomputeProjectEscalation); err != nil {
		return nil, err
	}

	return s.Get(issue.ID)
}

// syncEscalation escalates or reverts the issue's project against fresh state
func (s *IssueService) syncEscalation(issue models.Issue, escalate, recompute bool) error {
	if !escalate && !recompute {
		return nil
	}

	project, err := s.findProject(issue.ProjectID)
	if err != nil {
		return err
	}

	var change *lifecycle.ProjectStatusChange
	if escalate {
		change = lifecycle.ApplyIssueCreationEscalation(*project, issue)
	} else {
		remaining, err := s.issueRepo.CountActiveCritical(issue.ProjectID, issue.ID)
		if err != nil {
			return fmt.Errorf("failed to count critical issues: %w", err)
		}
		change = lifecycle.RecomputeProjectEscalation(*project, remaining)
	}

	if change == nil {
		return nil
	}
	return s.applyStatusChange(change)
}

func (s *IssueService) applyStatusChange(change *lifecycle.ProjectStatusChange) error {
	applied, err := s.projectRepo.UpdateStatus(change.ProjectID, change.From, change.To)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	if applied {
		s.logger.Info("project status changed",
			zap.String("project_id", change.ProjectID),
			zap.String("from", string(change.From)),
			zap.String("to", string(change.To)),
		)
	}
	return nil
}

// handledIssue loads an issue the actor may work on. Reporters may edit
// their own issues but not move them through the lifecycle.
func (s *IssueService) handledIssue(issueID string, actor Actor, allowReporter bool) (*models.Issue, error) {
	issue, err := s.Get(issueID)
	if err != nil {
		return nil, err
	}
	if !sameGuild(issue.Project, actor) {
		return nil, ErrIssueNotFound
	}
	if allowReporter && issue.ReporterID == actor.UserID {
		return issue, nil
	}
	if !canHandle(issue.Project, issue.AssigneeID, actor) {
		return nil, ErrPermissionDenied
	}
	return issue, nil
}

func (s *IssueService) findProject(projectID string) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	return project, nil
}

func validateIssueFields(title, content string) error {
	if title == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(content) == "" {
		return ErrContentRequired
	}
	if utf8.RuneCountInString(title) > constants.MaxIssueTitleLength {
		return tooLong("title", constants.MaxIssueTitleLength)
	}
	if utf8.RuneCountInString(content) > constants.MaxIssueContentLength {
		return tooLong("content", constants.MaxIssueContentLength)
	}
	return nil
}
