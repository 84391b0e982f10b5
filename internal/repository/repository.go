package repository

import (
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/utils"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project together with its initial participants
	Create(project *models.Project) error

	// FindByID finds a project by ID with optional preloading
	FindByID(id string, preload ...string) (*models.Project, error)

	// List retrieves projects with filtering and pagination
	List(filter ProjectFilter) ([]models.Project, int64, error)

	// Update saves the project's own columns
	Update(project *models.Project) error

	// UpdateStatus moves a project from one status to another.
	// It reports false when the project was no longer in the expected status.
	UpdateStatus(id string, from, to models.ProjectStatus) (bool, error)

	// Delete deletes a project and everything it owns
	Delete(id string) error

	// AddParticipant adds a user to a project, ignoring duplicates
	AddParticipant(participant *models.ProjectParticipant) error

	// RemoveParticipant removes a user from a project
	RemoveParticipant(projectID, userID string) error

	// FindParticipant finds a specific project participant
	FindParticipant(projectID, userID string) (*models.ProjectParticipant, error)

	// Count counts projects matching the filter
	Count(filter ProjectCountFilter) (int64, error)

	// CountByStatus groups a guild's projects by status
	CountByStatus(guildID string) (map[models.ProjectStatus]int64, error)
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	GuildID       string
	Status        *models.ProjectStatus
	PMID          *string
	ParticipantID *string
	Search        *string
	Page          int
	PageSize      int
}

// ProjectCountFilter holds filtering options for counting projects
type ProjectCountFilter struct {
	GuildID         string
	Statuses        []models.ProjectStatus
	ExcludeStatuses []models.ProjectStatus
	CompletedFrom   *time.Time
	CompletedTo     *time.Time
}

// MilestoneRepository defines the interface for milestone data access
type MilestoneRepository interface {
	// Create creates a new milestone
	Create(milestone *models.Milestone) error

	// FindByID finds a milestone by ID with its project and notification history
	FindByID(id string) (*models.Milestone, error)

	// List retrieves milestones ordered by target date
	List(filter MilestoneFilter) ([]models.Milestone, error)

	// Update saves the milestone's own columns
	Update(milestone *models.Milestone) error

	// Delete deletes a milestone and its notification history
	Delete(id string) error

	// MarkDelayed moves the given SCHEDULED milestones to DELAYED and returns how many changed
	MarkDelayed(ids []string) (int64, error)

	// MarkNotified records that the alert of the given kind was delivered
	MarkNotified(id string, kind models.NotificationKind, at time.Time) error

	// Count counts milestones matching the filter
	Count(filter MilestoneFilter) (int64, error)

	// StatsByProject returns status counts for one project
	StatsByProject(projectID string) (MilestoneStats, error)
}

// MilestoneFilter holds filtering options for milestones.
// NotNotified keeps only milestones that have no record for that alert kind.
type MilestoneFilter struct {
	ProjectID     *string
	GuildID       *string
	Status        *models.MilestoneStatus
	AssigneeID    *string
	TargetFrom    *time.Time
	TargetTo      *time.Time
	CompletedFrom *time.Time
	CompletedTo   *time.Time
	NotNotified   *models.NotificationKind
	Limit         int
}

// MilestoneStats holds milestone counts for a project
type MilestoneStats struct {
	Total     int64 `json:"total"`
	Scheduled int64 `json:"scheduled"`
	Completed int64 `json:"completed"`
	Delayed   int64 `json:"delayed"`
}

// CompletionRate is the rounded share of completed milestones
func (s MilestoneStats) CompletionRate() int {
	return utils.Percent(s.Completed, s.Total)
}

// IssueRepository defines the interface for issue data access
type IssueRepository interface {
	// Create creates a new issue
	Create(issue *models.Issue) error

	// FindByID finds an issue by ID with its project
	FindByID(id string) (*models.Issue, error)

	// List retrieves issues ordered by impact, most severe first, then newest first
	List(filter IssueFilter) ([]models.Issue, int64, error)

	// Update saves the issue's own columns
	Update(issue *models.Issue) error

	// Delete deletes an issue
	Delete(id string) error

	// CountActiveCritical counts active CRITICAL issues of a project, optionally excluding one
	CountActiveCritical(projectID string, excludeID string) (int64, error)

	// MarkWarning records the time an unattended-issue warning was delivered
	MarkWarning(id string, at time.Time) error

	// Count counts issues matching the filter
	Count(filter IssueFilter) (int64, error)

	// StatsByProject returns status counts for one project
	StatsByProject(projectID string) (IssueStats, error)
}

// IssueFilter holds filtering options for issues
type IssueFilter struct {
	ProjectID     *string
	GuildID       *string
	Status        *models.IssueStatus
	Statuses      []models.IssueStatus
	Impact        *models.IssueImpact
	AssigneeID    *string
	CreatedBefore *time.Time
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	ClosedFrom    *time.Time
	ClosedTo      *time.Time
	// WarnedBefore keeps issues never warned or last warned before this time
	WarnedBefore *time.Time
	Page         int
	PageSize     int
}

// IssueStats holds issue counts for a project
type IssueStats struct {
	Total    int64 `json:"total"`
	Open     int64 `json:"open"`
	InAction int64 `json:"in_action"`
	Resolved int64 `json:"resolved"`
	Closed   int64 `json:"closed"`
	Critical int64 `json:"critical"`
}

// ResolutionRate is the rounded share of resolved or closed issues
func (s IssueStats) ResolutionRate() int {
	return utils.Percent(s.Resolved+s.Closed, s.Total)
}

// DecisionRepository defines the interface for decision data access
type DecisionRepository interface {
	Create(decision *models.Decision) error
	FindByID(id string) (*models.Decision, error)
	ListByProject(projectID string, limit int) ([]models.Decision, error)
	ListRecentByGuild(guildID string, limit int) ([]models.Decision, error)
	Delete(id string) error
	CountByProject(projectID string) (int64, error)
}

// DocumentRepository defines the interface for document data access
type DocumentRepository interface {
	Create(document *models.Document) error
	FindByID(id string) (*models.Document, error)
	List(filter DocumentFilter) ([]models.Document, error)
	Delete(id string) error
	// CountByProjectAndType groups a project's documents by type
	CountByProjectAndType(projectID string) (map[models.DocumentType]int64, error)
}

// DocumentFilter holds filtering options for documents
type DocumentFilter struct {
	ProjectID *string
	GuildID   *string
	Type      *models.DocumentType
}

// GuildSettingsRepository defines the interface for per-guild settings
type GuildSettingsRepository interface {
	// FindByGuildID finds the settings row of a guild
	FindByGuildID(guildID string) (*models.GuildSettings, error)

	// FindOrCreate returns the guild's settings, creating defaults on first access
	FindOrCreate(guildID string) (*models.GuildSettings, error)

	// Upsert creates or updates the guild's settings with the non-nil fields of update
	Upsert(guildID string, update GuildSettingsUpdate) (*models.GuildSettings, error)

	// ListWithNotificationChannel lists guilds that configured a notification channel
	ListWithNotificationChannel() ([]models.GuildSettings, error)
}

// GuildSettingsUpdate holds the settings fields to change
type GuildSettingsUpdate struct {
	NotificationChannelID *string
	AdminRoleID           *string
	PMRoleID              *string
	Timezone              *string
}
