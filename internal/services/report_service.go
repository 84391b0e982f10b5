package services

import (
	"fmt"
	"time"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/dto"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/utils"
)

// ReportService aggregates guild-wide reports
type ReportService struct {
	projectRepo   repository.ProjectRepository
	milestoneRepo repository.MilestoneRepository
	issueRepo     repository.IssueRepository
	decisionRepo  repository.DecisionRepository
	loc           *time.Location
	now           func() time.Time
}

// NewReportService creates a new ReportService. Calendar days are read in loc.
func NewReportService(
	projectRepo repository.ProjectRepository,
	milestoneRepo repository.MilestoneRepository,
	issueRepo repository.IssueRepository,
	decisionRepo repository.DecisionRepository,
	loc *time.Location,
) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		issueRepo:     issueRepo,
		decisionRepo:  decisionRepo,
		loc:           loc,
		now:           utcNow,
	}
}

// WithClock replaces the service clock
func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// WeeklyReport counts a guild's activity over the seven days ending at now.
// Upcoming milestones are the SCHEDULED ones due on one of the next seven
// calendar days: tomorrow through today+7, today excluded.
func (s *ReportService) WeeklyReport(guildID string, now time.Time) (*dto.WeeklyReport, error) {
	windowEnd := now.UTC()
	windowStart := windowEnd.Add(-constants.WeeklyReportWindow)

	report := &dto.WeeklyReport{
		GuildID:     guildID,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}

	completedStatus := []models.ProjectStatus{models.ProjectStatusCompleted}
	projectCounts := []struct {
		target *int64
		filter repository.ProjectCountFilter
	}{
		{&report.Projects.Total, repository.ProjectCountFilter{GuildID: guildID}},
		{&report.Projects.Active, repository.ProjectCountFilter{GuildID: guildID, ExcludeStatuses: completedStatus}},
		{&report.Projects.Completed, repository.ProjectCountFilter{
			GuildID:       guildID,
			Statuses:      completedStatus,
			CompletedFrom: &windowStart,
			CompletedTo:   &windowEnd,
		}},
		{&report.Projects.WithIssue, repository.ProjectCountFilter{
			GuildID:  guildID,
			Statuses: []models.ProjectStatus{models.ProjectStatusIssue},
		}},
	}
	for _, c := range projectCounts {
		count, err := s.projectRepo.Count(c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count projects: %w", err)
		}
		*c.target = count
	}

	today := utils.DayIn(now, s.loc)
	upcomingStart := today.AddDate(0, 0, 1)
	upcomingEnd := today.AddDate(0, 0, constants.UpcomingMilestoneDays+1)
	scheduled := models.MilestoneStatusScheduled
	completed := models.MilestoneStatusCompleted
	delayed := models.MilestoneStatusDelayed
	milestoneCounts := []struct {
		target *int64
		filter repository.MilestoneFilter
	}{
		{&report.Milestones.Completed, repository.MilestoneFilter{
			GuildID:       &guildID,
			Status:        &completed,
			CompletedFrom: &windowStart,
			CompletedTo:   &windowEnd,
		}},
		{&report.Milestones.Delayed, repository.MilestoneFilter{GuildID: &guildID, Status: &delayed}},
		{&report.Milestones.Upcoming, repository.MilestoneFilter{
			GuildID:    &guildID,
			Status:     &scheduled,
			TargetFrom: &upcomingStart,
			TargetTo:   &upcomingEnd,
		}},
	}
	for _, c := range milestoneCounts {
		count, err := s.milestoneRepo.Count(c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count milestones: %w", err)
		}
		*c.target = count
	}

	closed := models.IssueStatusClosed
	critical := models.IssueImpactCritical
	issueCounts := []struct {
		target *int64
		filter repository.IssueFilter
	}{
		{&report.Issues.Opened, repository.IssueFilter{GuildID: &guildID, CreatedFrom: &windowStart, CreatedTo: &windowEnd}},
		{&report.Issues.Closed, repository.IssueFilter{
			GuildID:    &guildID,
			Status:     &closed,
			ClosedFrom: &windowStart,
			ClosedTo:   &windowEnd,
		}},
		{&report.Issues.Critical, repository.IssueFilter{
			GuildID:  &guildID,
			Statuses: models.ActiveIssueStatuses,
			Impact:   &critical,
		}},
	}
	for _, c := range issueCounts {
		count, err := s.issueRepo.Count(c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count issues: %w", err)
		}
		*c.target = count
	}

	return report, nil
}

// Summary lists a guild's unfinished projects with their headline numbers,
// the next milestones and the latest decisions
func (s *ReportService) Summary(guildID string) (*dto.SummaryReport, error) {
	projects, _, err := s.projectRepo.List(repository.ProjectFilter{GuildID: guildID})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	now := s.now()
	report := &dto.SummaryReport{
		GuildID:            guildID,
		Projects:           []dto.ProjectSummaryDTO{},
		UpcomingMilestones: []dto.MilestoneDTO{},
		RecentDecisions:    []dto.DecisionDTO{},
	}

	for _, project := range projects {
		if project.Status == models.ProjectStatusCompleted {
			continue
		}

		issues, err := s.issueRepo.StatsByProject(project.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count issues: %w", err)
		}
		milestones, err := s.milestoneRepo.StatsByProject(project.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count milestones: %w", err)
		}

		report.Projects = append(report.Projects, dto.ProjectSummaryDTO{
			ProjectDTO:        dto.ToProjectDTO(project),
			Progress:          utils.CalculateProgress(project.StartDate, project.EndDate, now),
			OpenIssues:        issues.Open + issues.InAction,
			CriticalIssues:    issues.Critical,
			DelayedMilestones: milestones.Delayed,
		})
	}

	today := utils.DayIn(now, s.loc)
	scheduled := models.MilestoneStatusScheduled
	upcoming, err := s.milestoneRepo.List(repository.MilestoneFilter{
		GuildID:    &guildID,
		Status:     &scheduled,
		TargetFrom: &today,
		Limit:      constants.DefaultUpcomingLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming milestones: %w", err)
	}
	report.UpcomingMilestones = append(report.UpcomingMilestones, dto.ToMilestoneDTOs(upcoming)...)

	decisions, err := s.decisionRepo.ListRecentByGuild(guildID, constants.DefaultUpcomingLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	for _, decision := range decisions {
		report.RecentDecisions = append(report.RecentDecisions, dto.ToDecisionDTO(decision))
	}

	return report, nil
}
