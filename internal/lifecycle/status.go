// Package lifecycle holds the status rules and notification eligibility
// checks for projects, milestones and issues. Every function is pure: it
// takes entity snapshots and returns the new state or a side-effect command,
// leaving persistence to the caller.
package lifecycle

import (
	"sort"
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/utils"
)

const (
	entityProject   = "project"
	entityMilestone = "milestone"
	entityIssue     = "issue"
)

// ProjectStatusChange is a command to move a project to a new status
type ProjectStatusChange struct {
	ProjectID string
	From      models.ProjectStatus
	To        models.ProjectStatus
}

// IssueTransition is the outcome of an issue status change
type IssueTransition struct {
	Issue models.Issue
	// RecomputeProjectEscalation is set when a critical issue left the active set
	RecomputeProjectEscalation bool
	// EscalateProject is set when a critical issue re-entered the active set
	EscalateProject bool
}

// TransitionIssueStatus moves issue to target. CLOSED is terminal.
// Resolution text is only recorded on the transition to CLOSED.
func TransitionIssueStatus(issue models.Issue, target models.IssueStatus, resolution *string, now time.Time) (IssueTransition, error) {
	if !target.Valid() {
		return IssueTransition{}, invalid(entityIssue, issue.Status, target, "unknown status")
	}
	if issue.Status == models.IssueStatusClosed {
		return IssueTransition{}, invalid(entityIssue, issue.Status, target, "closed issues cannot change")
	}

	wasActive := issue.Status.Active()
	issue.Status = target

	switch target {
	case models.IssueStatusResolved:
		resolvedAt := now
		issue.ResolvedAt = &resolvedAt
	case models.IssueStatusClosed:
		closedAt := now
		issue.ClosedAt = &closedAt
		if resolution != nil && *resolution != "" {
			text := *resolution
			issue.Resolution = &text
		}
	}

	critical := issue.Impact == models.IssueImpactCritical
	return IssueTransition{
		Issue:                      issue,
		RecomputeProjectEscalation: critical && !target.Active(),
		EscalateProject:            critical && !wasActive && target.Active(),
	}, nil
}

// ApplyIssueCreationEscalation returns the escalation an active critical issue
// forces on an IN_PROGRESS project, or nil.
func ApplyIssueCreationEscalation(project models.Project, issue models.Issue) *ProjectStatusChange {
	if issue.Impact != models.IssueImpactCritical || !issue.Status.Active() {
		return nil
	}
	if project.Status != models.ProjectStatusInProgress {
		return nil
	}
	return &ProjectStatusChange{
		ProjectID: project.ID,
		From:      project.Status,
		To:        models.ProjectStatusIssue,
	}
}

// RecomputeProjectEscalation reverts an ISSUE project to IN_PROGRESS once no
// active critical issue remains, or returns nil.
func RecomputeProjectEscalation(project models.Project, remainingActiveCritical int64) *ProjectStatusChange {
	if project.Status != models.ProjectStatusIssue || remainingActiveCritical > 0 {
		return nil
	}
	return &ProjectStatusChange{
		ProjectID: project.ID,
		From:      project.Status,
		To:        models.ProjectStatusInProgress,
	}
}

// TransitionProjectStatus validates an explicit status change.
// A COMPLETED project may only be reactivated to IN_PROGRESS, and
// completion itself must go through CompleteProject.
func TransitionProjectStatus(project models.Project, target models.ProjectStatus) (models.Project, error) {
	if !target.Valid() {
		return project, invalid(entityProject, project.Status, target, "unknown status")
	}
	if project.Status == models.ProjectStatusCompleted && target != models.ProjectStatusInProgress {
		return project, invalid(entityProject, project.Status, target, "completed projects can only be reactivated")
	}
	if target == models.ProjectStatusCompleted {
		return project, invalid(entityProject, project.Status, target, "use project completion instead")
	}

	if project.Status == models.ProjectStatusCompleted {
		project.CompletedAt = nil
	}
	project.Status = target
	return project, nil
}

// CompleteProject marks the project COMPLETED when no active issue remains
func CompleteProject(project models.Project, openIssueCount int64, now time.Time) (models.Project, error) {
	if project.Status == models.ProjectStatusCompleted {
		return project, invalid(entityProject, project.Status, models.ProjectStatusCompleted, "project is already completed")
	}
	if openIssueCount > 0 {
		return project, &OpenIssuesError{Count: openIssueCount}
	}

	completedAt := now
	project.Status = models.ProjectStatusCompleted
	project.CompletedAt = &completedAt
	return project, nil
}

// CompleteMilestone marks the milestone COMPLETED. Delayed milestones can be
// completed too and keep no failure marker.
func CompleteMilestone(milestone models.Milestone, now time.Time) (models.Milestone, error) {
	if milestone.Status == models.MilestoneStatusCompleted {
		return milestone, ErrAlreadyCompleted
	}

	completedAt := now
	milestone.Status = models.MilestoneStatusCompleted
	milestone.CompletedAt = &completedAt
	return milestone, nil
}

// TransitionMilestoneStatus applies a manual milestone status edit
func TransitionMilestoneStatus(milestone models.Milestone, target models.MilestoneStatus, now time.Time) (models.Milestone, error) {
	if !target.Valid() {
		return milestone, invalid(entityMilestone, milestone.Status, target, "unknown status")
	}
	if milestone.Status == models.MilestoneStatusCompleted {
		return milestone, invalid(entityMilestone, milestone.Status, target, "completed milestones cannot change")
	}
	if target == models.MilestoneStatusCompleted {
		return CompleteMilestone(milestone, now)
	}

	milestone.Status = target
	return milestone, nil
}

// AdvanceStaleMilestones moves every SCHEDULED milestone whose target day is
// before today's day to DELAYED, in place, and returns the changed ids.
// A milestone due today is not delayed.
func AdvanceStaleMilestones(milestones []models.Milestone, today time.Time) []string {
	startOfToday := utils.StartOfDay(today)

	var changed []string
	for i := range milestones {
		m := &milestones[i]
		if m.Status != models.MilestoneStatusScheduled {
			continue
		}
		if utils.DayIn(m.TargetDate, today.Location()).Before(startOfToday) {
			m.Status = models.MilestoneStatusDelayed
			changed = append(changed, m.ID)
		}
	}
	return changed
}

// SortIssuesByUrgency orders issues CRITICAL first, newest first within an impact
func SortIssuesByUrgency(issues []models.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		ri, rj := issues[i].Impact.Rank(), issues[j].Impact.Rank()
		if ri != rj {
			return ri > rj
		}
		return issues[i].CreatedAt.After(issues[j].CreatedAt)
	})
}
