package lifecycle

import (
	"time"

	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/utils"
)

// LeadKind maps a D-N lead time to its notification kind
func LeadKind(leadDays int) (models.NotificationKind, bool) {
	switch leadDays {
	case 7:
		return models.NotificationD7, true
	case 1:
		return models.NotificationD1, true
	}
	return "", false
}

// DueForMilestoneLead reports whether the D-leadDays reminder should fire.
// The target date must fall exactly leadDays calendar days after now.
func DueForMilestoneLead(m *models.Milestone, now time.Time, leadDays int) bool {
	kind, ok := LeadKind(leadDays)
	if !ok {
		return false
	}
	if m.Status != models.MilestoneStatusScheduled || m.Notified(kind) {
		return false
	}
	return utils.DaysBetween(now, m.TargetDate) == leadDays
}

// DueForMilestoneDelay reports whether the one-time delay alert should fire
func DueForMilestoneDelay(m *models.Milestone) bool {
	return m.Status == models.MilestoneStatusDelayed && !m.Notified(models.NotificationDelayed)
}

// DueForIssueWarning reports whether an unattended OPEN issue should be
// warned about again. The cooldown restarts from each successful warning.
func DueForIssueWarning(issue *models.Issue, now time.Time, unattendedDays int, cooldown time.Duration) bool {
	if issue.Status != models.IssueStatusOpen {
		return false
	}
	if now.Sub(issue.CreatedAt) < time.Duration(unattendedDays)*24*time.Hour {
		return false
	}
	if issue.LastWarningAt == nil {
		return true
	}
	return now.Sub(*issue.LastWarningAt) >= cooldown
}

// DueForCriticalIssueImmediate reports whether a newly created issue needs the
// inline critical alert
func DueForCriticalIssueImmediate(issue *models.Issue) bool {
	return issue.Impact == models.IssueImpactCritical
}
