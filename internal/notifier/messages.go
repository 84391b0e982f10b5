package notifier

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/dto"
	"github.com/yukikurage/pmbot/internal/models"
)

// Embed colors
const (
	ColorInfo     = 0x3498DB
	ColorWarning  = 0xF1C40F
	ColorDanger   = 0xE74C3C
	ColorCritical = 0x8B0000
	ColorReport   = 0x2ECC71
)

// MilestoneLead renders the D-N reminder for a milestone. The milestone's
// Project must be loaded.
func MilestoneLead(m *models.Milestone, daysRemaining int) Message {
	kind := KindMilestoneD1
	if daysRemaining == 7 {
		kind = KindMilestoneD7
	}

	msg := Message{
		Kind:  kind,
		Title: fmt.Sprintf("D-%d: %s", daysRemaining, m.Name),
		Color: ColorInfo,
		Fields: []Field{
			projectField(m.Project),
			{Name: "Target date", Value: m.TargetDate.Format(constants.DateLayout), Inline: true},
			{Name: "Assignee", Value: mentionOr(m.AssigneeID, "unassigned"), Inline: true},
		},
	}
	if m.AssigneeID != nil && *m.AssigneeID != "" {
		msg.Content = mention(*m.AssigneeID) + " milestone reminder"
		msg.Mentions = []string{*m.AssigneeID}
	}
	return msg
}

// MilestoneDelayed renders the one-time delay alert; it pings the project PM
func MilestoneDelayed(m *models.Milestone) Message {
	msg := Message{
		Kind:  KindMilestoneDelayed,
		Title: "Delayed: " + m.Name,
		Color: ColorDanger,
		Fields: []Field{
			projectField(m.Project),
			{Name: "Target date", Value: m.TargetDate.Format(constants.DateLayout), Inline: true},
			{Name: "Assignee", Value: mentionOr(m.AssigneeID, "unassigned"), Inline: true},
		},
	}
	if m.Project != nil {
		msg.Content = mention(m.Project.PMID) + " a milestone is past its target date"
		msg.Mentions = []string{m.Project.PMID}
	}
	return msg
}

// IssueWarning renders the unattended issue warning; it pings the assignee and the PM
func IssueWarning(issue *models.Issue, daysOpen int) Message {
	msg := Message{
		Kind:        KindIssueWarning,
		Title:       "Unattended issue: " + issue.Title,
		Description: issue.Content,
		Color:       ColorWarning,
		Fields: []Field{
			projectField(issue.Project),
			{Name: "Impact", Value: string(issue.Impact), Inline: true},
			{Name: "Open for", Value: fmt.Sprintf("%d days", daysOpen), Inline: true},
			{Name: "Assignee", Value: mentionOr(issue.AssigneeID, "unassigned"), Inline: true},
		},
	}

	var ids []string
	if issue.AssigneeID != nil && *issue.AssigneeID != "" {
		ids = append(ids, *issue.AssigneeID)
	}
	if issue.Project != nil && issue.Project.PMID != "" && !slices.Contains(ids, issue.Project.PMID) {
		ids = append(ids, issue.Project.PMID)
	}
	if len(ids) > 0 {
		mentions := make([]string, len(ids))
		for i, id := range ids {
			mentions[i] = mention(id)
		}
		msg.Content = strings.Join(mentions, " ") + " unattended issue"
		msg.Mentions = ids
	}
	return msg
}

// CriticalIssue renders the immediate alert for a newly reported critical issue
func CriticalIssue(issue *models.Issue) Message {
	return Message{
		Kind:        KindIssueCritical,
		Content:     "@here critical issue reported",
		Title:       "Critical issue: " + issue.Title,
		Description: issue.Content,
		Color:       ColorCritical,
		Broadcast:   true,
		Fields: []Field{
			projectField(issue.Project),
			{Name: "Reporter", Value: mentionOr(&issue.ReporterID, "unknown"), Inline: true},
			{Name: "Assignee", Value: mentionOr(issue.AssigneeID, "unassigned"), Inline: true},
		},
	}
}

// WeeklyReport renders a guild's weekly activity report
func WeeklyReport(r dto.WeeklyReport) Message {
	title := fmt.Sprintf("Weekly report %s ~ %s",
		r.WindowStart.Format(constants.DateLayout),
		r.WindowEnd.Format(constants.DateLayout))

	return Message{
		Kind:    KindWeeklyReport,
		Content: "Weekly project report",
		Title:   title,
		Color:   ColorReport,
		Fields: []Field{
			{
				Name: "Projects",
				Value: fmt.Sprintf("total %d / active %d / completed %d / with issues %d",
					r.Projects.Total, r.Projects.Active, r.Projects.Completed, r.Projects.WithIssue),
			},
			{
				Name: "Milestones",
				Value: fmt.Sprintf("completed %d / delayed %d / upcoming %d",
					r.Milestones.Completed, r.Milestones.Delayed, r.Milestones.Upcoming),
			},
			{
				Name: "Issues",
				Value: fmt.Sprintf("opened %d / closed %d / critical %d",
					r.Issues.Opened, r.Issues.Closed, r.Issues.Critical),
			},
		},
	}
}

func projectField(p *models.Project) Field {
	name := "-"
	if p != nil {
		name = p.Name
	}
	return Field{Name: "Project", Value: name, Inline: true}
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func mentionOr(userID *string, fallback string) string {
	if userID == nil || *userID == "" {
		return fallback
	}
	return mention(*userID)
}
