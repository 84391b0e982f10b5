package dto

import "time"

// WeeklyReport aggregates a guild's activity over a trailing seven-day window
type WeeklyReport struct {
	GuildID     string                `json:"guild_id"`
	WindowStart time.Time             `json:"window_start"`
	WindowEnd   time.Time             `json:"window_end"`
	Projects    WeeklyProjectCounts   `json:"projects"`
	Milestones  WeeklyMilestoneCounts `json:"milestones"`
	Issues      WeeklyIssueCounts     `json:"issues"`
}

// WeeklyProjectCounts holds the project section of a weekly report
type WeeklyProjectCounts struct {
	Total int64 `json:"total"`
	// Active counts every project that is not COMPLETED
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	WithIssue int64 `json:"with_issues"`
}

// WeeklyMilestoneCounts holds the milestone section of a weekly report
type WeeklyMilestoneCounts struct {
	Completed int64 `json:"completed"`
	Delayed   int64 `json:"delayed"`
	Upcoming  int64 `json:"upcoming"`
}

// WeeklyIssueCounts holds the issue section of a weekly report
type WeeklyIssueCounts struct {
	Opened   int64 `json:"opened"`
	Closed   int64 `json:"closed"`
	Critical int64 `json:"critical"`
}

// ProjectSummaryDTO is one row of the guild summary report
type ProjectSummaryDTO struct {
	ProjectDTO
	Progress          int   `json:"progress"`
	OpenIssues        int64 `json:"open_issues"`
	CriticalIssues    int64 `json:"critical_issues"`
	DelayedMilestones int64 `json:"delayed_milestones"`
}

// SummaryReport lists every project of a guild with its headline numbers
type SummaryReport struct {
	GuildID            string              `json:"guild_id"`
	Projects           []ProjectSummaryDTO `json:"projects"`
	UpcomingMilestones []MilestoneDTO      `json:"upcoming_milestones"`
	RecentDecisions    []DecisionDTO       `json:"recent_decisions"`
}
