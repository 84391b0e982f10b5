package constants

import "time"

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Context keys set by middleware
const (
	ContextKeyGuildID    = "guild_id"
	ContextKeyActorID    = "actor_id"
	ContextKeyActorRoles = "actor_roles"
	ContextKeyActorAdmin = "actor_admin"
	ContextKeyPermission = "permission_level"
	ContextKeyProject    = "project"
)

// Headers forwarded by the chat adapter
const (
	HeaderGuildID    = "X-Guild-ID"
	HeaderActorID    = "X-Actor-ID"
	HeaderActorRoles = "X-Actor-Roles"
	HeaderActorAdmin = "X-Actor-Admin"
)

// Notification thresholds
const (
	DefaultUnattendedIssueDays = 3
	DefaultWarningCooldown     = 6 * time.Hour
	DefaultSweepLockTTL        = 30 * time.Minute
	WeeklyReportWindow         = 7 * 24 * time.Hour
	UpcomingMilestoneDays      = 7
	DefaultUpcomingLimit       = 5
	DefaultRecentDecisionLimit = 10
)

// DefaultLeadDays are the D-N reminders sent before a milestone target date
var DefaultLeadDays = []int{7, 1}

// Field limits
const (
	MaxProjectNameLength   = 100
	MaxDescriptionLength   = 1000
	MaxMilestoneNameLength = 100
	MaxIssueTitleLength    = 200
	MaxIssueContentLength  = 2000
	MaxDecisionLength      = 2000
	MaxDocumentNameLength  = 200
	MaxPersonnelLength     = 200
)

// DateLayout is the YYYY-MM-DD format accepted for calendar dates
const DateLayout = "2006-01-02"
