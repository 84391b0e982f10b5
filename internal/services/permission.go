package services

import (
	"slices"
	"time"

	"github.com/yukikurage/pmbot/internal/models"
)

// PermissionLevel orders what an actor may do inside a guild
type PermissionLevel int

const (
	PermissionUser PermissionLevel = iota + 1
	PermissionPM
	PermissionAdmin
)

func (l PermissionLevel) String() string {
	switch l {
	case PermissionUser:
		return "user"
	case PermissionPM:
		return "pm"
	case PermissionAdmin:
		return "admin"
	}
	return "unknown"
}

// AtLeast reports whether l grants everything required grants
func (l PermissionLevel) AtLeast(required PermissionLevel) bool {
	return l >= required
}

// Actor is the caller of a command
type Actor struct {
	UserID  string
	GuildID string
	Level   PermissionLevel
}

// ResolvePermission derives a permission level from the platform admin flag
// and the guild's configured admin and PM roles
func ResolvePermission(settings *models.GuildSettings, roles []string, isAdmin bool) PermissionLevel {
	if isAdmin {
		return PermissionAdmin
	}
	if settings != nil {
		if settings.AdminRoleID != nil && slices.Contains(roles, *settings.AdminRoleID) {
			return PermissionAdmin
		}
		if settings.PMRoleID != nil && slices.Contains(roles, *settings.PMRoleID) {
			return PermissionPM
		}
	}
	return PermissionUser
}

// sameGuild reports whether project belongs to the actor's guild
func sameGuild(project *models.Project, actor Actor) bool {
	return project != nil && project.GuildID == actor.GuildID
}

// canManageProject reports whether actor is the project PM or holds pm level
func canManageProject(project *models.Project, actor Actor) bool {
	return actor.UserID == project.PMID || actor.Level.AtLeast(PermissionPM)
}

// canHandle reports whether actor may act on work assigned to assigneeID
func canHandle(project *models.Project, assigneeID *string, actor Actor) bool {
	if assigneeID != nil && *assigneeID == actor.UserID {
		return true
	}
	return canManageProject(project, actor)
}

func utcNow() time.Time {
	return time.Now().UTC()
}
