package middleware

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/pmbot/internal/constants"
	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/services"
)

// PermissionResolver resolves a member's permission level in a guild
type PermissionResolver interface {
	ResolvePermission(guildID string, roles []string, isAdmin bool) (services.PermissionLevel, error)
}

// RequireIdentity reads the guild and member forwarded by the chat adapter
// and resolves the member's permission level
func RequireIdentity(resolver PermissionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		guildID := strings.TrimSpace(c.GetHeader(constants.HeaderGuildID))
		actorID := strings.TrimSpace(c.GetHeader(constants.HeaderActorID))

		if guildID == "" || actorID == "" {
			apierrors.Unauthorized(c, "Guild and member identity required")
			c.Abort()
			return
		}

		roles := splitRoles(c.GetHeader(constants.HeaderActorRoles))
		isAdmin, _ := strconv.ParseBool(c.GetHeader(constants.HeaderActorAdmin))

		level, err := resolver.ResolvePermission(guildID, roles, isAdmin)
		if err != nil {
			apierrors.InternalError(c, "Failed to resolve permissions")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyGuildID, guildID)
		c.Set(constants.ContextKeyActorID, actorID)
		c.Set(constants.ContextKeyActorRoles, roles)
		c.Set(constants.ContextKeyActorAdmin, isAdmin)
		c.Set(constants.ContextKeyPermission, level)
		c.Next()
	}
}

// RequirePermission rejects members below the given level
func RequirePermission(required services.PermissionLevel) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if !actor.Level.AtLeast(required) {
			apierrors.Forbidden(c, required.String()+" permission required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetActor retrieves the current member from context
func GetActor(c *gin.Context) (services.Actor, bool) {
	guildID := c.GetString(constants.ContextKeyGuildID)
	actorID := c.GetString(constants.ContextKeyActorID)
	if guildID == "" || actorID == "" {
		return services.Actor{}, false
	}

	level, ok := c.Get(constants.ContextKeyPermission)
	if !ok {
		return services.Actor{}, false
	}
	permission, ok := level.(services.PermissionLevel)
	if !ok {
		return services.Actor{}, false
	}

	return services.Actor{
		UserID:  actorID,
		GuildID: guildID,
		Level:   permission,
	}, true
}

func splitRoles(header string) []string {
	var roles []string
	for _, role := range strings.Split(header, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}
