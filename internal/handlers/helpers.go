package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/middleware"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/services"
	"github.com/yukikurage/pmbot/internal/utils"
)

// requireActor returns the current member or responds 401
func requireActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return services.Actor{}, false
	}
	return actor, true
}

// visible reports whether a loaded entity's project belongs to the actor's guild
func visible(project *models.Project, actor services.Actor) bool {
	return project != nil && project.GuildID == actor.GuildID
}

// parseDate parses a YYYY-MM-DD body field as midnight in loc, stored in UTC
func parseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := utils.ParseDate(strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// parseOptionalDate is parseDate for optional fields
func parseOptionalDate(value *string, loc *time.Location) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	t, err := parseDate(*value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// queryString returns the query parameter, or nil when it is absent or empty
func queryString(c *gin.Context, key string) *string {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil
	}
	return &value
}

// queryInt returns the integer query parameter or fallback
func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
