package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/pmbot/internal/constants"
	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/services"
)

// ProjectFinder loads a project by id
type ProjectFinder interface {
	Get(projectID string) (*models.Project, error)
}

// RequireProjectAccess loads the project named by the :id parameter.
// Projects of other guilds are reported as not found.
func RequireProjectAccess(projects ProjectFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		project, err := projects.Get(c.Param("id"))
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				apierrors.NotFound(c, "Project not found")
			} else {
				apierrors.InternalError(c, "Failed to load project")
			}
			c.Abort()
			return
		}

		if project.GuildID != actor.GuildID {
			apierrors.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, project)
		c.Next()
	}
}

// GetProject retrieves the project loaded by RequireProjectAccess
func GetProject(c *gin.Context) (*models.Project, bool) {
	value, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return nil, false
	}
	project, ok := value.(*models.Project)
	return project, ok
}
