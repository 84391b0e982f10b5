package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/services"
)

type fakeResolver struct {
	level services.PermissionLevel
	roles []string
	err   error
}

func (f *fakeResolver) ResolvePermission(_ string, roles []string, isAdmin bool) (services.PermissionLevel, error) {
	f.roles = roles
	if f.err != nil {
		return 0, f.err
	}
	if isAdmin {
		return services.PermissionAdmin, nil
	}
	return f.level, nil
}

type fakeProjects map[string]*models.Project

func (f fakeProjects) Get(projectID string) (*models.Project, error) {
	project, ok := f[projectID]
	if !ok {
		return nil, services.ErrProjectNotFound
	}
	return project, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"user_id": actor.UserID, "level": actor.Level.String()})
	})
	r.GET("/projects/:id", handlers...)
	return r
}

func request(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireIdentity_MissingHeaders(t *testing.T) {
	r := newRouter(RequireIdentity(&fakeResolver{level: services.PermissionUser}))

	w := request(r, "/projects/p-1", map[string]string{constants.HeaderGuildID: "g-1"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireIdentity_ResolvesPermission(t *testing.T) {
	resolver := &fakeResolver{level: services.PermissionPM}
	r := newRouter(RequireIdentity(resolver))

	w := request(r, "/projects/p-1", map[string]string{
		constants.HeaderGuildID:    "g-1",
		constants.HeaderActorID:    "u-1",
		constants.HeaderActorRoles: "role-a, ,role-b",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"level":"pm"`)
	assert.Equal(t, []string{"role-a", "role-b"}, resolver.roles)
}

func TestRequireIdentity_ResolverError(t *testing.T) {
	r := newRouter(RequireIdentity(&fakeResolver{err: errors.New("db down")}))

	w := request(r, "/projects/p-1", map[string]string{
		constants.HeaderGuildID: "g-1",
		constants.HeaderActorID: "u-1",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name    string
		level   services.PermissionLevel
		isAdmin string
		status  int
	}{
		{"user rejected", services.PermissionUser, "", http.StatusForbidden},
		{"pm allowed", services.PermissionPM, "", http.StatusOK},
		{"discord admin allowed", services.PermissionUser, "true", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(RequireIdentity(&fakeResolver{level: tt.level}), RequirePermission(services.PermissionPM))

			w := request(r, "/projects/p-1", map[string]string{
				constants.HeaderGuildID:    "g-1",
				constants.HeaderActorID:    "u-1",
				constants.HeaderActorAdmin: tt.isAdmin,
			})

			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRequireProjectAccess(t *testing.T) {
	projects := fakeProjects{
		"p-1": {ID: "p-1", GuildID: "g-1"},
		"p-2": {ID: "p-2", GuildID: "g-2"},
	}
	headers := map[string]string{
		constants.HeaderGuildID: "g-1",
		constants.HeaderActorID: "u-1",
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"own guild", "/projects/p-1", http.StatusOK},
		{"other guild hidden", "/projects/p-2", http.StatusNotFound},
		{"missing", "/projects/p-3", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(RequireIdentity(&fakeResolver{level: services.PermissionUser}), RequireProjectAccess(projects))
			assert.Equal(t, tt.status, request(r, tt.path, headers).Code)
		})
	}
}
