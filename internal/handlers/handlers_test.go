package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/database"
	"github.com/yukikurage/pmbot/internal/dto"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/notifier"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/scheduler"
	"github.com/yukikurage/pmbot/internal/services"
)

type fakeAlerts struct {
	sent []notifier.Message
}

func (f *fakeAlerts) Send(_ context.Context, _ string, msg notifier.Message) error {
	f.sent = append(f.sent, msg)
	return nil
}

type fakeSweeps struct {
	err   error
	calls []string
}

func (f *fakeSweeps) RunDeadlineSweep(context.Context) (scheduler.SweepResult, error) {
	return f.result(scheduler.SweepDeadline)
}

func (f *fakeSweeps) RunIssueWatch(context.Context) (scheduler.SweepResult, error) {
	return f.result(scheduler.SweepIssueWatch)
}

func (f *fakeSweeps) RunWeeklyReport(context.Context) (scheduler.SweepResult, error) {
	return f.result(scheduler.SweepWeeklyReport)
}

func (f *fakeSweeps) result(sweep string) (scheduler.SweepResult, error) {
	f.calls = append(f.calls, sweep)
	return scheduler.SweepResult{Sweep: sweep, Sent: 1}, f.err
}

type identity struct {
	guildID string
	userID  string
	roles   string
	admin   bool
}

// HandlerTestSuite drives the command API through the router
type HandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	alerts *fakeAlerts
	sweeps *fakeSweeps
	router *gin.Engine
	pm     identity
	member identity
	admin  identity
	other  identity
}

// SetupTest runs before each test
func (suite *HandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), database.NewGormConfig(logger.Silent))
	suite.Require().NoError(err)
	suite.Require().NoError(database.Migrate(suite.db))

	projectRepo := repository.NewProjectRepository(suite.db)
	milestoneRepo := repository.NewMilestoneRepository(suite.db)
	issueRepo := repository.NewIssueRepository(suite.db)
	decisionRepo := repository.NewDecisionRepository(suite.db)
	documentRepo := repository.NewDocumentRepository(suite.db)
	settingsRepo := repository.NewGuildSettingsRepository(suite.db)

	pmRole := "role-pm"
	_, err = settingsRepo.Upsert("g-1", repository.GuildSettingsUpdate{PMRoleID: &pmRole})
	suite.Require().NoError(err)

	suite.alerts = &fakeAlerts{}
	suite.sweeps = &fakeSweeps{}

	gin.SetMode(gin.TestMode)
	suite.router = NewRouter(RouterDeps{
		DB:         suite.db,
		Projects:   services.NewProjectService(projectRepo, milestoneRepo, issueRepo, decisionRepo, documentRepo),
		Milestones: services.NewMilestoneService(milestoneRepo, projectRepo, time.UTC),
		Issues:     services.NewIssueService(issueRepo, projectRepo, suite.alerts, nil),
		Decisions:  services.NewDecisionService(decisionRepo, projectRepo),
		Documents:  services.NewDocumentService(documentRepo, projectRepo),
		Settings:   services.NewSettingsService(settingsRepo),
		Reports:    services.NewReportService(projectRepo, milestoneRepo, issueRepo, decisionRepo, time.UTC),
		Sweeps:     suite.sweeps,
		Location:   time.UTC,
	})

	suite.pm = identity{guildID: "g-1", userID: "pm-1", roles: pmRole}
	suite.member = identity{guildID: "g-1", userID: "u-1"}
	suite.admin = identity{guildID: "g-1", userID: "admin-1", admin: true}
	suite.other = identity{guildID: "g-2", userID: "u-9", admin: true}
}

// TearDownTest runs after each test
func (suite *HandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper function to send a request as a guild member
func (suite *HandlerTestSuite) request(method, url string, body interface{}, who identity) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		suite.Require().NoError(err)
		req = httptest.NewRequest(method, url, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	if who.guildID != "" {
		req.Header.Set(constants.HeaderGuildID, who.guildID)
		req.Header.Set(constants.HeaderActorID, who.userID)
		req.Header.Set(constants.HeaderActorRoles, who.roles)
		if who.admin {
			req.Header.Set(constants.HeaderActorAdmin, "true")
		}
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v interface{}) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v))
}

func (suite *HandlerTestSuite) createTestProject(name, status string) dto.ProjectDTO {
	w := suite.request(http.MethodPost, "/api/projects", gin.H{
		"name":       name,
		"start_date": "2024-01-01",
		"end_date":   "2099-12-31",
		"status":     status,
	}, suite.pm)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var project dto.ProjectDTO
	suite.decode(w, &project)
	return project
}

func (suite *HandlerTestSuite) createTestIssue(projectID, impact string) dto.IssueDTO {
	w := suite.request(http.MethodPost, "/api/projects/"+projectID+"/issues", gin.H{
		"title":   "Login broken",
		"content": "500 on submit",
		"impact":  impact,
	}, suite.member)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var issue dto.IssueDTO
	suite.decode(w, &issue)
	return issue
}

// TestHealth tests the database health check
func (suite *HandlerTestSuite) TestHealth() {
	w := suite.request(http.MethodGet, "/health", nil, identity{})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestHealth_DatabaseDown tests the 503 once the database stops answering
func (suite *HandlerTestSuite) TestHealth_DatabaseDown() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	suite.Require().NoError(sqlDB.Close())

	w := suite.request(http.MethodGet, "/health", nil, identity{})
	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	suite.decode(w, &body)
	assert.Equal(suite.T(), "SERVICE_UNAVAILABLE", body["code"])
}

// TestMetrics tests the prometheus endpoint
func (suite *HandlerTestSuite) TestMetrics() {
	w := suite.request(http.MethodGet, "/metrics", nil, identity{})
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestAPI_RequiresIdentity tests requests without identity headers
func (suite *HandlerTestSuite) TestAPI_RequiresIdentity() {
	w := suite.request(http.MethodGet, "/api/projects", nil, identity{})
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestCreateProject_Success tests project creation by a PM
func (suite *HandlerTestSuite) TestCreateProject_Success() {
	project := suite.createTestProject("Alpha", "")

	assert.Equal(suite.T(), "Alpha", project.Name)
	assert.Equal(suite.T(), models.ProjectStatusPlanning, project.Status)
	assert.Equal(suite.T(), "pm-1", project.PMID)
	assert.Equal(suite.T(), "g-1", project.GuildID)
}

// TestCreateProject_RequiresPM tests that plain members cannot create projects
func (suite *HandlerTestSuite) TestCreateProject_RequiresPM() {
	w := suite.request(http.MethodPost, "/api/projects", gin.H{
		"name":       "Alpha",
		"start_date": "2024-01-01",
		"end_date":   "2024-12-31",
	}, suite.member)

	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

// TestCreateProject_InvalidDates tests date validation
func (suite *HandlerTestSuite) TestCreateProject_InvalidDates() {
	w := suite.request(http.MethodPost, "/api/projects", gin.H{
		"name":       "Alpha",
		"start_date": "2024/01/01",
		"end_date":   "2024-12-31",
	}, suite.pm)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/projects", gin.H{
		"name":       "Alpha",
		"start_date": "2024-12-31",
		"end_date":   "2024-01-01",
	}, suite.pm)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestListProjects_Success tests listing with status filter
func (suite *HandlerTestSuite) TestListProjects_Success() {
	suite.createTestProject("Alpha", "")
	suite.createTestProject("Beta", string(models.ProjectStatusInProgress))

	w := suite.request(http.MethodGet, "/api/projects?status=IN_PROGRESS", nil, suite.member)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.ProjectListResponse
	suite.decode(w, &response)
	assert.Equal(suite.T(), int64(1), response.TotalCount)
	assert.Equal(suite.T(), "Beta", response.Projects[0].Name)
}

// TestGetProject_OtherGuild tests that projects of other guilds are hidden
func (suite *HandlerTestSuite) TestGetProject_OtherGuild() {
	project := suite.createTestProject("Alpha", "")

	w := suite.request(http.MethodGet, "/api/projects/"+project.ID, nil, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodGet, "/api/projects/"+project.ID, nil, suite.member)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var detail dto.ProjectDetailDTO
	suite.decode(w, &detail)
	assert.Equal(suite.T(), project.ID, detail.ID)
}

// TestCompleteProject_OpenIssues tests that active issues block completion
func (suite *HandlerTestSuite) TestCompleteProject_OpenIssues() {
	project := suite.createTestProject("Alpha", string(models.ProjectStatusInProgress))
	suite.createTestIssue(project.ID, string(models.IssueImpactLow))

	w := suite.request(http.MethodPost, "/api/projects/"+project.ID+"/complete", nil, suite.pm)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	var body struct {
		Code    string         `json:"code"`
		Details map[string]int `json:"details"`
	}
	suite.decode(w, &body)
	assert.Equal(suite.T(), 1, body.Details["open_issues"])
}

// TestUpdateProjectStatus_CompletedRejected tests that COMPLETED needs the complete action
func (suite *HandlerTestSuite) TestUpdateProjectStatus_CompletedRejected() {
	project := suite.createTestProject("Alpha", "")

	w := suite.request(http.MethodPost, "/api/projects/"+project.ID+"/status", gin.H{"status": "COMPLETED"}, suite.pm)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.request(http.MethodPost, "/api/projects/"+project.ID+"/status", gin.H{"status": "ON_HOLD"}, suite.pm)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestDeleteProject_RequiresAdmin tests that only admins delete projects
func (suite *HandlerTestSuite) TestDeleteProject_RequiresAdmin() {
	project := suite.createTestProject("Alpha", "")

	w := suite.request(http.MethodDelete, "/api/projects/"+project.ID, nil, suite.pm)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, "/api/projects/"+project.ID, nil, suite.admin)
	assert.Equal(suite.T(), http.StatusNoContent, w.Code)

	w = suite.request(http.MethodGet, "/api/projects/"+project.ID, nil, suite.admin)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestMilestoneLifecycle tests creating, completing and re-editing a milestone
func (suite *HandlerTestSuite) TestMilestoneLifecycle() {
	project := suite.createTestProject("Alpha", string(models.ProjectStatusInProgress))

	w := suite.request(http.MethodPost, "/api/projects/"+project.ID+"/milestones", gin.H{
		"name":        "Beta release",
		"target_date": "2030-06-01",
		"assignee_id": "u-1",
	}, suite.pm)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var milestone dto.MilestoneDTO
	suite.decode(w, &milestone)
	assert.Equal(suite.T(), models.MilestoneStatusScheduled, milestone.Status)

	// The assignee may complete it
	w = suite.request(http.MethodPost, "/api/milestones/"+milestone.ID+"/complete", nil, suite.member)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.decode(w, &milestone)
	assert.Equal(suite.T(), models.MilestoneStatusCompleted, milestone.Status)
	assert.NotNil(suite.T(), milestone.CompletedAt)

	w = suite.request(http.MethodPost, "/api/milestones/"+milestone.ID+"/complete", nil, suite.pm)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	w = suite.request(http.MethodPatch, "/api/milestones/"+milestone.ID, gin.H{"status": "SCHEDULED"}, suite.pm)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestCreateMilestone_OutOfRange tests that target dates stay within the project period
func (suite *HandlerTestSuite) TestCreateMilestone_OutOfRange() {
	project := suite.createTestProject("Alpha", "")

	w := suite.request(http.MethodPost, "/api/projects/"+project.ID+"/milestones", gin.H{
		"name":        "Too early",
		"target_date": "2023-06-01",
	}, suite.pm)

	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestGetMilestone_OtherGuild tests that milestones of other guilds are hidden
func (suite *HandlerTestSuite) TestGetMilestone_OtherGuild() {
	project := suite.createTestProject("Alpha", "")
	w := suite.request(http.MethodPost, "/api/projects/"+project.ID+"/milestones", gin.H{
		"name":        "Beta release",
		"target_date": "2030-06-01",
	}, suite.pm)
	suite.Require().Equal(http.StatusCreated, w.Code)
	var milestone dto.MilestoneDTO
	suite.decode(w, &milestone)

	w = suite.request(http.MethodGet, "/api/milestones/"+milestone.ID, nil, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestMutateMilestone_OtherGuild tests that milestone writes from other guilds answer 404
func (suite *HandlerTestSuite) TestMutateMilestone_OtherGuild() {
	project := suite.createTestProject("Alpha", "")
	w := suite.request(http.MethodPost, "/api/projects/"+project.ID+"/milestones", gin.H{
		"name":        "Beta release",
		"target_date": "2030-06-01",
	}, suite.pm)
	suite.Require().Equal(http.StatusCreated, w.Code)
	var milestone dto.MilestoneDTO
	suite.decode(w, &milestone)

	w = suite.request(http.MethodPatch, "/api/milestones/"+milestone.ID, gin.H{"name": "Renamed"}, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/milestones/"+milestone.ID+"/complete", nil, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodDelete, "/api/milestones/"+milestone.ID, nil, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodGet, "/api/milestones/"+milestone.ID, nil, suite.pm)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &milestone)
	assert.Equal(suite.T(), "Beta release", milestone.Name)
}

// TestMutateIssue_OtherGuild tests that issue writes from other guilds answer 404
func (suite *HandlerTestSuite) TestMutateIssue_OtherGuild() {
	project := suite.createTestProject("Alpha", string(models.ProjectStatusInProgress))
	issue := suite.createTestIssue(project.ID, "HIGH")

	w := suite.request(http.MethodPatch, "/api/issues/"+issue.ID, gin.H{"title": "Renamed"}, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPost, "/api/issues/"+issue.ID+"/status", gin.H{"status": "IN_ACTION"}, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPost, "/api/issues/"+issue.ID+"/close", gin.H{"resolution": "done"}, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.request(http.MethodDelete, "/api/issues/"+issue.ID, nil, suite.other)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestCreateCriticalIssue_Escalates tests escalation and the inline alert
func (suite *HandlerTestSuite) TestCreateCriticalIssue_Escalates() {
	project := suite.createTestProject("Alpha", string(models.ProjectStatusInProgress))

	issue := suite.createTestIssue(project.ID, string(models.IssueImpactCritical))
	assert.Equal(suite.T(), models.IssueStatusOpen, issue.Status)
	assert.Equal(suite.T(), "u-1", issue.ReporterID)

	w := suite.request(http.MethodGet, "/api/projects/"+project.ID, nil, suite.member)
	var detail dto.ProjectDetailDTO
	suite.decode(w, &detail)
	assert.Equal(suite.T(), models.ProjectStatusIssue, detail.Status)

	suite.Require().Len(suite.alerts.sent, 1)
	assert.Equal(suite.T(), notifier.KindIssueCritical, suite.alerts.sent[0].Kind)

	// Closing the last critical issue reverts the project
	w = suite.request(http.MethodPost, "/api/issues/"+issue.ID+"/close", gin.H{"resolution": "hotfix"}, suite.pm)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/api/projects/"+project.ID, nil, suite.member)
	suite.decode(w, &detail)
	assert.Equal(suite.T(), models.ProjectStatusInProgress, detail.Status)
}

// TestIssueStatus_ClosedIsTerminal tests that closed issues cannot be reopened
func (suite *HandlerTestSuite) TestIssueStatus_ClosedIsTerminal() {
	project := suite.createTestProject("Alpha", string(models.ProjectStatusInProgress))
	issue := suite.createTestIssue(project.ID, string(models.IssueImpactMedium))

	w := suite.request(http.MethodPost, "/api/issues/"+issue.ID+"/close", nil, suite.pm)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/issues/"+issue.ID+"/status", gin.H{"status": "OPEN"}, suite.pm)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestIssueStatus_MemberDenied tests that unrelated members cannot move issues
func (suite *HandlerTestSuite) TestIssueStatus_MemberDenied() {
	project := suite.createTestProject("Alpha", string(models.ProjectStatusInProgress))
	issue := suite.createTestIssue(project.ID, string(models.IssueImpactMedium))

	w := suite.request(http.MethodPost, "/api/issues/"+issue.ID+"/status", gin.H{"status": "IN_ACTION"}, suite.member)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/api/issues/"+issue.ID+"/status", gin.H{"status": "IN_ACTION"}, suite.pm)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestListIssues_OpenOnly tests the open filter
func (suite *HandlerTestSuite) TestListIssues_OpenOnly() {
	project := suite.createTestProject("Alpha", string(models.ProjectStatusInProgress))
	suite.createTestIssue(project.ID, string(models.IssueImpactLow))
	closed := suite.createTestIssue(project.ID, string(models.IssueImpactHigh))
	w := suite.request(http.MethodPost, "/api/issues/"+closed.ID+"/close", nil, suite.pm)
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/issues?open=true", nil, suite.member)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	var response dto.IssueListResponse
	suite.decode(w, &response)
	assert.Equal(suite.T(), int64(1), response.TotalCount)
}

// TestDecisionsAndDocuments tests recording decisions and documents
func (suite *HandlerTestSuite) TestDecisionsAndDocuments() {
	project := suite.createTestProject("Alpha", "")

	w := suite.request(http.MethodPost, "/api/projects/"+project.ID+"/decisions", gin.H{
		"content":       "Use PostgreSQL",
		"reason":        "team experience",
		"related_links": []string{"https://example.com/adr/1"},
	}, suite.pm)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/projects/"+project.ID+"/decisions", gin.H{
		"content": "Use MongoDB",
	}, suite.member)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/api/projects/"+project.ID+"/documents", gin.H{
		"name": "Spec",
		"type": string(models.DocumentTypePlan),
		"url":  "https://example.com/plan",
	}, suite.member)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, "/api/projects/"+project.ID+"/documents", gin.H{
		"name": "Spec",
		"url":  "ftp://example.com/plan",
	}, suite.member)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, "/api/decisions", nil, suite.member)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	var decisions struct {
		Decisions []dto.DecisionDTO `json:"decisions"`
	}
	suite.decode(w, &decisions)
	suite.Require().Len(decisions.Decisions, 1)
	assert.Equal(suite.T(), []string{"https://example.com/adr/1"}, decisions.Decisions[0].RelatedLinks)

	w = suite.request(http.MethodGet, "/api/projects/"+project.ID+"/documents", nil, suite.member)
	var documents struct {
		Documents []dto.DocumentDTO `json:"documents"`
	}
	suite.decode(w, &documents)
	assert.Len(suite.T(), documents.Documents, 1)
}

// TestSettings_AdminOnly tests that only admins change settings
func (suite *HandlerTestSuite) TestSettings_AdminOnly() {
	channel := "chan-1"

	w := suite.request(http.MethodPut, "/api/settings", gin.H{"notification_channel_id": channel}, suite.pm)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPut, "/api/settings", gin.H{"notification_channel_id": channel}, suite.admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/api/settings", nil, suite.member)
	var settings models.GuildSettings
	suite.decode(w, &settings)
	suite.Require().NotNil(settings.NotificationChannelID)
	assert.Equal(suite.T(), channel, *settings.NotificationChannelID)

	w = suite.request(http.MethodPut, "/api/settings", gin.H{"timezone": "Nowhere/Special"}, suite.admin)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

// TestReports tests the weekly and summary reports
func (suite *HandlerTestSuite) TestReports() {
	suite.createTestProject("Alpha", string(models.ProjectStatusInProgress))

	w := suite.request(http.MethodGet, "/api/reports/weekly", nil, suite.member)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	var weekly dto.WeeklyReport
	suite.decode(w, &weekly)
	assert.Equal(suite.T(), int64(1), weekly.Projects.Total)

	w = suite.request(http.MethodGet, "/api/reports/summary", nil, suite.member)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	var summary dto.SummaryReport
	suite.decode(w, &summary)
	assert.Len(suite.T(), summary.Projects, 1)
}

// TestSweeps_AdminTrigger tests the manual sweep triggers
func (suite *HandlerTestSuite) TestSweeps_AdminTrigger() {
	w := suite.request(http.MethodPost, "/api/sweeps/deadline", nil, suite.pm)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, "/api/sweeps/deadline", nil, suite.admin)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	var result scheduler.SweepResult
	suite.decode(w, &result)
	assert.Equal(suite.T(), scheduler.SweepDeadline, result.Sweep)

	suite.request(http.MethodPost, "/api/sweeps/issues", nil, suite.admin)
	suite.request(http.MethodPost, "/api/sweeps/weekly", nil, suite.admin)
	assert.Equal(suite.T(), []string{scheduler.SweepDeadline, scheduler.SweepIssueWatch, scheduler.SweepWeeklyReport}, suite.sweeps.calls)
}

// TestSweeps_InProgress tests the response when a sweep is already running
func (suite *HandlerTestSuite) TestSweeps_InProgress() {
	suite.sweeps.err = scheduler.ErrSweepInProgress

	w := suite.request(http.MethodPost, "/api/sweeps/issues", nil, suite.admin)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

// TestGetSettings_Unauthenticated tests a handler called without identity
func (suite *HandlerTestSuite) TestGetSettings_Unauthenticated() {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/settings", nil)

	NewSettingsHandler(nil).GetSettings(c)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestHandlerTestSuite runs the test suite
func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
