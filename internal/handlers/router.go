package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/pmbot/internal/logger"
	"github.com/yukikurage/pmbot/internal/middleware"
	"github.com/yukikurage/pmbot/internal/services"
)

// RouterDeps are the services behind the command API
type RouterDeps struct {
	DB         *gorm.DB
	Projects   *services.ProjectService
	Milestones *services.MilestoneService
	Issues     *services.IssueService
	Decisions  *services.DecisionService
	Documents  *services.DocumentService
	Settings   *services.SettingsService
	Reports    *services.ReportService
	Sweeps     SweepRunner
	// Location is the timezone YYYY-MM-DD dates are read in
	Location *time.Location
	Logger   *zap.Logger
}

// NewRouter builds the command API
func NewRouter(deps RouterDeps) *gin.Engine {
	log := logger.OrNop(deps.Logger)
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	projectHandler := NewProjectHandler(deps.Projects, loc)
	milestoneHandler := NewMilestoneHandler(deps.Milestones, loc)
	issueHandler := NewIssueHandler(deps.Issues)
	decisionHandler := NewDecisionHandler(deps.Decisions)
	documentHandler := NewDocumentHandler(deps.Documents)
	settingsHandler := NewSettingsHandler(deps.Settings)
	reportHandler := NewReportHandler(deps.Reports)
	sweepHandler := NewSweepHandler(deps.Sweeps)
	healthHandler := NewHealthHandler(deps.DB)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.RequireIdentity(deps.Settings))
	pm := middleware.RequirePermission(services.PermissionPM)
	admin := middleware.RequirePermission(services.PermissionAdmin)

	// Projects
	api.GET("/projects", projectHandler.ListProjects)
	api.POST("/projects", pm, projectHandler.CreateProject)
	api.GET("/projects/stats", projectHandler.GetGuildStats)

	project := api.Group("/projects/:id", middleware.RequireProjectAccess(deps.Projects))
	{
		project.GET("", projectHandler.GetProject)
		project.PATCH("", projectHandler.UpdateProject)
		project.DELETE("", admin, projectHandler.DeleteProject)
		project.POST("/status", projectHandler.UpdateProjectStatus)
		project.POST("/complete", projectHandler.CompleteProject)
		project.POST("/participants", projectHandler.AddParticipant)
		project.DELETE("/participants/:user_id", projectHandler.RemoveParticipant)

		project.POST("/milestones", milestoneHandler.CreateMilestone)
		project.GET("/milestones", milestoneHandler.ListProjectMilestones)
		project.POST("/issues", issueHandler.CreateIssue)
		project.GET("/issues", issueHandler.ListProjectIssues)
		project.POST("/decisions", decisionHandler.CreateDecision)
		project.GET("/decisions", decisionHandler.ListProjectDecisions)
		project.POST("/documents", documentHandler.CreateDocument)
		project.GET("/documents", documentHandler.ListProjectDocuments)
	}

	// Milestones
	api.GET("/milestones", milestoneHandler.ListMilestones)
	api.GET("/milestones/upcoming", milestoneHandler.UpcomingMilestones)
	api.GET("/milestones/:id", milestoneHandler.GetMilestone)
	api.PATCH("/milestones/:id", milestoneHandler.UpdateMilestone)
	api.DELETE("/milestones/:id", milestoneHandler.DeleteMilestone)
	api.POST("/milestones/:id/complete", milestoneHandler.CompleteMilestone)

	// Issues
	api.GET("/issues", issueHandler.ListIssues)
	api.GET("/issues/:id", issueHandler.GetIssue)
	api.PATCH("/issues/:id", issueHandler.UpdateIssue)
	api.DELETE("/issues/:id", issueHandler.DeleteIssue)
	api.POST("/issues/:id/status", issueHandler.UpdateIssueStatus)
	api.POST("/issues/:id/close", issueHandler.CloseIssue)

	// Decisions and documents
	api.GET("/decisions", decisionHandler.ListRecentDecisions)
	api.GET("/decisions/:id", decisionHandler.GetDecision)
	api.DELETE("/decisions/:id", decisionHandler.DeleteDecision)
	api.GET("/documents", documentHandler.ListDocuments)
	api.GET("/documents/:id", documentHandler.GetDocument)
	api.DELETE("/documents/:id", documentHandler.DeleteDocument)

	// Settings and reports
	api.GET("/settings", settingsHandler.GetSettings)
	api.PUT("/settings", admin, settingsHandler.UpdateSettings)
	api.GET("/reports/weekly", reportHandler.WeeklyReport)
	api.GET("/reports/summary", reportHandler.Summary)

	// Manual sweep triggers
	if deps.Sweeps != nil {
		sweeps := api.Group("/sweeps", admin)
		sweeps.POST("/deadline", sweepHandler.RunDeadline)
		sweeps.POST("/issues", sweepHandler.RunIssueWatch)
		sweeps.POST("/weekly", sweepHandler.RunWeeklyReport)
	}

	return r
}
