package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/pmbot/internal/dto"
	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/services"
	"github.com/yukikurage/pmbot/internal/utils"
)

type ProjectHandler struct {
	projects *services.ProjectService
	loc      *time.Location
}

func NewProjectHandler(projects *services.ProjectService, loc *time.Location) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		loc:      loc,
	}
}

// ListProjects returns the guild's projects
// Can filter by status, pm_id, participant_id and search
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	input := services.ListProjectsInput{
		GuildID:       actor.GuildID,
		PMID:          queryString(c, "pm_id"),
		ParticipantID: queryString(c, "participant_id"),
		Search:        queryString(c, "search"),
	}
	if status := queryString(c, "status"); status != nil {
		s := models.ProjectStatus(*status)
		if !s.Valid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &s
	}

	page := utils.PageFromQuery(c)
	input.Page = page.Number
	input.PageSize = page.Size

	projects, total, err := h.projects.List(input)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectListResponse(projects, page.Number, page.Size, total))
}

// CreateProject creates a new project in the caller's guild
// The caller becomes the PM unless pm_id is given
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		PMID        string   `json:"pm_id"`
		ChannelID   *string  `json:"channel_id"`
		StartDate   string   `json:"start_date" binding:"required"`
		EndDate     string   `json:"end_date" binding:"required"`
		ManHours    *float64 `json:"man_hours"`
		Personnel   string   `json:"personnel"`
		Status      string   `json:"status"`
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	startDate, err := parseDate(req.StartDate, h.loc)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	endDate, err := parseDate(req.EndDate, h.loc)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	pmID := req.PMID
	if pmID == "" {
		pmID = actor.UserID
	}

	project, err := h.projects.Create(services.CreateProjectInput{
		GuildID:     actor.GuildID,
		Name:        req.Name,
		Description: req.Description,
		PMID:        pmID,
		ChannelID:   req.ChannelID,
		StartDate:   startDate,
		EndDate:     endDate,
		ManHours:    req.ManHours,
		Personnel:   req.Personnel,
		Status:      models.ProjectStatus(req.Status),
		CreatorID:   actor.UserID,
	})
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// GetProject returns a project with its statistics
func (h *ProjectHandler) GetProject(c *gin.Context) {
	detail, err := h.projects.GetDetail(c.Param("id"))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProjectDetailDTO{
		ProjectDTO: dto.ToProjectDTO(*detail.Project),
		Stats: dto.ProjectStatsDTO{
			Milestones: dto.ToMilestoneStatsDTO(detail.Milestones),
			Issues:     dto.ToIssueStatsDTO(detail.Issues),
			Decisions:  detail.Decisions,
			Documents:  detail.Documents,
			Progress:   detail.Progress,
		},
	})
}

// UpdateProject edits a project's fields
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type UpdateProjectRequest struct {
		Name        *string  `json:"name"`
		Description *string  `json:"description"`
		ChannelID   *string  `json:"channel_id"`
		StartDate   *string  `json:"start_date"`
		EndDate     *string  `json:"end_date"`
		ManHours    *float64 `json:"man_hours"`
		Personnel   *string  `json:"personnel"`
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	startDate, err := parseOptionalDate(req.StartDate, h.loc)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}
	endDate, err := parseOptionalDate(req.EndDate, h.loc)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	project, err := h.projects.Update(c.Param("id"), services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		ChannelID:   req.ChannelID,
		StartDate:   startDate,
		EndDate:     endDate,
		ManHours:    req.ManHours,
		Personnel:   req.Personnel,
	}, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// UpdateProjectStatus changes a project's status manually
func (h *ProjectHandler) UpdateProjectStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Status string `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	status := models.ProjectStatus(req.Status)
	if !status.Valid() {
		apierrors.BadRequest(c, "Invalid status")
		return
	}

	project, err := h.projects.UpdateStatus(c.Param("id"), status, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// CompleteProject completes a project once no active issue remains
func (h *ProjectHandler) CompleteProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	project, err := h.projects.Complete(c.Param("id"), actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// DeleteProject deletes a project and everything recorded under it
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.projects.Delete(c.Param("id"), actor); err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddParticipant adds a member to a project
func (h *ProjectHandler) AddParticipant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type AddParticipantRequest struct {
		UserID string `json:"user_id" binding:"required"`
	}

	var req AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projects.AddParticipant(c.Param("id"), req.UserID, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// RemoveParticipant removes a member from a project
func (h *ProjectHandler) RemoveParticipant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	project, err := h.projects.RemoveParticipant(c.Param("id"), c.Param("user_id"), actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

// GetGuildStats counts the guild's projects by status
func (h *ProjectHandler) GetGuildStats(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	stats, err := h.projects.GuildStats(actor.GuildID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.GuildStatsDTO{
		Total:    stats.Total,
		Active:   stats.Active,
		ByStatus: stats.ByStatus,
	})
}
