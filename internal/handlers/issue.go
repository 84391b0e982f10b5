package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/pmbot/internal/dto"
	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/services"
	"github.com/yukikurage/pmbot/internal/utils"
)

type IssueHandler struct {
	issues *services.IssueService
}

func NewIssueHandler(issues *services.IssueService) *IssueHandler {
	return &IssueHandler{
		issues: issues,
	}
}

// CreateIssue reports an issue on the project in the URL
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateIssueRequest struct {
		Title      string  `json:"title" binding:"required"`
		Content    string  `json:"content" binding:"required"`
		Impact     string  `json:"impact"`
		AssigneeID *string `json:"assignee_id"`
	}

	var req CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	issue, err := h.issues.Create(c.Request.Context(), services.CreateIssueInput{
		ProjectID:  c.Param("id"),
		Title:      req.Title,
		Content:    req.Content,
		Impact:     models.IssueImpact(req.Impact),
		AssigneeID: req.AssigneeID,
	}, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToIssueDTO(*issue))
}

// ListProjectIssues returns the issues of the project in the URL
func (h *IssueHandler) ListProjectIssues(c *gin.Context) {
	projectID := c.Param("id")
	h.list(c, services.ListIssuesInput{ProjectID: &projectID})
}

// ListIssues returns the guild's issues, most severe first
// Can filter by status, impact, assignee_id and open=true
func (h *IssueHandler) ListIssues(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	h.list(c, services.ListIssuesInput{
		GuildID:    &actor.GuildID,
		AssigneeID: queryString(c, "assignee_id"),
	})
}

func (h *IssueHandler) list(c *gin.Context, input services.ListIssuesInput) {
	if status := queryString(c, "status"); status != nil {
		s := models.IssueStatus(*status)
		if !s.Valid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &s
	}
	if impact := queryString(c, "impact"); impact != nil {
		i := models.IssueImpact(*impact)
		if !i.Valid() {
			apierrors.BadRequest(c, "Invalid impact")
			return
		}
		input.Impact = &i
	}
	input.OpenOnly = c.Query("open") == "true"

	page := utils.PageFromQuery(c)
	input.Page = page.Number
	input.PageSize = page.Size

	issues, total, err := h.issues.List(input)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueListResponse(issues, page.Number, page.Size, total))
}

// GetIssue returns an issue
func (h *IssueHandler) GetIssue(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	issue, err := h.issues.Get(c.Param("id"))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	if !visible(issue.Project, actor) {
		apierrors.NotFound(c, "Issue not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueDTO(*issue))
}

// UpdateIssue edits an issue's title, content, impact or assignee
func (h *IssueHandler) UpdateIssue(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type UpdateIssueRequest struct {
		Title      *string `json:"title"`
		Content    *string `json:"content"`
		Impact     *string `json:"impact"`
		AssigneeID *string `json:"assignee_id"`
	}

	var req UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateIssueInput{
		Title:      req.Title,
		Content:    req.Content,
		AssigneeID: req.AssigneeID,
	}
	if req.Impact != nil {
		impact := models.IssueImpact(*req.Impact)
		input.Impact = &impact
	}

	issue, err := h.issues.Update(c.Param("id"), input, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueDTO(*issue))
}

// UpdateIssueStatus moves an issue through its lifecycle
func (h *IssueHandler) UpdateIssueStatus(c *gin.Context) {
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

	status := models.IssueStatus(req.Status)
	if !status.Valid() {
		apierrors.BadRequest(c, "Invalid status")
		return
	}

	issue, err := h.issues.UpdateStatus(c.Param("id"), status, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueDTO(*issue))
}

// CloseIssue closes an issue with an optional resolution note
func (h *IssueHandler) CloseIssue(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CloseIssueRequest struct {
		Resolution string `json:"resolution"`
	}

	var req CloseIssueRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	issue, err := h.issues.Close(c.Param("id"), req.Resolution, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToIssueDTO(*issue))
}

// DeleteIssue deletes an issue
func (h *IssueHandler) DeleteIssue(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.issues.Delete(c.Param("id"), actor); err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
