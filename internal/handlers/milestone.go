package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/pmbot/internal/constants"
	"github.com/yukikurage/pmbot/internal/dto"
	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/services"
)

type MilestoneHandler struct {
	milestones *services.MilestoneService
	loc        *time.Location
}

func NewMilestoneHandler(milestones *services.MilestoneService, loc *time.Location) *MilestoneHandler {
	return &MilestoneHandler{
		milestones: milestones,
		loc:        loc,
	}
}

// CreateMilestone adds a milestone to the project in the URL
func (h *MilestoneHandler) CreateMilestone(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateMilestoneRequest struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		TargetDate  string  `json:"target_date" binding:"required"`
		AssigneeID  *string `json:"assignee_id"`
	}

	var req CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	targetDate, err := parseDate(req.TargetDate, h.loc)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	milestone, err := h.milestones.Create(services.CreateMilestoneInput{
		ProjectID:   c.Param("id"),
		Name:        req.Name,
		Description: req.Description,
		TargetDate:  targetDate,
		AssigneeID:  req.AssigneeID,
	}, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMilestoneDTO(*milestone))
}

// ListProjectMilestones returns the milestones of the project in the URL
func (h *MilestoneHandler) ListProjectMilestones(c *gin.Context) {
	projectID := c.Param("id")
	h.list(c, services.ListMilestonesInput{ProjectID: &projectID})
}

// ListMilestones returns the guild's milestones
// Can filter by status and assignee_id
func (h *MilestoneHandler) ListMilestones(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	h.list(c, services.ListMilestonesInput{
		GuildID:    &actor.GuildID,
		AssigneeID: queryString(c, "assignee_id"),
	})
}

func (h *MilestoneHandler) list(c *gin.Context, input services.ListMilestonesInput) {
	if status := queryString(c, "status"); status != nil {
		s := models.MilestoneStatus(*status)
		if !s.Valid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &s
	}
	input.Limit = queryInt(c, "limit", 0)

	milestones, err := h.milestones.List(input)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestones": dto.ToMilestoneDTOs(milestones)})
}

// UpcomingMilestones returns the guild's next scheduled milestones
func (h *MilestoneHandler) UpcomingMilestones(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	milestones, err := h.milestones.Upcoming(actor.GuildID, queryInt(c, "limit", constants.DefaultUpcomingLimit))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestones": dto.ToMilestoneDTOs(milestones)})
}

// GetMilestone returns a milestone with its notification history
func (h *MilestoneHandler) GetMilestone(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	milestone, err := h.milestones.Get(c.Param("id"))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	if !visible(milestone.Project, actor) {
		apierrors.NotFound(c, "Milestone not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

// UpdateMilestone edits a milestone
func (h *MilestoneHandler) UpdateMilestone(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type UpdateMilestoneRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		TargetDate  *string `json:"target_date"`
		AssigneeID  *string `json:"assignee_id"`
		Status      *string `json:"status"`
	}

	var req UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	targetDate, err := parseOptionalDate(req.TargetDate, h.loc)
	if err != nil {
		apierrors.BadRequest(c, err.Error())
		return
	}

	input := services.UpdateMilestoneInput{
		Name:        req.Name,
		Description: req.Description,
		TargetDate:  targetDate,
		AssigneeID:  req.AssigneeID,
	}
	if req.Status != nil {
		status := models.MilestoneStatus(*req.Status)
		if !status.Valid() {
			apierrors.BadRequest(c, "Invalid status")
			return
		}
		input.Status = &status
	}

	milestone, err := h.milestones.Update(c.Param("id"), input, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

// CompleteMilestone marks a milestone completed
func (h *MilestoneHandler) CompleteMilestone(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	milestone, err := h.milestones.Complete(c.Param("id"), actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

// DeleteMilestone deletes a milestone
func (h *MilestoneHandler) DeleteMilestone(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.milestones.Delete(c.Param("id"), actor); err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
