package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/pmbot/internal/dto"
	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/services"
)

type DecisionHandler struct {
	decisions *services.DecisionService
}

func NewDecisionHandler(decisions *services.DecisionService) *DecisionHandler {
	return &DecisionHandler{
		decisions: decisions,
	}
}

// CreateDecision records a decision on the project in the URL
func (h *DecisionHandler) CreateDecision(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateDecisionRequest struct {
		Content      string   `json:"content" binding:"required"`
		Reason       string   `json:"reason"`
		RelatedLinks []string `json:"related_links"`
	}

	var req CreateDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	decision, err := h.decisions.Create(services.CreateDecisionInput{
		ProjectID:    c.Param("id"),
		Content:      req.Content,
		Reason:       req.Reason,
		RelatedLinks: req.RelatedLinks,
	}, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToDecisionDTO(*decision))
}

// ListProjectDecisions returns the decisions of the project in the URL, newest first
func (h *DecisionHandler) ListProjectDecisions(c *gin.Context) {
	decisions, err := h.decisions.ListByProject(c.Param("id"), queryInt(c, "limit", 0))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": toDecisionDTOs(decisions)})
}

// ListRecentDecisions returns the guild's latest decisions
func (h *DecisionHandler) ListRecentDecisions(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	decisions, err := h.decisions.ListRecent(actor.GuildID, queryInt(c, "limit", 0))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": toDecisionDTOs(decisions)})
}

// GetDecision returns a decision
func (h *DecisionHandler) GetDecision(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	decision, err := h.decisions.Get(c.Param("id"))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}
	if !visible(decision.Project, actor) {
		apierrors.NotFound(c, "Decision not found")
		return
	}

	c.JSON(http.StatusOK, dto.ToDecisionDTO(*decision))
}

// DeleteDecision deletes a decision
func (h *DecisionHandler) DeleteDecision(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	if err := h.decisions.Delete(c.Param("id"), actor); err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func toDecisionDTOs(decisions []models.Decision) []dto.DecisionDTO {
	items := make([]dto.DecisionDTO, len(decisions))
	for i, decision := range decisions {
		items[i] = dto.ToDecisionDTO(decision)
	}
	return items
}
