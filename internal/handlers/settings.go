package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/services"
)

type SettingsHandler struct {
	settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
	}
}

// GetSettings returns the caller's guild settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	settings, err := h.settings.Get(actor.GuildID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

// UpdateSettings changes the notification channel, role mapping or timezone
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type UpdateSettingsRequest struct {
		NotificationChannelID *string `json:"notification_channel_id"`
		AdminRoleID           *string `json:"admin_role_id"`
		PMRoleID              *string `json:"pm_role_id"`
		Timezone              *string `json:"timezone"`
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	settings, err := h.settings.Update(actor.GuildID, services.UpdateSettingsInput{
		NotificationChannelID: req.NotificationChannelID,
		AdminRoleID:           req.AdminRoleID,
		PMRoleID:              req.PMRoleID,
		Timezone:              req.Timezone,
	}, actor)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}
