package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
	now     func() time.Time
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the clock used for the weekly window
func (h *ReportHandler) WithClock(now func() time.Time) *ReportHandler {
	h.now = now
	return h
}

// WeeklyReport returns the caller's guild report for the last seven days
func (h *ReportHandler) WeeklyReport(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	report, err := h.reports.WeeklyReport(actor.GuildID, h.now())
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Summary returns every project of the guild with its headline numbers
func (h *ReportHandler) Summary(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	report, err := h.reports.Summary(actor.GuildID)
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
