package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	apierrors "github.com/yukikurage/pmbot/internal/errors"
	"github.com/yukikurage/pmbot/internal/scheduler"
)

// SweepRunner runs the scheduled sweeps on demand
type SweepRunner interface {
	RunDeadlineSweep(ctx context.Context) (scheduler.SweepResult, error)
	RunIssueWatch(ctx context.Context) (scheduler.SweepResult, error)
	RunWeeklyReport(ctx context.Context) (scheduler.SweepResult, error)
}

type SweepHandler struct {
	runner SweepRunner
}

func NewSweepHandler(runner SweepRunner) *SweepHandler {
	return &SweepHandler{
		runner: runner,
	}
}

// RunDeadline triggers the deadline sweep
func (h *SweepHandler) RunDeadline(c *gin.Context) {
	h.run(c, h.runner.RunDeadlineSweep)
}

// RunIssueWatch triggers the unattended issue sweep
func (h *SweepHandler) RunIssueWatch(c *gin.Context) {
	h.run(c, h.runner.RunIssueWatch)
}

// RunWeeklyReport triggers the weekly report sweep
func (h *SweepHandler) RunWeeklyReport(c *gin.Context) {
	h.run(c, h.runner.RunWeeklyReport)
}

// run keeps the sweep going if the caller disconnects
func (h *SweepHandler) run(c *gin.Context, sweep func(context.Context) (scheduler.SweepResult, error)) {
	result, err := sweep(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		apierrors.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
