package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yukikurage/pmbot/internal/config"
	"github.com/yukikurage/pmbot/internal/logger"
)

// Scheduler fires the driver's sweeps on their calendar triggers
type Scheduler struct {
	cron   *cron.Cron
	driver *Driver
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New registers the three sweeps with the cron expressions in cfg.
// Triggers are evaluated in the configured timezone.
func New(driver *Driver, cfg config.SchedulerConfig, log *zap.Logger) (*Scheduler, error) {
	log = logger.OrNop(log)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   c,
		driver: driver,
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) (SweepResult, error)
	}{
		{SweepDeadline, cfg.DeadlineCron, driver.RunDeadlineSweep},
		{SweepIssueWatch, cfg.IssueWatchCron, driver.RunIssueWatch},
		{SweepWeeklyReport, cfg.WeeklyReportCron, driver.RunWeeklyReport},
	}
	for _, job := range jobs {
		if _, err := c.AddFunc(job.spec, s.job(job.name, job.run)); err != nil {
			cancel()
			return nil, fmt.Errorf("invalid %s schedule %q: %w", job.name, job.spec, err)
		}
	}

	return s, nil
}

func (s *Scheduler) job(name string, run func(context.Context) (SweepResult, error)) func() {
	return func() {
		if _, err := run(s.ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
			s.logger.Error("scheduled sweep failed", zap.String("sweep", name), zap.Error(err))
		}
	}
}

// Start begins firing triggers in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	for _, entry := range s.cron.Entries() {
		s.logger.Info("sweep scheduled", zap.Time("next", entry.Next))
	}
}

// Stop stops new triggers and waits for running sweeps. If ctx ends first
// running sweeps are cancelled and ctx's error is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done.Done()
		return ctx.Err()
	}
}

// Next returns the next trigger time of every registered sweep
func (s *Scheduler) Next() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		next = append(next, entry.Next)
	}
	return next
}
