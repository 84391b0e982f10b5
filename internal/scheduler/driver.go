// Package scheduler runs the periodic deadline, issue watch and weekly
// report sweeps.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/pmbot/internal/config"
	"github.com/yukikurage/pmbot/internal/dto"
	"github.com/yukikurage/pmbot/internal/lifecycle"
	"github.com/yukikurage/pmbot/internal/lock"
	"github.com/yukikurage/pmbot/internal/logger"
	"github.com/yukikurage/pmbot/internal/metrics"
	"github.com/yukikurage/pmbot/internal/models"
	"github.com/yukikurage/pmbot/internal/notifier"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/utils"
)

// Sweep names, also used as lock names and metric labels
const (
	SweepDeadline     = "deadline"
	SweepIssueWatch   = "issue_watch"
	SweepWeeklyReport = "weekly_report"
)

// ErrSweepInProgress is returned when a sweep of the same kind is still running
var ErrSweepInProgress = errors.New("sweep already in progress")

// Sender delivers rendered messages
type Sender interface {
	Send(ctx context.Context, guildID string, msg notifier.Message) error
	SendTo(ctx context.Context, channelID string, msg notifier.Message) error
}

// ReportBuilder aggregates a guild's weekly report
type ReportBuilder interface {
	WeeklyReport(guildID string, now time.Time) (*dto.WeeklyReport, error)
}

// Options tunes the sweeps
type Options struct {
	Location        *time.Location
	LeadDays        []int
	UnattendedDays  int
	WarningCooldown time.Duration
}

// OptionsFromConfig builds sweep options from the scheduler configuration
func OptionsFromConfig(cfg config.SchedulerConfig) (Options, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Location:        loc,
		LeadDays:        cfg.LeadDays,
		UnattendedDays:  cfg.UnattendedDays,
		WarningCooldown: cfg.WarningCooldown(),
	}, nil
}

// Deps are the collaborators of a Driver
type Deps struct {
	Milestones repository.MilestoneRepository
	Issues     repository.IssueRepository
	Settings   repository.GuildSettingsRepository
	Reports    ReportBuilder
	Sender     Sender
	// Locker defaults to an in-process lock
	Locker lock.Locker
}

// SweepResult summarises one sweep run
type SweepResult struct {
	Sweep    string        `json:"sweep"`
	Examined int           `json:"examined"`
	Sent     int           `json:"sent"`
	Failed   int           `json:"failed"`
	Advanced int64         `json:"advanced"`
	Duration time.Duration `json:"duration"`
}

// Driver runs the sweeps. Every entry point reads fresh state from the
// store and can be called out of schedule.
type Driver struct {
	milestones repository.MilestoneRepository
	issues     repository.IssueRepository
	settings   repository.GuildSettingsRepository
	reports    ReportBuilder
	sender     Sender
	locker     lock.Locker
	opts       Options
	logger     *zap.Logger
	now        func() time.Time
}

// NewDriver creates a Driver
func NewDriver(deps Deps, opts Options, log *zap.Logger) *Driver {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if len(opts.LeadDays) == 0 {
		opts.LeadDays = []int{7, 1}
	}
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewLocalLocker()
	}

	return &Driver{
		milestones: deps.Milestones,
		issues:     deps.Issues,
		settings:   deps.Settings,
		reports:    deps.Reports,
		sender:     deps.Sender,
		locker:     locker,
		opts:       opts,
		logger:     logger.OrNop(log),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the driver clock
func (d *Driver) WithClock(now func() time.Time) *Driver {
	d.now = now
	return d
}

// RunDeadlineSweep delays overdue milestones, then sends the D-N reminders
// and the one-time delay alerts. Each step runs even if an earlier one failed.
func (d *Driver) RunDeadlineSweep(ctx context.Context) (SweepResult, error) {
	return d.run(ctx, SweepDeadline, func(ctx context.Context, res *SweepResult) error {
		now := d.now().In(d.opts.Location)

		var errs []error
		if err := d.advanceStaleMilestones(now, res); err != nil {
			errs = append(errs, err)
		}
		for _, lead := range d.opts.LeadDays {
			if err := d.sendLeadReminders(ctx, now, lead, res); err != nil {
				errs = append(errs, err)
			}
		}
		if err := d.sendDelayAlerts(ctx, now, res); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
}

// RunIssueWatch warns about OPEN issues left unattended past the threshold
func (d *Driver) RunIssueWatch(ctx context.Context) (SweepResult, error) {
	return d.run(ctx, SweepIssueWatch, func(ctx context.Context, res *SweepResult) error {
		now := d.now()
		createdBefore := now.Add(-time.Duration(d.opts.UnattendedDays) * 24 * time.Hour)
		warnedBefore := now.Add(-d.opts.WarningCooldown)
		status := models.IssueStatusOpen

		issues, _, err := d.issues.List(repository.IssueFilter{
			Status:        &status,
			CreatedBefore: &createdBefore,
			WarnedBefore:  &warnedBefore,
		})
		if err != nil {
			return fmt.Errorf("failed to list unattended issues: %w", err)
		}

		for i := range issues {
			if err := ctx.Err(); err != nil {
				return err
			}
			issue := issues[i]
			if !lifecycle.DueForIssueWarning(&issue, now, d.opts.UnattendedDays, d.opts.WarningCooldown) {
				continue
			}
			res.Examined++

			d.guard(SweepIssueWatch, zap.String("issue_id", issue.ID), res, func() error {
				if issue.Project == nil {
					return errors.New("issue has no project")
				}
				daysOpen := int(now.Sub(issue.CreatedAt) / (24 * time.Hour))
				if err := d.sender.Send(ctx, issue.Project.GuildID, notifier.IssueWarning(&issue, daysOpen)); err != nil {
					return err
				}
				res.Sent++
				if err := d.issues.MarkWarning(issue.ID, now); err != nil {
					return fmt.Errorf("failed to record warning: %w", err)
				}
				return nil
			})
		}
		return nil
	})
}

// RunWeeklyReport sends each guild with a notification channel its weekly report
func (d *Driver) RunWeeklyReport(ctx context.Context) (SweepResult, error) {
	return d.run(ctx, SweepWeeklyReport, func(ctx context.Context, res *SweepResult) error {
		now := d.now()

		guilds, err := d.settings.ListWithNotificationChannel()
		if err != nil {
			return fmt.Errorf("failed to list guilds: %w", err)
		}

		for i := range guilds {
			if err := ctx.Err(); err != nil {
				return err
			}
			guild := guilds[i]
			if !guild.HasNotificationChannel() {
				continue
			}
			res.Examined++

			d.guard(SweepWeeklyReport, zap.String("guild_id", guild.GuildID), res, func() error {
				report, err := d.reports.WeeklyReport(guild.GuildID, now)
				if err != nil {
					return fmt.Errorf("failed to build report: %w", err)
				}
				if err := d.sender.SendTo(ctx, *guild.NotificationChannelID, notifier.WeeklyReport(*report)); err != nil {
					return err
				}
				res.Sent++
				return nil
			})
		}
		return nil
	})
}

func (d *Driver) advanceStaleMilestones(now time.Time, res *SweepResult) error {
	startOfToday := utils.StartOfDay(now)
	status := models.MilestoneStatusScheduled

	stale, err := d.milestones.List(repository.MilestoneFilter{
		Status:   &status,
		TargetTo: &startOfToday,
	})
	if err != nil {
		return fmt.Errorf("failed to list stale milestones: %w", err)
	}

	ids := lifecycle.AdvanceStaleMilestones(stale, now)
	if len(ids) == 0 {
		return nil
	}

	changed, err := d.milestones.MarkDelayed(ids)
	if err != nil {
		return fmt.Errorf("failed to mark milestones delayed: %w", err)
	}
	res.Advanced += changed
	metrics.MilestonesDelayed.Add(float64(changed))
	d.logger.Info("milestones delayed", zap.Int64("count", changed))
	return nil
}

func (d *Driver) sendLeadReminders(ctx context.Context, now time.Time, leadDays int, res *SweepResult) error {
	kind, ok := lifecycle.LeadKind(leadDays)
	if !ok {
		return fmt.Errorf("unsupported lead days %d", leadDays)
	}

	from := utils.StartOfDay(now).AddDate(0, 0, leadDays)
	to := from.AddDate(0, 0, 1)
	status := models.MilestoneStatusScheduled

	milestones, err := d.milestones.List(repository.MilestoneFilter{
		Status:      &status,
		TargetFrom:  &from,
		TargetTo:    &to,
		NotNotified: &kind,
	})
	if err != nil {
		return fmt.Errorf("failed to list D-%d milestones: %w", leadDays, err)
	}

	for i := range milestones {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := milestones[i]
		if !lifecycle.DueForMilestoneLead(&m, now, leadDays) {
			continue
		}
		res.Examined++

		d.guard(SweepDeadline, zap.String("milestone_id", m.ID), res, func() error {
			return d.deliverMilestone(ctx, &m, kind, notifier.MilestoneLead(&m, leadDays), res)
		})
	}
	return nil
}

func (d *Driver) sendDelayAlerts(ctx context.Context, now time.Time, res *SweepResult) error {
	status := models.MilestoneStatusDelayed
	kind := models.NotificationDelayed

	milestones, err := d.milestones.List(repository.MilestoneFilter{
		Status:      &status,
		NotNotified: &kind,
	})
	if err != nil {
		return fmt.Errorf("failed to list delayed milestones: %w", err)
	}

	for i := range milestones {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := milestones[i]
		if !lifecycle.DueForMilestoneDelay(&m) {
			continue
		}
		res.Examined++

		d.guard(SweepDeadline, zap.String("milestone_id", m.ID), res, func() error {
			return d.deliverMilestone(ctx, &m, kind, notifier.MilestoneDelayed(&m), res)
		})
	}
	return nil
}

// deliverMilestone sends msg and records kind as sent only after delivery succeeded
func (d *Driver) deliverMilestone(ctx context.Context, m *models.Milestone, kind models.NotificationKind, msg notifier.Message, res *SweepResult) error {
	if m.Project == nil {
		return errors.New("milestone has no project")
	}
	if err := d.sender.Send(ctx, m.Project.GuildID, msg); err != nil {
		return err
	}
	res.Sent++

	if err := d.milestones.MarkNotified(m.ID, kind, d.now()); err != nil {
		return fmt.Errorf("failed to record %s notification: %w", kind, err)
	}
	return nil
}

// guard runs one entity's work, counting and logging its failure or panic
// without stopping the sweep
func (d *Driver) guard(sweep string, entity zap.Field, res *SweepResult, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			res.Failed++
			d.logger.Error("sweep entity panicked",
				zap.String("sweep", sweep),
				entity,
				zap.Any("panic", r),
			)
		}
	}()

	if err := fn(); err != nil {
		res.Failed++
		d.logger.Warn("sweep entity failed",
			zap.String("sweep", sweep),
			entity,
			zap.Error(err),
		)
	}
}

// run holds the sweep's lock for the duration of body and records the outcome
func (d *Driver) run(ctx context.Context, sweep string, body func(context.Context, *SweepResult) error) (SweepResult, error) {
	res := SweepResult{Sweep: sweep}

	release, err := d.locker.Acquire(ctx, sweep)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			metrics.RecordSweep(sweep, metrics.ResultSkipped, 0)
			d.logger.Info("sweep skipped, previous run still in progress", zap.String("sweep", sweep))
			return res, ErrSweepInProgress
		}
		return res, fmt.Errorf("failed to acquire %s lock: %w", sweep, err)
	}
	defer release()

	start := time.Now()
	err = body(ctx, &res)
	res.Duration = time.Since(start)

	result := metrics.ResultSuccess
	if err != nil || res.Failed > 0 {
		result = metrics.ResultFailure
	}
	metrics.RecordSweep(sweep, result, res.Duration)

	fields := []zap.Field{
		zap.String("sweep", sweep),
		zap.Int("examined", res.Examined),
		zap.Int("sent", res.Sent),
		zap.Int("failed", res.Failed),
		zap.Int64("advanced", res.Advanced),
		zap.Duration("duration", res.Duration),
	}
	if err != nil {
		d.logger.Error("sweep finished with errors", append(fields, zap.Error(err))...)
		return res, err
	}
	d.logger.Info("sweep completed", fields...)
	return res, nil
}
