package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yukikurage/pmbot/internal/config"
	"github.com/yukikurage/pmbot/internal/database"
	"github.com/yukikurage/pmbot/internal/handlers"
	"github.com/yukikurage/pmbot/internal/lock"
	"github.com/yukikurage/pmbot/internal/logger"
	"github.com/yukikurage/pmbot/internal/notifier"
	"github.com/yukikurage/pmbot/internal/repository"
	"github.com/yukikurage/pmbot/internal/scheduler"
	"github.com/yukikurage/pmbot/internal/services"
)

// app holds everything a command needs, wired from the configuration
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	driver  *scheduler.Driver
	router  *gin.Engine
	closers []func() error
}

func loadConfig(path string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(cfg.Server.GinMode)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

func connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateDatabase(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newApp(cfg *config.Config, log *zap.Logger) (*app, error) {
	db, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log, db: db}
	a.onClose(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	backend, err := a.newNotifier()
	if err != nil {
		a.Close()
		return nil, err
	}

	projectRepo := repository.NewProjectRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	issueRepo := repository.NewIssueRepository(db)
	decisionRepo := repository.NewDecisionRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	settingsRepo := repository.NewGuildSettingsRepository(db)

	dispatcher := notifier.NewDispatcher(backend, settingsRepo, log.Named("notifier"))
	reports := services.NewReportService(projectRepo, milestoneRepo, issueRepo, decisionRepo, loc)

	opts, err := scheduler.OptionsFromConfig(cfg.Scheduler)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.driver = scheduler.NewDriver(scheduler.Deps{
		Milestones: milestoneRepo,
		Issues:     issueRepo,
		Settings:   settingsRepo,
		Reports:    reports,
		Sender:     dispatcher,
		Locker:     a.newLocker(),
	}, opts, log.Named("scheduler"))

	a.router = handlers.NewRouter(handlers.RouterDeps{
		DB:         db,
		Projects:   services.NewProjectService(projectRepo, milestoneRepo, issueRepo, decisionRepo, documentRepo),
		Milestones: services.NewMilestoneService(milestoneRepo, projectRepo, loc),
		Issues:     services.NewIssueService(issueRepo, projectRepo, dispatcher, log.Named("issues")),
		Decisions:  services.NewDecisionService(decisionRepo, projectRepo),
		Documents:  services.NewDocumentService(documentRepo, projectRepo),
		Settings:   services.NewSettingsService(settingsRepo),
		Reports:    reports,
		Sweeps:     a.driver,
		Location:   loc,
		Logger:     log.Named("http"),
	})

	return a, nil
}

func (a *app) newNotifier() (notifier.Notifier, error) {
	switch a.cfg.Notifier.Backend {
	case config.NotifierDiscord:
		return notifier.NewDiscordNotifier(a.cfg.Discord.Token)
	case config.NotifierAMQP:
		n, err := notifier.NewAMQPNotifier(a.cfg.Notifier.AMQPURL, a.cfg.Notifier.Exchange)
		if err != nil {
			return nil, err
		}
		a.onClose(n.Close)
		return n, nil
	default:
		return notifier.NewLogNotifier(a.log.Named("notifier")), nil
	}
}

// newLocker shares sweep locks through Redis when it is configured
func (a *app) newLocker() lock.Locker {
	if a.cfg.Redis.Addr == "" {
		return lock.NewLocalLocker()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	a.onClose(rdb.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		a.log.Warn("redis unreachable, sweep locks will be process-local until it recovers",
			zap.String("addr", a.cfg.Redis.Addr),
			zap.Error(err),
		)
	}

	return lock.NewRedisLocker(rdb, a.cfg.Scheduler.LockTTL, a.log.Named("lock"))
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
