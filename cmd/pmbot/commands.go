package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukikurage/pmbot/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "pmbot",
		Short:         "Project tracking bot backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newSweepCmd(&configPath),
		newMigrateCmd(&configPath),
	)

	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the command API and the scheduled sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			gin.SetMode(cfg.Server.GinMode)

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var sched *scheduler.Scheduler
			if cfg.Scheduler.Enabled {
				sched, err = scheduler.New(a.driver, cfg.Scheduler, log.Named("scheduler"))
				if err != nil {
					return err
				}
				sched.Start()
			}

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           a.router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			serveErr := make(chan error, 1)
			go func() {
				log.Info("server starting", zap.String("addr", cfg.Server.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			select {
			case err = <-serveErr:
			case <-ctx.Done():
				log.Info("shutting down")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				log.Error("server shutdown failed", zap.Error(shutdownErr))
			}
			if sched != nil {
				if stopErr := sched.Stop(shutdownCtx); stopErr != nil {
					log.Error("scheduler did not stop in time", zap.Error(stopErr))
				}
			}

			return err
		},
	}
}

func newSweepCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one sweep now",
	}

	sweeps := []struct {
		use   string
		short string
		run   func(*scheduler.Driver, context.Context) (scheduler.SweepResult, error)
	}{
		{"deadline", "Delay overdue milestones and send deadline reminders", (*scheduler.Driver).RunDeadlineSweep},
		{"issues", "Warn about unattended open issues", (*scheduler.Driver).RunIssueWatch},
		{"weekly", "Send the weekly report to every configured guild", (*scheduler.Driver).RunWeeklyReport},
	}

	for _, s := range sweeps {
		cmd.AddCommand(&cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, log, err := loadConfig(*configPath)
				if err != nil {
					return err
				}
				defer log.Sync()

				a, err := newApp(cfg, log)
				if err != nil {
					return err
				}
				defer a.Close()

				result, err := s.run(a.driver, cmd.Context())
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s: examined %d, sent %d, failed %d, advanced %d (%s)\n",
					result.Sweep, result.Examined, result.Sent, result.Failed, result.Advanced, result.Duration.Round(time.Millisecond))
				return nil
			},
		})
	}

	return cmd
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := connect(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			log.Info("migrations applied", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
