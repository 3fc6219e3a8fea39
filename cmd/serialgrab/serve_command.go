package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/serialgrab/serialgrab/internal/api"
	"github.com/serialgrab/serialgrab/internal/arr"
	"github.com/serialgrab/serialgrab/internal/config"
	"github.com/serialgrab/serialgrab/internal/database"
	"github.com/serialgrab/serialgrab/internal/grab"
	"github.com/serialgrab/serialgrab/internal/health"
	"github.com/serialgrab/serialgrab/internal/logger"
	"github.com/serialgrab/serialgrab/internal/pending"
	"github.com/serialgrab/serialgrab/internal/scheduler"
	"github.com/serialgrab/serialgrab/internal/scheduler/tasks"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, webhook intake and grab scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.newLogger(cfg, false, cmd.ErrOrStderr())
			defer log.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(runCtx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Str("catalog", cfg.Catalog.Host).
		Msg("starting serialgrab")

	db, err := database.New(cfg.Database.Path, log.Logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	stack, err := newLookupStack(cfg, log.Logger)
	if err != nil {
		return err
	}

	store := pending.NewStore(db.Conn(), log.Logger)
	sonarr := arr.NewSonarr(cfg.Arr.Sonarr, log.Logger)
	radarr := arr.NewRadarr(cfg.Arr.Radarr, log.Logger)
	if !sonarr.IsConfigured() && !radarr.IsConfigured() {
		log.Warn().Msg("Neither Sonarr nor Radarr configured, grabbed files will not be imported")
	}

	checker := health.NewService(cfg, health.Integrations{
		TMDB:   stack.metadata.IsConfigured(),
		Sonarr: sonarr.IsConfigured(),
		Radarr: radarr.IsConfigured(),
	})
	for _, c := range checker.Check().Checks {
		if c.Status == health.StatusError {
			log.Error().Str("check", c.Name).Str("message", c.Message).Msg("Readiness check failed")
		}
	}

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	job := grab.New(store, stack.media, stack.ytdlp, sonarr, radarr, cfg.Downloads.Dir, cfg.Scheduler.GrabDelay, log.Logger)
	if err := tasks.RegisterGrabTask(sched, job, &cfg.Scheduler); err != nil {
		return fmt.Errorf("register grab task: %w", err)
	}
	sched.Start()
	defer func() {
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("scheduler shutdown error")
		}
	}()

	deps := api.Deps{
		Media:     stack.media,
		Pending:   store,
		Titles:    stack.metadata,
		Sonarr:    sonarr,
		Scheduler: sched,
		Health:    checker,
	}
	if tail := log.Tail(); tail != nil {
		deps.Logs = tail
	}
	server := api.NewServer(deps, cfg, log.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Address())
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("server stopped")
	return nil
}
