package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vilela/ideaflash/internal/api"
	"github.com/vilela/ideaflash/internal/bcal"
	"github.com/vilela/ideaflash/internal/config"
	"github.com/vilela/ideaflash/internal/coverage"
	"github.com/vilela/ideaflash/internal/db"
	"github.com/vilela/ideaflash/internal/generator"
	"github.com/vilela/ideaflash/internal/jobs"
	"github.com/vilela/ideaflash/internal/logger"
	"github.com/vilela/ideaflash/internal/repository/sqlite"
	"github.com/vilela/ideaflash/internal/reviewqueue"
	"github.com/vilela/ideaflash/internal/scheduler"
	"github.com/vilela/ideaflash/internal/session"
	"github.com/vilela/ideaflash/internal/worker"
)

func main() {
	cfg := config.Load()

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(true),
	)
	logger.SetDefault(log)

	log.Info("===========================================")
	log.Info("IdeaFlash Server Starting")
	log.Info("===========================================")

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("generator_mode=%s", cfg.GeneratorMode)
	log.Debug("gen_worker_count=%d", cfg.GenWorkerCount)
	log.Debug("gen_queue_size=%d", cfg.GenQueueSize)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	concepts := sqlite.NewConceptRepository(database.DB)
	covRepo := sqlite.NewCoverageRepository(database.DB)
	reviewItems := sqlite.NewReviewItemRepository(database.DB)
	sessions := sqlite.NewSessionRepository(database.DB)
	responses := sqlite.NewResponseRepository(database.DB)
	stats := sqlite.NewStatsRepository(database.DB)

	coverageStore := coverage.NewStore(covRepo, cfg.FollowUpBaseDelayDays)
	queue := reviewqueue.New(reviewItems)
	sched := scheduler.New(covRepo, scheduler.Config{
		RetryDelayDays:         cfg.FollowUpRetryDelayDays,
		CurveballAfterPassDays: cfg.CurveballAfterPassDays,
	})

	gen := generator.NewFromMode(cfg.GeneratorMode, cfg.AnthropicModel, cfg.GenRetries)

	scorerCfg := bcal.DefaultConfig()
	scorerCfg.LessonScale = cfg.BCalLessonScale
	scorerCfg.ClampMin = cfg.BCalClampMin
	scorerCfg.ClampMax = cfg.BCalClampMax
	scorer := bcal.NewScorer(scorerCfg)

	sessionService := session.NewService(
		sessions, responses, reviewItems, concepts, covRepo, stats,
		coverageStore, queue, sched, gen, scorer,
		session.Config{
			StaleAfter:   time.Duration(cfg.SessionStaleAfterMin) * time.Minute,
			PollInterval: time.Duration(cfg.GenerationPollMillis) * time.Millisecond,
			PollRetries:  cfg.GenerationPollRetries,
		},
	)

	genPool := worker.NewPool(cfg.GenWorkerCount, cfg.GenQueueSize)
	jobQueue := jobs.NewWorkerQueue(genPool, sessionService)

	srv := api.NewServer(concepts, stats, coverageStore, queue, sched, sessionService, jobQueue)

	ctx, cancel := context.WithCancel(context.Background())
	genPool.Start(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("stopping worker pool")
	cancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	genPool.Stop()

	log.Info("===========================================")
	log.Info("IdeaFlash Server Stopped")
	log.Info("===========================================")
}
