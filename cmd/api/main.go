package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/LJTian/DailyBriefing/internal/api"
	"github.com/LJTian/DailyBriefing/internal/config"
	"github.com/LJTian/DailyBriefing/internal/logging"
	"github.com/LJTian/DailyBriefing/internal/pipeline"
	"github.com/LJTian/DailyBriefing/internal/scheduler"
	"github.com/LJTian/DailyBriefing/internal/storage"
	"github.com/gin-gonic/gin"
)

// Long-running daemon: fires the briefing on CRON_SPEC and serves the run history.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("load config failed", "err", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		logging.Fatal("load timezone failed", "tz", cfg.Timezone, "err", err)
	}

	var (
		opts  []pipeline.Option
		store api.RunStore
	)
	if cfg.PostgresDSN != "" {
		s, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, loc)
		if err != nil {
			logging.Fatal("init store failed", "err", err)
		}
		opts = append(opts, pipeline.WithRecorder(s))
		store = s
	} else {
		logging.Warn("POSTGRES_DSN not set, run archive disabled")
	}

	p, err := pipeline.Build(cfg, opts...)
	if err != nil {
		logging.Fatal("init pipeline failed", "err", err)
	}

	s, err := scheduler.New(cfg.CronSpec, loc, p, cfg.RunTimeout)
	if err != nil {
		logging.Fatal("init scheduler failed", "cron", cfg.CronSpec, "err", err)
	}
	s.Start()
	if cfg.RunOnStart {
		logging.Info("first run scheduled", "delay", cfg.StartupDelay)
		s.RunAfter(cfg.StartupDelay)
	}

	r := gin.Default()
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		r.Use(api.BasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	api.NewServer(store, s).RegisterRoutes(r)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logging.Info("starting api server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server exit", "err", err)
		}
	}()

	<-ctx.Done()
	logging.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("server shutdown failed", "err", err)
	}

	// wait for an in-flight cron run, bounded by the same grace period
	select {
	case <-s.Stop().Done():
	case <-shutdownCtx.Done():
		logging.Warn("briefing run still in progress at exit")
	}
}
