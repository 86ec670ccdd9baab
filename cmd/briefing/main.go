package main

import (
	"context"
	"errors"
	"os"

	"github.com/LJTian/DailyBriefing/internal/config"
	"github.com/LJTian/DailyBriefing/internal/logging"
	"github.com/LJTian/DailyBriefing/internal/pipeline"
	"github.com/LJTian/DailyBriefing/internal/storage"
)

// Runs the briefing once and exits. Meant for an external scheduler (cron, CI).
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("load config failed", "err", err)
	}

	var opts []pipeline.Option
	if cfg.PostgresDSN != "" {
		loc, _ := cfg.Location()
		store, err := storage.NewStore(cfg.PostgresDSN, cfg.RedisAddr, loc)
		if err != nil {
			logging.Warn("run archive disabled", "err", err)
		} else {
			opts = append(opts, pipeline.WithRecorder(store))
		}
	}

	p, err := pipeline.Build(cfg, opts...)
	if err != nil {
		logging.Fatal("init pipeline failed", "err", err)
	}

	ctx := context.Background()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	if _, err := p.Run(ctx); err != nil {
		if errors.Is(err, pipeline.ErrNoEntries) {
			logging.Error("no headlines collected, nothing sent", "err", err)
		} else {
			logging.Error("briefing run failed", "err", err)
		}
		os.Exit(1)
	}
	logging.Info("briefing delivered")
}
