package main

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"video-ads/internal/config"
	"video-ads/internal/logger"
	"video-ads/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	if err := godotenv.Load(); err != nil {
		logger.GetLogger().Info("No .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to load config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password},
		&asynq.SchedulerOpts{},
	)

	task, err := tasks.NewPollVideoAdsTask()
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("could not create task")
	}

	// A sweep is never enqueued while the previous one is still outstanding.
	_, err = scheduler.Register(fmt.Sprintf("@every %s", cfg.Poller.Interval), task,
		asynq.Unique(cfg.Poller.Interval), asynq.MaxRetry(0))
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("could not register task")
	}

	logger.GetLogger().WithField("commit", CommitSHA).WithField("interval", cfg.Poller.Interval.String()).Info("Scheduler starting")
	if err := scheduler.Run(); err != nil {
		logger.GetLogger().WithError(err).Fatal("could not run scheduler")
	}
}
