package main

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"video-ads/internal/config"
	"video-ads/internal/db"
	"video-ads/internal/events"
	"video-ads/internal/logger"
	"video-ads/internal/pipeline"
	"video-ads/internal/render"
	"video-ads/internal/storage"
	"video-ads/internal/worker"
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

	conn, err := db.Connect(cfg.Database.URL)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to connect to database")
	}
	defer conn.Close()

	renderer, err := render.NewClient(render.Options{
		BaseURL:           cfg.Render.APIURL,
		APIKey:            cfg.Render.APIKey,
		Model:             cfg.Render.Model,
		Timeout:           cfg.Render.Timeout,
		RequestsPerSecond: cfg.Render.RequestsPerSecond,
	})
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to create render client")
	}
	media, err := storage.New(context.Background(), cfg.Storage)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to create media store")
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	defer rdb.Close()

	poller := worker.NewPoller(db.NewRepository(conn), renderer, pipeline.NewFinalizer(renderer, media),
		events.NewRedisPublisher(rdb, cfg.Redis.EventsChannel),
		worker.PollerOptions{Concurrency: cfg.Poller.Concurrency, MaxAge: cfg.Poller.MaxAge})

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password},
		asynq.Config{
			Concurrency: cfg.Poller.Concurrency,
			Queues: map[string]int{
				"high":    2,
				"default": 1,
			},
			// Exponential backoff: 30s, 1m, 2m, 4m, capped at 10m.
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := 30 * time.Second
				maxDelay := 10 * time.Minute

				for i := 0; i < n; i++ {
					delay *= 2
					if delay > maxDelay {
						delay = maxDelay
						break
					}
				}

				logger.GetLogger().WithField("task", task.Type()).WithField("attempt", n+1).WithError(err).
					Warnf("Task failed, retrying in %v", delay)
				return delay
			},
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(poller)

	mux.HandleFunc(tasks.TypePollVideoAds, taskHandler.HandlePollVideoAdsTask)
	mux.HandleFunc(tasks.TypeCheckVideoAd, taskHandler.HandleCheckVideoAdTask)

	logger.GetLogger().WithField("commit", CommitSHA).Info("Worker starting")
	if err := srv.Run(mux); err != nil {
		logger.GetLogger().WithError(err).Fatal("could not run server")
	}
}
