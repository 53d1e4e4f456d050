package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"video-ads/internal/config"
	"video-ads/internal/db"
	"video-ads/internal/handlers"
	"video-ads/internal/logger"
	"video-ads/internal/middleware"
	"video-ads/internal/pipeline"
	"video-ads/internal/render"
	"video-ads/internal/script"
	"video-ads/internal/storage"
	"video-ads/internal/videoads"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(cfg.Database.URL)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to connect to database")
	}
	defer conn.Close()

	completer, err := script.NewOpenAICompleter(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.Temperature)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to create script generator")
	}
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
	media, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.GetLogger().WithError(err).Fatal("Failed to create media store")
	}

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
	defer client.Close()

	orchestrator := pipeline.New(script.NewGenerator(completer), renderer, media)
	service := videoads.NewService(db.NewRepository(conn), orchestrator, client, media, cfg.Poller.Interval)

	mediaRoot := ""
	if cfg.Storage.Local {
		mediaRoot = cfg.Storage.LocalPath
	}
	h := handlers.New(service, cfg.App.BaseURL, mediaRoot)
	limiter := middleware.NewRateLimiterMiddleware(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           h.Router(limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.GetLogger().WithField("port", cfg.App.Port).WithField("commit", CommitSHA).Info("Server starting")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.GetLogger().Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithError(err).Fatal("Server returned an error")
	}
}
