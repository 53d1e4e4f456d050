package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"video-ads/internal/db"
	"video-ads/internal/events"
	"video-ads/internal/logger"
	"video-ads/internal/models"
	"video-ads/internal/pipeline"
	"video-ads/internal/render"
)

const (
	defaultFailureMessage = "Video generation failed"
	timedOutMessage       = "render job timed out"
)

// Store is the persistence used by the poller.
type Store interface {
	FindGeneratingVideoAds(ctx context.Context) ([]models.VideoAd, error)
	GetVideoAdByID(ctx context.Context, id string) (models.VideoAd, error)
	UpdateVideoAdMetadata(ctx context.Context, id string, metadata models.Metadata) (bool, error)
	CompleteVideoAd(ctx context.Context, id string, c db.Completion) (bool, error)
	FailVideoAd(ctx context.Context, id string, metadata models.Metadata, fromStatus string) (bool, error)
}

type StatusChecker interface {
	Status(ctx context.Context, jobID string) (*render.Job, error)
}

type Finalizer interface {
	Finalize(ctx context.Context, renderJobID, userID, recordID string) (*pipeline.Result, error)
}

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeProgress  Outcome = "progress"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeConflict  Outcome = "conflict"
	OutcomeError     Outcome = "error"
)

// Summary counts the outcomes of one sweep.
type Summary map[Outcome]int

type PollerOptions struct {
	// Concurrency bounds how many records are checked at once.
	Concurrency int
	// MaxAge fails generating records older than this. Zero disables it.
	MaxAge time.Duration
}

// Poller moves generating VideoAds to completed or failed as their render
// jobs finish.
type Poller struct {
	store       Store
	renderer    StatusChecker
	finalizer   Finalizer
	publisher   events.Publisher
	concurrency int
	maxAge      time.Duration
	now         func() time.Time
}

func NewPoller(store Store, renderer StatusChecker, finalizer Finalizer, publisher events.Publisher, opts PollerOptions) *Poller {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Poller{
		store:       store,
		renderer:    renderer,
		finalizer:   finalizer,
		publisher:   publisher,
		concurrency: opts.Concurrency,
		maxAge:      opts.MaxAge,
		now:         time.Now,
	}
}

// Sweep checks every generating record once. Only a failure to list the
// records is returned; per-record errors are logged and left for the next sweep.
func (p *Poller) Sweep(ctx context.Context) (Summary, error) {
	ads, err := p.store.FindGeneratingVideoAds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list generating video ads: %w", err)
	}

	summary := Summary{}
	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(p.concurrency)

	for _, ad := range ads {
		g.Go(func() error {
			outcome := p.check(ctx, ad)
			mu.Lock()
			summary[outcome]++
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	logger.GetLogger().WithField("records", len(ads)).WithField("outcomes", summary).Info("Finished video ad sweep")
	return summary, nil
}

// CheckOne runs the sweep logic for a single record. Records that are not
// generating are ignored.
func (p *Poller) CheckOne(ctx context.Context, id string) (Outcome, error) {
	ad, err := p.store.GetVideoAdByID(ctx, id)
	if err != nil {
		return OutcomeError, fmt.Errorf("failed to get video ad %s: %w", id, err)
	}
	if ad.Status != db.StatusGenerating || ad.RenderJobID == nil {
		return OutcomeUnchanged, nil
	}
	return p.check(ctx, ad), nil
}

func (p *Poller) check(ctx context.Context, ad models.VideoAd) Outcome {
	log := logger.GetLogger().WithFields(logrus.Fields{
		"videoAdId":   ad.ID,
		"renderJobId": *ad.RenderJobID,
	})

	outcome, err := p.process(ctx, ad, log)
	if err != nil {
		log.WithError(err).Warn("Failed to check video ad, will retry on next sweep")
		return OutcomeError
	}
	return outcome
}

func (p *Poller) process(ctx context.Context, ad models.VideoAd, log *logrus.Entry) (Outcome, error) {
	now := p.now()

	if p.maxAge > 0 && now.Sub(ad.CreatedAt) > p.maxAge {
		log.WithField("age", now.Sub(ad.CreatedAt).String()).Warn("Render job exceeded max age")
		return p.fail(ctx, ad, timedOutMessage, now, log)
	}

	job, err := p.renderer.Status(ctx, *ad.RenderJobID)
	if err != nil {
		return OutcomeError, err
	}

	switch job.Status {
	case render.StatusCompleted:
		return p.complete(ctx, ad, now, log)

	case render.StatusFailed:
		msg := job.Error
		if msg == "" {
			msg = defaultFailureMessage
		}
		return p.fail(ctx, ad, msg, now, log)

	case render.StatusPending, render.StatusProcessing:
		if job.Progress == nil {
			return OutcomeUnchanged, nil
		}
		progress := *job.Progress
		ok, err := p.store.UpdateVideoAdMetadata(ctx, ad.ID, models.Metadata{Progress: &progress, LastChecked: &now})
		if err != nil {
			return OutcomeError, fmt.Errorf("failed to record progress: %w", err)
		}
		if !ok {
			return OutcomeConflict, nil
		}
		log.WithField("progress", progress).Debug("Recorded render progress")
		return OutcomeProgress, nil

	default:
		log.WithField("status", job.Status).Warn("Unknown render status")
		return OutcomeUnchanged, nil
	}
}

func (p *Poller) complete(ctx context.Context, ad models.VideoAd, now time.Time, log *logrus.Entry) (Outcome, error) {
	res, err := p.finalizer.Finalize(ctx, *ad.RenderJobID, ad.UserID, ad.ID)
	if err != nil {
		return OutcomeError, fmt.Errorf("failed to finalize: %w", err)
	}

	duration := res.Duration
	if duration == nil && ad.Script != nil {
		d := pipeline.SubmitDuration(ad.Script)
		duration = &d
	}

	ok, err := p.store.CompleteVideoAd(ctx, ad.ID, db.Completion{
		VideoURL:     res.VideoURL,
		ThumbnailURL: res.ThumbnailURL,
		Duration:     duration,
		Metadata: models.Metadata{
			CompletedAt:  &now,
			Warning:      res.Warning,
			VideoKey:     res.VideoKey,
			ThumbnailKey: res.ThumbnailKey,
		},
	})
	if err != nil {
		return OutcomeError, fmt.Errorf("failed to mark completed: %w", err)
	}
	if !ok {
		log.Info("Video ad already left generating, skipping completion")
		return OutcomeConflict, nil
	}

	log.WithField("videoUrl", res.VideoURL).Info("Video ad completed")
	p.publish(ctx, events.Event{VideoAdID: ad.ID, UserID: ad.UserID, Status: db.StatusCompleted, VideoURL: res.VideoURL, At: now}, log)
	return OutcomeCompleted, nil
}

func (p *Poller) fail(ctx context.Context, ad models.VideoAd, msg string, now time.Time, log *logrus.Entry) (Outcome, error) {
	ok, err := p.store.FailVideoAd(ctx, ad.ID, models.Metadata{Error: msg, FailedAt: &now}, db.StatusGenerating)
	if err != nil {
		return OutcomeError, fmt.Errorf("failed to mark failed: %w", err)
	}
	if !ok {
		log.Info("Video ad already left generating, skipping failure")
		return OutcomeConflict, nil
	}

	log.WithField("error", msg).Warn("Video ad failed")
	p.publish(ctx, events.Event{VideoAdID: ad.ID, UserID: ad.UserID, Status: db.StatusFailed, Error: msg, At: now}, log)
	return OutcomeFailed, nil
}

func (p *Poller) publish(ctx context.Context, e events.Event, log *logrus.Entry) {
	if err := p.publisher.Publish(ctx, e); err != nil {
		log.WithError(err).Warn("Failed to publish video ad event")
	}
}
