package pipeline

import (
	"context"
	"fmt"

	"video-ads/internal/apperr"
	"video-ads/internal/logger"
	"video-ads/internal/render"
	"video-ads/internal/storage"
)

// MediaSource reports render jobs and serves their media.
type MediaSource interface {
	Status(ctx context.Context, jobID string) (*render.Job, error)
	Download(ctx context.Context, mediaURL string) ([]byte, error)
}

// Result is the stored media of a finalized job.
type Result struct {
	VideoURL     string
	VideoKey     string
	ThumbnailURL *string
	ThumbnailKey string
	Duration     *float64
	// Warning is set when the thumbnail could not be stored.
	Warning string
}

// Finalizer copies the media of completed render jobs into a storage.Store.
type Finalizer struct {
	source MediaSource
	media  storage.Store
}

func NewFinalizer(source MediaSource, media storage.Store) *Finalizer {
	return &Finalizer{source: source, media: media}
}

// Finalize downloads and stores the media of a completed render job. A
// thumbnail failure is reported in Result.Warning and never fails the call.
func (f *Finalizer) Finalize(ctx context.Context, renderJobID, userID, recordID string) (*Result, error) {
	log := logger.GetLogger().WithField("videoAdId", recordID).WithField("renderJobId", renderJobID)

	job, err := f.source.Status(ctx, renderJobID)
	if err != nil {
		return nil, err
	}
	if job.Status != render.StatusCompleted || job.VideoURL == "" {
		return nil, &apperr.NotReadyError{JobID: renderJobID, Status: string(job.Status)}
	}

	videoKey, videoURL, err := f.store(ctx, job.VideoURL, userID, recordID, storage.KindVideo)
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}

	res := &Result{VideoURL: videoURL, VideoKey: videoKey, Duration: job.Duration}

	if job.ThumbnailURL != "" {
		thumbKey, thumbURL, err := f.store(ctx, job.ThumbnailURL, userID, recordID, storage.KindThumbnail)
		if err != nil {
			log.WithError(err).Warn("Thumbnail unavailable, continuing without it")
			res.Warning = fmt.Sprintf("thumbnail unavailable: %v", err)
		} else {
			res.ThumbnailKey = thumbKey
			res.ThumbnailURL = &thumbURL
		}
	}

	log.Info("Finalized render job")
	return res, nil
}

// store downloads one media file and returns its key and URL. A stored
// object whose URL cannot be resolved is removed again.
func (f *Finalizer) store(ctx context.Context, mediaURL, userID, recordID string, kind storage.Kind) (string, string, error) {
	data, err := f.source.Download(ctx, mediaURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to download %s: %w", kind, err)
	}
	key, err := f.media.Store(ctx, data, userID, recordID, kind)
	if err != nil {
		return "", "", err
	}
	u, err := f.media.URLFor(ctx, key)
	if err != nil {
		f.media.Delete(ctx, key)
		return "", "", fmt.Errorf("failed to resolve %s url: %w", kind, err)
	}
	return key, u, nil
}
