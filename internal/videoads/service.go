// Package videoads is the application service behind the HTTP API: it owns
// the VideoAd record around one run of the generation pipeline.
package videoads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"video-ads/internal/apperr"
	"video-ads/internal/db"
	"video-ads/internal/logger"
	"video-ads/internal/models"
	"video-ads/internal/pipeline"
	"video-ads/pkg/tasks"
)

var ErrNotFound = errors.New("video ad not found")

type Store interface {
	CreateVideoAd(ctx context.Context, id, userID, title, prompt string) (models.VideoAd, error)
	MarkVideoAdGenerating(ctx context.Context, id string, script *models.VideoScript, renderJobID string) (bool, error)
	FailVideoAd(ctx context.Context, id string, metadata models.Metadata, fromStatus string) (bool, error)
	GetVideoAdForUser(ctx context.Context, id, userID string) (models.VideoAd, error)
	ListVideoAdsByUserID(ctx context.Context, userID string) ([]models.VideoAd, error)
	ListCompletedVideoAdsByUserID(ctx context.Context, userID string) ([]models.VideoAd, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt, userID, recordID string) (*pipeline.Handle, error)
}

// URLSigner turns a storage key into a URL a client can fetch.
type URLSigner interface {
	URLFor(ctx context.Context, key string) (string, error)
}

type Service struct {
	store      Store
	generator  Generator
	enqueuer   tasks.TaskEnqueuer
	media      URLSigner
	checkDelay time.Duration
	newID      func() string
	now        func() time.Time
}

// NewService wires the service. checkDelay is how long after submission the
// first single-record check runs. media may be nil, in which case stored URLs
// are returned as they are.
func NewService(store Store, generator Generator, enqueuer tasks.TaskEnqueuer, media URLSigner, checkDelay time.Duration) *Service {
	return &Service{
		store:      store,
		generator:  generator,
		enqueuer:   enqueuer,
		media:      media,
		checkDelay: checkDelay,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Create validates the input, records a pending VideoAd and submits it for
// rendering. Invalid input writes nothing; a pipeline failure leaves the
// record failed with the error in its metadata.
func (s *Service) Create(ctx context.Context, userID, title, prompt string) (models.VideoAd, error) {
	if err := pipeline.ValidateTitle(title); err != nil {
		return models.VideoAd{}, err
	}
	if err := pipeline.ValidatePrompt(prompt); err != nil {
		return models.VideoAd{}, err
	}

	ad, err := s.store.CreateVideoAd(ctx, s.newID(), userID, title, prompt)
	if err != nil {
		return models.VideoAd{}, fmt.Errorf("failed to create video ad: %w", err)
	}
	log := logger.GetLogger().WithField("videoAdId", ad.ID).WithField("userId", userID)

	handle, err := s.generator.Generate(ctx, prompt, userID, ad.ID)
	if err != nil {
		log.WithError(err).Error("Video ad generation failed")
		s.failPending(ctx, ad.ID, err, log)
		return models.VideoAd{}, err
	}

	ok, err := s.store.MarkVideoAdGenerating(ctx, ad.ID, handle.Script, handle.JobID)
	if err == nil && !ok {
		err = fmt.Errorf("video ad %s is no longer pending", ad.ID)
	}
	if err != nil {
		err = fmt.Errorf("failed to record render job %s: %w", handle.JobID, err)
		// The render job keeps running upstream but nothing will collect it.
		log.WithError(err).WithField("renderJobId", handle.JobID).Error("Orphaned render job")
		s.failPending(ctx, ad.ID, err, log)
		return models.VideoAd{}, err
	}

	ad.Status = handle.Status
	ad.Script = handle.Script
	ad.RenderJobID = &handle.JobID

	s.scheduleCheck(ad.ID)
	log.WithField("renderJobId", handle.JobID).Info("Video ad is generating")
	return ad, nil
}

// failPending moves a record that never reached generating to failed. It
// runs even when the request context is already cancelled.
func (s *Service) failPending(ctx context.Context, id string, cause error, log *logrus.Entry) {
	now := s.now()
	if _, err := s.store.FailVideoAd(context.WithoutCancel(ctx), id, models.Metadata{Error: cause.Error(), FailedAt: &now}, db.StatusPending); err != nil {
		log.WithError(err).Error("Failed to mark video ad failed")
	}
}

func (s *Service) scheduleCheck(id string) {
	if s.enqueuer == nil {
		return
	}
	if _, err := tasks.EnqueueCheckVideoAd(s.enqueuer, id, s.checkDelay); err != nil {
		logger.GetLogger().WithError(err).WithField("videoAdId", id).Warn("Failed to enqueue check task")
	}
}

// resign replaces the stored media URLs of a completed record with fresh
// ones, since S3 URLs expire. The stored URL is kept when signing fails.
func (s *Service) resign(ctx context.Context, ad *models.VideoAd) {
	if s.media == nil || ad.Status != db.StatusCompleted {
		return
	}
	if key := ad.Metadata.VideoKey; key != "" {
		if u, err := s.media.URLFor(ctx, key); err != nil {
			logger.GetLogger().WithError(err).WithField("videoAdId", ad.ID).Warn("Failed to sign video url")
		} else {
			ad.VideoURL = &u
		}
	}
	if key := ad.Metadata.ThumbnailKey; key != "" {
		if u, err := s.media.URLFor(ctx, key); err != nil {
			logger.GetLogger().WithError(err).WithField("videoAdId", ad.ID).Warn("Failed to sign thumbnail url")
		} else {
			ad.ThumbnailURL = &u
		}
	}
}

func (s *Service) resignAll(ctx context.Context, ads []models.VideoAd) []models.VideoAd {
	for i := range ads {
		s.resign(ctx, &ads[i])
	}
	return ads
}

func (s *Service) Get(ctx context.Context, userID, id string) (models.VideoAd, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.VideoAd{}, apperr.NewValidation("id", "Invalid video ad id")
	}
	ad, err := s.store.GetVideoAdForUser(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VideoAd{}, ErrNotFound
	}
	if err != nil {
		return models.VideoAd{}, err
	}
	s.resign(ctx, &ad)
	return ad, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.VideoAd, error) {
	ads, err := s.store.ListVideoAdsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resignAll(ctx, ads), nil
}

func (s *Service) ListCompleted(ctx context.Context, userID string) ([]models.VideoAd, error) {
	ads, err := s.store.ListCompletedVideoAdsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.resignAll(ctx, ads), nil
}
