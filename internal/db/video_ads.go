package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"video-ads/internal/models"
)

const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Completion holds the fields written when a VideoAd reaches completed.
type Completion struct {
	VideoURL     string
	ThumbnailURL *string
	Duration     *float64
	Metadata     models.Metadata
}

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateVideoAd(ctx context.Context, id, userID, title, prompt string) (models.VideoAd, error) {
	ad := models.VideoAd{}
	err := r.db.GetContext(ctx, &ad, `
		INSERT INTO video_ads (id, user_id, title, prompt, status, metadata)
		VALUES ($1, $2, $3, $4, $5, '{}')
		RETURNING *`,
		id, userID, title, prompt, StatusPending)
	return ad, err
}

func (r *Repository) GetVideoAdByID(ctx context.Context, id string) (models.VideoAd, error) {
	ad := models.VideoAd{}
	err := r.db.GetContext(ctx, &ad, "SELECT * FROM video_ads WHERE id = $1", id)
	return ad, err
}

func (r *Repository) GetVideoAdForUser(ctx context.Context, id, userID string) (models.VideoAd, error) {
	ad := models.VideoAd{}
	err := r.db.GetContext(ctx, &ad, "SELECT * FROM video_ads WHERE id = $1 AND user_id = $2", id, userID)
	return ad, err
}

func (r *Repository) ListVideoAdsByUserID(ctx context.Context, userID string) ([]models.VideoAd, error) {
	ads := []models.VideoAd{}
	err := r.db.SelectContext(ctx, &ads, "SELECT * FROM video_ads WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return ads, err
}

func (r *Repository) ListCompletedVideoAdsByUserID(ctx context.Context, userID string) ([]models.VideoAd, error) {
	ads := []models.VideoAd{}
	err := r.db.SelectContext(ctx, &ads,
		"SELECT * FROM video_ads WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC",
		userID, StatusCompleted)
	return ads, err
}

// FindGeneratingVideoAds returns the records the poller has to check.
func (r *Repository) FindGeneratingVideoAds(ctx context.Context) ([]models.VideoAd, error) {
	ads := []models.VideoAd{}
	err := r.db.SelectContext(ctx, &ads,
		"SELECT * FROM video_ads WHERE status = $1 AND render_job_id IS NOT NULL ORDER BY created_at",
		StatusGenerating)
	return ads, err
}

// MarkVideoAdGenerating moves a pending record to generating. It reports false
// when the record was no longer pending.
func (r *Repository) MarkVideoAdGenerating(ctx context.Context, id string, script *models.VideoScript, renderJobID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE video_ads
		SET status = $1, script = $2, render_job_id = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		StatusGenerating, script, renderJobID, id, StatusPending)
	return affected(res, err)
}

// UpdateVideoAdMetadata overwrites metadata on a record that is still generating.
func (r *Repository) UpdateVideoAdMetadata(ctx context.Context, id string, metadata models.Metadata) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE video_ads
		SET metadata = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		metadata, id, StatusGenerating)
	return affected(res, err)
}

// CompleteVideoAd transitions a generating record to completed.
func (r *Repository) CompleteVideoAd(ctx context.Context, id string, c Completion) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE video_ads
		SET status = $1, video_url = $2, thumbnail_url = $3, duration = $4, metadata = $5, updated_at = NOW()
		WHERE id = $6 AND status = $7`,
		StatusCompleted, c.VideoURL, c.ThumbnailURL, c.Duration, c.Metadata, id, StatusGenerating)
	return affected(res, err)
}

// FailVideoAd transitions a record in fromStatus to failed.
func (r *Repository) FailVideoAd(ctx context.Context, id string, metadata models.Metadata, fromStatus string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE video_ads
		SET status = $1, metadata = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4`,
		StatusFailed, metadata, id, fromStatus)
	return affected(res, err)
}

func affected(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}
