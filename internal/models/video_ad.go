package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type VideoAd struct {
	ID           string       `db:"id" json:"id"`
	UserID       string       `db:"user_id" json:"userId"`
	Title        string       `db:"title" json:"title"`
	Prompt       string       `db:"prompt" json:"prompt"`
	Script       *VideoScript `db:"script" json:"script,omitempty"`
	RenderJobID  *string      `db:"render_job_id" json:"renderJobId,omitempty"`
	Status       string       `db:"status" json:"status"`
	VideoURL     *string      `db:"video_url" json:"videoUrl,omitempty"`
	ThumbnailURL *string      `db:"thumbnail_url" json:"thumbnailUrl,omitempty"`
	Duration     *float64     `db:"duration" json:"duration,omitempty"`
	Metadata     Metadata     `db:"metadata" json:"metadata"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updatedAt"`
}

// Metadata is the free-form progress and error blob stored with a VideoAd.
type Metadata struct {
	Progress    *float64   `json:"progress,omitempty"`
	LastChecked *time.Time `json:"lastChecked,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	FailedAt    *time.Time `json:"failedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
	Warning     string     `json:"warning,omitempty"`

	// VideoKey and ThumbnailKey are the storage keys of the finished media.
	VideoKey     string `json:"videoKey,omitempty"`
	ThumbnailKey string `json:"thumbnailKey,omitempty"`
}

func (m Metadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(src interface{}) error {
	*m = Metadata{}
	return scanJSON(src, m)
}
