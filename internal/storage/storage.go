// Package storage persists generated media on local disk or in S3.
package storage

import (
	"context"
	"fmt"
	"strings"

	"video-ads/internal/apperr"
	"video-ads/internal/config"
)

type Kind string

const (
	KindVideo     Kind = "video"
	KindThumbnail Kind = "thumbnail"
)

// Store is implemented by every media backend.
type Store interface {
	Store(ctx context.Context, data []byte, userID, jobID string, kind Kind) (string, error)
	URLFor(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string)
}

// FileName is the object name of a job's media of the given kind.
func FileName(jobID string, kind Kind) string {
	if kind == KindThumbnail {
		return jobID + "-thumbnail.jpg"
	}
	return jobID + ".mp4"
}

func ContentType(kind Kind) string {
	if kind == KindThumbnail {
		return "image/jpeg"
	}
	return "video/mp4"
}

// Key builds the storage key "{userID}/{file}" shared by both backends.
func Key(userID, jobID string, kind Kind) (string, error) {
	if err := checkSegment("userId", userID); err != nil {
		return "", err
	}
	if err := checkSegment("jobId", jobID); err != nil {
		return "", err
	}
	if kind != KindVideo && kind != KindThumbnail {
		return "", fmt.Errorf("unknown media kind %q", kind)
	}
	return userID + "/" + FileName(jobID, kind), nil
}

func checkSegment(field, v string) error {
	if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\`) {
		return apperr.NewValidation(field, fmt.Sprintf("invalid %s %q for a storage key", field, v))
	}
	return nil
}

// New returns the backend selected by the configuration.
func New(ctx context.Context, c config.Storage) (Store, error) {
	if c.Local {
		return NewLocal(c.LocalPath, DefaultPublicPath)
	}
	return NewS3(ctx, S3Options{
		Region:    c.S3Region,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Expiry:    c.SignedURLExpiry,
	})
}
