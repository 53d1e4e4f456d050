package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"video-ads/internal/logger"
)

// DefaultPublicPath is the URL prefix under which local media is served.
const DefaultPublicPath = "/generated-videos"

// Local keeps media under a directory tree namespaced by user id.
type Local struct {
	root       string
	publicPath string
}

func NewLocal(root, publicPath string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage path is empty")
	}
	if publicPath == "" {
		publicPath = DefaultPublicPath
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Local{root: root, publicPath: strings.TrimRight(publicPath, "/")}, nil
}

// Root is the directory media is written to.
func (l *Local) Root() string {
	return l.root
}

// PublicPath is the URL prefix returned by URLFor.
func (l *Local) PublicPath() string {
	return l.publicPath
}

func (l *Local) Store(ctx context.Context, data []byte, userID, jobID string, kind Kind) (string, error) {
	key, err := Key(userID, jobID, kind)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Join(l.root, userID), 0o755); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}
	if err := os.WriteFile(l.Path(key), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}

	logger.GetLogger().WithField("key", key).WithField("bytes", len(data)).Info("Stored media locally")
	return key, nil
}

func (l *Local) URLFor(ctx context.Context, key string) (string, error) {
	return path.Join(l.publicPath, key), nil
}

func (l *Local) Delete(ctx context.Context, key string) {
	err := os.Remove(l.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		logger.GetLogger().WithField("key", key).Warn("Media to delete does not exist")
		return
	}
	if err != nil {
		logger.GetLogger().WithError(err).WithField("key", key).Error("Failed to delete media")
	}
}

// Path is the filesystem location of key.
func (l *Local) Path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}
