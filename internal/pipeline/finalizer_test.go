package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"video-ads/internal/render"
	"video-ads/internal/storage"
)

// unsignableStore stores objects but cannot produce URLs for the keys in failURL.
type unsignableStore struct {
	stored  map[string][]byte
	deleted []string
	failURL map[string]bool
}

func newUnsignableStore(failing ...string) *unsignableStore {
	s := &unsignableStore{stored: map[string][]byte{}, failURL: map[string]bool{}}
	for _, k := range failing {
		s.failURL[k] = true
	}
	return s
}

func (s *unsignableStore) Store(ctx context.Context, data []byte, userID, jobID string, kind storage.Kind) (string, error) {
	key, err := storage.Key(userID, jobID, kind)
	if err != nil {
		return "", err
	}
	s.stored[key] = data
	return key, nil
}

func (s *unsignableStore) URLFor(ctx context.Context, key string) (string, error) {
	if s.failURL[key] {
		return "", errors.New("signing credentials expired")
	}
	return "https://media.example/" + key, nil
}

func (s *unsignableStore) Delete(ctx context.Context, key string) {
	s.deleted = append(s.deleted, key)
	delete(s.stored, key)
}

func completedRenderer() *fakeRenderer {
	renderer := newFakeRenderer()
	renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusCompleted, VideoURL: "https://cdn/v.mp4", ThumbnailURL: "https://cdn/t.jpg"}
	renderer.media["https://cdn/v.mp4"] = []byte("video")
	renderer.media["https://cdn/t.jpg"] = []byte("thumb")
	return renderer
}

func TestFinalizerWithoutScriptGenerator(t *testing.T) {
	media := newUnsignableStore()
	f := NewFinalizer(completedRenderer(), media)

	res, err := f.Finalize(context.Background(), "job-1", "user-1", "ad-1")
	require.NoError(t, err)

	assert.Equal(t, "https://media.example/user-1/ad-1.mp4", res.VideoURL)
	assert.Equal(t, "user-1/ad-1.mp4", res.VideoKey)
	assert.Equal(t, "user-1/ad-1-thumbnail.jpg", res.ThumbnailKey)
	assert.Empty(t, media.deleted)
}

func TestFinalizeDeletesVideoWhenURLFails(t *testing.T) {
	media := newUnsignableStore("user-1/ad-1.mp4")
	f := NewFinalizer(completedRenderer(), media)

	_, err := f.Finalize(context.Background(), "job-1", "user-1", "ad-1")
	assert.ErrorContains(t, err, "failed to resolve video url")

	assert.Equal(t, []string{"user-1/ad-1.mp4"}, media.deleted)
	assert.NotContains(t, media.stored, "user-1/ad-1.mp4")
}

func TestFinalizeDeletesThumbnailWhenURLFails(t *testing.T) {
	media := newUnsignableStore("user-1/ad-1-thumbnail.jpg")
	f := NewFinalizer(completedRenderer(), media)

	res, err := f.Finalize(context.Background(), "job-1", "user-1", "ad-1")
	require.NoError(t, err)

	assert.Equal(t, "https://media.example/user-1/ad-1.mp4", res.VideoURL)
	assert.Nil(t, res.ThumbnailURL)
	assert.Empty(t, res.ThumbnailKey)
	assert.Contains(t, res.Warning, "thumbnail unavailable")
	assert.Equal(t, []string{"user-1/ad-1-thumbnail.jpg"}, media.deleted)
	assert.Contains(t, media.stored, "user-1/ad-1.mp4")
}
