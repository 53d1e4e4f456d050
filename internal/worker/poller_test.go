package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"video-ads/internal/apperr"
	"video-ads/internal/db"
	"video-ads/internal/events"
	"video-ads/internal/models"
	"video-ads/internal/pipeline"
	"video-ads/internal/render"
	"video-ads/internal/storage"
)

// memoryStore mirrors the conditional updates of db.Repository.
type memoryStore struct {
	mu      sync.Mutex
	ads     map[string]*models.VideoAd
	listErr error
}

func newMemoryStore(ads ...models.VideoAd) *memoryStore {
	s := &memoryStore{ads: map[string]*models.VideoAd{}}
	for i := range ads {
		ad := ads[i]
		s.ads[ad.ID] = &ad
	}
	return s
}

func (s *memoryStore) get(id string) models.VideoAd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.ads[id]
}

func (s *memoryStore) FindGeneratingVideoAds(ctx context.Context) ([]models.VideoAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.VideoAd
	for _, ad := range s.ads {
		if ad.Status == db.StatusGenerating && ad.RenderJobID != nil {
			out = append(out, *ad)
		}
	}
	return out, nil
}

func (s *memoryStore) GetVideoAdByID(ctx context.Context, id string) (models.VideoAd, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad, ok := s.ads[id]
	if !ok {
		return models.VideoAd{}, errors.New("sql: no rows in result set")
	}
	return *ad, nil
}

func (s *memoryStore) UpdateVideoAdMetadata(ctx context.Context, id string, metadata models.Metadata) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad := s.ads[id]
	if ad == nil || ad.Status != db.StatusGenerating {
		return false, nil
	}
	ad.Metadata = metadata
	return true, nil
}

func (s *memoryStore) CompleteVideoAd(ctx context.Context, id string, c db.Completion) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad := s.ads[id]
	if ad == nil || ad.Status != db.StatusGenerating {
		return false, nil
	}
	ad.Status = db.StatusCompleted
	ad.VideoURL = &c.VideoURL
	ad.ThumbnailURL = c.ThumbnailURL
	ad.Duration = c.Duration
	ad.Metadata = c.Metadata
	return true, nil
}

func (s *memoryStore) FailVideoAd(ctx context.Context, id string, metadata models.Metadata, fromStatus string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ad := s.ads[id]
	if ad == nil || ad.Status != fromStatus {
		return false, nil
	}
	ad.Status = db.StatusFailed
	ad.Metadata = metadata
	return true, nil
}

type stubRenderer struct {
	mu    sync.Mutex
	jobs  map[string]*render.Job
	errs  map[string]error
	media map[string][]byte
}

func newStubRenderer() *stubRenderer {
	return &stubRenderer{jobs: map[string]*render.Job{}, errs: map[string]error{}, media: map[string][]byte{}}
}

func (r *stubRenderer) Status(ctx context.Context, jobID string) (*render.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.errs[jobID]; err != nil {
		return nil, err
	}
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, &apperr.UpstreamError{Service: "Fast Wan", StatusCode: 404, Message: "Not Found"}
	}
	return job, nil
}

func (r *stubRenderer) Download(ctx context.Context, mediaURL string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.media[mediaURL]
	if !ok {
		return nil, &apperr.UpstreamError{Service: "Media download", StatusCode: 404, Message: "Not Found"}
	}
	return data, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func generatingAd(id, jobID string) models.VideoAd {
	return models.VideoAd{
		ID:          id,
		UserID:      "user-1",
		Title:       "Bottle",
		Prompt:      "Launch our new eco-friendly water bottle",
		RenderJobID: &jobID,
		Status:      db.StatusGenerating,
		Script: &models.VideoScript{
			TotalDuration: 18,
			Scenes:        []models.Scene{{SceneNumber: 1, Duration: 18, VisualDescription: "Bottle"}},
		},
		CreatedAt: time.Now().Add(-time.Minute),
	}
}

type harness struct {
	store     *memoryStore
	renderer  *stubRenderer
	publisher *recordingPublisher
	poller    *Poller
	now       time.Time
}

func newHarness(t *testing.T, opts PollerOptions, ads ...models.VideoAd) *harness {
	media, err := storage.NewLocal(t.TempDir(), "")
	require.NoError(t, err)

	h := &harness{
		store:     newMemoryStore(ads...),
		renderer:  newStubRenderer(),
		publisher: &recordingPublisher{},
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.poller = NewPoller(h.store, h.renderer, pipeline.NewFinalizer(h.renderer, media), h.publisher, opts)
	h.poller.now = func() time.Time { return h.now }
	return h
}

func TestSweepCompletesRecord(t *testing.T) {
	h := newHarness(t, PollerOptions{}, generatingAd("ad-1", "job-1"))
	duration := 17.5
	h.renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusCompleted, VideoURL: "https://cdn/v.mp4", ThumbnailURL: "https://cdn/t.jpg", Duration: &duration}
	h.renderer.media["https://cdn/v.mp4"] = []byte("video")
	h.renderer.media["https://cdn/t.jpg"] = []byte("thumb")

	summary, err := h.poller.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary[OutcomeCompleted])

	ad := h.store.get("ad-1")
	assert.Equal(t, db.StatusCompleted, ad.Status)
	require.NotNil(t, ad.VideoURL)
	assert.Equal(t, "/generated-videos/user-1/ad-1.mp4", *ad.VideoURL)
	require.NotNil(t, ad.ThumbnailURL)
	assert.Equal(t, "/generated-videos/user-1/ad-1-thumbnail.jpg", *ad.ThumbnailURL)
	assert.Equal(t, &duration, ad.Duration)
	require.NotNil(t, ad.Metadata.CompletedAt)
	assert.Equal(t, h.now, *ad.Metadata.CompletedAt)
	assert.Equal(t, "user-1/ad-1.mp4", ad.Metadata.VideoKey)
	assert.Equal(t, "user-1/ad-1-thumbnail.jpg", ad.Metadata.ThumbnailKey)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, db.StatusCompleted, h.publisher.events[0].Status)
}

func TestSweepCompletesWithoutThumbnail(t *testing.T) {
	h := newHarness(t, PollerOptions{}, generatingAd("ad-1", "job-1"))
	h.renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusCompleted, VideoURL: "https://cdn/v.mp4", ThumbnailURL: "https://cdn/broken.jpg"}
	h.renderer.media["https://cdn/v.mp4"] = []byte("video")

	_, err := h.poller.Sweep(context.Background())
	require.NoError(t, err)

	ad := h.store.get("ad-1")
	assert.Equal(t, db.StatusCompleted, ad.Status)
	require.NotNil(t, ad.VideoURL)
	assert.Nil(t, ad.ThumbnailURL)
	assert.Contains(t, ad.Metadata.Warning, "thumbnail unavailable")
	require.NotNil(t, ad.Duration)
	assert.Equal(t, 18.0, *ad.Duration)
}

func TestSweepFailsRecord(t *testing.T) {
	h := newHarness(t, PollerOptions{}, generatingAd("ad-1", "job-1"), generatingAd("ad-2", "job-2"))
	h.renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusFailed, Error: "content policy violation"}
	h.renderer.jobs["job-2"] = &render.Job{ID: "job-2", Status: render.StatusFailed}

	summary, err := h.poller.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary[OutcomeFailed])

	ad := h.store.get("ad-1")
	assert.Equal(t, db.StatusFailed, ad.Status)
	assert.Equal(t, "content policy violation", ad.Metadata.Error)
	require.NotNil(t, ad.Metadata.FailedAt)
	assert.Equal(t, h.now, *ad.Metadata.FailedAt)

	assert.Equal(t, "Video generation failed", h.store.get("ad-2").Metadata.Error)
}

func TestSweepRecordsProgress(t *testing.T) {
	h := newHarness(t, PollerOptions{}, generatingAd("ad-1", "job-1"), generatingAd("ad-2", "job-2"))
	progress := 42.0
	h.renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusProcessing, Progress: &progress}
	h.renderer.jobs["job-2"] = &render.Job{ID: "job-2", Status: render.StatusPending}

	summary, err := h.poller.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary[OutcomeProgress])
	assert.Equal(t, 1, summary[OutcomeUnchanged])

	ad := h.store.get("ad-1")
	assert.Equal(t, db.StatusGenerating, ad.Status)
	require.NotNil(t, ad.Metadata.Progress)
	assert.Equal(t, 42.0, *ad.Metadata.Progress)
	require.NotNil(t, ad.Metadata.LastChecked)
	assert.Equal(t, h.now, *ad.Metadata.LastChecked)

	assert.Nil(t, h.store.get("ad-2").Metadata.Progress)
	assert.Empty(t, h.publisher.events)
}

func TestSweepIsolatesRecordErrors(t *testing.T) {
	h := newHarness(t, PollerOptions{Concurrency: 2}, generatingAd("ad-a", "job-a"), generatingAd("ad-b", "job-b"))
	h.renderer.errs["job-a"] = &apperr.UpstreamError{Service: "Fast Wan", Message: "request failed", Err: errors.New("connection reset")}
	h.renderer.jobs["job-b"] = &render.Job{ID: "job-b", Status: render.StatusCompleted, VideoURL: "https://cdn/b.mp4"}
	h.renderer.media["https://cdn/b.mp4"] = []byte("video")

	summary, err := h.poller.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary[OutcomeError])
	assert.Equal(t, 1, summary[OutcomeCompleted])

	assert.Equal(t, db.StatusGenerating, h.store.get("ad-a").Status)
	assert.Equal(t, db.StatusCompleted, h.store.get("ad-b").Status)
}

func TestSweepLeavesRecordWhenFinalizeFails(t *testing.T) {
	h := newHarness(t, PollerOptions{}, generatingAd("ad-1", "job-1"))
	h.renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusCompleted, VideoURL: "https://cdn/expired.mp4"}

	summary, err := h.poller.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary[OutcomeError])
	assert.Equal(t, db.StatusGenerating, h.store.get("ad-1").Status)
}

func TestSweepPropagatesListError(t *testing.T) {
	h := newHarness(t, PollerOptions{})
	h.store.listErr = errors.New("connection refused")

	_, err := h.poller.Sweep(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestSweepFailsStaleRecords(t *testing.T) {
	stale := generatingAd("ad-old", "job-old")
	h := newHarness(t, PollerOptions{MaxAge: 2 * time.Hour}, stale, generatingAd("ad-new", "job-new"))
	h.store.ads["ad-old"].CreatedAt = h.now.Add(-3 * time.Hour)
	h.store.ads["ad-new"].CreatedAt = h.now.Add(-time.Minute)
	h.renderer.jobs["job-new"] = &render.Job{ID: "job-new", Status: render.StatusProcessing}

	_, err := h.poller.Sweep(context.Background())
	require.NoError(t, err)

	old := h.store.get("ad-old")
	assert.Equal(t, db.StatusFailed, old.Status)
	assert.Equal(t, "render job timed out", old.Metadata.Error)
	assert.Equal(t, db.StatusGenerating, h.store.get("ad-new").Status)
}

func TestConditionalTransitionSkipsFinishedRecord(t *testing.T) {
	h := newHarness(t, PollerOptions{}, generatingAd("ad-1", "job-1"))
	h.renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusFailed, Error: "boom"}
	ad := h.store.get("ad-1")

	// Another sweep finished the record between listing and updating.
	h.store.ads["ad-1"].Status = db.StatusCompleted

	outcome := h.poller.check(context.Background(), ad)
	assert.Equal(t, OutcomeConflict, outcome)
	assert.Equal(t, db.StatusCompleted, h.store.get("ad-1").Status)
	assert.Empty(t, h.publisher.events)
}

func TestPublishFailureDoesNotAffectTransition(t *testing.T) {
	h := newHarness(t, PollerOptions{}, generatingAd("ad-1", "job-1"))
	h.publisher.err = errors.New("redis down")
	h.renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusFailed}

	summary, err := h.poller.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary[OutcomeFailed])
	assert.Equal(t, db.StatusFailed, h.store.get("ad-1").Status)
}

func TestCheckOne(t *testing.T) {
	done := generatingAd("ad-done", "job-done")
	done.Status = db.StatusCompleted
	h := newHarness(t, PollerOptions{}, generatingAd("ad-1", "job-1"), done)
	h.renderer.jobs["job-1"] = &render.Job{ID: "job-1", Status: render.StatusFailed}

	outcome, err := h.poller.CheckOne(context.Background(), "ad-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)

	outcome, err = h.poller.CheckOne(context.Background(), "ad-done")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	_, err = h.poller.CheckOne(context.Background(), "missing")
	assert.Error(t, err)
}
