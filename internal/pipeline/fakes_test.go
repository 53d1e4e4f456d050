package pipeline

import (
	"context"
	"errors"
	"sync"

	"video-ads/internal/models"
	"video-ads/internal/render"
)

type fakeScripts struct {
	script *models.VideoScript
	err    error
	calls  int
}

func (f *fakeScripts) GenerateScript(ctx context.Context, prompt string) (*models.VideoScript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.script, nil
}

type fakeRenderer struct {
	mu        sync.Mutex
	submitted []render.SubmitRequest
	submitErr error
	jobs      map[string]*render.Job
	media     map[string][]byte
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{jobs: map[string]*render.Job{}, media: map[string][]byte{}}
}

func (f *fakeRenderer) Submit(ctx context.Context, req render.SubmitRequest) (*render.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return &render.Job{ID: "job-1", Status: render.StatusPending}, nil
}

func (f *fakeRenderer) Status(ctx context.Context, jobID string) (*render.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, errors.New("unknown job")
	}
	return job, nil
}

func (f *fakeRenderer) Download(ctx context.Context, mediaURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.media[mediaURL]
	if !ok {
		return nil, errors.New("404 from cdn")
	}
	return data, nil
}

func bottleScript() *models.VideoScript {
	return &models.VideoScript{
		Title:         "Sip Green",
		TotalDuration: 18,
		Style:         "Modern",
		Scenes: []models.Scene{
			{SceneNumber: 1, Duration: 3, VisualDescription: "Plastic waste on a beach", TextOverlay: "Tired of plastic?"},
			{SceneNumber: 2, Duration: 10, VisualDescription: "Hiker refills the bottle"},
			{SceneNumber: 3, Duration: 5, VisualDescription: "Logo and call to action", TextOverlay: "Shop now"},
		},
	}
}
