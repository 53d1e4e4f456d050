// Package pipeline drives a video ad from prompt to a submitted render job,
// and from a completed render job to stored media.
package pipeline

import (
	"context"
	"fmt"
	"math"

	"video-ads/internal/logger"
	"video-ads/internal/models"
	"video-ads/internal/render"
	"video-ads/internal/script"
	"video-ads/internal/storage"
)

// StatusGenerating is the status of a handle returned by Generate.
const StatusGenerating = "generating"

type ScriptGenerator interface {
	GenerateScript(ctx context.Context, prompt string) (*models.VideoScript, error)
}

type Renderer interface {
	MediaSource
	Submit(ctx context.Context, req render.SubmitRequest) (*render.Job, error)
}

// Orchestrator runs both halves of the pipeline. Processes that only collect
// finished jobs use a Finalizer instead.
type Orchestrator struct {
	*Finalizer
	scripts     ScriptGenerator
	renderer    Renderer
	model       string
	aspectRatio string
}

func New(scripts ScriptGenerator, renderer Renderer, media storage.Store) *Orchestrator {
	return &Orchestrator{
		Finalizer:   NewFinalizer(renderer, media),
		scripts:     scripts,
		renderer:    renderer,
		model:       render.DefaultModel,
		aspectRatio: render.DefaultAspectRatio,
	}
}

// Handle identifies a submitted render job.
type Handle struct {
	JobID  string
	Status string
	Script *models.VideoScript
}

// SubmitDuration caps a script's duration to what the renderer accepts.
func SubmitDuration(s *models.VideoScript) float64 {
	return math.Min(s.TotalDuration, render.MaxDuration)
}

// Generate validates the prompt, writes a script and submits it for rendering.
// It returns as soon as the job is accepted.
func (o *Orchestrator) Generate(ctx context.Context, prompt, userID, recordID string) (*Handle, error) {
	log := logger.GetLogger().WithField("videoAdId", recordID).WithField("userId", userID)

	if err := ValidatePrompt(prompt); err != nil {
		return nil, err
	}

	s, err := o.scripts.GenerateScript(ctx, prompt)
	if err != nil {
		return nil, err
	}
	log.WithField("scenes", len(s.Scenes)).WithField("duration", s.TotalDuration).Info("Generated script")

	job, err := o.renderer.Submit(ctx, render.SubmitRequest{
		Prompt:      script.Flatten(s),
		Model:       o.model,
		Duration:    SubmitDuration(s),
		AspectRatio: o.aspectRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to submit render job: %w", err)
	}
	log.WithField("renderJobId", job.ID).Info("Submitted render job")

	return &Handle{JobID: job.ID, Status: StatusGenerating, Script: s}, nil
}
