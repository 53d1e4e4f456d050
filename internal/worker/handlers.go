package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"video-ads/internal/logger"
	"video-ads/pkg/tasks"
)

type TaskHandler struct {
	poller *Poller
}

func NewTaskHandler(poller *Poller) *TaskHandler {
	return &TaskHandler{poller: poller}
}

func (h *TaskHandler) HandlePollVideoAdsTask(ctx context.Context, t *asynq.Task) error {
	logger.GetLogger().Info("Polling generating video ads...")

	if _, err := h.poller.Sweep(ctx); err != nil {
		return err
	}
	return nil
}

func (h *TaskHandler) HandleCheckVideoAdTask(ctx context.Context, t *asynq.Task) error {
	var p tasks.CheckVideoAdTaskPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w: %w", err, asynq.SkipRetry)
	}

	outcome, err := h.poller.CheckOne(ctx, p.VideoAdID)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("videoAdId", p.VideoAdID).WithField("outcome", outcome).Info("Checked video ad")
	return nil
}
