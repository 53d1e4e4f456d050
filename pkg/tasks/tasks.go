package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	TypePollVideoAds = "video_ads:poll"
	TypeCheckVideoAd = "video_ad:check"
)

type CheckVideoAdTaskPayload struct {
	VideoAdID string
}

func NewCheckVideoAdTask(videoAdID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CheckVideoAdTaskPayload{VideoAdID: videoAdID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCheckVideoAd, payload), nil
}

func NewPollVideoAdsTask() (*asynq.Task, error) {
	return asynq.NewTask(TypePollVideoAds, nil), nil
}
