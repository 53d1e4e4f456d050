package tasks

import (
	"time"

	"github.com/hibiken/asynq"
)

// TaskEnqueuer is the part of *asynq.Client the API process uses.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Checks that keep failing are left to the periodic sweep.
const checkMaxRetry = 3

// CheckTaskID is the asynq task ID of a record's follow-up check. A record
// gets at most one queued check at a time.
func CheckTaskID(videoAdID string) string {
	return "check:" + videoAdID
}

// EnqueueCheckVideoAd schedules a single-record check to run after delay.
func EnqueueCheckVideoAd(e TaskEnqueuer, videoAdID string, delay time.Duration) (*asynq.TaskInfo, error) {
	task, err := NewCheckVideoAdTask(videoAdID)
	if err != nil {
		return nil, err
	}
	return e.Enqueue(task,
		asynq.ProcessIn(delay),
		asynq.MaxRetry(checkMaxRetry),
		asynq.TaskID(CheckTaskID(videoAdID)),
	)
}
