package test

import (
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
)

// MockTaskEnqueuer is a mock implementation of tasks.TaskEnqueuer for testing.
type MockTaskEnqueuer struct {
	mu            sync.Mutex
	EnqueuedTasks []*asynq.Task
	// EnqueuedOptions holds the options of each task, by position.
	EnqueuedOptions [][]asynq.Option
	Err             error
}

func (m *MockTaskEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.EnqueuedTasks = append(m.EnqueuedTasks, task)
	m.EnqueuedOptions = append(m.EnqueuedOptions, opts)
	return &asynq.TaskInfo{ID: "test-task-id", Queue: "default"}, nil
}

func NewMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	sqlxDB := sqlx.NewDb(mockDb, "sqlmock")

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
		mockDb.Close()
	})

	return sqlxDB, mock
}

// VideoAdColumns lists the video_ads columns in table order.
var VideoAdColumns = []string{
	"id", "user_id", "title", "prompt", "script", "render_job_id", "status",
	"video_url", "thumbnail_url", "duration", "metadata", "created_at", "updated_at",
}
