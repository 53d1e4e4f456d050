package events

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisPublisherReportsConnectionErrors(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	p := NewRedisPublisher(rdb, "video-ads:events")
	err := p.Publish(context.Background(), Event{VideoAdID: "ad-1", Status: "completed", At: time.Now()})
	assert.ErrorContains(t, err, "failed to publish to video-ads:events")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
