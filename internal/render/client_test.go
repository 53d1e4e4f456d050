package render

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"video-ads/internal/apperr"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL, APIKey: "wan-key"})
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Options{})

	var cfgErr *apperr.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "FAST_WAN_API_KEY", cfgErr.Key)
}

func TestSubmit(t *testing.T) {
	var got submitBody
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/videos/generate", r.URL.Path)
		assert.Equal(t, "Bearer wan-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &got))
		io.WriteString(w, `{"id":"job-9"}`)
	})

	job, err := c.Submit(context.Background(), SubmitRequest{Prompt: "Scene 1", Duration: 45})
	require.NoError(t, err)

	assert.Equal(t, "job-9", job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, "Scene 1", got.Prompt)
	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, 45.0, got.Duration)
	assert.Equal(t, "16:9", got.AspectRatio)
}

func TestSubmitPrefersJobID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"job_id":"job-1","id":"other","status":"processing"}`)
	})

	job, err := c.Submit(context.Background(), SubmitRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Equal(t, StatusProcessing, job.Status)
}

func TestSubmitErrors(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusBadRequest, `{"error":"prompt too long"}`, "prompt too long"},
		{"status text", http.StatusServiceUnavailable, `<html>down</html>`, "Service Unavailable"},
		{"malformed body", http.StatusOK, `not json`, "malformed response body"},
		{"missing id", http.StatusOK, `{"status":"pending"}`, "response has no job id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})

			_, err := c.Submit(context.Background(), SubmitRequest{Prompt: "p"})

			var upstream *apperr.UpstreamError
			require.True(t, errors.As(err, &upstream))
			assert.Equal(t, tc.status, upstream.StatusCode)
			assert.Equal(t, tc.message, upstream.Message)
		})
	}
}

func TestStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/videos/status/job-7", r.URL.Path)
		io.WriteString(w, `{"status":"completed","progress":100,"video_url":"https://cdn/v.mp4","thumbnail_url":"https://cdn/t.jpg","duration":28.5}`)
	})

	job, err := c.Status(context.Background(), "job-7")
	require.NoError(t, err)

	assert.Equal(t, "job-7", job.ID)
	assert.Equal(t, StatusCompleted, job.Status)
	assert.True(t, job.Status.IsTerminal())
	assert.Equal(t, "https://cdn/v.mp4", job.VideoURL)
	assert.Equal(t, "https://cdn/t.jpg", job.ThumbnailURL)
	require.NotNil(t, job.Duration)
	assert.Equal(t, 28.5, *job.Duration)
}

func TestStatusFailedJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"job_id":"job-7","status":"failed","error":"content policy"}`)
	})

	job, err := c.Status(context.Background(), "job-7")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, "content policy", job.Error)
}

func TestStatusHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.Status(context.Background(), "missing")

	var upstream *apperr.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
	assert.Equal(t, "Fast Wan API error: Not Found", err.Error())
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		if r.URL.Path == "/media/missing.mp4" {
			w.WriteHeader(http.StatusGone)
			return
		}
		w.Write([]byte("mp4-bytes"))
	})

	data, err := c.Download(context.Background(), c.baseURL+"/media/v.mp4")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp4-bytes"), data)

	_, err = c.Download(context.Background(), c.baseURL+"/media/missing.mp4")
	var upstream *apperr.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusGone, upstream.StatusCode)
}
