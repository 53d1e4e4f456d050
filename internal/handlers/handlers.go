package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"video-ads/internal/apperr"
	"video-ads/internal/logger"
	"video-ads/internal/middleware"
	"video-ads/internal/models"
	"video-ads/internal/videoads"
)

type VideoAdService interface {
	Create(ctx context.Context, userID, title, prompt string) (models.VideoAd, error)
	Get(ctx context.Context, userID, id string) (models.VideoAd, error)
	List(ctx context.Context, userID string) ([]models.VideoAd, error)
	ListCompleted(ctx context.Context, userID string) ([]models.VideoAd, error)
}

type Handlers struct {
	service VideoAdService
	baseURL string
	// mediaRoot is the local media directory, empty when media lives in S3.
	mediaRoot string
}

func New(service VideoAdService, baseURL, mediaRoot string) *Handlers {
	return &Handlers{
		service:   service,
		baseURL:   baseURL,
		mediaRoot: mediaRoot,
	}
}

// Router registers every route. API routes need a caller identity and are rate limited.
func (h *Handlers) Router(limiter *middleware.RateLimiterMiddleware) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/feeds/{userID}", h.GetRSSFeed).Methods(http.MethodGet)
	if h.mediaRoot != "" {
		r.HandleFunc("/generated-videos/{userID}/{filename}", h.ServeMediaFile).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.IdentityMiddleware, limiter.Middleware)
	api.HandleFunc("/video-ads", h.CreateVideoAd).Methods(http.MethodPost)
	api.HandleFunc("/video-ads", h.ListVideoAds).Methods(http.MethodGet)
	api.HandleFunc("/video-ads/{id}", h.GetVideoAd).Methods(http.MethodGet)
	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	var (
		validation *apperr.ValidationError
		upstream   *apperr.UpstreamError
		generation *apperr.GenerationError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Message, Field: validation.Field})
	case errors.Is(err, videoads.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Video ad not found"})
	case errors.As(err, &upstream), errors.As(err, &generation):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		logger.GetLogger().WithError(err).Error("Request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
	}
}
