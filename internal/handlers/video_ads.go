package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"video-ads/internal/middleware"
)

type createVideoAdRequest struct {
	Title  string `json:"title"`
	Prompt string `json:"prompt"`
}

func (h *Handlers) CreateVideoAd(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req createVideoAdRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	ad, err := h.service.Create(r.Context(), userID, req.Title, req.Prompt)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ad)
}

func (h *Handlers) ListVideoAds(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	ads, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ads)
}

func (h *Handlers) GetVideoAd(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	ad, err := h.service.Get(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ad)
}
