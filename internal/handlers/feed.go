package handlers

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"video-ads/internal/feed"
	"video-ads/internal/logger"
)

func (h *Handlers) GetRSSFeed(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	ads, err := h.service.ListCompleted(r.Context(), userID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Error getting completed video ads")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rss, err := feed.GenerateRSS(userID, ads, feed.BaseURL(h.baseURL, r))
	if err != nil {
		logger.GetLogger().WithError(err).Error("Error generating RSS")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml")
	w.Write([]byte(rss))
}

func (h *Handlers) ServeMediaFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, filename := vars["userID"], vars["filename"]
	if strings.Contains(userID, "..") || strings.Contains(filename, "..") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.mediaRoot, userID, filename))
}
