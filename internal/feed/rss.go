package feed

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eduncan911/podcast"
	"video-ads/internal/models"
)

// BaseURL returns configured when set, otherwise the scheme and host of r.
func BaseURL(configured string, r *http.Request) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}

	scheme := "https"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS == nil && r.URL.Scheme == "http" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

func absolute(baseURL, u string) string {
	if strings.HasPrefix(u, "/") {
		return baseURL + u
	}
	return u
}

// GenerateRSS renders the completed video ads of a user as a video feed.
func GenerateRSS(userID string, ads []models.VideoAd, baseURL string) (string, error) {
	var lastBuild time.Time
	for _, ad := range ads {
		if ad.UpdatedAt.After(lastBuild) {
			lastBuild = ad.UpdatedAt
		}
	}

	p := podcast.New(
		"Video ads",
		fmt.Sprintf("%s/feeds/%s", baseURL, userID),
		"Promotional videos generated from your prompts.",
		&lastBuild, &lastBuild,
	)

	for _, ad := range ads {
		if ad.VideoURL == nil {
			continue
		}
		pubDate := ad.CreatedAt
		item := podcast.Item{
			Title:       ad.Title,
			Description: ad.Prompt,
			PubDate:     &pubDate,
		}
		item.AddEnclosure(absolute(baseURL, *ad.VideoURL), podcast.MP4, 0)
		if ad.Duration != nil {
			item.AddDuration(int64(*ad.Duration))
		}
		if _, err := p.AddItem(item); err != nil {
			return "", fmt.Errorf("failed to add %s to feed: %w", ad.ID, err)
		}
	}

	return p.String(), nil
}
