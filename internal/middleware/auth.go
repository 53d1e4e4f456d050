package middleware

import (
	"context"
	"net/http"
	"strings"

	"video-ads/internal/logger"
)

type contextKey string

// UserIDContextKey is the key for the caller's user id in the context.
const UserIDContextKey = contextKey("userID")

// UserIDHeader carries the caller identity set by the upstream gateway.
const UserIDHeader = "X-User-ID"

// IdentityMiddleware requires the gateway identity header and stores the user
// id in the request context.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if userID == "" {
			http.Error(w, UserIDHeader+" header is required", http.StatusUnauthorized)
			return
		}
		if strings.ContainsAny(userID, `/\`) || userID == "." || userID == ".." {
			logger.GetLogger().WithField("userId", userID).Warn("Rejected malformed user id")
			http.Error(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID returns the user id stored by IdentityMiddleware.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(string)
	return userID, ok && userID != ""
}
