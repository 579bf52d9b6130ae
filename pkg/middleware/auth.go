// Package middleware carries the caller identity through request contexts.
package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/fkhayef/splitthebill/pkg/response"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for the calling user ID
	UserIDKey ContextKey = "user_id"

	// UserHeader names the header clients put their user id in
	UserHeader = "X-User-ID"
)

// Identity reads the caller's user id from the X-User-ID header.
// Requests without it pass through anonymously; a malformed value is rejected.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			response.Unauthorized(w, "Invalid "+UserHeader+" header")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// WithUserID returns a context carrying the caller id
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserID extracts the user ID from the request context
func GetUserID(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
