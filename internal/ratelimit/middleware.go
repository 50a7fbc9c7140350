package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/taskforge/taskforge/internal/model"
)

// KeyFunc extracts the rate limit key from a request. Returning an empty
// string skips limiting for that request.
type KeyFunc func(r *http.Request) string

// RequestIDFunc extracts the request id for the error envelope. May be nil.
type RequestIDFunc func(r *http.Request) string

// IPKeyFunc keys requests by client IP address.
func IPKeyFunc(r *http.Request) string {
	return clientIP(r)
}

// clientIP strips the port from RemoteAddr. X-Forwarded-For is deliberately
// ignored; this service is expected to terminate connections directly or
// behind a proxy that rewrites RemoteAddr.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i != -1 {
		return addr[:i]
	}
	return addr
}

// Middleware enforces the limiter on every request. Requests over the limit
// receive 429 with a standard error envelope. Limiter errors fail open.
func Middleware(limiter Limiter, keyFunc KeyFunc, reqID RequestIDFunc, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("rate limiter error, failing open", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logger.Info("rate limited", "key", key, "path", r.URL.Path)
				writeRateLimited(w, r, reqID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, reqID RequestIDFunc) {
	var id string
	if reqID != nil {
		id = reqID(r)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(model.APIError{
		Error: model.ErrorDetail{
			Code:    model.ErrCodeRateLimited,
			Message: "too many requests",
		},
		Meta: model.ResponseMeta{
			RequestID: id,
			Timestamp: time.Now().UTC(),
		},
	})
}
