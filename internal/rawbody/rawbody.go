// Package rawbody keeps the exact request bytes available after the body has
// been read, so signatures can be checked over what was actually sent.
package rawbody

import (
	"bytes"
	"context"
	"io"
	"net/http"
)

// DefaultLimit is the largest body Capture accepts.
const DefaultLimit = 1 << 20 // 1 MB

type ctxKey struct{}

// FromContext returns the captured body, if Capture ran for this request.
func FromContext(ctx context.Context) ([]byte, bool) {
	b, ok := ctx.Value(ctxKey{}).([]byte)
	return b, ok
}

// WithBody stores body in ctx. Capture uses it; tests may too.
func WithBody(ctx context.Context, body []byte) context.Context {
	return context.WithValue(ctx, ctxKey{}, body)
}

// Capture reads the whole body (up to limit bytes) before any handler parses
// it, stores the bytes in the request context and replaces r.Body with a
// reader over the same bytes. Oversized bodies get 413.
func Capture(limit int64) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
			if err != nil {
				http.Error(w, "failed to read request body", http.StatusBadRequest)
				return
			}
			if int64(len(body)) > limit {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			if body == nil {
				body = []byte{}
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r.WithContext(WithBody(r.Context(), body)))
		})
	}
}
