package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// trackRequests assigns each request an ID (honoring X-Request-ID from the
// caller) and logs method, path, status and latency for it.
func trackRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if reqID == "" {
			reqID = uuid.NewString()[:8]
		}
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)

		t0 := time.Now()
		log.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request started")

		w.Header().Set("X-Request-ID", reqID)
		tracked := &trackingResponseWriter{ResponseWriter: w, status: http.StatusOK, started: t0}

		next.ServeHTTP(tracked, r.WithContext(ctx))

		elapsedMS := float64(time.Since(t0).Microseconds()) / 1000
		log.Info().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", tracked.status).
			Float64("latency_ms", elapsedMS).
			Msg("request completed")
	})
}

// trackingResponseWriter captures the status code and stamps the response
// time header before the first byte goes out.
type trackingResponseWriter struct {
	http.ResponseWriter
	status      int
	started     time.Time
	wroteHeader bool
}

func (w *trackingResponseWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		elapsedMS := float64(time.Since(w.started).Microseconds()) / 1000
		w.Header().Set("X-Response-Time-Ms", fmt.Sprintf("%.1f", elapsedMS))
		w.wroteHeader = true
	}
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *trackingResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush lets the SSE handler stream through the tracking wrapper.
func (w *trackingResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
