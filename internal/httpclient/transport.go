package httpclient

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/huddle/client/internal/logging"
	"github.com/huddle/client/internal/metrics"
)

// loggingTransport records every attempt with structured metadata.
type loggingTransport struct {
	next   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	logger := logging.FromContext(req.Context())
	if logger == slog.Default() && t.logger != nil {
		logger = t.logger
	}
	logger = logger.With(
		slog.String("request_id", req.Header.Get("X-Request-ID")),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		metrics.ObserveRequest(0)
		logger.Error("backend request failed", slog.Duration("duration", time.Since(start)), slog.String("error", err.Error()))
		return nil, err
	}

	metrics.ObserveRequest(resp.StatusCode)
	level := slog.LevelDebug
	if resp.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	logger.Log(req.Context(), level, "backend request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)
	return resp, nil
}
