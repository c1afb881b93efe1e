package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/youmna-rabie/mcp-relay/internal/config"
	"github.com/youmna-rabie/mcp-relay/internal/connectivity"
	"github.com/youmna-rabie/mcp-relay/internal/journal"
	"github.com/youmna-rabie/mcp-relay/internal/metrics"
	"github.com/youmna-rabie/mcp-relay/internal/rawbody"
	"github.com/youmna-rabie/mcp-relay/internal/source"
	"github.com/youmna-rabie/mcp-relay/internal/types"
)

const defaultListLimit = 50

// Dispatcher hands a verified event off for delivery without blocking.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev types.InboundEvent)
}

// SessionState reports the persistent Slack session's connectivity.
type SessionState interface {
	Snapshot() connectivity.Snapshot
}

// Server is the HTTP front of the relay: it verifies inbound webhooks,
// acknowledges them, hands them to the dispatcher and exposes health,
// metrics and admin endpoints.
type Server struct {
	cfg        *config.Config
	source     types.Source
	dispatcher Dispatcher
	session    SessionState
	journal    journal.Store
	router     chi.Router
	logger     *slog.Logger
	httpSrv    *http.Server
}

// NewServer creates a Server wired with the given dependencies.
func NewServer(
	cfg *config.Config,
	src types.Source,
	dispatcher Dispatcher,
	session SessionState,
	store journal.Store,
	logger *slog.Logger,
) *Server {
	s := &Server{
		cfg:        cfg,
		source:     src,
		dispatcher: dispatcher,
		session:    session,
		journal:    store,
		logger:     logger,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(logger))
	r.Use(Recovery(logger))

	// Only the webhook route sees raw-body capture.
	r.With(rawbody.Capture(cfg.Server.MaxBodyBytes)).Post(cfg.Server.WebhookPath, s.handleWebhook)
	r.Get("/health", s.handleHealth)
	r.Get("/admin/deliveries", s.handleAdminDeliveries)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured host:port.
func (s *Server) ListenAndServe() error {
	addr := net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(s.cfg.Server.Port))
	s.logger.Info("server starting", "addr", addr, "webhook_url", s.cfg.WebhookURL())
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpSrv.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// handleWebhook processes POST {webhook_path}.
// Pipeline: verify → parse → acknowledge → dispatch.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := s.source.ValidateRequest(r); err != nil {
		status := validationStatus(err)
		if errors.Is(err, source.ErrSecretMissing) {
			s.logger.Error("webhook secret is not configured, rejecting request")
		} else {
			s.logger.Warn("webhook rejected", "remote_ip", remoteIP(r), "error", err)
		}
		metrics.WebhooksTotal.WithLabelValues(outcomeLabel(err)).Inc()
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	ev, err := s.source.ParseRequest(r)
	if err != nil {
		s.logger.Warn("webhook payload rejected", "remote_ip", remoteIP(r), "error", err)
		metrics.WebhooksTotal.WithLabelValues("malformed").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.logger.Info("webhook accepted",
		"event_id", ev.ID,
		"event_type", ev.EventType,
		"request_id", RequestIDFromContext(r.Context()),
	)
	metrics.WebhooksTotal.WithLabelValues("accepted").Inc()

	// The acknowledgement goes out before delivery starts.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Webhook received"))
	_ = http.NewResponseController(w).Flush()

	s.dispatcher.Dispatch(r.Context(), *ev)
}

func validationStatus(err error) int {
	switch {
	case errors.Is(err, source.ErrSignatureMissing):
		return http.StatusBadRequest
	case errors.Is(err, source.ErrSecretMissing), errors.Is(err, source.ErrBodyNotCaptured):
		return http.StatusInternalServerError
	case errors.Is(err, source.ErrSignatureInvalid):
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, source.ErrSignatureMissing):
		return "missing_signature"
	case errors.Is(err, source.ErrSignatureInvalid):
		return "invalid_signature"
	case errors.Is(err, source.ErrSecretMissing), errors.Is(err, source.ErrBodyNotCaptured):
		return "misconfigured"
	default:
		return "rejected"
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// handleHealth responds to GET /health with liveness and session state.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snap := s.session.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"slack_connected": snap.Connected,
		"session_state":   snap.State,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAdminDeliveries responds to GET /admin/deliveries with recent delivery records.
func (s *Server) handleAdminDeliveries(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	records, err := s.journal.List(limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list deliveries",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deliveries": records,
		"count":      len(records),
		"total":      s.journal.Count(),
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
