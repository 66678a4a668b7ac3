package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// ImageryProvider serves acquisition requests. Satisfied by manager.Manager.
type ImageryProvider interface {
	GetImagery(ctx context.Context, req domain.AcquisitionRequest) (domain.AcquisitionResult, error)
	GetImageryBatch(ctx context.Context, reqs []domain.AcquisitionRequest, maxConcurrency int) map[string]domain.AcquisitionResult
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the imagery API plus health, readiness, and metrics routes.
type Server struct {
	httpServer *http.Server
	provider   ImageryProvider
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/imagery, /v1/imagery/batch,
// /healthz, /readyz, and /metrics routes.
func NewServer(addr string, provider ImageryProvider, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		provider: provider,
		logger:   logger,
	}

	mux.HandleFunc("GET /v1/imagery", s.handleImagery)
	mux.HandleFunc("POST /v1/imagery/batch", s.handleBatch)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleImagery(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r.URL.Query().Get("channel"), requestSpec{
		Domain: r.URL.Query().Get("domain"),
		Mode:   r.URL.Query().Get("mode"),
		Level:  r.URL.Query().Get("level"),
		Size:   r.URL.Query().Get("size"),
		Time:   r.URL.Query().Get("time"),
	})
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	result, err := s.provider.GetImagery(r.Context(), req)
	if err != nil {
		// Only configuration errors cross the facade.
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// batchBody is the JSON body for /v1/imagery/batch.
type batchBody struct {
	Requests       []batchItem `json:"requests"`
	MaxConcurrency int         `json:"max_concurrency"`
}

type batchItem struct {
	Channel string `json:"channel"`
	requestSpec
}

type requestSpec struct {
	Domain string `json:"domain"`
	Mode   string `json:"mode"`
	Level  string `json:"level"`
	Size   string `json:"size"`
	Time   string `json:"time"`
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var body batchBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body: " + err.Error()})
		return
	}
	if len(body.Requests) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "requests must be non-empty"})
		return
	}

	reqs := make([]domain.AcquisitionRequest, 0, len(body.Requests))
	for i, item := range body.Requests {
		req, err := parseRequest(item.Channel, item.requestSpec)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "request " + strconv.Itoa(i) + ": " + err.Error(),
			})
			return
		}
		reqs = append(reqs, req)
	}

	results := s.provider.GetImageryBatch(r.Context(), reqs, body.MaxConcurrency)
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// parseRequest builds a validated AcquisitionRequest from wire fields.
// Channel accepts a band number ("13") or a catalog identifier ("GEOCOLOR").
func parseRequest(channel string, spec requestSpec) (domain.AcquisitionRequest, error) {
	if channel == "" {
		return domain.AcquisitionRequest{}, &domain.ConfigurationError{Reason: "channel is required"}
	}

	var ch domain.ChannelSpec
	var ok bool
	if n, err := strconv.Atoi(channel); err == nil {
		ch, ok = domain.LookupChannel(n)
	} else {
		ch, ok = domain.ChannelByID(channel)
	}
	if !ok {
		return domain.AcquisitionRequest{}, &domain.ConfigurationError{Reason: "unknown channel " + channel}
	}

	req := domain.AcquisitionRequest{
		Channel:  ch,
		Domain:   domain.FullDisk,
		Mode:     domain.ModeImageProduct,
		Level:    domain.ProcessingLevel(spec.Level),
		SizeHint: spec.Size,
	}
	if spec.Domain != "" {
		req.Domain = domain.ProductDomain(spec.Domain)
	}
	if spec.Mode != "" {
		req.Mode = domain.AcquisitionMode(spec.Mode)
	}
	if spec.Time != "" {
		ts, err := time.Parse(time.RFC3339, spec.Time)
		if err != nil {
			return domain.AcquisitionRequest{}, &domain.ConfigurationError{Reason: "time must be RFC 3339: " + err.Error()}
		}
		req.Timestamp = &ts
	}

	if err := req.Validate(); err != nil {
		return domain.AcquisitionRequest{}, err
	}
	return req, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
