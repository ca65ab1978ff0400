package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	goRefresh "github.com/MrEthical07/goRefresh"
	promexport "github.com/MrEthical07/goRefresh/metrics/export/prometheus"
	"github.com/MrEthical07/goRefresh/signer"
)

type server struct {
	engine   *goRefresh.Engine
	log      *zap.Logger
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

func newServer(engine *goRefresh.Engine, log *zap.Logger) *server {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refreshd_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "status"})
	registry.MustRegister(requests)

	return &server{
		engine:   engine,
		log:      log,
		registry: registry,
		requests: requests,
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.correlate)

	r.Route("/v1/refresh", func(r chi.Router) {
		r.Post("/issue", s.handleIssue)
		r.Post("/rotate", s.handleRotate)
		r.Post("/revoke-family", s.handleRevokeFamily)
		r.Post("/revoke-user", s.handleRevokeUser)
	})
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promexport.NewPrometheusExporter(s.engine).Handler())
	r.Method(http.MethodGet, "/metrics/process", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// correlate attaches a correlation id and client IP to the request context so
// engine audit events can be traced back to the request.
func (s *server) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get("X-Correlation-ID")
		if cid == "" {
			cid = uuid.NewString()
		}
		ctx := goRefresh.WithCorrelationID(r.Context(), cid)
		ctx = goRefresh.WithClientIP(ctx, r.RemoteAddr)
		w.Header().Set("X-Correlation-ID", cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type issueRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Scope     string `json:"scope,omitempty"`
}

type rotateRequest struct {
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope,omitempty"`
}

type revokeFamilyRequest struct {
	FamilyID string `json:"family_id"`
}

type revokeUserRequest struct {
	UserID string `json:"user_id"`
}

type pairResponse struct {
	RefreshToken  string `json:"refresh_token"`
	AccessToken   string `json:"access_token"`
	FamilyID      string `json:"family_id"`
	RotationCount uint32 `json:"rotation_count,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		s.writeError(w, "issue", http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.engine.IssuePair(r.Context(), req.UserID, req.SessionID, req.Scope)
	if err != nil {
		s.writeEngineError(w, "issue", err)
		return
	}

	s.writeJSON(w, "issue", http.StatusOK, pairResponse{
		RefreshToken: pair.RefreshToken,
		AccessToken:  pair.AccessToken,
		FamilyID:     pair.FamilyID,
	})
}

func (s *server) handleRotate(w http.ResponseWriter, r *http.Request) {
	var req rotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		s.writeError(w, "rotate", http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := s.engine.RotatePair(r.Context(), req.RefreshToken, req.Scope)
	if err != nil {
		s.writeEngineError(w, "rotate", err)
		return
	}

	s.writeJSON(w, "rotate", http.StatusOK, pairResponse{
		RefreshToken:  pair.RefreshToken,
		AccessToken:   pair.AccessToken,
		FamilyID:      pair.FamilyID,
		RotationCount: pair.RotationCount,
	})
}

func (s *server) handleRevokeFamily(w http.ResponseWriter, r *http.Request) {
	var req revokeFamilyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FamilyID == "" {
		s.writeError(w, "revoke-family", http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.engine.RevokeFamily(r.Context(), req.FamilyID); err != nil {
		s.writeEngineError(w, "revoke-family", err)
		return
	}

	s.writeJSON(w, "revoke-family", http.StatusOK, map[string]bool{"revoked": true})
}

func (s *server) handleRevokeUser(w http.ResponseWriter, r *http.Request) {
	var req revokeUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		s.writeError(w, "revoke-user", http.StatusBadRequest, "invalid request body")
		return
	}

	count, err := s.engine.RevokeAllForUser(r.Context(), req.UserID)
	if err != nil {
		s.writeEngineError(w, "revoke-user", err)
		return
	}

	s.writeJSON(w, "revoke-user", http.StatusOK, map[string]int{"revoked_count": count})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	latency, err := s.engine.Ping(r.Context())
	if err != nil {
		s.writeError(w, "healthz", http.StatusServiceUnavailable, "store unavailable")
		return
	}
	s.writeJSON(w, "healthz", http.StatusOK, map[string]string{
		"status":        "ok",
		"store_latency": latency.Round(time.Microsecond).String(),
	})
}

// writeEngineError maps engine sentinels onto HTTP statuses: invalid and
// replayed credentials are unauthorized, revocation is forbidden, the
// throttle is 429, and transient backend failures are 503. A replayed
// credential gets the same surface as an unknown one; only the lineage
// standing revoked is forbidden.
func (s *server) writeEngineError(w http.ResponseWriter, route string, err error) {
	var status int
	switch {
	case errors.Is(err, goRefresh.ErrRefreshInvalid),
		errors.Is(err, goRefresh.ErrRefreshReuse):
		status = http.StatusUnauthorized
	case errors.Is(err, goRefresh.ErrFamilyRevoked),
		errors.Is(err, goRefresh.ErrAccessRevoked):
		status = http.StatusForbidden
	case errors.Is(err, goRefresh.ErrRotateRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, goRefresh.ErrStoreUnavailable),
		errors.Is(err, signer.ErrUnavailable):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	s.log.Warn("request failed",
		zap.String("route", route),
		zap.Int("status", status),
		zap.String("correlation_id", w.Header().Get("X-Correlation-ID")),
		zap.Error(err),
	)
	s.writeError(w, route, status, err.Error())
}

func (s *server) writeError(w http.ResponseWriter, route string, status int, msg string) {
	s.count(route, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}

func (s *server) writeJSON(w http.ResponseWriter, route string, status int, body any) {
	s.count(route, status)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *server) count(route string, status int) {
	s.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
