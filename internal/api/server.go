package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/marketdash/internal/chart"
	"github.com/rickgao/marketdash/internal/connection"
	"github.com/rickgao/marketdash/internal/dashboard"
	"github.com/rickgao/marketdash/internal/market"
	"github.com/rickgao/marketdash/internal/model"
	"github.com/rickgao/marketdash/internal/sched"
	"github.com/rickgao/marketdash/internal/stats"
	"github.com/rickgao/marketdash/internal/version"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 16

// Service is the dashboard surface served over HTTP. *dashboard.Client
// implements it.
type Service interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	RequestMetrics(ctx context.Context) error

	SelectSymbol(ctx context.Context, symbol string) error
	AddSymbol(ctx context.Context, symbol string) (market.Record, error)
	RemoveSymbol(ctx context.Context, symbol string) error
	SetTimeframe(ctx context.Context, tag string) error
	ClearTrades(ctx context.Context) error
	Submit(ctx context.Context, text string) error

	Status(ctx context.Context) (dashboard.Status, error)
	Symbol(ctx context.Context, symbol string) (market.Record, error)
	Symbols(ctx context.Context) ([]market.Record, error)
	Metrics(ctx context.Context) (model.MetricsSnapshot, error)
	TradeLog(ctx context.Context) ([]model.TradeLogEntry, error)
	Chart(ctx context.Context, tag string) (dashboard.ChartView, error)
	Stats(ctx context.Context, symbol string) (stats.Summary, error)
	Messages(ctx context.Context) ([]model.SystemMessage, error)
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithGatherer serves gatherer on GET /metrics.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithRequestTimeout bounds every request.
func WithRequestTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.timeout = d
	}
}

// WithAuthToken requires a bearer token on every route except /health
// and /metrics.
func WithAuthToken(token string) ServerOption {
	return func(s *Server) {
		s.token = token
	}
}

// Server routes HTTP requests to a Service.
type Server struct {
	svc      Service
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	timeout  time.Duration
	token    string
	router   chi.Router
}

// NewServer creates the HTTP handler.
func NewServer(svc Service, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:     svc,
		logger:  logger.With("component", "api"),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.logger))
	if s.timeout > 0 {
		r.Use(middleware.Timeout(s.timeout))
	}

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if s.token != "" {
			r.Use(BearerAuth(s.token))
		}

		r.Get("/status", s.handleStatus)

		r.Route("/symbols", func(r chi.Router) {
			r.Get("/", s.handleSymbols)
			r.Post("/", s.handleAddSymbol)
			r.Get("/{symbol}", s.handleSymbol)
			r.Delete("/{symbol}", s.handleRemoveSymbol)
		})
		r.Put("/selected", s.handleSelect)
		r.Put("/timeframe", s.handleTimeframe)

		r.Get("/chart", s.handleChart)
		r.Get("/stats", s.handleStats)
		r.Get("/trades", s.handleTrades)
		r.Delete("/trades", s.handleClearTrades)
		r.Get("/server-metrics", s.handleServerMetrics)
		r.Post("/server-metrics", s.handleRequestMetrics)
		r.Get("/messages", s.handleMessages)

		r.Post("/connection/{action}", s.handleConnection)
		r.Post("/submit", s.handleSubmit)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Build: version.Get()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	s.respond(w, r, http.StatusOK, st, err)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Symbols(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views := make([]SymbolView, len(recs))
	for i, rec := range recs {
		views[i] = symbolView(rec)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSymbol(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Symbol(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, symbolView(rec))
}

func (s *Server) handleAddSymbol(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, err := s.svc.AddSymbol(r.Context(), req.Symbol)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, symbolView(rec))
}

func (s *Server) handleRemoveSymbol(w http.ResponseWriter, r *http.Request) {
	err := s.svc.RemoveSymbol(r.Context(), chi.URLParam(r, "symbol"))
	s.respond(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req symbolRequest
	if !s.decode(w, r, &req) {
		return
	}
	err := s.svc.SelectSymbol(r.Context(), req.Symbol)
	s.respond(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleTimeframe(w http.ResponseWriter, r *http.Request) {
	var req timeframeRequest
	if !s.decode(w, r, &req) {
		return
	}
	err := s.svc.SetTimeframe(r.Context(), req.Timeframe)
	s.respond(w, r, http.StatusNoContent, nil, err)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Chart(r.Context(), r.URL.Query().Get("timeframe"))
	s.respond(w, r, http.StatusOK, view, err)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Stats(r.Context(), r.URL.Query().Get("symbol"))
	s.respond(w, r, http.StatusOK, sum, err)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.svc.TradeLog(r.Context())
	s.respond(w, r, http.StatusOK, trades, err)
}

func (s *Server) handleClearTrades(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusNoContent, nil, s.svc.ClearTrades(r.Context()))
}

func (s *Server) handleServerMetrics(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Metrics(r.Context())
	s.respond(w, r, http.StatusOK, snap, err)
}

func (s *Server) handleRequestMetrics(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusAccepted, nil, s.svc.RequestMetrics(r.Context()))
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.svc.Messages(r.Context())
	s.respond(w, r, http.StatusOK, msgs, err)
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "connect":
		err = s.svc.Connect(r.Context())
	case "disconnect":
		err = s.svc.Disconnect(r.Context())
	case "reconnect":
		err = s.svc.Reconnect(r.Context())
	default:
		sendError(w, http.StatusNotFound, "unknown_action", "unknown connection action "+action)
		return
	}
	s.respond(w, r, http.StatusAccepted, nil, err)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respond(w, r, http.StatusAccepted, nil, s.svc.Submit(r.Context(), req.Text))
}

// respond writes v with status, or the mapped error.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if v == nil {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, v)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.logger.Debug("bad request body", "path", r.URL.Path, "error", err)
		sendError(w, http.StatusBadRequest, "bad_request", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	sendError(w, status, code, err.Error())
}

// classify maps domain errors to HTTP status codes. A command answered
// with 503 never reached the loop and had no effect.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, market.ErrUnknownSymbol):
		return http.StatusNotFound, "unknown_symbol"
	case errors.Is(err, market.ErrEmptySymbol),
		errors.Is(err, chart.ErrUnknownTimeframe),
		errors.Is(err, dashboard.ErrUnknownCommand):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, connection.ErrThrottled):
		return http.StatusTooManyRequests, "throttled"
	case errors.Is(err, model.ErrPolicy):
		return http.StatusConflict, "policy_violation"
	case errors.Is(err, sched.ErrStopped),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// sendError sends a JSON error response.
func sendError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
