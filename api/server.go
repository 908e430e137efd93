// Package api provides the HTTP REST API server for MarketLens.
//
// It exposes the dashboard views (news, sentiment, reports), the analysis
// endpoints and a WebSocket stream of refresh notifications.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/marketlens/internal/agent"
	"github.com/seenimoa/marketlens/internal/config"
	"github.com/seenimoa/marketlens/internal/dashboard"
	"github.com/seenimoa/marketlens/internal/infra"
	"github.com/seenimoa/marketlens/internal/logging"
	"github.com/seenimoa/marketlens/internal/snapshot"
)

// Version is reported by /health. Overridden at build time.
var Version = "dev"

// balanceTTL bounds how often the balance endpoint reaches the backend.
const balanceTTL = time.Minute

const balanceCacheKey = "balance"

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	dash    *dashboard.Dashboard
	poller  *dashboard.Poller
	analyst *agent.Analyst
	wsHub   *WSHub
	limiter *infra.RateLimiter
	cache   *infra.Cache
	logger  *slog.Logger
}

// NewServer wires the loader, dashboard, poller and analyst from cfg.
func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	logger = logging.OrDiscard(logger)
	loader := snapshot.NewLoader(snapshot.Endpoints{
		News:      cfg.Snapshot.NewsURL,
		Sentiment: cfg.Snapshot.SentimentURL,
		Reports:   cfg.Snapshot.ReportsURL,
		Feeds:     cfg.Snapshot.FeedURLs,
	}, cfg.Snapshot.Timeout(), snapshot.WithLogger(logger))

	analyst := agent.NewAnalystFromConfig(cfg.LLM, logger)
	dash := dashboard.New(loader,
		dashboard.WithLogger(logger),
		dashboard.WithKeepStale(cfg.Snapshot.KeepStale),
		dashboard.WithClassifier(analyst))

	return NewServerWith(cfg, dash, analyst, logger)
}

// NewServerWith builds a server around existing components.
func NewServerWith(cfg *config.Config, dash *dashboard.Dashboard, analyst *agent.Analyst, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		dash:    dash,
		poller:  dashboard.NewPoller(dash, dashboard.IntervalsFromConfig(cfg.Snapshot)),
		analyst: analyst,
		wsHub:   NewWSHub(),
		limiter: infra.NewRateLimiter(cfg.API.AnalyzePerMinute),
		cache:   infra.NewCache(balanceTTL),
		logger:  logging.OrDiscard(logger),
	}
	dash.OnUpdate(s.broadcastUpdate)
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WSHub {
	return s.wsHub
}

// ListenAndServe starts the poller and the HTTP server, and shuts both down
// on SIGINT/SIGTERM or when ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()
	defer s.wsHub.Close()
	if err := s.poller.Start(ctx); err != nil {
		return err
	}
	defer s.poller.Stop()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		// Dashboard
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/news", s.handleNews)
			r.Get("/news/sources", s.handleNewsSources)
			r.Get("/sentiment", s.handleSentiment)
			r.Get("/reports", s.handleReports)
			r.Get("/reports/{slot}", s.handleReport)
			r.Post("/refresh", s.handleRefresh)
		})

		// Analysis
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(90 * time.Second))
			r.Use(s.rateLimit)
			r.Post("/analyze", s.handleAnalyze)
			r.Get("/analyze/sentiment", s.handleAnalyzeSentiment)
			r.Get("/analyze/sector", s.handleAnalyzeSector)
			r.Post("/reports/{slot}/generate", s.handleGenerateReport)
		})

		r.Get("/balance", s.handleBalance)
		r.Get("/config/keys", s.handleGetConfigKeys)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ============================================================
// Middleware
// ============================================================

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "analysis rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ============================================================
// Helpers
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}
