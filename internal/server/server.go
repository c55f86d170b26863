package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"newsdeck/internal/ingest"
	"newsdeck/internal/server/api"
	"newsdeck/internal/store"
)

const cronPathPrefix = "/api/cron/"

// apiKeyMiddleware checks the X-API-Key header on /api/* routes. The
// cron route authenticates with its own bearer token and is exempt, as
// are non-API routes like /health. An empty key disables the check.
func apiKeyMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" ||
				!strings.HasPrefix(r.URL.Path, "/api/") ||
				strings.HasPrefix(r.URL.Path, cronPathPrefix) {
				next.ServeHTTP(w, r)
				return
			}

			reqApiKey := r.Header.Get("X-API-Key")
			if reqApiKey == "" {
				unauthorized(w, "API key required")
				return
			}

			if reqApiKey != apiKey {
				unauthorized(w, "Invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{false, msg})
}

// NewHandler builds the full route table plus middleware chain. Split
// out of RunServer so tests can drive it with httptest.
func NewHandler(st *store.Store, runner *ingest.Runner, apiKey, cronSecret string, logger zerolog.Logger) http.Handler {
	handler := api.NewHandler(st, runner, cronSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/feed", handler.GetFeed)
	mux.HandleFunc("GET /api/bookmarks", handler.GetBookmarks)
	mux.HandleFunc("GET /api/bookmarks/{id}", handler.GetBookmarkStatus)
	mux.HandleFunc("POST /api/bookmarks/batch", handler.BatchBookmarks)
	mux.HandleFunc("POST /api/bookmarks/{id}", handler.AddBookmark)
	mux.HandleFunc("DELETE /api/bookmarks/{id}", handler.RemoveBookmark)
	mux.HandleFunc("POST /api/seen/{id}", handler.MarkSeen)
	mux.HandleFunc("GET /api/cron/fetch-feed", handler.RunIngestion)
	mux.HandleFunc("GET /health", healthCheckHandler)

	// Middleware chain for logging and request tracking
	h := hlog.NewHandler(logger)(mux)
	h = hlog.MethodHandler("method")(h)
	h = hlog.URLHandler("url")(h)
	h = hlog.RemoteAddrHandler("remote_addr")(h)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		idReq, _ := hlog.IDFromRequest(r)

		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Str("req_id", idReq.String()).
			Msg("HTTP Request")
	})(h)

	return apiKeyMiddleware(apiKey)(h)
}

// RunServer starts the HTTP server with graceful shutdown support.
func RunServer(st *store.Store, runner *ingest.Runner, listenAddr, apiKey, cronSecret string, logger zerolog.Logger) error {
	logger = logger.With().Str("service", "newsdeck-api").Logger()

	if apiKey != "" {
		logger.Info().Msg("API key authentication enabled")
	} else {
		logger.Info().Msg("API key authentication disabled")
	}
	if cronSecret == "" {
		logger.Warn().Msg("No cron secret configured, ingestion route will reject all requests")
	}

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           NewHandler(st, runner, apiKey, cronSecret, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", listenAddr).Msg("API Server starting")
		err := httpServer.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Fatal().Err(err).Msg("Server failed to start")

	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("HTTP server shutdown error")
			if err := httpServer.Close(); err != nil {
				logger.Error().Err(err).Msg("HTTP server force close error")
			}
		} else {
			logger.Info().Msg("HTTP server shutdown complete.")
		}
		if err := <-serverErr; err != nil {
			logger.Error().Err(err).Msg("ListenAndServe error during shutdown")
		}
	}

	logger.Info().Msg("Server exiting.")
	return nil
}

// healthCheckHandler responds to health check requests with a simple 200 OK.
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Health check request received")

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("Error writing health check response")
	}
}
