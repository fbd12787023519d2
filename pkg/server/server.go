package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/senecgrab/senecgrab/pkg/common"
	"github.com/senecgrab/senecgrab/pkg/controller"
	"github.com/senecgrab/senecgrab/pkg/log"
)

// StatusProvider reports how the updates are going.
type StatusProvider interface {
	Status() controller.Status
}

// Config holds the server flags.
type Config struct {
	ListenAddr string
	ServerName string
}

// Configured registers the server flags.
func Configured() *Config {
	c := &Config{
		ServerName: "senecgrab",
	}
	if revision := os.Getenv("K_REVISION"); revision != "" {
		c.ServerName = revision
	}

	// PORT overrides the default port, as on Cloud Run
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	listenAddr := lflag.String("http-listen", ":"+port, "HTTP status server listen address (empty disables the server)")

	lflag.Do(func() {
		c.ListenAddr = *listenAddr
	})
	return c
}

// Enabled returns false when no listen address was given.
func (c *Config) Enabled() bool {
	return c.ListenAddr != ""
}

// New returns a Server reporting status and the metrics gathered from
// gatherer.
func (c *Config) New(status StatusProvider, gatherer prometheus.Gatherer) *Server {
	return &Server{
		status:     status,
		gatherer:   gatherer,
		listenAddr: c.ListenAddr,
		serverName: c.ServerName,
	}
}

// Server is the operational HTTP surface: health, update status and metrics.
type Server struct {
	status   StatusProvider
	gatherer prometheus.Gatherer

	listenAddr string
	serverName string
	httpServer *http.Server
}

func (s *Server) setupHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

type statusResponse struct {
	controller.Status
	Version string `json:"version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeJSONError(w, "controller not running", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(statusResponse{
		Status:  s.status.Status(),
		Version: common.Version(),
	}); err != nil {
		log.Ctx(r.Context()).WarnContext(r.Context(), "failed to write status response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
