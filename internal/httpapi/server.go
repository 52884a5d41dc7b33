// Package httpapi exposes the portal over HTTP.
package httpapi

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/p-n-ai/diplomado/internal/activity"
	"github.com/p-n-ai/diplomado/internal/content"
	"github.com/p-n-ai/diplomado/internal/portal"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Config holds dependencies for the HTTP API.
type Config struct {
	Portal         *portal.Portal
	Assets         *content.Resolver
	Feed           *activity.Hub // nil disables the live progress feed
	AllowedOrigins []string
	Readiness      map[string]ReadinessCheck
}

// Server routes HTTP requests to the portal.
type Server struct {
	portal    *portal.Portal
	assets    *content.Resolver
	feed      *activity.Hub
	origins   []string
	readiness map[string]ReadinessCheck
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Portal == nil {
		return nil, fmt.Errorf("portal is required")
	}
	if cfg.Assets == nil {
		return nil, fmt.Errorf("asset resolver is required")
	}
	return &Server{
		portal:    cfg.Portal,
		assets:    cfg.Assets,
		feed:      cfg.Feed,
		origins:   cfg.AllowedOrigins,
		readiness: cfg.Readiness,
	}, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.routes(r)

	cors := handlers.CORS(
		handlers.AllowedOrigins(s.origins),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowedMethods([]string{"GET", "POST", "DELETE", "OPTIONS"}),
	)
	recovery := handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{}))
	return recovery(cors(logRequests(r)))
}

func (s *Server) routes(r *mux.Router) {
	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.HandleFunc("/readyz", s.handleReadyz).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/logout", s.handleLogout).Methods("POST")
	api.HandleFunc("/me", s.authenticated(s.handleMe)).Methods("GET")
	api.HandleFunc("/menu", s.authenticated(s.handleMenu)).Methods("GET")

	item := "/modules/{moduleId}/items/{itemId}"
	api.HandleFunc(item, s.authenticated(s.handleViewItem)).Methods("GET")
	api.HandleFunc(item+"/complete", s.authenticated(s.handleCompleteItem)).Methods("POST")
	api.HandleFunc(item+"/evaluation", s.authenticated(s.handleSubmitEvaluation)).Methods("POST")

	api.HandleFunc("/final-evaluation", s.authenticated(s.handleFinalEvaluation)).Methods("GET")
	api.HandleFunc("/final-evaluation", s.authenticated(s.handleSubmitFinalEvaluation)).Methods("POST")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/users", s.authenticated(s.handleListUsers)).Methods("GET")
	admin.HandleFunc("/users", s.authenticated(s.handleCreateUser)).Methods("POST")
	admin.HandleFunc("/users/{id}/archive", s.authenticated(s.handleArchiveUser)).Methods("POST")
	admin.HandleFunc("/users/{id}/reactivate", s.authenticated(s.handleReactivateUser)).Methods("POST")

	admin.HandleFunc("/progress", s.authenticated(s.handleProgressMatrix)).Methods("GET")
	admin.HandleFunc("/progress/export", s.authenticated(s.handleExportProgress)).Methods("GET")
	admin.HandleFunc("/progress/feed", s.authenticated(s.handleProgressFeed)).Methods("GET")
	admin.HandleFunc("/progress/{userId}", s.authenticated(s.handleUserProgress)).Methods("GET")
	admin.HandleFunc("/progress/{userId}", s.authenticated(s.handleResetProgress)).Methods("DELETE")
	admin.HandleFunc("/progress/{userId}/final-analysis", s.authenticated(s.handleResetFinalAnalysis)).Methods("DELETE")
	admin.HandleFunc("/progress/{userId}/modules/{moduleId}/items/{itemId}/toggle", s.authenticated(s.handleToggleItem)).Methods("POST")

	r.HandleFunc("/modulos/{moduleId}/{file}", s.handleAsset).Methods("GET", "HEAD")
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range s.readiness {
		if err := check(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// originHosts converts allowed origins to host patterns for the websocket handshake.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack lets the websocket handshake take over the connection.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	slog.Error("panic serving request", "error", fmt.Sprint(v...))
}
