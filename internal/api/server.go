// Package api exposes the dashboard session over HTTP and WebSocket.
package api

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"ops-analytics/internal/dashboard"
	"ops-analytics/internal/observability"
)

type ctxKey int

const requestIDKey ctxKey = iota

// Options for creating a Server.
type Options struct {
	Addr     string
	Session  *dashboard.Session
	Observer *observability.Metrics
	Logger   logrus.FieldLogger

	// RequestTimeout bounds non-streaming handlers. Default 10s.
	RequestTimeout time.Duration
}

// Server is the HTTP surface of the dashboard.
type Server struct {
	router    *mux.Router
	server    *http.Server
	session   *dashboard.Session
	hub       *Hub
	logger    logrus.FieldLogger
	timeout   time.Duration
	startedAt time.Time
}

// NewServer creates a server and wires its routes.
func NewServer(opts Options) *Server {
	if opts.Observer == nil {
		opts.Observer = observability.DefaultMetrics
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	logger := opts.Logger.WithField("component", "api")
	s := &Server{
		router:    mux.NewRouter(),
		session:   opts.Session,
		hub:       NewHub(opts.Session, opts.Observer, logger),
		logger:    logger,
		timeout:   opts.RequestTimeout,
		startedAt: time.Now(),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.hub.ServeWS).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(jsonContentTypeMiddleware)

	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/view", s.handleView).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/read-all", s.handleReadAll).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/read", s.handleAlertRead(true)).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/unread", s.handleAlertRead(false)).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/expanded", s.handleAlertExpanded).Methods(http.MethodPost)
	api.HandleFunc("/capital", s.handleCapital).Methods(http.MethodGet)
	api.HandleFunc("/profiles", s.handleProfiles).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}/days/{day:[0-9]+}/toggle", s.handleToggle).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", s.server.Addr).Info("http server listening")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.hub.Close()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

// requestIDMiddleware adds unique request ID to each request.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, requestID)))
	})
}

// requestLoggingMiddleware logs all requests with structured fields.
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.logger.WithFields(logrus.Fields{
			"request_id": r.Context().Value(requestIDKey),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     wrapper.statusCode,
			"duration":   time.Since(start).String(),
		}).Debug("request")
	})
}

// timeoutMiddleware bounds handler contexts.
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// responseWrapper captures the status code. Hijack is passed through for WebSocket upgrades.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWrapper) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}
