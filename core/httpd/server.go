// Package httpd is the small HTTP server the device exposes: routes are
// registered per method against wildcard URI patterns, and handlers return
// an error that the server logs.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/webstation/webstation/core/transport"
	"github.com/webstation/webstation/pkg/logging"
)

// Bodies of the responses the server itself produces.
const (
	msgNotFound         = "Nothing matches the given URI"
	msgMethodNotAllowed = "Request method for this URI is not handled by server"
)

// HandlerFunc serves one request. A returned error is logged; by the time
// it is returned the response may already be partially written.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Config configures the server.
type Config struct {
	Addr              string
	URIMatchWildcard  bool
	MaxOpenSockets    int
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultConfig listens on :80 with wildcard matching and seven sockets.
func DefaultConfig() Config {
	return Config{
		Addr:              ":80",
		URIMatchWildcard:  true,
		MaxOpenSockets:    7,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

type route struct {
	pattern string
	method  string
	handler HandlerFunc
}

// Server dispatches requests to registered routes.
type Server struct {
	cfg       Config
	transport transport.Transport
	logger    logging.Logger

	mu     sync.RWMutex
	routes []route

	state   sync.Mutex
	http    *http.Server
	ln      net.Listener
	done    chan error
	stopped bool
}

// New creates a server. A nil transport uses plain TCP.
func New(cfg Config, tr transport.Transport, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetLogger()
	}
	logger = logger.With("component", "httpd")
	if tr == nil {
		tr, _ = transport.NewTCPTransport(nil)
	}
	tr = transport.Chain(
		transport.LoggingMiddleware(logger),
		transport.LimitMiddleware(cfg.MaxOpenSockets),
	)(tr)

	s := &Server{
		cfg:       cfg,
		transport: tr,
		logger:    logger,
	}
	s.http = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		ErrorLog:          log.New(logWriter{logger}, "", 0),
	}
	return s
}

// Handle registers h for method requests whose path matches pattern.
// Wildcard patterns require URIMatchWildcard.
func (s *Server) Handle(pattern, method string, h HandlerFunc) error {
	if pattern == "" || h == nil {
		return errors.New("route needs a pattern and a handler")
	}
	if !s.cfg.URIMatchWildcard && strings.ContainsAny(pattern, "*?") {
		return fmt.Errorf("wildcard pattern %q requires wildcard matching", pattern)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.routes {
		if r.pattern == pattern && r.method == method {
			return fmt.Errorf("route %s %s already registered", method, pattern)
		}
	}
	s.routes = append(s.routes, route{pattern: pattern, method: method, handler: h})
	s.logger.Info("Registered route", "method", method, "pattern", pattern)
	return nil
}

func (s *Server) match(pattern, uri string) bool {
	if s.cfg.URIMatchWildcard {
		return MatchWildcard(pattern, uri)
	}
	return pattern == uri
}

// ServeHTTP dispatches to the first route matching both path and method.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	var h HandlerFunc
	uriMatched := false
	for _, rt := range s.routes {
		if !s.match(rt.pattern, r.URL.Path) {
			continue
		}
		uriMatched = true
		if rt.method == r.Method {
			h = rt.handler
			break
		}
	}
	s.mu.RUnlock()

	switch {
	case h != nil:
		if err := h(w, r); err != nil {
			s.logger.Warn("Handler failed", "method", r.Method, "uri", r.RequestURI, "error", err)
		}
	case uriMatched:
		http.Error(w, msgMethodNotAllowed, http.StatusMethodNotAllowed)
	default:
		http.Error(w, msgNotFound, http.StatusNotFound)
	}
}

// Start listens and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.state.Lock()
	defer s.state.Unlock()
	if s.ln != nil {
		return errors.New("server already started")
	}
	ln, err := s.transport.Listen(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.done = make(chan error, 1)

	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		} else {
			s.logger.Error("Server stopped", "error", err)
		}
		s.done <- err
	}()
	return nil
}

// Addr returns the listening address once started.
func (s *Server) Addr() string {
	s.state.Lock()
	defer s.state.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop shuts the server down, waiting up to ShutdownTimeout for in-flight
// requests. Stopping twice is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.state.Lock()
	defer s.state.Unlock()
	if s.ln == nil || s.stopped {
		return nil
	}
	s.stopped = true

	if s.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	if err := <-s.done; err != nil {
		return err
	}
	return s.transport.Close()
}

// logWriter routes net/http's internal error log to the structured logger.
type logWriter struct {
	logger logging.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.logger.Warn(strings.TrimSpace(string(p)))
	return len(p), nil
}

var _ io.Writer = logWriter{}
