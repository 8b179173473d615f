// Package preview serves the generated site locally and tells connected
// browsers to reload after a rebuild.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yaklabco/themepipe/config"
	"github.com/yaklabco/themepipe/internal/log"
	"github.com/yaklabco/themepipe/pkg/fsutils"
	"github.com/yaklabco/themepipe/pkg/metrics"
	"github.com/yaklabco/themepipe/pkg/task"
)

// RawPrefix is the URL prefix under which the raw directory is served.
const RawPrefix = "/_raw/"

const readHeaderTimeout = 10 * time.Second

// ErrNotStarted is returned by Addr when the server is not listening.
var ErrNotStarted = errors.New("preview server not started")

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. ":3000".
	Addr string

	// Public is the directory served at /.
	Public string

	// Raw, when it exists, is served with directory listings at /_raw/.
	Raw string

	// Hub is the reload channel. A nil Hub gets a fresh one.
	Hub *Hub

	// Metrics is served at /metrics. It may be nil.
	Metrics *metrics.Recorder
}

// Server is the preview HTTP server.
type Server struct {
	opts   Options
	hub    *Hub
	router chi.Router

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// New returns a Server for opts. Nothing is bound until Start.
func New(opts Options) *Server {
	if opts.Hub == nil {
		opts.Hub = NewHub(opts.Metrics)
	}
	s := &Server{opts: opts, hub: opts.Hub}
	s.router = s.routes()
	return s
}

// FromConfig returns a Server listening on PORT that serves the site's public
// directory and the theme's raw directory.
func FromConfig(cfg *config.Config, rec *metrics.Recorder) *Server {
	return New(Options{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Public:  cfg.Paths.Public,
		Raw:     cfg.Paths.Raw,
		Hub:     NewHub(rec),
		Metrics: rec,
	})
}

// Hub returns the server's reload channel.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Handle("/livereload", s.hub)
	r.Get(clientScriptPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(clientScript))
	})
	r.Handle("/metrics", s.opts.Metrics.Handler())

	if s.opts.Raw != "" && fsutils.Exists(s.opts.Raw) {
		r.Handle(RawPrefix+"*", http.StripPrefix(RawPrefix, http.FileServer(http.Dir(s.opts.Raw))))
		r.Get(RawPrefix[:len(RawPrefix)-1], http.RedirectHandler(RawPrefix, http.StatusMovedPermanently).ServeHTTP)
	}

	r.Handle("/*", injectReload(noCache(http.FileServer(http.Dir(s.opts.Public)))))
	return r
}

// Start binds the listen address and serves in the background. A bind error
// is returned to the caller. Starting a running server does nothing.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("preview server: %w", err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.srv, s.ln = srv, ln

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("preview server stopped", slog.Any(log.Error, err))
		}
	}()

	slog.Info("serving site",
		slog.String(log.Addr, "http://"+displayAddr(ln.Addr())),
		slog.String(log.Dir, s.opts.Public),
	)
	return nil
}

// Addr returns the bound address.
func (s *Server) Addr() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil, ErrNotStarted
	}
	return s.ln.Addr(), nil
}

// Shutdown disconnects browsers and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()

	s.hub.Close()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down preview server: %w", err)
	}
	return nil
}

// Task returns Start as the "serve" task.
func (s *Server) Task() task.Task {
	return task.Describe(task.Func("serve", s.Start), "Serve the public directory with live reload")
}

func displayAddr(a net.Addr) string {
	tcp, ok := a.(*net.TCPAddr)
	if !ok || !tcp.IP.IsUnspecified() {
		return a.String()
	}
	return net.JoinHostPort("localhost", strconv.Itoa(tcp.Port))
}

// noCache stops browsers from holding on to stale rebuild output.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String(log.Path, r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration(log.Duration, time.Since(start)),
		)
	})
}
