// Package ui provides the web interface for browsing box score results.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapstats/internal/api"
	"github.com/leapstack-labs/leapstats/internal/pager"
	"github.com/leapstack-labs/leapstats/internal/ui/notifier"
	"github.com/leapstack-labs/leapstats/internal/ui/resources"
	"github.com/leapstack-labs/leapstats/internal/ui/router"
	"github.com/leapstack-labs/leapstats/internal/ui/session"
)

// Server is the main UI server.
type Server struct {
	client       atomic.Pointer[api.Client]
	reload       func() (*api.Client, error)
	sessionStore *sessions.CookieStore
	registry     *session.Registry
	notifier     *notifier.Notifier
	port         int
	watch        bool
	configPath   string
	pageSize     int
	lookahead    int
	onListen     func(url string)
	logger       *slog.Logger
}

// Config holds configuration for the UI server.
type Config struct {
	Client        *api.Client
	Port          int
	SessionSecret string
	SessionTTL    time.Duration
	PageSize      int
	Lookahead     int
	Logger        *slog.Logger

	// Watch reloads the backend client through Reload whenever ConfigPath
	// changes. Only sessions created afterwards use the new client.
	Watch      bool
	ConfigPath string
	Reload     func() (*api.Client, error)

	// OnListen is called with the base URL once the listener is open.
	OnListen func(url string)
}

// NewServer creates a new UI server instance.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(86400 * 30) // 30 days
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	s := &Server{
		reload:       cfg.Reload,
		sessionStore: sessionStore,
		notifier:     notifier.New(),
		port:         cfg.Port,
		watch:        cfg.Watch,
		configPath:   cfg.ConfigPath,
		pageSize:     cfg.PageSize,
		lookahead:    cfg.Lookahead,
		onListen:     cfg.OnListen,
		logger:       logger,
	}
	client := cfg.Client
	if client == nil {
		client = api.New(api.WithLogger(logger))
	}
	s.client.Store(client)
	s.registry = session.NewRegistry(sessionStore, s.newPager, cfg.SessionTTL, logger)
	return s
}

// newPager creates the pager of a new browser session. Its changes are pushed
// to that session's update streams.
func (s *Server) newPager(id string) *pager.Pager {
	return pager.New(pager.Config{
		Fetcher:   s.client.Load(),
		PageSize:  s.pageSize,
		Lookahead: s.lookahead,
		Logger:    s.logger.With("session", id),
		OnChange:  func() { s.notifier.Notify(id) },
	})
}

// Handler returns the HTTP handler with all middleware and routes.
func (s *Server) Handler() (http.Handler, error) {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		requestLogger(s.logger),
		middleware.Recoverer,
		middleware.Compress(5),
	)

	if err := router.SetupRoutes(r, s.registry, s.notifier, s.logger, s.IsDev()); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}
	return r, nil
}

// Serve starts the UI server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}
	url := fmt.Sprintf("http://localhost:%d", ln.Addr().(*net.TCPAddr).Port)
	s.logger.Info("starting UI server", "addr", url, "backend", s.client.Load().BaseURL)
	if s.onListen != nil {
		s.onListen(url)
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Session janitor; closes every pager on shutdown
	eg.Go(func() error {
		return s.registry.Run(egctx)
	})

	if s.watch && s.configPath != "" && s.reload != nil {
		eg.Go(func() error {
			return s.watchConfig(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down UI server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// IsDev reports whether the server was built with the dev tag.
func (s *Server) IsDev() bool {
	return resources.IsDev
}

// Sessions returns the server's session registry.
func (s *Server) Sessions() *session.Registry {
	return s.registry
}

// Backend returns the client new sessions are created with.
func (s *Server) Backend() *api.Client {
	return s.client.Load()
}

// watchConfig reloads the backend client when the config file changes. The
// parent directory is watched since editors often replace files on save.
func (s *Server) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(s.configPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		s.logger.Error("failed to watch config file", "path", target, "error", err)
		// Don't fail - continue without watching
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, s.reloadBackend)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("watcher error", "error", err)
		}
	}
}

func (s *Server) reloadBackend() {
	client, err := s.reload()
	if err != nil {
		s.logger.Error("config reload failed", "error", err)
		return
	}
	s.client.Store(client)
	s.logger.Info("backend reloaded", "backend", client.BaseURL)
}

// requestLogger logs one line per request at debug level; update streams
// are logged when they close.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
