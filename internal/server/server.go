package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/partyevents/partyevents/internal/config"
)

// Task is a background job bound to the server lifetime. It must return once
// ctx is cancelled.
type Task func(ctx context.Context)

// Server hosts the event feed API together with the background jobs that keep
// the feed current, and tears both down in order on shutdown.
type Server struct {
	cfg    config.ServerConfig
	logger *slog.Logger
	http   *http.Server

	mu       sync.Mutex
	addr     string
	tasks    map[string]Task
	names    []string
	cleanups []func()
}

// New constructs a Server with sane defaults.
func New(cfg config.ServerConfig, logger *slog.Logger, handler http.Handler) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		cfg:    cfg,
		logger: logger,
		http:   srv,
		tasks:  make(map[string]Task),
	}
}

// Background registers a task started by Run and cancelled on shutdown.
func (s *Server) Background(name string, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[name]; !ok {
		s.names = append(s.names, name)
	}
	s.tasks[name] = task
}

// OnShutdown registers fn to run after HTTP traffic and background tasks have
// stopped. Functions run in reverse registration order.
func (s *Server) OnShutdown(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleanups = append(s.cleanups, fn)
}

// Addr returns the listening address, or "" before Run has bound it.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run serves HTTP traffic and runs the background tasks until ctx is
// cancelled or the listener fails, then shuts everything down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	s.mu.Lock()
	s.addr = ln.Addr().String()
	tasks := make([]Task, 0, len(s.names))
	for _, name := range s.names {
		tasks = append(tasks, s.tasks[name])
		s.logger.Info("starting background task", "task", name)
	}
	s.mu.Unlock()

	taskCtx, cancelTasks := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, task := range tasks {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			task(taskCtx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.addr)
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("http serve: %w", err)
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	shutdownErr := s.shutdown(context.WithoutCancel(ctx))
	cancelTasks()
	wg.Wait()
	s.runCleanups()

	if runErr != nil {
		return runErr
	}
	return shutdownErr
}

func (s *Server) shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) runCleanups() {
	s.mu.Lock()
	cleanups := s.cleanups
	s.cleanups = nil
	s.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
