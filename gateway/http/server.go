package http

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/c360/nodegate/errors"
)

// Timeouts bound client connections on the listener
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

// Server runs a handler on a TCP address
type Server struct {
	addr     string
	handler  http.Handler
	timeouts Timeouts
	logger   *slog.Logger

	mu       sync.Mutex // protects server and listener
	server   *http.Server
	listener net.Listener
	done     chan error
}

// NewServer creates a server for handler on addr (host:port, port 0 picks one)
func NewServer(addr string, handler http.Handler, timeouts Timeouts, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		addr:     addr,
		handler:  handler,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Start binds the address and serves in the background. Serve failures are
// delivered on Done.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapInvalid(errors.ErrAlreadyStarted,
			"Server", "Start", "cannot start server that is already running")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WrapFatal(err, "Server", "Start", "failed to listen on "+s.addr)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: s.timeouts.Read,
		ReadTimeout:       s.timeouts.Read,
		WriteTimeout:      s.timeouts.Write,
		IdleTimeout:       s.timeouts.Idle,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	done := make(chan error, 1)

	s.server = srv
	s.listener = ln
	s.done = done

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Gateway listener failed", "addr", ln.Addr().String(), "error", err)
			done <- errors.WrapFatal(err, "Server", "Start", "serve failed")
		}
	}()

	s.logger.Info("Gateway listening", "addr", ln.Addr().String())
	return nil
}

// Done is closed when the server stops serving. It carries the serve error,
// if any. Nil before Start.
func (s *Server) Done() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Addr returns the bound address, or the configured one before Start
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop stops accepting connections and waits for in-flight requests until
// ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return errors.WrapInvalid(errors.ErrNotStarted, "Server", "Stop", "server is not running")
	}

	if err := srv.Shutdown(ctx); err != nil {
		_ = srv.Close()
		return errors.WrapTransient(err, "Server", "Stop", "graceful shutdown")
	}
	return nil
}
