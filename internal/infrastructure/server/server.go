package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/config"
	"github.com/GriffinCanCode/ginsentry/internal/infrastructure/logging"
)

const defaultShutdownTimeout = 5 * time.Second

var (
	// ErrIgnited is returned when attaching fairings or igniting a server twice.
	ErrIgnited = errors.New("server: already ignited")

	// ErrNotIgnited is returned when running a server that was never ignited.
	ErrNotIgnited = errors.New("server: not ignited")
)

// Server wraps the gin engine, its configuration and the attached fairings.
type Server struct {
	router   *gin.Engine
	config   config.Source
	logger   *logging.Logger
	fairings []Fairing
	chain    atomic.Pointer[chain]

	mu      sync.Mutex
	ignited bool
	closed  bool
}

// New creates a server reading its settings from cfg. Routes may be mounted
// on Router at any time; fairings only see requests once the server is ignited.
func New(cfg config.Source, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		router: gin.New(),
		config: cfg,
		logger: logger.Named("server"),
	}

	// Recovery sits outside the fairings so a fairing that re-panics still
	// gets a 500 written to the client.
	s.router.Use(gin.CustomRecoveryWithWriter(io.Discard, s.recover))
	s.router.Use(s.dispatch)

	return s
}

// Attach registers a fairing. Fairings ignite and wrap requests in attach order.
func (s *Server) Attach(f Fairing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ignited {
		return fmt.Errorf("attach %s: %w", f.Name(), ErrIgnited)
	}
	s.fairings = append(s.fairings, f)
	return nil
}

// Ignite runs every fairing's OnIgnite and then enables their request
// callbacks. It runs at most once.
func (s *Server) Ignite(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ignited {
		return ErrIgnited
	}

	var ch chain
	for _, f := range s.fairings {
		s.logger.Debug("Igniting fairing", zap.String("fairing", f.Name()))
		if err := f.OnIgnite(ctx, s.config); err != nil {
			return fmt.Errorf("fairing %s failed to ignite: %w", f.Name(), err)
		}
		if a := aroundFor(f); a != nil {
			ch = append(ch, a)
		}
	}

	s.chain.Store(&ch)
	s.ignited = true

	s.logger.Info("Server ignited",
		zap.String("profile", s.config.Profile()),
		zap.Int("fairings", len(s.fairings)),
	)
	return nil
}

// Ignited reports whether Ignite completed.
func (s *Server) Ignited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ignited
}

// Router returns the gin engine for mounting routes and route middleware.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address from the "address" and "port" keys.
func (s *Server) Addr() string {
	host, err := config.String(s.config, "address")
	if err != nil {
		host = "127.0.0.1"
	}
	port, err := config.Int(s.config, "port")
	if err != nil {
		port = 8000
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Run serves HTTP until ctx is cancelled, then shuts the listener down
// gracefully within the configured shutdown_timeout.
func (s *Server) Run(ctx context.Context) error {
	if !s.Ignited() {
		return ErrNotIgnited
	}

	addr := s.Addr()
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errChan <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
	defer cancel()

	s.logger.Info("Stopping HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// Close drops the server: shutdown fairings run in reverse attach order so
// resources acquired last are released first. Close is idempotent.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	fairings := append([]Fairing(nil), s.fairings...)
	s.mu.Unlock()

	s.logger.Info("Shutting down server...")

	var errs []error
	for i := len(fairings) - 1; i >= 0; i-- {
		sf, ok := fairings[i].(ShutdownFairing)
		if !ok {
			continue
		}
		if err := sf.OnShutdown(ctx); err != nil {
			s.logger.Error("Fairing failed to shut down",
				zap.String("fairing", fairings[i].Name()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("fairing %s: %w", fairings[i].Name(), err))
		}
	}

	// Sync logger before exit
	s.logger.Sync()

	return errors.Join(errs...)
}

// dispatch attaches the request arena and runs the fairing chain around the
// remaining handlers.
func (s *Server) dispatch(c *gin.Context) {
	c.Set(arenaKey, newArena())

	ch := s.chain.Load()
	if ch == nil {
		c.Next()
		return
	}
	ch.serve(c)
}

func (s *Server) recover(c *gin.Context, err interface{}) {
	s.logger.Error("Handler panicked",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Any("panic", err),
	)
	c.AbortWithStatus(http.StatusInternalServerError)
}

func (s *Server) shutdownTimeout() time.Duration {
	d, err := config.Duration(s.config, "shutdown_timeout")
	if err != nil || d <= 0 {
		return defaultShutdownTimeout
	}
	return d
}
