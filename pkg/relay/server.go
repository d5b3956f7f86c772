package relay

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-go-golems/prepstream/pkg/jobstore"
	"github.com/go-go-golems/prepstream/pkg/streamstate"
)

const (
	// DefaultPollInterval is how often an attached tailer re-reads the store.
	DefaultPollInterval = 200 * time.Millisecond
	// DefaultMaxStreamDuration bounds a single resume response; abandoned
	// streams close silently once it elapses.
	DefaultMaxStreamDuration = 5 * time.Minute
)

// Config wires the relay server's collaborators. Registry, Buffer, Jobs and
// Auth are required; Waker is optional.
type Config struct {
	Addr              string
	PollInterval      time.Duration
	MaxStreamDuration time.Duration

	Registry *streamstate.Registry
	Buffer   *streamstate.Buffer
	Jobs     jobstore.JobStore
	Auth     Authenticator
	Waker    Waker
}

// Server owns the HTTP surface of the relay: the resume endpoints plus the
// small job management API around them.
type Server struct {
	registry *streamstate.Registry
	buffer   *streamstate.Buffer
	jobs     jobstore.JobStore
	auth     Authenticator
	waker    Waker

	pollInterval      time.Duration
	maxStreamDuration time.Duration

	mux    *http.ServeMux
	server *http.Server
}

func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("relay server: registry is nil")
	}
	if cfg.Buffer == nil {
		return nil, errors.New("relay server: buffer is nil")
	}
	if cfg.Jobs == nil {
		return nil, errors.New("relay server: job store is nil")
	}
	if cfg.Auth == nil {
		return nil, errors.New("relay server: authenticator is nil")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxStreamDuration <= 0 {
		cfg.MaxStreamDuration = DefaultMaxStreamDuration
	}

	s := &Server{
		registry:          cfg.Registry,
		buffer:            cfg.Buffer,
		jobs:              cfg.Jobs,
		auth:              cfg.Auth,
		waker:             cfg.Waker,
		pollInterval:      cfg.PollInterval,
		maxStreamDuration: cfg.MaxStreamDuration,
		mux:               http.NewServeMux(),
	}
	s.registerHTTPHandlers()

	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// No write timeout: SSE responses stream up to the tail ceiling.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler exposes the mux for tests and embedding into another server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled or an
// interrupt arrives, then drains connections gracefully.
func (s *Server) Run(ctx context.Context) error {
	eg := errgroup.Group{}
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()

	eg.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigChan:
			log.Info().Msg("received interrupt signal, shutting down gracefully...")
		case <-srvCtx.Done():
		}
		srvCancel()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
			return err
		}
		log.Info().Msg("server shutdown complete")
		return nil
	})

	eg.Go(func() error {
		log.Info().Str("addr", s.server.Addr).Msg("starting stream relay server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server listen error")
			return err
		}
		return nil
	})

	return eg.Wait()
}
