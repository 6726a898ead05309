// Package api serves the run-history HTTP API: paginated run data,
// queue status, catalogs, and the aggregated history view.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scenarioops/suitescope/pkg/config"
	"github.com/scenarioops/suitescope/pkg/runhistory"
	"github.com/scenarioops/suitescope/pkg/runstore"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the API HTTP server lifecycle.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.Config
	store      runstore.Store
	controller *runhistory.Controller
	poller     *runhistory.Poller
	httpServer *http.Server
	wg         sync.WaitGroup
	done       chan struct{}
}

// NewServer creates a new API server.
func NewServer(log logrus.FieldLogger, cfg *config.Config) Server {
	return &server{
		log:  log.WithField("component", "api"),
		cfg:  cfg,
		done: make(chan struct{}),
	}
}

// Start opens the store, builds the router, and starts the HTTP server
// plus the live-overview poller.
func (s *server) Start(ctx context.Context) error {
	s.store = runstore.NewStore(
		s.log, &s.cfg.Database, s.cfg.History.PageLimit,
	)
	if err := s.store.Start(ctx); err != nil {
		return fmt.Errorf("starting run store: %w", err)
	}

	// The overview controller watches everything; per-request scopes
	// are served statelessly by the history handler.
	s.controller = runhistory.NewController(
		s.log, s.store, runhistory.Scope{},
	)

	if err := s.loadTargetNames(ctx); err != nil {
		s.log.WithError(err).Warn("Failed to load target catalog")
	}

	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind the listener synchronously so we fail fast on port conflicts.
	ln, err := net.Listen("tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Server.Listen, err)
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.log.WithField("listen", s.cfg.Server.Listen).
			Info("API server starting")

		if err := s.httpServer.Serve(ln); err != nil &&
			err != http.ErrServerClosed {
			s.log.WithError(err).Error("HTTP server error")
		}
	}()

	// Start the poller after the API is listening so the server is
	// reachable while the first refresh runs.
	s.poller = runhistory.NewPoller(s.log, s.controller)
	if err := s.poller.Start(ctx); err != nil {
		return fmt.Errorf("starting poller: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the HTTP server, poller, and store.
func (s *server) Stop() error {
	close(s.done)

	if s.poller != nil {
		if err := s.poller.Stop(); err != nil {
			s.log.WithError(err).Warn("Poller stop error")
		}
	}

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	s.wg.Wait()

	if s.store != nil {
		if err := s.store.Stop(); err != nil {
			return fmt.Errorf("stopping run store: %w", err)
		}
	}

	s.log.Info("API server stopped")

	return nil
}

// loadTargetNames builds the target display-name lookup for the
// overview controller's target grouping.
func (s *server) loadTargetNames(ctx context.Context) error {
	targets, err := s.store.ListTargets(ctx, "")
	if err != nil {
		return err
	}

	names := make(map[string]string, len(targets))
	for _, t := range targets {
		names[t.ID] = t.Name
	}

	s.controller.SetTargetNames(names)

	return nil
}
