package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/user-admin-api/internal/bulkedit"
	"github.com/user-admin-api/internal/config"
	"github.com/user-admin-api/internal/grid"
	"github.com/user-admin-api/internal/metrics"
	"github.com/user-admin-api/internal/repository"
	"github.com/user-admin-api/internal/validation"
)

// gridService is the concrete implementation of GridService
type gridService struct {
	sessions *grid.Sessions
	cfg      *config.Config
	log      zerolog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// newGridService creates a new GridService
func newGridService(users repository.UserRepository, resolver *bulkedit.Resolver, validator *validation.Validator, cfg *config.Config, log zerolog.Logger) *gridService {
	opts := grid.Options{
		BlurGrace: cfg.Grid.BlurGrace,
		Check:     validator.CheckUser,
	}
	build := func() *grid.Controller {
		return grid.NewController(users, resolver, log, opts)
	}
	return &gridService{
		sessions: grid.NewSessions(cfg.Grid.SessionTTL, build, repository.NewID, log),
		cfg:      cfg,
		log:      log.With().Str("service", "grid").Logger(),
	}
}

// Open creates a new grid session
func (s *gridService) Open() (string, *grid.Controller) {
	id, ctrl := s.sessions.Create()
	metrics.GridSessions(s.sessions.Len())
	s.log.Debug().Str("session_id", id).Msg("Grid session opened")
	return id, ctrl
}

// Get returns a live session
func (s *gridService) Get(id string) (*grid.Controller, error) {
	ctrl, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ctrl, nil
}

// Close ends a session
func (s *gridService) Close(id string) error {
	if !s.sessions.Delete(id) {
		return ErrSessionNotFound
	}
	metrics.GridSessions(s.sessions.Len())
	return nil
}

// StartSweeper expires idle sessions in the background until StopSweeper
func (s *gridService) StartSweeper(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.sessions.Run(ctx, s.cfg.Grid.SweepInterval)
	}()
	s.log.Info().Dur("ttl", s.cfg.Grid.SessionTTL).Msg("Grid session sweeper started")
}

// StopSweeper stops the background sweeper
func (s *gridService) StopSweeper() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.running = false
	s.log.Info().Msg("Grid session sweeper stopped")
}
