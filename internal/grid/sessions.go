package grid

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sessions keeps one controller per open dashboard, expiring idle ones
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	build    func() *Controller
	newID    func() string
	now      func() time.Time
	log      zerolog.Logger
}

type session struct {
	ctrl     *Controller
	lastSeen time.Time
}

// NewSessions creates a registry. build makes a fresh controller for each session.
func NewSessions(ttl time.Duration, build func() *Controller, newID func() string, log zerolog.Logger) *Sessions {
	return &Sessions{
		sessions: make(map[string]*session),
		ttl:      ttl,
		build:    build,
		newID:    newID,
		now:      time.Now,
		log:      log.With().Str("service", "grid_sessions").Logger(),
	}
}

// SetClock replaces the time source
func (s *Sessions) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.now = now
}

// Create opens a new session
func (s *Sessions) Create() (string, *Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	ctrl := s.build()
	s.sessions[id] = &session{ctrl: ctrl, lastSeen: s.now()}
	return id, ctrl
}

// Get returns a live session and marks it as used
func (s *Sessions) Get(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(sess, now) {
		delete(s.sessions, id)
		return nil, false
	}
	sess.lastSeen = now
	return sess.ctrl, true
}

// Delete closes a session
func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Len returns the number of open sessions
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep drops expired sessions and returns how many were removed
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done
func (s *Sessions) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.log.Debug().Int("removed", removed).Msg("Expired grid sessions swept")
			}
		}
	}
}

func (s *Sessions) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}
