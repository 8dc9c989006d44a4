package recommendation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/user-admin-api/internal/metrics"
	"github.com/user-admin-api/internal/models"
)

// FailureMessage is shown in place of the recommendation when a request fails
const FailureMessage = "Failed to load recommendation. Please try again."

// DefaultTimeout bounds a single recommendation request
const DefaultTimeout = 60 * time.Second

// UserLister supplies the user snapshot sent with each request
type UserLister interface {
	List(ctx context.Context) ([]models.User, error)
}

// PanelOptions configures a Panel
type PanelOptions struct {
	UserContext   string
	SystemContext string
	Timeout       time.Duration
}

// Panel holds the recommendation shown on the dashboard.
// Every refresh starts a new generation; a newer refresh cancels the
// request in flight and results of superseded generations are dropped.
type Panel struct {
	mu    sync.Mutex
	gen   Generator
	users UserLister
	opts  PanelOptions
	log   zerolog.Logger
	now   func() time.Time

	base       context.Context
	stop       context.CancelFunc
	state      models.RecommendationState
	cancel     context.CancelFunc
	done       chan struct{}
	generation uint64
	// armed is set when Start found no users; the first mutation that
	// leaves the collection non-empty runs the initial refresh
	armed bool
}

// NewPanel creates an idle panel
func NewPanel(gen Generator, users UserLister, log zerolog.Logger, opts PanelOptions) *Panel {
	if opts.UserContext == "" {
		opts.UserContext = DefaultUserContext
	}
	if opts.SystemContext == "" {
		opts.SystemContext = DefaultSystemContext
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	base, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	close(done)
	return &Panel{
		gen:   gen,
		users: users,
		opts:  opts,
		log:   log.With().Str("service", "recommendation").Logger(),
		now:   time.Now,
		base:  base,
		stop:  stop,
		done:  done,
	}
}

// Start runs the first refresh once there are users to reason about.
// It reports whether a request was started. With an empty collection the
// request is deferred until UsersChanged reports users.
func (p *Panel) Start(ctx context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, err := p.users.List(ctx)
	if err != nil {
		return false, err
	}
	if len(users) == 0 {
		p.armed = p.base.Err() == nil
		return false, nil
	}
	p.armed = false
	p.refreshLocked()
	return true, nil
}

// UsersChanged is called after every mutation of the collection with the
// new user count. It reports whether the deferred initial refresh ran.
func (p *Panel) UsersChanged(count int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.armed || count == 0 {
		return false
	}
	p.armed = false
	if p.generation > 0 {
		return false
	}
	p.log.Info().Int("users", count).Msg("Collection populated, requesting initial recommendation")
	p.refreshLocked()
	return true
}

// Refresh resets the panel to loading and issues a new request.
// The returned channel is closed when this generation settles.
func (p *Panel) Refresh() (uint64, <-chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.refreshLocked()
}

func (p *Panel) refreshLocked() (uint64, <-chan struct{}) {
	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	gen := p.generation
	ctx, cancel := context.WithTimeout(p.base, p.opts.Timeout)
	done := make(chan struct{})

	p.cancel = cancel
	p.done = done
	p.state = models.RecommendationState{Loading: true, Generation: gen}

	go p.run(ctx, cancel, gen, done)
	return gen, done
}

// Wait blocks until the current generation settles or ctx is done
func (p *Panel) Wait(ctx context.Context) error {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a copy of what the panel shows
func (p *Panel) State() models.RecommendationState {
	p.mu.Lock()
	defer p.mu.Unlock()

	state := p.state
	if state.Recommendation != nil {
		rec := *state.Recommendation
		state.Recommendation = &rec
	}
	if state.AffectedUsers != nil {
		state.AffectedUsers = append([]models.User(nil), state.AffectedUsers...)
	}
	return state
}

// Close cancels any request in flight
func (p *Panel) Close() {
	p.mu.Lock()
	p.armed = false
	p.mu.Unlock()
	p.stop()
}

func (p *Panel) run(ctx context.Context, cancel context.CancelFunc, gen uint64, done chan struct{}) {
	defer close(done)
	defer cancel()

	start := p.now()
	users, err := p.users.List(ctx)
	var resp *Response
	if err == nil {
		resp, err = p.gen.Generate(ctx, Request{
			UserContext:   p.opts.UserContext,
			SystemContext: p.opts.SystemContext,
			AllUsers:      users,
		})
	}
	if err == nil {
		err = resp.Validate()
	}
	elapsed := p.now().Sub(start)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		metrics.Recommendation("stale", elapsed)
		p.log.Debug().Uint64("generation", gen).Uint64("current", p.generation).Msg("Dropping superseded recommendation")
		return
	}

	now := p.now()
	p.cancel = nil
	if err != nil {
		metrics.Recommendation("error", elapsed)
		event := p.log.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			event = p.log.Warn()
		}
		event.Err(err).Uint64("generation", gen).Dur("elapsed", elapsed).Msg("Recommendation request failed")
		p.state = models.RecommendationState{Error: FailureMessage, Generation: gen, UpdatedAt: &now}
		return
	}

	metrics.Recommendation("success", elapsed)
	rec := &models.Recommendation{
		Recommendation:  resp.Recommendation,
		Rationale:       resp.Rationale,
		Priority:        resp.Priority,
		AffectedUserIDs: resp.AffectedUserIDs,
	}
	affected := Correlate(users, resp.AffectedUserIDs)
	p.state = models.RecommendationState{
		Recommendation: rec,
		AffectedUsers:  affected,
		Generation:     gen,
		UpdatedAt:      &now,
	}
	p.log.Info().
		Uint64("generation", gen).
		Str("priority", string(resp.Priority)).
		Int("affected_ids", len(resp.AffectedUserIDs)).
		Int("affected_users", len(affected)).
		Dur("elapsed", elapsed).
		Msg("Recommendation updated")
}
