package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/johnrichard23/connectedin/internal/domain/session"
	"github.com/johnrichard23/connectedin/internal/observability/metrics"
	"github.com/johnrichard23/connectedin/internal/ports"
)

// Change is broadcast to observers after every transition.
type Change struct {
	From session.State
	To   session.State
}

// StateStoreOptions groups dependencies for StateStore.
type StateStoreOptions struct {
	Profiles ports.ProfileStore
	Logger   *slog.Logger
	Metrics  *metrics.Recorder // optional
	// Initial defaults to Landing.
	Initial *session.State
}

// StateStore holds the current session state and the cached user profile.
// Transitions replace the whole state value and are broadcast to subscribers.
type StateStore struct {
	profiles ports.ProfileStore
	logger   *slog.Logger
	metrics  *metrics.Recorder

	// writeMu serializes profile writes so the cache always matches the last persisted value.
	writeMu sync.Mutex

	mu      sync.RWMutex
	state   session.State
	profile *session.UserProfile
	subs    map[int]chan Change
	nextSub int
	closed  bool
}

// NewStateStore constructs a StateStore.
func NewStateStore(opts StateStoreOptions) *StateStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	initial := session.Landing()
	if opts.Initial != nil {
		initial = *opts.Initial
	}
	return &StateStore{
		profiles: opts.Profiles,
		logger:   logger.With("component", "state_store"),
		metrics:  opts.Metrics,
		state:    initial,
		subs:     make(map[int]chan Change),
	}
}

// Transition unconditionally replaces the current state.
func (s *StateStore) Transition(to session.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	s.state = to
	s.logger.Info("session state transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
	s.metrics.StateTransition(from.Kind().String(), to.Kind().String())

	c := Change{From: from, To: to}
	for _, ch := range s.subs {
		offer(ch, c)
	}
}

// offer delivers c without blocking, dropping the oldest pending change when the buffer is full.
func offer(ch chan Change, c Change) {
	select {
	case ch <- c:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- c:
	default:
	}
}

// CurrentState returns the active state.
func (s *StateStore) CurrentState() session.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentProfile returns a copy of the cached profile, or nil.
func (s *StateStore) CurrentProfile() *session.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	p := *s.profile
	return &p
}

// SetProfile persists p and then replaces the cached copy.
// On persistence failure the cached profile is left unchanged.
func (s *StateStore) SetProfile(ctx context.Context, p session.UserProfile) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.profiles != nil {
		if err := s.profiles.Save(ctx, p); err != nil {
			return fmt.Errorf("save profile: %w", err)
		}
	}

	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()
	return nil
}

// LoadProfile reads the persisted profile into the cache and returns it.
// A missing profile clears the cache and returns nil.
func (s *StateStore) LoadProfile(ctx context.Context) (*session.UserProfile, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.profiles == nil {
		return s.CurrentProfile(), nil
	}
	p, err := s.profiles.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
	return s.CurrentProfile(), nil
}

// ClearProfile removes the persisted and cached profile.
// The cache is cleared even when the persistent store fails.
func (s *StateStore) ClearProfile(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.profile = nil
	s.mu.Unlock()

	if s.profiles == nil {
		return nil
	}
	if err := s.profiles.Clear(ctx); err != nil {
		return fmt.Errorf("clear profile: %w", err)
	}
	return nil
}

// Subscribe registers an observer. The returned func unsubscribes and closes the channel.
// Observers that fall behind lose the oldest undelivered changes.
func (s *StateStore) Subscribe(buffer int) (<-chan Change, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Change, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close closes every subscriber channel. Transitions after Close are still
// applied but no longer broadcast.
func (s *StateStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
