// Package memory provides in-process adapters, used when no Redis is configured.
package memory

import (
	"context"
	"sync"

	"github.com/johnrichard23/connectedin/internal/domain/session"
)

// ProfileStore keeps the cached profile and onboarding flag in process memory.
// Contents are lost on restart.
type ProfileStore struct {
	mu         sync.RWMutex
	profile    *session.UserProfile
	onboarding bool
}

// NewProfileStore returns an empty in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{}
}

func (s *ProfileStore) Save(_ context.Context, profile session.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := profile
	s.profile = &p
	return nil
}

func (s *ProfileStore) Load(_ context.Context) (*session.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil, nil
	}
	p := *s.profile
	return &p, nil
}

func (s *ProfileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = nil
	return nil
}

func (s *ProfileStore) HasCompletedOnboarding(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.onboarding, nil
}

func (s *ProfileStore) SetCompletedOnboarding(_ context.Context, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboarding = done
	return nil
}
