package redis

// Package redis provides Redis-based adapters for the connectedin services.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/johnrichard23/connectedin/internal/data/cryptoutil"
	"github.com/johnrichard23/connectedin/internal/domain/session"
)

const (
	// DefaultKeyPrefix namespaces every key written by the profile store.
	DefaultKeyPrefix = "connectedin:"

	profileKey    = "user"
	onboardingKey = "onboarding"
)

// ProfileStore keeps the cached user profile and the onboarding flag in Redis.
// Values never expire; they are removed explicitly on sign-out.
type ProfileStore struct {
	client redis.UniversalClient
	prefix string
	sealer cryptoutil.Sealer
}

// ProfileStoreOptions configures a ProfileStore.
type ProfileStoreOptions struct {
	// Prefix defaults to DefaultKeyPrefix.
	Prefix string
	// Sealer encrypts the profile record at rest. Nil stores plain JSON.
	Sealer cryptoutil.Sealer
}

// NewProfileStore creates a Redis profile store using DefaultKeyPrefix.
func NewProfileStore(client redis.UniversalClient) *ProfileStore {
	return NewProfileStoreWithPrefix(client, DefaultKeyPrefix)
}

// NewProfileStoreWithPrefix creates a Redis profile store with a custom key prefix.
// Use a per-device or per-installation prefix when several clients share one Redis.
func NewProfileStoreWithPrefix(client redis.UniversalClient, prefix string) *ProfileStore {
	return NewProfileStoreWithOptions(client, ProfileStoreOptions{Prefix: prefix})
}

// NewProfileStoreWithOptions creates a Redis profile store.
func NewProfileStoreWithOptions(client redis.UniversalClient, opts ProfileStoreOptions) *ProfileStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &ProfileStore{
		client: client,
		prefix: prefix,
		sealer: opts.Sealer,
	}
}

func (s *ProfileStore) Save(ctx context.Context, profile session.UserProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	if s.sealer != nil {
		if data, err = s.sealer.Seal(data); err != nil {
			return fmt.Errorf("seal profile: %w", err)
		}
	}

	if err := s.client.Set(ctx, s.prefix+profileKey, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *ProfileStore) Load(ctx context.Context) (*session.UserProfile, error) {
	data, err := s.client.Get(ctx, s.prefix+profileKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}
	// Records written before a key was configured are still plain JSON.
	if s.sealer != nil && cryptoutil.IsSealed(data) {
		if data, err = s.sealer.Open(data); err != nil {
			return nil, fmt.Errorf("open profile: %w", err)
		}
	}

	var profile session.UserProfile
	if unmarshalErr := json.Unmarshal(data, &profile); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", unmarshalErr)
	}
	return &profile, nil
}

func (s *ProfileStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.prefix+profileKey).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *ProfileStore) HasCompletedOnboarding(ctx context.Context) (bool, error) {
	v, err := s.client.Get(ctx, s.prefix+onboardingKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis get: %w", err)
	}
	return v == "1", nil
}

func (s *ProfileStore) SetCompletedOnboarding(ctx context.Context, done bool) error {
	key := s.prefix + onboardingKey
	var err error
	if done {
		err = s.client.Set(ctx, key, "1", 0).Err()
	} else {
		err = s.client.Del(ctx, key).Err()
	}
	if err != nil {
		return fmt.Errorf("redis write onboarding flag: %w", err)
	}
	return nil
}
