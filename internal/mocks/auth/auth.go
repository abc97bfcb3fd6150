package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
	"github.com/johnrichard23/connectedin/internal/domain/session"
	"github.com/johnrichard23/connectedin/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*MockIdentityProvider)(nil)
	_ ports.ProfileStore     = (*MockProfileStore)(nil)
)

// MockIdentityProvider simulates an identity provider.
// Func fields override the default behavior, which is a successful sign-in for DefaultUser.
type MockIdentityProvider struct {
	SignInFunc         func(ctx context.Context, username, password string) (domainauth.SignInResult, error)
	FetchSessionFunc   func(ctx context.Context) (domainauth.Session, error)
	GetCurrentUserFunc func(ctx context.Context) (domainauth.Identity, error)
	ResetPasswordFunc  func(ctx context.Context, username string) (domainauth.ResetResult, error)
	ConfirmSignInFunc  func(ctx context.Context, challengeResponse string) (domainauth.SignInResult, error)
	SignOutFunc        func(ctx context.Context) domainauth.SignOutResult

	DefaultUser domainauth.Identity

	mu    sync.Mutex
	calls map[string]int
}

// NewMockIdentityProvider creates a MockIdentityProvider with sensible defaults.
func NewMockIdentityProvider() *MockIdentityProvider {
	return &MockIdentityProvider{
		DefaultUser: domainauth.Identity{
			UserID:   "test-user-id",
			Username: "test@example.com",
		},
	}
}

func (m *MockIdentityProvider) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
}

// Calls returns how many times the named method was invoked.
func (m *MockIdentityProvider) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

// TotalCalls returns the number of provider calls across all methods.
func (m *MockIdentityProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, username, password string) (domainauth.SignInResult, error) {
	m.record("SignIn")
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, username, password)
	}
	return domainauth.SignInResult{NextStep: domainauth.StepDone, IsSignedIn: true}, nil
}

func (m *MockIdentityProvider) FetchSession(ctx context.Context) (domainauth.Session, error) {
	m.record("FetchSession")
	if m.FetchSessionFunc != nil {
		return m.FetchSessionFunc(ctx)
	}
	return domainauth.Session{IsSignedIn: true}, nil
}

func (m *MockIdentityProvider) GetCurrentUser(ctx context.Context) (domainauth.Identity, error) {
	m.record("GetCurrentUser")
	if m.GetCurrentUserFunc != nil {
		return m.GetCurrentUserFunc(ctx)
	}
	return m.DefaultUser, nil
}

func (m *MockIdentityProvider) ResetPassword(ctx context.Context, username string) (domainauth.ResetResult, error) {
	m.record("ResetPassword")
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, username)
	}
	return domainauth.ResetResult{NextStep: domainauth.ResetStepConfirmWithCode}, nil
}

func (m *MockIdentityProvider) ConfirmSignIn(
	ctx context.Context,
	challengeResponse string,
) (domainauth.SignInResult, error) {
	m.record("ConfirmSignIn")
	if m.ConfirmSignInFunc != nil {
		return m.ConfirmSignInFunc(ctx, challengeResponse)
	}
	return domainauth.SignInResult{NextStep: domainauth.StepDone, IsSignedIn: true}, nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context) domainauth.SignOutResult {
	m.record("SignOut")
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	return domainauth.CompleteSignOut()
}

// MockProfileStore is an in-memory ProfileStore whose methods can be overridden
// to inject failures.
type MockProfileStore struct {
	SaveFunc  func(ctx context.Context, profile session.UserProfile) error
	LoadFunc  func(ctx context.Context) (*session.UserProfile, error)
	ClearFunc func(ctx context.Context) error

	mu         sync.Mutex
	profile    *session.UserProfile
	onboarded  bool
	SaveCalls  int
	ClearCalls int
}

// NewMockProfileStore creates an empty store.
func NewMockProfileStore() *MockProfileStore {
	return &MockProfileStore{}
}

func (m *MockProfileStore) Save(ctx context.Context, profile session.UserProfile) error {
	m.mu.Lock()
	m.SaveCalls++
	m.mu.Unlock()
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, profile); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := profile
	m.profile = &p
	return nil
}

func (m *MockProfileStore) Load(ctx context.Context) (*session.UserProfile, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil, nil
	}
	p := *m.profile
	return &p, nil
}

func (m *MockProfileStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.ClearCalls++
	m.mu.Unlock()
	if m.ClearFunc != nil {
		if err := m.ClearFunc(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = nil
	return nil
}

func (m *MockProfileStore) HasCompletedOnboarding(_ context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.onboarded, nil
}

func (m *MockProfileStore) SetCompletedOnboarding(_ context.Context, done bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onboarded = done
	return nil
}
