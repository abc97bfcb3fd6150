package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrichard23/connectedin/config"
	"github.com/johnrichard23/connectedin/internal/bootstrap"
	"github.com/johnrichard23/connectedin/internal/domain/session"
	"github.com/johnrichard23/connectedin/internal/service"
)

func newTestCore(t *testing.T, challenge string) *bootstrap.SessionCore {
	t.Helper()
	cfg := &config.AppConfig{
		Auth: config.AuthConfig{
			Mode: config.AuthModeMock,
			DevAuth: config.DevAuthConfig{
				UserID:    "42",
				Username:  "dev@example.com",
				Password:  "password123",
				MFACode:   "123456",
				Challenge: challenge,
			},
		},
		Session: config.SessionConfig{Store: config.ProfileStoreMemory, ProviderTimeout: 5 * time.Second},
	}
	core, err := bootstrap.BuildSessionCore(context.Background(), bootstrap.SessionCoreDeps{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(core.Close)
	return core
}

func runScript(t *testing.T, core *bootstrap.SessionCore, script string) string {
	t.Helper()
	var out bytes.Buffer
	sh := newShell(shellOptions{
		Core:   core,
		In:     strings.NewReader(script),
		Out:    &out,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, sh.Run(context.Background()))
	return out.String()
}

func TestShell_OnboardSignInSignOut(t *testing.T) {
	core := newTestCore(t, "")

	out := runScript(t, core, strings.Join([]string{
		"onboard-done",
		"signin dev@example.com nope",
		"signin dev@example.com password123",
		"status",
		"signout",
		"quit",
		"status",
	}, "\n")+"\n")

	assert.Contains(t, out, "[onboarding]")
	assert.Contains(t, out, "[login]")
	assert.Contains(t, out, "error: Login failed")
	assert.Contains(t, out, "[authenticated] signed in as dev@example.com (user experience)")
	assert.Contains(t, out, "profile: id=42 email=dev@example.com role=user experience=user")
	assert.Equal(t, 1, strings.Count(out, "screen:"), "commands after quit must not run")

	assert.Equal(t, session.KindLogin, core.Store.CurrentState().Kind())
	assert.Nil(t, core.Store.CurrentProfile())
	assert.Nil(t, core.Coordinator.Notice(), "render consumes the notice")
}

func TestShell_MFAChallenge(t *testing.T) {
	core := newTestCore(t, "mfa")

	out := runScript(t, core, "onboard-done\nsignin dev@example.com password123\nmfa 000000\nmfa 123456\n")

	assert.Contains(t, out, "[confirm_mfa_code]")
	assert.Contains(t, out, "error: Verification failed")
	assert.True(t, core.Coordinator.IsAuthenticated())
	assert.Equal(t, session.KindAuthenticated, core.Store.CurrentState().Kind())
}

func TestShell_NewPasswordChallenge(t *testing.T) {
	core := newTestCore(t, "new-password")

	out := runScript(t, core, strings.Join([]string{
		"onboard-done",
		"signin dev@example.com password123",
		"new-password fresh-secret-1 different",
		"new-password fresh-secret-1 fresh-secret-1",
	}, "\n")+"\n")

	assert.Contains(t, out, "[reset_password]")
	assert.Contains(t, out, "info: "+service.MsgSetNewPassword)
	assert.Contains(t, out, "error: "+service.MsgPasswordsDoNotMatch)
	assert.Equal(t, session.KindAuthenticated, core.Store.CurrentState().Kind())
}

func TestShell_ResetConfirmWithoutAttempt(t *testing.T) {
	core := newTestCore(t, "")

	out := runScript(t, core, "onboard-done\nforgot\nreset-confirm whatever\nlogin\n")

	assert.Contains(t, out, "[forgot_password]")
	assert.Contains(t, out, "error: "+service.MsgNoSignInAttempt)
	assert.Equal(t, session.KindLogin, core.Store.CurrentState().Kind())
}

func TestShell_RestoreSkipsOnboardingOnceCompleted(t *testing.T) {
	core := newTestCore(t, "")
	runScript(t, core, "onboard-done\n")

	out := runScript(t, core, "")
	assert.True(t, strings.HasPrefix(out, "[login]"), out)
}

func TestShell_InputHandling(t *testing.T) {
	core := newTestCore(t, "")

	out := runScript(t, core, "\nbogus\nsignin only-user\nEXIT\n")

	assert.Contains(t, out, `unknown command "bogus"`)
	assert.Contains(t, out, "usage: signin <username> <password>")
	assert.Equal(t, session.KindOnboarding, core.Store.CurrentState().Kind())
}

func TestShell_Help(t *testing.T) {
	core := newTestCore(t, "")

	out := runScript(t, core, "help\n")
	for name, cmd := range shellCommands() {
		assert.Contains(t, out, cmd.usage, name)
	}
}

func TestShell_StopsOnContextCancel(t *testing.T) {
	core := newTestCore(t, "")
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	sh := newShell(shellOptions{Core: core, In: pr, Out: io.Discard})
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sh.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shell did not stop after cancel")
	}
}

// lockedBuffer lets the test read output while Run writes it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestShell_RendersChangesMadeOutsideCommands(t *testing.T) {
	core := newTestCore(t, "")
	pr, pw := io.Pipe()
	out := &lockedBuffer{}

	sh := newShell(shellOptions{Core: core, In: pr, Out: out})
	errCh := make(chan error, 1)
	go func() { errCh <- sh.Run(context.Background()) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[onboarding]")
	}, 2*time.Second, 10*time.Millisecond)

	core.Store.Transition(session.ForgotPassword())
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[forgot_password]\n  "+screenHints[session.KindForgotPassword])
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, pw.Close())
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("shell did not stop on EOF")
	}
}

func TestShell_QuietCommandsRenderNothing(t *testing.T) {
	core := newTestCore(t, "")

	out := runScript(t, core, "help\nhelp\n")
	assert.Equal(t, 1, strings.Count(out, "[onboarding]"))
}

func TestNewShell_RequiresCore(t *testing.T) {
	assert.Panics(t, func() { newShell(shellOptions{}) })
}
