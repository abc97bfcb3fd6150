package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
)

const (
	testClientID     = "test-client"
	testClientSecret = "test-secret"
	testUsername     = "pastor@example.com"
	testPassword     = "hunter22"
)

// fakeIssuer is a minimal OIDC issuer: discovery, JWKS, token and revocation endpoints.
type fakeIssuer struct {
	t      *testing.T
	server *httptest.Server
	key    *rsa.PrivateKey

	mu              sync.Mutex
	expiresIn       int
	rejectRefresh   bool
	revokeStatus    int
	revoked         []string
	refreshCount    int
	withoutRevoke   bool
	omitIDTokenMail bool
}

func newFakeIssuer(t *testing.T) *fakeIssuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	f := &fakeIssuer{t: t, key: key, expiresIn: 3600, revokeStatus: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /.well-known/openid-configuration", f.discovery)
	mux.HandleFunc("GET /jwks", f.jwks)
	mux.HandleFunc("POST /token", f.tokenEndpoint)
	mux.HandleFunc("POST /revoke", f.revoke)
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"sub": "user-1", "email": "from-userinfo@example.com"})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIssuer) configure(fn func(*fakeIssuer)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeIssuer) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCount
}

func (f *fakeIssuer) revokedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.revoked...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeIssuer) discovery(w http.ResponseWriter, _ *http.Request) {
	doc := DiscoveryDocument{
		Issuer:                f.server.URL,
		AuthorizationEndpoint: f.server.URL + "/authorize",
		TokenEndpoint:         f.server.URL + "/token",
		UserinfoEndpoint:      f.server.URL + "/userinfo",
		JwksURI:               f.server.URL + "/jwks",
	}
	f.mu.Lock()
	if !f.withoutRevoke {
		doc.RevocationEndpoint = f.server.URL + "/revoke"
	}
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, doc)
}

func (f *fakeIssuer) jwks(w http.ResponseWriter, _ *http.Request) {
	pub := f.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test-key",
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func (f *fakeIssuer) idToken() string {
	claims := jwt.MapClaims{
		"iss": f.server.URL,
		"aud": testClientID,
		"sub": "user-1",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	f.mu.Lock()
	if !f.omitIDTokenMail {
		claims["email"] = testUsername
	}
	f.mu.Unlock()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = "test-key"
	signed, err := tok.SignedString(f.key)
	require.NoError(f.t, err)
	return signed
}

func (f *fakeIssuer) tokenEndpoint(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	expiresIn := f.expiresIn
	rejectRefresh := f.rejectRefresh
	f.mu.Unlock()

	switch r.PostForm.Get("grant_type") {
	case "password":
		if r.PostForm.Get("username") != testUsername || r.PostForm.Get("password") != testPassword {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "Invalid user credentials",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    expiresIn,
			"id_token":      f.idToken(),
		})
	case "refresh_token":
		if rejectRefresh {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		f.mu.Lock()
		f.refreshCount++
		f.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-2",
			"refresh_token": "refresh-2",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "unsupported_grant_type",
			"error_description": "Grant type not allowed",
		})
	}
}

func (f *fakeIssuer) revoke(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, r.PostForm.Get("token_type_hint")+":"+r.PostForm.Get("token"))
	w.WriteHeader(f.revokeStatus)
}

func newTestProvider(t *testing.T, f *fakeIssuer) *Provider {
	t.Helper()
	p, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		DiscoveryURL: f.server.URL + "/.well-known/openid-configuration",
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{name: "missing client ID", config: ProviderConfig{DiscoveryURL: "http://example.com"}, errMsg: "client ID is required"},
		{name: "missing discovery URL", config: ProviderConfig{ClientID: "client"}, errMsg: "discovery URL is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewProvider_Discovery(t *testing.T) {
	f := newFakeIssuer(t)
	p := newTestProvider(t, f)

	assert.Equal(t, f.server.URL+"/token", p.config.Endpoint.TokenURL)
	assert.Equal(t, f.server.URL+"/revoke", p.revocationURL)
	assert.Equal(t, []string{"openid", "email", "offline_access"}, p.config.Scopes)
}

func TestProvider_SignInSuccess(t *testing.T) {
	f := newFakeIssuer(t)
	p := newTestProvider(t, f)
	ctx := context.Background()

	res, err := p.SignIn(ctx, testUsername, testPassword)
	require.NoError(t, err)
	assert.Equal(t, domainauth.SignInResult{NextStep: domainauth.StepDone, IsSignedIn: true}, res)

	sess, err := p.FetchSession(ctx)
	require.NoError(t, err)
	assert.True(t, sess.IsSignedIn)

	id, err := p.GetCurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, domainauth.Identity{UserID: "user-1", Username: testUsername}, id)
}

func TestProvider_SignInFallsBackToUserInfo(t *testing.T) {
	f := newFakeIssuer(t)
	f.configure(func(f *fakeIssuer) { f.omitIDTokenMail = true })
	p := newTestProvider(t, f)

	_, err := p.SignIn(context.Background(), testUsername, testPassword)
	require.NoError(t, err)

	id, err := p.GetCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-userinfo@example.com", id.Username)
}

func TestProvider_SignInInvalidCredentials(t *testing.T) {
	f := newFakeIssuer(t)
	p := newTestProvider(t, f)

	_, err := p.SignIn(context.Background(), testUsername, "wrong")
	require.ErrorIs(t, err, domainauth.ErrInvalidCredentials)

	_, err = p.GetCurrentUser(context.Background())
	assert.ErrorIs(t, err, domainauth.ErrSignedOut)
}

func TestProvider_FetchSessionRefreshes(t *testing.T) {
	f := newFakeIssuer(t)
	f.configure(func(f *fakeIssuer) { f.expiresIn = 1 })
	p := newTestProvider(t, f)
	ctx := context.Background()

	_, err := p.SignIn(ctx, testUsername, testPassword)
	require.NoError(t, err)

	sess, err := p.FetchSession(ctx)
	require.NoError(t, err)
	assert.True(t, sess.IsSignedIn)
	assert.Equal(t, 1, f.refreshes())
	assert.Equal(t, "access-2", p.token.AccessToken)
}

func TestProvider_FetchSessionRefreshRejected(t *testing.T) {
	f := newFakeIssuer(t)
	f.configure(func(f *fakeIssuer) { f.expiresIn = 1 })
	f.configure(func(f *fakeIssuer) { f.rejectRefresh = true })
	p := newTestProvider(t, f)
	ctx := context.Background()

	_, err := p.SignIn(ctx, testUsername, testPassword)
	require.NoError(t, err)

	sess, err := p.FetchSession(ctx)
	require.NoError(t, err)
	assert.False(t, sess.IsSignedIn)

	_, err = p.GetCurrentUser(ctx)
	assert.ErrorIs(t, err, domainauth.ErrSignedOut)
}

func TestProvider_UnsupportedOperations(t *testing.T) {
	p := newTestProvider(t, newFakeIssuer(t))

	_, err := p.ResetPassword(context.Background(), testUsername)
	assert.ErrorIs(t, err, domainauth.ErrNotSupported)

	_, err = p.ConfirmSignIn(context.Background(), "code")
	assert.ErrorIs(t, err, domainauth.ErrNotSupported)
}

func TestProvider_SignOutRevokesTokens(t *testing.T) {
	f := newFakeIssuer(t)
	p := newTestProvider(t, f)
	ctx := context.Background()

	_, err := p.SignIn(ctx, testUsername, testPassword)
	require.NoError(t, err)

	res := p.SignOut(ctx)
	assert.Equal(t, domainauth.SignOutComplete, res.Outcome)
	assert.Equal(t, []string{"refresh_token:refresh-1", "access_token:access-1"}, f.revokedTokens())

	sess, err := p.FetchSession(ctx)
	require.NoError(t, err)
	assert.False(t, sess.IsSignedIn)
}

func TestProvider_SignOutRevocationFailureIsPartial(t *testing.T) {
	f := newFakeIssuer(t)
	f.configure(func(f *fakeIssuer) { f.revokeStatus = http.StatusServiceUnavailable })
	p := newTestProvider(t, f)
	ctx := context.Background()

	_, err := p.SignIn(ctx, testUsername, testPassword)
	require.NoError(t, err)

	res := p.SignOut(ctx)
	assert.Equal(t, domainauth.SignOutPartial, res.Outcome)
	require.Error(t, res.RevokeTokenErr)
	assert.Contains(t, res.RevokeTokenErr.Error(), "unexpected status 503")

	_, err = p.GetCurrentUser(ctx)
	assert.ErrorIs(t, err, domainauth.ErrSignedOut, "local session is cleared even when revocation fails")
}

func TestProvider_SignOutWithoutRevocationEndpoint(t *testing.T) {
	f := newFakeIssuer(t)
	f.configure(func(f *fakeIssuer) { f.withoutRevoke = true })
	p := newTestProvider(t, f)
	ctx := context.Background()

	_, err := p.SignIn(ctx, testUsername, testPassword)
	require.NoError(t, err)

	res := p.SignOut(ctx)
	assert.Equal(t, domainauth.SignOutComplete, res.Outcome)
	assert.Empty(t, f.revokedTokens())
}

func TestMapTokenError(t *testing.T) {
	err := mapTokenError(&oauth2.RetrieveError{
		Response:         &http.Response{StatusCode: http.StatusBadRequest},
		ErrorCode:        "unauthorized_client",
		ErrorDescription: "Client not allowed to use password grant",
	})
	pe, ok := domainauth.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "Client not allowed to use password grant", pe.Description)

	err = mapTokenError(&oauth2.RetrieveError{Response: &http.Response{StatusCode: http.StatusBadGateway}})
	pe, ok = domainauth.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, "Token endpoint returned status 502", pe.Description)

	err = mapTokenError(context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, ok = domainauth.AsProviderError(err)
	assert.False(t, ok)
}

func TestGetIDTokenFromToken(t *testing.T) {
	tok := (&oauth2.Token{}).WithExtra(map[string]any{"id_token": "abc.def.ghi"})
	idTok, err := getIDTokenFromToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", idTok)

	_, err = getIDTokenFromToken((&oauth2.Token{}).WithExtra(map[string]any{"not_id": "x"}))
	assert.ErrorContains(t, err, "missing id_token")

	_, err = getIDTokenFromToken(nil)
	assert.ErrorContains(t, err, "nil token")
}

func Test_mapIDTokenClaims(t *testing.T) {
	f := mapIDTokenClaims(idTokenClaims{Sub: "sub-123", SamAccountName: "sammy", Mail: "mail@example.com"})
	assert.Equal(t, "sammy", f.userID)
	assert.Equal(t, "mail@example.com", f.username)

	f = mapIDTokenClaims(idTokenClaims{Sub: "sub-123", PreferredUsername: "pref"})
	assert.Equal(t, "sub-123", f.userID)
	assert.Equal(t, "pref", f.username)
	assert.Nil(t, f.groups)

	f = mapIDTokenClaims(idTokenClaims{Sub: "sub-123", Groups: []string{"pastors"}})
	assert.Equal(t, []string{"pastors"}, f.groups)
}

func Test_fillFromUserInfoClaims(t *testing.T) {
	ui := UserInfo{Subject: "sub-abc", Email: "mail@example.com"}
	var f idFields
	fillFromUserInfoClaims(&f, ui)
	assert.Equal(t, "sub-abc", f.userID)
	assert.Equal(t, "mail@example.com", f.username)

	keep := idFields{userID: "keep", username: "keep@example.com"}
	fillFromUserInfoClaims(&keep, ui)
	assert.Equal(t, idFields{userID: "keep", username: "keep@example.com"}, keep)

	withGroups := UserInfo{Subject: "sub-abc", Groups: []string{"pastors"}}
	var g idFields
	fillFromUserInfoClaims(&g, withGroups)
	assert.Equal(t, []string{"pastors"}, g.groups)

	own := idFields{groups: []string{"staff"}}
	fillFromUserInfoClaims(&own, withGroups)
	assert.Equal(t, []string{"staff"}, own.groups)
}
