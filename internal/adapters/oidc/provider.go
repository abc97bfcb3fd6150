package oidc

// Package oidc provides an OIDC/OAuth2 backed IdentityProvider for connectedin clients.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
	"github.com/johnrichard23/connectedin/internal/ports"
)

// Provider implements ports.IdentityProvider using the OAuth2 resource owner
// password grant against an OIDC issuer. It holds one session at a time.
type Provider struct {
	config        *oauth2.Config
	httpClient    *http.Client
	revocationURL string
	logger        *slog.Logger

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	mu       sync.Mutex
	token    *oauth2.Token
	identity *domainauth.Identity
}

var _ ports.IdentityProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	Scope        string
	DiscoveryURL string
	// RevocationURL overrides the revocation_endpoint from discovery.
	RevocationURL string
	HTTPClient    *http.Client // Optional, defaults to a 30s timeout client
	Logger        *slog.Logger
}

// DiscoveryDocument represents the OIDC discovery document fields this adapter reads.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
	RevocationEndpoint    string `json:"revocation_endpoint,omitempty"`
}

// NewProvider creates a new OIDC provider. Discovery is fetched once.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	var doc DiscoveryDocument
	if claimsErr := op.Claims(&doc); claimsErr != nil {
		return nil, fmt.Errorf("decode discovery document: %w", claimsErr)
	}
	revocationURL := config.RevocationURL
	if revocationURL == "" {
		revocationURL = doc.RevocationEndpoint
	}

	scope := config.Scope
	if scope == "" {
		scope = "openid email offline_access"
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
		httpClient:    httpClient,
		revocationURL: revocationURL,
		logger:        logger.With("component", "oidc"),
		oidcProvider:  op,
		verifier:      op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
	}, nil
}

func (p *Provider) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func (p *Provider) SignIn(ctx context.Context, username, password string) (domainauth.SignInResult, error) {
	ctx = p.clientContext(ctx)

	token, err := p.config.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return domainauth.SignInResult{}, mapTokenError(err)
	}

	fields, err := p.extractFromIDToken(ctx, token)
	if err != nil {
		return domainauth.SignInResult{}, fmt.Errorf("extract id_token: %w", err)
	}
	if fields.userID == "" || fields.username == "" {
		if fillErr := p.fillFromUserInfo(ctx, token, &fields); fillErr != nil {
			return domainauth.SignInResult{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}
	if fields.username == "" {
		fields.username = username
	}

	p.mu.Lock()
	p.token = token
	p.identity = &domainauth.Identity{UserID: fields.userID, Username: fields.username, Groups: fields.groups}
	p.mu.Unlock()

	return domainauth.SignInResult{NextStep: domainauth.StepDone, IsSignedIn: true}, nil
}

// FetchSession reports a session while the access token is valid or can be refreshed.
func (p *Provider) FetchSession(ctx context.Context) (domainauth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == nil {
		return domainauth.Session{}, nil
	}
	if p.token.Valid() {
		return domainauth.Session{IsSignedIn: true}, nil
	}
	if p.token.RefreshToken == "" {
		p.clearLocked()
		return domainauth.Session{}, nil
	}

	refreshed, err := p.config.TokenSource(p.clientContext(ctx), p.token).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			p.logger.InfoContext(ctx, "refresh token rejected, session ended")
			p.clearLocked()
			return domainauth.Session{}, nil
		}
		return domainauth.Session{}, fmt.Errorf("refresh token: %w", err)
	}
	p.token = refreshed
	return domainauth.Session{IsSignedIn: true}, nil
}

func (p *Provider) GetCurrentUser(_ context.Context) (domainauth.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.identity == nil {
		return domainauth.Identity{}, domainauth.ErrSignedOut
	}
	return *p.identity, nil
}

// ResetPassword is handled by the issuer's own account pages.
func (p *Provider) ResetPassword(_ context.Context, _ string) (domainauth.ResetResult, error) {
	return domainauth.ResetResult{}, domainauth.ErrNotSupported
}

// ConfirmSignIn is never needed: the password grant either succeeds or fails.
func (p *Provider) ConfirmSignIn(_ context.Context, _ string) (domainauth.SignInResult, error) {
	return domainauth.SignInResult{}, domainauth.ErrNotSupported
}

// SignOut drops the local tokens, then revokes the refresh and access tokens (RFC 7009).
// Revocation failures downgrade the result to partial.
func (p *Provider) SignOut(ctx context.Context) domainauth.SignOutResult {
	p.mu.Lock()
	token := p.token
	p.clearLocked()
	p.mu.Unlock()

	if token == nil || p.revocationURL == "" {
		return domainauth.CompleteSignOut()
	}

	var errs []error
	if token.RefreshToken != "" {
		if err := p.revoke(ctx, token.RefreshToken, "refresh_token"); err != nil {
			errs = append(errs, err)
		}
	}
	if token.AccessToken != "" {
		if err := p.revoke(ctx, token.AccessToken, "access_token"); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		p.logger.WarnContext(ctx, "token revocation failed", "error", errors.Join(errs...))
		return domainauth.PartialSignOut(errors.Join(errs...), nil, nil)
	}
	return domainauth.CompleteSignOut()
}

func (p *Provider) revoke(ctx context.Context, token, hint string) error {
	form := url.Values{"token": {token}, "token_type_hint": {hint}}
	if p.config.ClientSecret == "" {
		form.Set("client_id", p.config.ClientID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.config.ClientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(p.config.ClientID), url.QueryEscape(p.config.ClientSecret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke %s: %w", hint, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke %s: unexpected status %d", hint, resp.StatusCode)
	}
	return nil
}

func (p *Provider) clearLocked() {
	p.token = nil
	p.identity = nil
}

// mapTokenError turns token endpoint failures into provider errors the coordinator can show.
func mapTokenError(err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("password grant: %w", err)
	}
	switch re.ErrorCode {
	case "invalid_grant":
		return domainauth.ErrInvalidCredentials
	case "":
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &domainauth.ProviderError{
			Description:        fmt.Sprintf("Token endpoint returned status %d", status),
			RecoverySuggestion: "Please try again later",
			Cause:              err,
		}
	default:
		desc := re.ErrorDescription
		if desc == "" {
			desc = re.ErrorCode
		}
		return &domainauth.ProviderError{Description: desc, RecoverySuggestion: "Contact your administrator", Cause: err}
	}
}

// UserInfo represents the user information from the OIDC userinfo endpoint.
type UserInfo struct {
	Subject           string   `json:"sub"`
	SamAccountName    string   `json:"samaccountname"`
	Email             string   `json:"email"`
	Mail              string   `json:"mail"`
	PreferredUsername string   `json:"preferred_username"`
	Groups            []string `json:"groups"`
}

type idFields struct {
	userID   string
	username string
	groups   []string
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token) (idFields, error) {
	var f idFields
	if !p.hasOpenIDScope() {
		return f, nil
	}
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return f, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return f, fmt.Errorf("verify id_token: %w", err)
	}
	var claims idTokenClaims
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return f, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	return mapIDTokenClaims(claims), nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, tok *oauth2.Token, f *idFields) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var info UserInfo
	if claimsErr := ui.Claims(&info); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	fillFromUserInfoClaims(f, info)
	return nil
}

// idTokenClaims covers plain OIDC claims plus the AD/ADFS shape.
type idTokenClaims struct {
	Sub               string   `json:"sub"`
	SamAccountName    string   `json:"samaccountname"`
	Email             string   `json:"email"`
	Mail              string   `json:"mail"`
	PreferredUsername string   `json:"preferred_username"`
	Groups            []string `json:"groups"`
}

func mapIDTokenClaims(c idTokenClaims) idFields {
	return idFields{
		userID:   firstNonEmpty(c.SamAccountName, c.Sub),
		username: firstNonEmpty(c.Email, c.Mail, c.PreferredUsername),
		groups:   c.Groups,
	}
}

func fillFromUserInfoClaims(f *idFields, ui UserInfo) {
	if f.userID == "" {
		f.userID = firstNonEmpty(ui.SamAccountName, ui.Subject)
	}
	if f.username == "" {
		f.username = firstNonEmpty(ui.Email, ui.Mail, ui.PreferredUsername)
	}
	if len(f.groups) == 0 {
		f.groups = ui.Groups
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (p *Provider) hasOpenIDScope() bool {
	for _, sc := range p.config.Scopes {
		if sc == "openid" {
			return true
		}
	}
	return false
}

func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
