package auth

// Package auth contains domain-level types exchanged with an identity provider.
// It is pure and free of framework/adapter concerns.

import (
	"errors"
	"fmt"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence.
type Role string

const (
	RoleUser   Role = "user"
	RoleChurch Role = "church"
)

// Identity is the opaque principal handle returned by an identity provider.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	// Groups are the directory groups the provider asserted, if any.
	Groups []string `json:"groups,omitempty"`
}

// SignInStep is the provider's indication of what is still required before sign-in completes.
type SignInStep string

const (
	StepConfirmSignUp                    SignInStep = "confirmSignUp"
	StepConfirmSignInWithSMSMFACode      SignInStep = "confirmSignInWithSMSMFACode"
	StepConfirmSignInWithNewPassword     SignInStep = "confirmSignInWithNewPassword"
	StepConfirmSignInWithCustomChallenge SignInStep = "confirmSignInWithCustomChallenge"
	StepResetPassword                    SignInStep = "resetPassword"
	StepDone                             SignInStep = "done"
)

// SignInResult is returned by sign-in and confirm-sign-in calls.
type SignInResult struct {
	NextStep   SignInStep
	IsSignedIn bool
}

// Session reports whether the provider currently holds a valid session.
type Session struct {
	IsSignedIn bool
}

// ResetStep is the next step reported by a password reset request.
type ResetStep string

const (
	ResetStepConfirmWithCode ResetStep = "confirmResetPasswordWithCode"
	ResetStepDone            ResetStep = "done"
)

// ResetResult is returned by a password reset request.
type ResetResult struct {
	NextStep ResetStep
	// Destination is where the code was delivered (masked email or phone), if known.
	Destination string
}

// SignOutOutcome categorizes the result of a provider sign-out.
type SignOutOutcome string

const (
	SignOutComplete SignOutOutcome = "complete"
	SignOutPartial  SignOutOutcome = "partial"
	SignOutFailed   SignOutOutcome = "failed"
)

// SignOutResult describes how far a sign-out got.
// Partial results carry the individual revocation failures; failed results carry Err.
type SignOutResult struct {
	Outcome          SignOutOutcome
	RevokeTokenErr   error
	GlobalSignOutErr error
	HostedUIErr      error
	Err              error
}

// CompleteSignOut returns a fully successful sign-out result.
func CompleteSignOut() SignOutResult {
	return SignOutResult{Outcome: SignOutComplete}
}

// PartialSignOut returns a result for a sign-out where local state was cleared
// but one or more remote revocations failed. When every error is nil the
// sign-out is reported as complete.
func PartialSignOut(revokeToken, globalSignOut, hostedUI error) SignOutResult {
	if revokeToken == nil && globalSignOut == nil && hostedUI == nil {
		return CompleteSignOut()
	}
	return SignOutResult{
		Outcome:          SignOutPartial,
		RevokeTokenErr:   revokeToken,
		GlobalSignOutErr: globalSignOut,
		HostedUIErr:      hostedUI,
	}
}

// FailedSignOut returns a result for a sign-out that failed outright.
func FailedSignOut(err error) SignOutResult {
	return SignOutResult{Outcome: SignOutFailed, Err: err}
}

// ProviderError is a known failure reported by an identity provider.
type ProviderError struct {
	Description        string
	RecoverySuggestion string
	Cause              error
}

// NewProviderError creates a ProviderError without an underlying cause.
func NewProviderError(description, recovery string) *ProviderError {
	return &ProviderError{Description: description, RecoverySuggestion: recovery}
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Description, e.Cause)
	}
	return e.Description
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// AsProviderError extracts a ProviderError from err's chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Common provider errors shared by adapters.
var (
	ErrInvalidCredentials = NewProviderError("Invalid credentials", "Please check your email and password")
	ErrSessionExpired     = NewProviderError("Session expired", "Please sign in again")
	ErrSignedOut          = NewProviderError("There is no user signed in", "Sign in before calling this API")
	ErrUserNotFound       = NewProviderError("User not found", "Please check the username")
	ErrCodeMismatch       = NewProviderError("Invalid verification code provided", "Please request a new code and try again")
	ErrNotSupported       = NewProviderError("Operation not supported by the identity provider", "Contact your administrator")
)
