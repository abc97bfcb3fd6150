// Package session models which flow the user is in and the locally cached profile.
package session

import (
	"fmt"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
)

// Kind identifies the active SessionState variant.
type Kind int

const (
	KindLanding Kind = iota
	KindOnboarding
	KindLogin
	KindForgotPassword
	KindResetPassword
	KindConfirmCode
	KindConfirmMFACode
	KindAuthenticated
)

var kindNames = map[Kind]string{
	KindLanding:        "landing",
	KindOnboarding:     "onboarding",
	KindLogin:          "login",
	KindForgotPassword: "forgot_password",
	KindResetPassword:  "reset_password",
	KindConfirmCode:    "confirm_code",
	KindConfirmMFACode: "confirm_mfa_code",
	KindAuthenticated:  "authenticated",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// State is the single value that determines which flow is active.
// Values are immutable; build them with the constructors below.
type State struct {
	kind     Kind
	username string
	user     domainauth.Identity
}

func Landing() State        { return State{kind: KindLanding} }
func Onboarding() State     { return State{kind: KindOnboarding} }
func Login() State          { return State{kind: KindLogin} }
func ForgotPassword() State { return State{kind: KindForgotPassword} }
func ResetPassword() State  { return State{kind: KindResetPassword} }
func ConfirmMFACode() State { return State{kind: KindConfirmMFACode} }

// ConfirmCode waits for a verification code sent to username.
func ConfirmCode(username string) State {
	return State{kind: KindConfirmCode, username: username}
}

// Authenticated carries the identity of the signed in user.
func Authenticated(user domainauth.Identity) State {
	return State{kind: KindAuthenticated, user: user}
}

// Kind returns the active variant.
func (s State) Kind() Kind { return s.kind }

// Username is set only for ConfirmCode.
func (s State) Username() string { return s.username }

// User returns the identity for Authenticated states.
func (s State) User() (domainauth.Identity, bool) {
	return s.user, s.kind == KindAuthenticated
}

// Equal reports whether two states are the same variant carrying the same identifier.
// Only the username (ConfirmCode) or user id (Authenticated) is compared.
func (s State) Equal(o State) bool {
	if s.kind != o.kind {
		return false
	}
	switch s.kind {
	case KindConfirmCode:
		return s.username == o.username
	case KindAuthenticated:
		return s.user.UserID == o.user.UserID
	default:
		return true
	}
}

func (s State) String() string {
	switch s.kind {
	case KindConfirmCode:
		return fmt.Sprintf("%s(%s)", s.kind, s.username)
	case KindAuthenticated:
		return fmt.Sprintf("%s(%s)", s.kind, s.user.UserID)
	default:
		return s.kind.String()
	}
}
