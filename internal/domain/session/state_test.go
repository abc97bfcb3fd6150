package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
)

func TestState_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b State
		want bool
	}{
		{"same simple kind", Login(), Login(), true},
		{"different kinds", Login(), ForgotPassword(), false},
		{"confirm code same username", ConfirmCode("a@example.com"), ConfirmCode("a@example.com"), true},
		{"confirm code different username", ConfirmCode("a@example.com"), ConfirmCode("b@example.com"), false},
		{
			"authenticated compares id only",
			Authenticated(domainauth.Identity{UserID: "42", Username: "old@example.com"}),
			Authenticated(domainauth.Identity{UserID: "42", Username: "new@example.com"}),
			true,
		},
		{
			"authenticated different id",
			Authenticated(domainauth.Identity{UserID: "42", Username: "a@example.com"}),
			Authenticated(domainauth.Identity{UserID: "43", Username: "a@example.com"}),
			false,
		},
		{"confirm code vs mfa", ConfirmCode("x"), ConfirmMFACode(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestState_Accessors(t *testing.T) {
	id := domainauth.Identity{UserID: "7", Username: "u@example.com"}

	s := Authenticated(id)
	got, ok := s.User()
	assert.True(t, ok)
	assert.Equal(t, id, got)
	assert.Equal(t, "authenticated(7)", s.String())

	_, ok = Login().User()
	assert.False(t, ok)

	c := ConfirmCode("new@example.com")
	assert.Equal(t, KindConfirmCode, c.Kind())
	assert.Equal(t, "new@example.com", c.Username())
	assert.Equal(t, "confirm_code(new@example.com)", c.String())
}

func TestProfileFromIdentity(t *testing.T) {
	p := ProfileFromIdentity(domainauth.Identity{UserID: "123", Username: "test@example.com"}, "")
	assert.Equal(t, 123, p.LocalID)
	assert.Equal(t, "test@example.com", p.Email)
	if assert.NotNil(t, p.Role) {
		assert.Equal(t, UserRole{ID: 123, Email: "test@example.com", RoleName: "user"}, *p.Role)
	}
	assert.Equal(t, ExperienceUser, p.Experience())

	p = ProfileFromIdentity(domainauth.Identity{UserID: "test-user-id", Username: "test@example.com"}, domainauth.RoleUser)
	assert.Equal(t, 0, p.LocalID)

	p = ProfileFromIdentity(domainauth.Identity{UserID: "7", Username: "grace@example.com"}, domainauth.RoleChurch)
	if assert.NotNil(t, p.Role) {
		assert.Equal(t, "church", p.Role.RoleName)
	}
	assert.Equal(t, ExperienceChurch, p.Experience())
}

func TestUserProfile_Experience(t *testing.T) {
	assert.Equal(t, ExperienceUser, UserProfile{}.Experience())
	assert.Equal(t, ExperienceChurch, UserProfile{Role: &UserRole{RoleName: "church"}}.Experience())
	assert.Equal(t, ExperienceUser, UserProfile{Role: &UserRole{RoleName: "doctor"}}.Experience())
}
