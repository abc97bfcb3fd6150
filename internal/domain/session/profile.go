package session

import (
	"strconv"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
)

// UserRole is the role triple attached to a cached profile.
type UserRole struct {
	ID       int    `json:"id"`
	Email    string `json:"email"`
	RoleName string `json:"role"`
}

// UserProfile is the locally cached, denormalized user record.
// It is distinct from the provider's identity.
type UserProfile struct {
	LocalID   int       `json:"userID"`
	Email     string    `json:"email"`
	FirstName *string   `json:"firstName,omitempty"`
	LastName  *string   `json:"lastName,omitempty"`
	Role      *UserRole `json:"role,omitempty"`
}

// Experience selects the downstream flow for an authenticated user.
type Experience string

const (
	ExperienceUser   Experience = "user"
	ExperienceChurch Experience = "church"
)

// Experience branches on the role name. A missing role is a plain user.
func (p UserProfile) Experience() Experience {
	if p.Role != nil && p.Role.RoleName == string(domainauth.RoleChurch) {
		return ExperienceChurch
	}
	return ExperienceUser
}

// ProfileFromIdentity builds the profile for a freshly signed in identity.
// The numeric id falls back to 0 when the provider id is not an integer, and an
// empty role is a plain user.
func ProfileFromIdentity(id domainauth.Identity, role domainauth.Role) UserProfile {
	localID, err := strconv.Atoi(id.UserID)
	if err != nil {
		localID = 0
	}
	if role == "" {
		role = domainauth.RoleUser
	}
	return UserProfile{
		LocalID: localID,
		Email:   id.Username,
		Role: &UserRole{
			ID:       localID,
			Email:    id.Username,
			RoleName: string(role),
		},
	}
}
