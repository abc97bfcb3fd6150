package authroles

import (
	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
)

// StaticRoleMapper maps groups by simple string membership rules.
type StaticRoleMapper struct {
	// ChurchGroup members sign in as church accounts. Empty disables the match.
	ChurchGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		if m.ChurchGroup != "" && g == m.ChurchGroup {
			return domainauth.RoleChurch
		}
	}
	return domainauth.RoleUser
}
