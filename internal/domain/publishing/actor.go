package publishing

import (
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAuthor   Role = "author"
	RoleTrusted  Role = "trusted"
	RoleReviewer Role = "reviewer"
	RoleAdmin    Role = "admin"
)

func ParseRole(raw string) Role {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleTrusted, RoleReviewer, RoleAdmin:
		return r
	default:
		return RoleAuthor
	}
}

// Actor is the verified identity behind a call.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

func (a Actor) Authenticated() bool { return a.UserID != uuid.Nil }

func (a Actor) HasRole(roles []Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

func (a Actor) Owns(d *LessonDraft) bool {
	return d != nil && a.UserID != uuid.Nil && d.OwnerID == a.UserID
}
