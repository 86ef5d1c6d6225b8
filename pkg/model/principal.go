package model

import "github.com/google/uuid"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Principal is an authenticated actor. The zero value is an anonymous caller.
type Principal struct {
	ID       uuid.UUID
	Username string
	Role     Role
}

// SystemPrincipal acts on behalf of operator tooling, e.g. the overdue expiry sweep.
var SystemPrincipal = Principal{
	ID:       uuid.MustParse("00000000-0000-0000-0000-000000000001"),
	Username: "system",
	Role:     RoleAdmin,
}

func (p Principal) Authenticated() bool {
	return p.ID != uuid.Nil
}

func (p Principal) IsAdmin() bool {
	return p.Authenticated() && p.Role == RoleAdmin
}
