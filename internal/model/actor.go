package model

import "github.com/google/uuid"

type Role string

const (
	RoleClient     Role = "client"
	RoleCounsellor Role = "counsellor"
)

// Actor is the authenticated identity attached to every request. The core
// trusts it as supplied by the auth middleware and performs no
// authentication of its own.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsClient() bool     { return a.Role == RoleClient }
func (a Actor) IsCounsellor() bool { return a.Role == RoleCounsellor }
