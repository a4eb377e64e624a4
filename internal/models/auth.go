package models

import "github.com/golang-jwt/jwt/v5"

// ActorRole mirrors the roles issued by the identity provider.
// The service does not manage users; it only records who acted.
type ActorRole string

const (
	RoleAdmin      ActorRole = "ADMIN"
	RoleSupervisor ActorRole = "SUPERVISOR"
	RoleStaff      ActorRole = "STAFF"
	RoleWarden     ActorRole = "WARDEN"
)

// ActorClaims is the JWT payload accepted on mutating operations.
type ActorClaims struct {
	ActorID  string    `json:"actor_id"`
	Role     ActorRole `json:"role"`
	FullName string    `json:"full_name"`
	jwt.RegisteredClaims
}
