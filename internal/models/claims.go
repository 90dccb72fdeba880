package models

import "github.com/golang-jwt/jwt/v5"

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint   `json:"user_id"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	TokenVersion int    `json:"token_version"`
}

// Actor is the acting identity passed into every privileged operation.
// Services check the role themselves rather than trusting the transport
// layer to have done it.
type Actor struct {
	UserID uint
	Role   Role
}

// IsAccountant reports whether the actor may create deposits and run
// bonus calculations and payouts. Admins hold every accountant right.
func (a Actor) IsAccountant() bool {
	return a.Role == RoleAccountant || a.Role == RoleAdmin
}

// IsStudent reports whether the actor may enroll in courses.
func (a Actor) IsStudent() bool {
	return a.Role == RoleStudent
}

// ActorFromClaims builds the acting identity from validated JWT claims.
func ActorFromClaims(c *UserClaims) Actor {
	return Actor{UserID: c.UserID, Role: c.Role}
}
