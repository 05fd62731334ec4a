package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Username string   `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated actor handed to services.
type Principal struct {
	ID   string
	Role UserRole
}

// Principal extracts the actor from the claims.
func (c *JWTClaims) Principal() Principal {
	if c == nil {
		return Principal{}
	}
	return Principal{ID: c.UserID, Role: c.Role}
}
