package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the payload of an access token.
//
// Role travels inside the token so the websocket layer can decide on
// admin room joins without a database round trip.
type TokenClaims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
	jwt.RegisteredClaims
}
