package auth

import "github.com/golang-jwt/jwt/v5"

// SessionTokenClaims is the payload of a Shopify embedded-app session token.
type SessionTokenClaims struct {
	Dest      string `json:"dest"`
	SessionID string `json:"sid,omitempty"`
	jwt.RegisteredClaims
}
