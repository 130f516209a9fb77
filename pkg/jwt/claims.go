package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the service token claims carried by API callers
type Claims struct {
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}
