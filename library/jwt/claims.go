package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of an organization session token.
type Claims struct {
	jwt.RegisteredClaims
	OrganizationID string `json:"organizationId"`
	Email          string `json:"email"`
}
