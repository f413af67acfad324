package helpers

import "github.com/golang-jwt/jwt/v5"

// Claims is the slice of the identity provider's JWT this service reads.
// The subject claim carries the user id.
type Claims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user's id.
func (c *Claims) UserID() string {
	return c.Subject
}
