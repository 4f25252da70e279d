package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the JWT claims issued by the auth service.
type Claims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	UserID               UserID `json:"user_id"`
}

// GetUserID returns the user ID from the user_id claim.
func (c *Claims) GetUserID() string {
	return string(c.UserID)
}

// UserID is an opaque user identifier. The auth service may encode it as
// a JSON string or a JSON number; both decode to the same string.
type UserID string

// UnmarshalJSON implements json.Unmarshaler.
func (u *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		*u = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("user_id must be a string or number: %w", err)
	}
	*u = UserID(n.String())
	return nil
}
