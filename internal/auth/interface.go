package auth

import "chatrelay/internal/domain/models"

// TokenDecoder defines the interface for bearer token verification.
// This abstraction lets the resolver work with shared-secret and JWKS
// deployments alike.
type TokenDecoder interface {
	// Decode validates a token string and returns the parsed claims.
	// Expired tokens must produce an error matching jwt.ErrTokenExpired.
	Decode(tokenString string) (*models.Claims, error)

	// Close releases any resources held by the decoder (e.g., HTTP connections for JWKS).
	Close() error
}
