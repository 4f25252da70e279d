package auth

import (
	"errors"
	"log/slog"
	"strings"

	"chatrelay/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Resolver turns an Authorization header into a user id.
// Stateless and safe for concurrent use.
type Resolver struct {
	decoder TokenDecoder
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by decoder.
func NewResolver(decoder TokenDecoder, logger *slog.Logger) *Resolver {
	return &Resolver{
		decoder: decoder,
		logger:  logger,
	}
}

// Resolve extracts the token from a "Bearer <token>" header and returns the
// user_id claim. The scheme word itself is not checked; only the second
// whitespace-separated field is used.
func (r *Resolver) Resolve(header string) (string, error) {
	if header == "" {
		return "", domain.ErrMissingCredential
	}

	fields := strings.Fields(header)
	if len(fields) < 2 {
		return "", domain.ErrMalformedCredential
	}

	claims, err := r.decoder.Decode(fields[1])
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			r.logger.Debug("token rejected", "reason", "expired")
			return "", domain.ErrExpiredCredential
		}
		r.logger.Debug("token rejected", "reason", err.Error())
		return "", domain.ErrInvalidCredential
	}

	userID := claims.GetUserID()
	if userID == "" {
		r.logger.Debug("token rejected", "reason", "missing user_id claim")
		return "", domain.ErrInvalidCredential
	}

	return userID, nil
}
