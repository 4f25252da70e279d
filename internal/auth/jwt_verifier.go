package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chatrelay/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// jwksAlgorithms are the asymmetric algorithms accepted with a JWKS.
// Restricting them prevents algorithm confusion attacks.
var jwksAlgorithms = []string{"RS256", "ES256"}

// JWKSDecoder implements TokenDecoder using public keys from a JWKS endpoint.
type JWKSDecoder struct {
	jwks   keyfunc.Keyfunc
	logger *slog.Logger
}

// NewJWKSDecoder creates a decoder that fetches public keys from jwksURL.
// The JWKS keys are cached and automatically refreshed based on HTTP cache headers.
func NewJWKSDecoder(ctx context.Context, jwksURL string, logger *slog.Logger) (*JWKSDecoder, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWKS token decoder initialized", "jwks_url", jwksURL)

	return &JWKSDecoder{
		jwks:   jwks,
		logger: logger,
	}, nil
}

// Decode validates a token against the JWKS and extracts its claims.
func (d *JWKSDecoder) Decode(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, d.jwks.Keyfunc,
		jwt.WithValidMethods(jwksAlgorithms))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, errors.New("token claims are not valid")
	}

	return claims, nil
}

// Close releases resources held by the decoder.
// In keyfunc v3 the library manages its own refresh goroutine, so this is a no-op.
func (d *JWKSDecoder) Close() error {
	d.logger.Info("JWKS token decoder closed")
	return nil
}
