package auth

import (
	"errors"

	"chatrelay/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

// HMACDecoder implements TokenDecoder for tokens signed with a shared secret.
type HMACDecoder struct {
	secret     []byte
	algorithms []string
}

// NewHMACDecoder creates a decoder for the given secret. An empty algorithm
// list defaults to HS256.
func NewHMACDecoder(secret string, algorithms []string) *HMACDecoder {
	if len(algorithms) == 0 {
		algorithms = []string{jwt.SigningMethodHS256.Alg()}
	}
	return &HMACDecoder{
		secret:     []byte(secret),
		algorithms: algorithms,
	}
}

// Decode verifies the signature and standard time claims of tokenString.
func (d *HMACDecoder) Decode(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return d.secret, nil
	}, jwt.WithValidMethods(d.algorithms))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, errors.New("token claims are not valid")
	}

	return claims, nil
}

// Close is a no-op; HMAC decoding holds no resources.
func (d *HMACDecoder) Close() error { return nil }

// SignHMAC mints a token carrying claims. Used by the seed command and tests.
func SignHMAC(secret string, claims *models.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
