package auth

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"chatrelay/internal/domain"
	"chatrelay/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newTestResolver() *Resolver {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewResolver(NewHMACDecoder(testSecret, nil), logger)
}

func signMap(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestResolve_StringUserID(t *testing.T) {
	token, err := SignHMAC(testSecret, &models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "u1",
	})
	if err != nil {
		t.Fatalf("SignHMAC failed: %v", err)
	}

	userID, err := newTestResolver().Resolve("Bearer " + token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if userID != "u1" {
		t.Errorf("expected user id 'u1', got '%s'", userID)
	}
}

func TestResolve_NumericUserID(t *testing.T) {
	token := signMap(t, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	userID, err := newTestResolver().Resolve("Bearer " + token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if userID != "42" {
		t.Errorf("expected user id '42', got '%s'", userID)
	}
}

func TestResolve_SchemeWordNotChecked(t *testing.T) {
	token := signMap(t, testSecret, jwt.MapClaims{"user_id": "u7"})

	userID, err := newTestResolver().Resolve("Token   " + token)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if userID != "u7" {
		t.Errorf("expected user id 'u7', got '%s'", userID)
	}
}

func TestResolve_Errors(t *testing.T) {
	expired := signMap(t, testSecret, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	wrongSecret := signMap(t, "other-secret", jwt.MapClaims{"user_id": "u1"})
	noUser := signMap(t, testSecret, jwt.MapClaims{"sub": "u1"})
	emptyUser := signMap(t, testSecret, jwt.MapClaims{"user_id": ""})
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign none token: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		want    error
		message string
	}{
		{"missing header", "", domain.ErrMissingCredential, "Authorization token is missing"},
		{"single field", "Bearer", domain.ErrMalformedCredential, "Invalid Authorization header format"},
		{"whitespace only", "   ", domain.ErrMalformedCredential, "Invalid Authorization header format"},
		{"expired", "Bearer " + expired, domain.ErrExpiredCredential, "Token expired"},
		{"garbage", "Bearer not.a.token", domain.ErrInvalidCredential, "Invalid token"},
		{"wrong secret", "Bearer " + wrongSecret, domain.ErrInvalidCredential, "Invalid token"},
		{"missing user_id", "Bearer " + noUser, domain.ErrInvalidCredential, "Invalid token"},
		{"empty user_id", "Bearer " + emptyUser, domain.ErrInvalidCredential, "Invalid token"},
		{"none algorithm", "Bearer " + noneAlg, domain.ErrInvalidCredential, "Invalid token"},
	}

	resolver := newTestResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve(tt.header)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("expected error to wrap ErrUnauthorized, got %v", err)
			}
			if msg := domain.CredentialMessage(err); msg != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, msg)
			}
		})
	}
}

func TestHMACDecoder_RejectsDisallowedAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"user_id": "u1"}).
		SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := NewHMACDecoder(testSecret, []string{"HS256"}).Decode(token); err == nil {
		t.Fatal("expected HS512 token to be rejected when only HS256 is allowed")
	}
	if _, err := NewHMACDecoder(testSecret, []string{"HS256", "HS512"}).Decode(token); err != nil {
		t.Fatalf("expected HS512 token to be accepted, got %v", err)
	}
}
