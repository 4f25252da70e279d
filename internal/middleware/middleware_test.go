package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"chatrelay/internal/domain"
	"chatrelay/internal/httputil"
)

type fakeResolver struct {
	userID string
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(header string) (string, error) {
	f.calls++
	return f.userID, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthenticate_SetsUserID(t *testing.T) {
	resolver := &fakeResolver{userID: "u1"}
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetUserID(r)
	})

	req := httptest.NewRequest(http.MethodGet, "/chat_list", nil)
	req.Header.Set("Authorization", "Bearer t")
	rec := httptest.NewRecorder()
	Authenticate(resolver, discardLogger(), "/health")(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen != "u1" {
		t.Errorf("expected user id 'u1' in context, got '%s'", seen)
	}
}

func TestAuthenticate_RejectsWithCredentialMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrMissingCredential, "Authorization token is missing"},
		{domain.ErrMalformedCredential, "Invalid Authorization header format"},
		{domain.ErrExpiredCredential, "Token expired"},
		{domain.ErrInvalidCredential, "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/start_chat", nil)
			Authenticate(&fakeResolver{err: tt.err}, discardLogger())(next).ServeHTTP(rec, req)

			if called {
				t.Fatal("handler must not run for rejected credentials")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
			var body httputil.MessageBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Message != tt.want {
				t.Errorf("expected message %q, got %q", tt.want, body.Message)
			}
		})
	}
}

func TestAuthenticate_PublicPathSkipsResolver(t *testing.T) {
	resolver := &fakeResolver{err: domain.ErrMissingCredential}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	Authenticate(resolver, discardLogger(), "/health")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if resolver.calls != 0 {
		t.Errorf("expected resolver not to be called, got %d calls", resolver.calls)
	}
}

func TestRecovery_Returns500(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	Recovery(discardLogger())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat_list", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body httputil.MessageBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Message != "Internal server error" {
		t.Errorf("unexpected message %q", body.Message)
	}
}

func TestRequestLogger_AssignsAndPropagatesRequestID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = httputil.GetRequestID(r.Context())
		w.Write([]byte("ok"))
	})
	handler := RequestLogger(discardLogger())(next)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if seen == "" {
		t.Fatal("expected a generated request id")
	}
	if got := rec.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("expected response header %q, got %q", seen, got)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "abc" {
		t.Errorf("expected incoming request id 'abc', got %q", seen)
	}
}
