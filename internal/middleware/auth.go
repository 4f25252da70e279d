package middleware

import (
	"log/slog"
	"net/http"

	"chatrelay/internal/domain"
	"chatrelay/internal/httputil"
)

// IdentityResolver maps an Authorization header to a user id.
type IdentityResolver interface {
	Resolve(header string) (string, error)
}

// Authenticate resolves the caller's identity from the Authorization header
// and stores the user id in the request context. Requests for the public
// paths pass through untouched. Credential failures end the request with 401.
func Authenticate(resolver IdentityResolver, logger *slog.Logger, publicPaths ...string) func(http.Handler) http.Handler {
	public := make(map[string]struct{}, len(publicPaths))
	for _, p := range publicPaths {
		public[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := public[r.URL.Path]; ok || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := resolver.Resolve(r.Header.Get("Authorization"))
			if err != nil {
				message := domain.CredentialMessage(err)
				if message == "" {
					message = "Invalid token"
				}
				logger.Debug("authentication failed",
					"path", r.URL.Path,
					"reason", message,
					"request_id", httputil.GetRequestID(r.Context()),
				)
				httputil.RespondError(w, http.StatusUnauthorized, message)
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, userID))
		})
	}
}
