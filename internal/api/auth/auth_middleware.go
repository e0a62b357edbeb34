package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/catalog-api/internal/api"
)

type contextKey string

const userKey contextKey = "user"

// Authenticate rejects requests without a valid bearer token and puts the
// caller's *User on the request context.
func Authenticate(service AuthService, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				l.DebugContext(ctx, "Missing or malformed Authorization header")
				api.WriteError(w, r, l, api.ErrUnauthenticated)
				return
			}

			user, err := service.Authenticate(ctx, token)
			if err != nil {
				l.DebugContext(ctx, "Token rejected", slog.Any("error", err))
				api.WriteError(w, r, l, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userKey, user)))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// UserFromContext returns the user placed by Authenticate.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok && u != nil
}
