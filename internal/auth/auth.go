package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"hotjar/internal/roles"
)

var (
	ErrNoSession = errors.New("no valid session found")
)

type AuthClient interface {
	GetUserEmail(ctx context.Context, userID string) (string, error)
	GetUserIDFromRequest(r *http.Request) (string, error)
	// GetUserRoles returns the site roles assigned to a user, not including
	// the implicit authenticated role.
	GetUserRoles(ctx context.Context, userID string) ([]string, error)
	WithAuthHTTP(handler http.Handler) http.Handler
	Register(mux *http.ServeMux)
}

// RequestRoles resolves the roles of whoever made r. Visitors without a
// session are anonymous; signed in users are authenticated plus whatever
// roles they were assigned.
func RequestRoles(client AuthClient, r *http.Request) []string {
	userID, err := client.GetUserIDFromRequest(r)
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			slog.WarnContext(r.Context(), "session lookup failed", "error", err)
		}
		return []string{roles.Anonymous}
	}

	assigned, err := client.GetUserRoles(r.Context(), userID)
	if err != nil {
		slog.WarnContext(r.Context(), "role lookup failed", "user_id", userID, "error", err)
	}
	return append([]string{roles.Authenticated}, assigned...)
}
