package admin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"hotjar/internal/auth"
	"hotjar/internal/config"
)

// middleware gates the settings pages. A user may administer Hotjar when
// they hold one of the admin roles or their email is listed. When no emails
// are listed, every signed in user may.
type middleware struct {
	auth       auth.AuthClient
	emails     map[string]struct{}
	adminRoles map[string]struct{}
}

func New(cfg *config.Config, authClient auth.AuthClient) *middleware {
	normalize := func(s string, _ int) (string, bool) {
		n := normalize(s)
		return n, n != ""
	}
	toSet := func(items []string) map[string]struct{} {
		return lo.SliceToMap(lo.FilterMap(items, normalize), func(s string) (string, struct{}) {
			return s, struct{}{}
		})
	}

	return &middleware{
		auth:       authClient,
		emails:     toSet(cfg.Admin.Emails),
		adminRoles: toSet(cfg.Admin.Roles),
	}
}

// Enforce answers 404 to anyone who may not administer Hotjar so the page
// does not advertise itself.
func (m *middleware) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := m.auth.GetUserIDFromRequest(r)
		if err != nil {
			if !errors.Is(err, auth.ErrNoSession) {
				slog.WarnContext(ctx, "admin auth failed", "error", err)
			}
			http.NotFound(w, r)
			return
		}

		if m.hasAdminRole(ctx, userID) {
			next.ServeHTTP(w, r)
			return
		}

		email, err := m.auth.GetUserEmail(ctx, userID)
		if err != nil {
			slog.WarnContext(ctx, "admin email lookup failed", "user_id", userID, "error", err)
			http.NotFound(w, r)
			return
		}
		if !m.listedEmail(email) {
			slog.InfoContext(ctx, "hotjar settings access denied", "user_id", userID)
			http.NotFound(w, r)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *middleware) hasAdminRole(ctx context.Context, userID string) bool {
	if len(m.adminRoles) == 0 {
		return false
	}
	userRoles, err := m.auth.GetUserRoles(ctx, userID)
	if err != nil {
		slog.WarnContext(ctx, "admin role lookup failed", "user_id", userID, "error", err)
		return false
	}
	return lo.SomeBy(userRoles, func(role string) bool {
		_, ok := m.adminRoles[strings.ToLower(role)]
		return ok
	})
}

func (m *middleware) listedEmail(email string) bool {
	if len(m.emails) == 0 {
		return true
	}
	_, ok := m.emails[normalize(email)]
	return ok
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
