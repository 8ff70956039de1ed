package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hotjar/internal/auth"
	"hotjar/internal/config"
)

type stubAuthClient struct {
	userID    string
	userIDErr error
	email     string
	emailErr  error
	roles     []string
	rolesErr  error
}

func (s stubAuthClient) GetUserEmail(_ context.Context, _ string) (string, error) {
	if s.emailErr != nil {
		return "", s.emailErr
	}
	return s.email, nil
}

func (s stubAuthClient) GetUserIDFromRequest(_ *http.Request) (string, error) {
	if s.userIDErr != nil {
		return "", s.userIDErr
	}
	return s.userID, nil
}

func (s stubAuthClient) GetUserRoles(_ context.Context, _ string) ([]string, error) {
	if s.rolesErr != nil {
		return nil, s.rolesErr
	}
	return s.roles, nil
}

func (s stubAuthClient) WithAuthHTTP(handler http.Handler) http.Handler {
	return handler
}

func (s stubAuthClient) Register(_ *http.ServeMux) {}

func TestMiddlewareWrapRejectsNoSession(t *testing.T) {
	t.Parallel()

	m := New(&config.Config{
		Admin: config.AdminConfig{
			Emails: []string{"admin@example.com"},
		},
	}, stubAuthClient{userIDErr: auth.ErrNoSession})

	req := httptest.NewRequest(http.MethodGet, "/admin/config/system/hotjar", nil)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	m.Enforce(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestMiddlewareWrapRejectsNonAdmin(t *testing.T) {
	t.Parallel()

	m := New(&config.Config{
		Admin: config.AdminConfig{
			Emails: []string{"admin@example.com"},
		},
	}, stubAuthClient{
		userID: "user_123",
		email:  "user@example.com",
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/config/system/hotjar", nil)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	m.Enforce(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestMiddlewareWrapAllowsAdmin(t *testing.T) {
	t.Parallel()

	m := New(&config.Config{
		Admin: config.AdminConfig{
			Emails: []string{"admin@example.com"},
		},
	}, stubAuthClient{
		userID: "user_123",
		email:  "ADMIN@example.com",
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/config/system/hotjar", nil)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	m.Enforce(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
}

func TestMiddlewareWrapRejectsEmailLookupFailure(t *testing.T) {
	t.Parallel()

	m := New(&config.Config{
		Admin: config.AdminConfig{
			Emails: []string{"admin@example.com"},
		},
	}, stubAuthClient{
		userID:   "user_123",
		emailErr: errors.New("lookup failed"),
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/config/system/hotjar", nil)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	m.Enforce(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestMiddlewareWrapAllowsAnyLoggedInUserWhenNoAdminsConfigured(t *testing.T) {
	t.Parallel()

	m := New(&config.Config{}, stubAuthClient{
		userID: "user_123",
		email:  "user@example.com",
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/config/system/hotjar", nil)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	m.Enforce(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
}

func TestMiddlewareAdmitsAdminRoleWithoutListedEmail(t *testing.T) {
	t.Parallel()

	m := New(&config.Config{
		Admin: config.AdminConfig{
			Emails: []string{"admin@example.com"},
			Roles:  []string{"administrator"},
		},
	}, stubAuthClient{
		userID:   "user_123",
		emailErr: errors.New("email lookup should not be needed"),
		roles:    []string{"authenticated", "Administrator"},
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/config/system/hotjar", nil)
	rr := httptest.NewRecorder()

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	m.Enforce(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
}

func TestMiddlewareRoleCheck(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		client stubAuthClient
		want   int
	}{
		"other role, unlisted email": {
			client: stubAuthClient{userID: "user_1", email: "user@example.com", roles: []string{"editor"}},
			want:   http.StatusNotFound,
		},
		"other role, listed email": {
			client: stubAuthClient{userID: "user_1", email: "admin@example.com", roles: []string{"editor"}},
			want:   http.StatusNoContent,
		},
		"role lookup fails, unlisted email": {
			client: stubAuthClient{userID: "user_1", email: "user@example.com", rolesErr: errors.New("clerk down")},
			want:   http.StatusNotFound,
		},
		"role lookup fails, listed email": {
			client: stubAuthClient{userID: "user_1", email: "admin@example.com", rolesErr: errors.New("clerk down")},
			want:   http.StatusNoContent,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			m := New(&config.Config{
				Admin: config.AdminConfig{
					Emails: []string{"admin@example.com"},
					Roles:  []string{"site_manager", "administrator"},
				},
			}, tc.client)

			req := httptest.NewRequest(http.MethodGet, "/admin/config/system/hotjar", nil)
			rr := httptest.NewRecorder()
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			m.Enforce(next).ServeHTTP(rr, req)

			if rr.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rr.Code)
			}
		})
	}
}
