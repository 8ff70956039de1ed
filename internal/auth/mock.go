package auth

import (
	"context"
	"net/http"
	"slices"

	"hotjar/internal/config"
)

const mockUserID = "mock-user-id"

type mockClient struct {
	email string
	roles []string
}

var _ AuthClient = (*mockClient)(nil)

// Mock signs every request in as the configured mock user.
func Mock(cfg *config.Config) AuthClient {
	if cfg.Mocks.Email == "" && len(cfg.Mocks.Roles) == 0 {
		return DefaultMock()
	}
	email := cfg.Mocks.Email
	if email == "" {
		email = "admin@example.com"
	}
	return &mockClient{
		email: email,
		roles: slices.Clone(cfg.Mocks.Roles),
	}
}

func DefaultMock() AuthClient {
	return &mockClient{
		email: "admin@example.com",
		roles: []string{"administrator"},
	}
}

func (c *mockClient) GetUserEmail(ctx context.Context, userID string) (string, error) {
	return c.email, nil
}

func (c *mockClient) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	return slices.Clone(c.roles), nil
}

func (c *mockClient) GetUserIDFromRequest(r *http.Request) (string, error) {
	return mockUserID, nil
}

func (c *mockClient) WithAuthHTTP(handler http.Handler) http.Handler {
	return handler
}

func (c *mockClient) logout(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "not implemented in mock auth client", http.StatusNotImplemented)
}

func (c *mockClient) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /logout", c.logout)
}
