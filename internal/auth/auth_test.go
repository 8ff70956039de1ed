package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clerk/clerk-sdk-go/v2"

	"hotjar/internal/config"
)

type fakeClient struct {
	AuthClient
	userID   string
	idErr    error
	roles    []string
	rolesErr error
}

func (f fakeClient) GetUserIDFromRequest(*http.Request) (string, error) {
	return f.userID, f.idErr
}

func (f fakeClient) GetUserRoles(context.Context, string) ([]string, error) {
	return f.roles, f.rolesErr
}

func TestRequestRoles(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	tests := []struct {
		name   string
		client fakeClient
		want   []string
	}{
		{"anonymous", fakeClient{idErr: ErrNoSession}, []string{"anonymous"}},
		{"lookup failure", fakeClient{idErr: errors.New("boom")}, []string{"anonymous"}},
		{"signed in", fakeClient{userID: "u1", roles: []string{"editor"}}, []string{"authenticated", "editor"}},
		{"role failure", fakeClient{userID: "u1", rolesErr: errors.New("boom")}, []string{"authenticated"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := RequestRoles(tc.client, req)
			if len(got) != len(tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", got, tc.want)
				}
			}
		})
	}
}

func TestMetadataRoles(t *testing.T) {
	got, err := metadataRoles(json.RawMessage(`{"roles":[" Editor ","", "admin"],"plan":"pro"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "editor" || got[1] != "admin" {
		t.Fatalf("unexpected roles %v", got)
	}

	got, err = metadataRoles(nil)
	if err != nil || got != nil {
		t.Fatalf("expected no roles for empty metadata, got %v, %v", got, err)
	}

	if _, err := metadataRoles(json.RawMessage(`[1,2]`)); err == nil {
		t.Fatal("expected error for malformed metadata")
	}
}

func TestPrimaryEmail(t *testing.T) {
	primary := "idn_2"
	u := &clerk.User{
		PrimaryEmailAddressID: &primary,
		EmailAddresses: []*clerk.EmailAddress{
			{ID: "idn_1", EmailAddress: "old@example.com"},
			{ID: "idn_2", EmailAddress: "admin@example.com"},
		},
	}
	if got := primaryEmail(u); got != "admin@example.com" {
		t.Fatalf("expected primary email, got %q", got)
	}
	if got := primaryEmail(&clerk.User{}); got != "" {
		t.Fatalf("expected empty email, got %q", got)
	}
}

func TestClerkClientNoSession(t *testing.T) {
	c := &clerkClient{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := c.GetUserIDFromRequest(req); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Fatal("expected error without secret key")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	mux := http.NewServeMux()
	(&clerkClient{}).Register(mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/logout", nil))

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", rr.Code)
	}
	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != clerkSessionCookie || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired session cookie, got %+v", cookies)
	}
}

func TestMockFromConfig(t *testing.T) {
	ctx := context.Background()

	c, err := NewFromConfig(&config.Config{Mocks: config.MockConfig{Enable: true, Email: "me@example.com", Roles: []string{"editor"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	email, _ := c.GetUserEmail(ctx, mockUserID)
	if email != "me@example.com" {
		t.Fatalf("unexpected email %q", email)
	}
	roles, _ := c.GetUserRoles(ctx, mockUserID)
	if len(roles) != 1 || roles[0] != "editor" {
		t.Fatalf("unexpected roles %v", roles)
	}

	def := Mock(&config.Config{})
	roles, _ = def.GetUserRoles(ctx, mockUserID)
	if len(roles) != 1 || roles[0] != "administrator" {
		t.Fatalf("unexpected default roles %v", roles)
	}
}
