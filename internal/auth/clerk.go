package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkhttp "github.com/clerk/clerk-sdk-go/v2/http"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

const clerkSessionCookie = "__session"

type clerkClient struct {
	secretKey string
}

var _ AuthClient = (*clerkClient)(nil)

func NewClient(secretKey string) (*clerkClient, error) {
	if secretKey == "" {
		return nil, fmt.Errorf("clerk secret key is required")
	}

	// the clerk sdk keeps the key globally
	clerk.SetKey(secretKey)

	return &clerkClient{
		secretKey: secretKey,
	}, nil
}

func (c *clerkClient) GetUserEmail(ctx context.Context, clerkUserID string) (string, error) {
	clerkUser, err := user.Get(ctx, clerkUserID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch clerk user: %w", err)
	}
	email := primaryEmail(clerkUser)
	if email == "" {
		return "", fmt.Errorf("no primary email found for clerk user %s", clerkUserID)
	}
	return email, nil
}

// GetUserRoles reads the "roles" list from the user's public metadata.
func (c *clerkClient) GetUserRoles(ctx context.Context, clerkUserID string) ([]string, error) {
	clerkUser, err := user.Get(ctx, clerkUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clerk user: %w", err)
	}
	return metadataRoles(clerkUser.PublicMetadata)
}

func (c *clerkClient) GetUserIDFromRequest(r *http.Request) (string, error) {
	sessionClaims, ok := clerk.SessionClaimsFromContext(r.Context())
	if !ok || sessionClaims == nil {
		return "", ErrNoSession
	}
	return sessionClaims.Subject, nil
}

// WithAuthHTTP verifies the session token. Browsers send it as the __session
// cookie, so it is copied into the Authorization header first.
func (c *clerkClient) WithAuthHTTP(handler http.Handler) http.Handler {
	purgeAndRedirect := clerkhttp.AuthorizationFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clearSessionCookie(w)
		http.Redirect(w, r, r.RequestURI, http.StatusFound)
	}))
	authorized := clerkhttp.WithHeaderAuthorization(purgeAndRedirect)(handler)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if cookie, err := r.Cookie(clerkSessionCookie); err == nil && cookie.Value != "" {
				r.Header.Set("Authorization", "Bearer "+cookie.Value)
			}
		}
		authorized.ServeHTTP(w, r)
	})
}

func (c *clerkClient) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /logout", c.logout)
}

func (c *clerkClient) logout(w http.ResponseWriter, r *http.Request) {
	clearSessionCookie(w)
	slog.InfoContext(r.Context(), "signed out")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     clerkSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func primaryEmail(clerkUser *clerk.User) string {
	if clerkUser == nil || clerkUser.PrimaryEmailAddressID == nil {
		return ""
	}
	for _, addr := range clerkUser.EmailAddresses {
		if addr != nil && addr.ID == *clerkUser.PrimaryEmailAddressID {
			return addr.EmailAddress
		}
	}
	return ""
}

func metadataRoles(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var meta struct {
		Roles []string `json:"roles"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("invalid clerk public metadata: %w", err)
	}
	out := make([]string, 0, len(meta.Roles))
	for _, r := range meta.Roles {
		if r = strings.ToLower(strings.TrimSpace(r)); r != "" {
			out = append(out, r)
		}
	}
	return out, nil
}
