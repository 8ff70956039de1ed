package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"hotjar/internal/cache"
	"hotjar/internal/config"
	"hotjar/internal/history"
	"hotjar/internal/roles"
	"hotjar/internal/settings"
	"hotjar/internal/templates"
	"hotjar/internal/tracking"
)

func TestMain(m *testing.M) {
	if err := templates.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type testServer struct {
	mux   *http.ServeMux
	store *settings.CacheStore
	mem   *cache.InMemoryCache
}

func newTestServer(t *testing.T, client stubAuthClient) *testServer {
	t.Helper()
	mem := cache.NewInMemoryCache()
	store := settings.NewCacheStore(mem, roles.NewStaticRegistry("administrator", "editor", "anonymous"))
	gate := New(&config.Config{Admin: config.AdminConfig{Emails: []string{"admin@example.com"}}}, client)

	// revisions live in their own cache so write counts only see settings
	recorder := history.NewRecorder(cache.NewInMemoryCache())

	mux := http.NewServeMux()
	NewHandler(settings.NewEditor(store, recorder), store, tracking.NewProvider(store, "/"), client, recorder).Register(mux, gate)
	return &testServer{mux: mux, store: store, mem: mem}
}

func adminClient() stubAuthClient {
	return stubAuthClient{userID: "user_1", email: "admin@example.com", roles: []string{"administrator"}}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	ts.mux.ServeHTTP(rr, req)
	return rr
}

// formValues collects what a browser would post for the first form in body.
func formValues(t *testing.T, body string) url.Values {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(body))
	require.NoError(t, err)

	values := url.Values{}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "input":
				name, typ, val := attr(n, "name"), attr(n, "type"), attr(n, "value")
				switch typ {
				case "radio", "checkbox":
					if hasAttr(n, "checked") {
						values.Add(name, val)
					}
				default:
					values.Add(name, val)
				}
			case "textarea":
				var text string
				if n.FirstChild != nil {
					text = n.FirstChild.Data
				}
				values.Add(attr(n, "name"), text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return values
}

func findByAttr(n *html.Node, key, value string) *html.Node {
	if n.Type == html.ElementNode && attr(n, key) == value {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByAttr(c, key, value); found != nil {
			return found
		}
	}
	return nil
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func getPage(t *testing.T, ts *testServer) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	rr := ts.do(httptest.NewRequest(http.MethodGet, SettingsPath, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var token *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == tokenCookie {
			token = c
		}
	}
	require.NotNil(t, token, "expected form token cookie")
	return rr, token
}

func postForm(ts *testServer, values url.Values, token *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, SettingsPath, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != nil {
		req.AddCookie(token)
	}
	return ts.do(req)
}

func TestSettingsPageRendersForm(t *testing.T) {
	ts := newTestServer(t, adminClient())
	rr, token := getPage(t, ts)

	doc, err := html.Parse(strings.NewReader(rr.Body.String()))
	require.NoError(t, err)

	form := findByAttr(doc, "id", settings.FormID)
	require.NotNil(t, form)
	assert.Equal(t, "post", attr(form, "method"))

	account := findByAttr(doc, "name", settings.FieldAccount)
	require.NotNil(t, account)
	assert.Equal(t, "20", attr(account, "maxlength"))
	assert.Equal(t, "15", attr(account, "size"))
	assert.True(t, hasAttr(account, "required"))

	pages := findByAttr(doc, "name", settings.FieldPages)
	require.NotNil(t, pages)
	assert.Equal(t, "textarea", pages.Data)
	assert.Equal(t, "10", attr(pages, "rows"))

	assert.NotNil(t, findByAttr(doc, "name", settings.RoleFieldName("editor")))
	assert.Equal(t, token.Value, formValues(t, rr.Body.String()).Get(tokenField))
}

func TestSettingsSubmitUnchangedRoundTrips(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, adminClient())
	original := settings.Settings{
		Account:         "12345",
		VisibilityPages: settings.PagesOnlyListed,
		Pages:           "/blog\n/blog/*\n<front>",
		VisibilityRoles: settings.RolesExceptSelected,
		Roles:           []string{"anonymous", "editor"},
	}
	require.NoError(t, ts.store.Save(ctx, original))
	writes := ts.mem.Writes()

	rr, token := getPage(t, ts)
	resp := postForm(ts, formValues(t, rr.Body.String()), token)

	require.Equal(t, http.StatusSeeOther, resp.Code, resp.Body.String())
	assert.Equal(t, SettingsPath+"?saved=1", resp.Header().Get("Location"))
	assert.Equal(t, writes+1, ts.mem.Writes())

	stored, err := ts.store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, original.Equal(stored), "got %+v", stored)
}

func TestSettingsSubmitValidationError(t *testing.T) {
	ts := newTestServer(t, adminClient())
	rr, token := getPage(t, ts)

	values := formValues(t, rr.Body.String())
	values.Set(settings.FieldAccount, "12345")
	values.Set(settings.FieldVisibilityPages, "1")
	values.Set(settings.FieldPages, "blog\n/blog/*\n<front>")

	resp := postForm(ts, values, token)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, 0, ts.mem.Writes())

	doc, err := html.Parse(strings.NewReader(resp.Body.String()))
	require.NoError(t, err)
	alert := findByAttr(doc, "role", "alert")
	require.NotNil(t, alert)
	assert.Equal(t, `Path "blog" not prefixed with slash.`, text(alert))

	// the rejected input is shown again
	assert.Equal(t, "blog\n/blog/*\n<front>", formValues(t, resp.Body.String()).Get(settings.FieldPages))
}

func TestSettingsSubmitRequiresToken(t *testing.T) {
	ts := newTestServer(t, adminClient())
	rr, _ := getPage(t, ts)
	values := formValues(t, rr.Body.String())
	values.Set(settings.FieldAccount, "1")

	resp := postForm(ts, values, nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = postForm(ts, values, &http.Cookie{Name: tokenCookie, Value: "other"})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, 0, ts.mem.Writes())
}

func TestSettingsPageHiddenFromNonAdmins(t *testing.T) {
	ts := newTestServer(t, stubAuthClient{userID: "user_2", email: "someone@example.com"})
	for _, path := range []string{SettingsPath, SettingsPath + "/export", SettingsPath + "/schema", SettingsPath + "/history"} {
		rr := ts.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rr.Code, path)
	}
}

func TestSettingsExport(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t, adminClient())
	original := settings.Settings{Account: "42", Pages: "/a", Roles: []string{"editor"}}
	require.NoError(t, ts.store.Save(ctx, original))

	rr := ts.do(httptest.NewRequest(http.MethodGet, SettingsPath+"/export", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "yaml")

	parsed, err := settings.ParseYAML(rr.Body.Bytes())
	require.NoError(t, err)
	assert.True(t, original.Equal(parsed))
}

func TestSettingsSchema(t *testing.T) {
	ts := newTestServer(t, adminClient())
	rr := ts.do(httptest.NewRequest(http.MethodGet, SettingsPath+"/schema", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &schema))
	assert.Equal(t, settings.ConfigName, schema["title"])
	assert.Contains(t, schema["properties"], "account")
}

func TestSettingsHistory(t *testing.T) {
	ts := newTestServer(t, adminClient())
	rr, token := getPage(t, ts)
	values := formValues(t, rr.Body.String())
	values.Set(settings.FieldAccount, "777")
	require.Equal(t, http.StatusSeeOther, postForm(ts, values, token).Code)

	resp := ts.do(httptest.NewRequest(http.MethodGet, SettingsPath+"/history", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	var revs []history.Revision
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &revs))
	require.Len(t, revs, 1)
	assert.Equal(t, "777", revs[0].Settings.Account)
}
