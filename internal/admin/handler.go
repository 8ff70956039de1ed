package admin

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"hotjar/internal/auth"
	"hotjar/internal/history"
	"hotjar/internal/settings"
	"hotjar/internal/templates"
	"hotjar/internal/tracking"
)

// SettingsPath is where the Hotjar settings page lives.
const SettingsPath = "/admin/config/system/hotjar"

const (
	tokenCookie = "hotjar_form_token"
	tokenField  = "form_token"
)

const historyLimit = 50

type revisionLister interface {
	Recent(ctx context.Context, limit int) ([]history.Revision, error)
}

type handler struct {
	editor    *settings.Editor
	store     settings.Store
	tracking  *tracking.Provider
	auth      auth.AuthClient
	revisions revisionLister
}

// NewHandler creates a new admin HTTP handler
func NewHandler(editor *settings.Editor, store settings.Store, provider *tracking.Provider, authClient auth.AuthClient, revisions revisionLister) *handler {
	return &handler{
		editor:    editor,
		store:     store,
		tracking:  provider,
		auth:      authClient,
		revisions: revisions,
	}
}

// Register registers the admin handler routes behind the admin gate.
func (h *handler) Register(mux *http.ServeMux, gate *middleware) {
	mux.Handle("GET "+SettingsPath, gate.Enforce(http.HandlerFunc(h.handleSettingsPage)))
	mux.Handle("POST "+SettingsPath, gate.Enforce(http.HandlerFunc(h.handleSettingsSubmit)))
	mux.Handle("GET "+SettingsPath+"/export", gate.Enforce(http.HandlerFunc(h.handleExport)))
	mux.Handle("GET "+SettingsPath+"/schema", gate.Enforce(http.HandlerFunc(h.handleSchema)))
	mux.Handle("GET "+SettingsPath+"/history", gate.Enforce(http.HandlerFunc(h.handleHistory)))
}

type settingsPage struct {
	Form           settings.Form
	Error          *settings.ValidationError
	Token          string
	Saved          bool
	Action         string
	TrackingScript template.HTML
}

func (h *handler) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form, err := h.editor.Render(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render settings form", "error", err)
		http.Error(w, "unable to load settings", http.StatusInternalServerError)
		return
	}
	h.render(w, r, http.StatusOK, settingsPage{
		Form:  form,
		Token: formToken(w, r),
		Saved: r.URL.Query().Get("saved") == "1",
	})
}

func (h *handler) handleSettingsSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form submission", http.StatusBadRequest)
		return
	}
	if !validToken(r) {
		slog.WarnContext(ctx, "settings form token mismatch")
		http.Error(w, "the form has become outdated, reload the page and try again", http.StatusForbidden)
		return
	}

	in := settings.InputFromValues(r.PostForm)
	s, err := h.editor.Validate(ctx, in)
	if err != nil {
		var verr *settings.ValidationError
		if !errors.As(err, &verr) {
			slog.ErrorContext(ctx, "failed to validate settings", "error", err)
			http.Error(w, "unable to validate settings", http.StatusInternalServerError)
			return
		}
		form, rerr := h.editor.Render(ctx)
		if rerr != nil {
			slog.ErrorContext(ctx, "failed to render settings form", "error", rerr)
			http.Error(w, "unable to load settings", http.StatusInternalServerError)
			return
		}
		h.render(w, r, http.StatusUnprocessableEntity, settingsPage{
			Form:  form.WithInput(in),
			Error: verr,
			Token: formToken(w, r),
		})
		return
	}

	if err := h.editor.Submit(ctx, s); err != nil {
		slog.ErrorContext(ctx, "failed to save settings", "error", err)
		http.Error(w, "unable to save settings", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, SettingsPath+"?saved=1", http.StatusSeeOther)
}

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := h.store.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load settings", "error", err)
		http.Error(w, "unable to load settings", http.StatusInternalServerError)
		return
	}
	b, err := s.YAML()
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode settings", "error", err)
		http.Error(w, "unable to encode settings", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+settings.ConfigName+`.yml"`)
	if _, err := w.Write(b); err != nil {
		slog.ErrorContext(ctx, "failed to write export", "error", err)
	}
}

func (h *handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(settings.Schema()); err != nil {
		slog.ErrorContext(r.Context(), "failed to write schema", "error", err)
	}
}

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	revs, err := h.revisions.Recent(ctx, historyLimit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list revisions", "error", err)
		http.Error(w, "unable to list revisions", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(revs); err != nil {
		slog.ErrorContext(ctx, "failed to write revisions", "error", err)
	}
}

func (h *handler) render(w http.ResponseWriter, r *http.Request, status int, page settingsPage) {
	ctx := r.Context()
	page.Action = SettingsPath
	if h.tracking != nil {
		page.TrackingScript = h.tracking.Snippet(ctx, r.URL.Path, auth.RequestRoles(h.auth, r))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Settings.Execute(w, page); err != nil {
		slog.ErrorContext(ctx, "settings template execute error", "error", err)
	}
}

// formToken reuses the browser's token when it has one so several open tabs
// keep working.
func formToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     SettingsPath,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   r.TLS != nil,
	})
	return token
}

func validToken(r *http.Request) bool {
	c, err := r.Cookie(tokenCookie)
	if err != nil || c.Value == "" {
		return false
	}
	return r.PostForm.Get(tokenField) == c.Value
}
