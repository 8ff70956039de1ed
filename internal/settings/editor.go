package settings

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"hotjar/internal/roles"
)

// Store is the configuration collaborator behind the editor.
type Store interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, s Settings) error
	ListRoles(ctx context.Context) ([]roles.Role, error)
}

// Observer is told about every successful save. Observer errors are logged,
// never returned; the save has already happened.
type Observer interface {
	SettingsSaved(ctx context.Context, s Settings) error
}

type Editor struct {
	store     Store
	observers []Observer
}

func NewEditor(store Store, observers ...Observer) *Editor {
	return &Editor{store: store, observers: observers}
}

func (e *Editor) Render(ctx context.Context) (Form, error) {
	s, err := e.store.Load(ctx)
	if err != nil {
		return Form{}, fmt.Errorf("failed to load %s: %w", ConfigName, err)
	}
	available, err := e.store.ListRoles(ctx)
	if err != nil {
		return Form{}, fmt.Errorf("failed to list roles: %w", err)
	}
	return BuildForm(s, available), nil
}

// Validate checks a submission against the current roles. While the stored
// page visibility is the legacy PHP mode, the page fields are taken from the
// store rather than the submission, since the form never shows them.
func (e *Editor) Validate(ctx context.Context, in Input) (Settings, error) {
	current, err := e.store.Load(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load %s: %w", ConfigName, err)
	}
	if current.VisibilityPages == PagesPHP {
		in.VisibilityPages = strconv.Itoa(int(PagesPHP))
		in.Pages = current.Pages
	}

	available, err := e.store.ListRoles(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to list roles: %w", err)
	}
	return Validate(in, available)
}

// Submit persists all five fields in a single store write.
func (e *Editor) Submit(ctx context.Context, s Settings) error {
	if s.Roles == nil {
		s.Roles = []string{}
	}
	if err := e.store.Save(ctx, s); err != nil {
		return fmt.Errorf("failed to save %s: %w", ConfigName, err)
	}
	slog.InfoContext(ctx, "hotjar settings saved",
		"account", s.Account,
		"visibility_pages", int(s.VisibilityPages),
		"visibility_roles", int(s.VisibilityRoles),
		"roles", s.Roles)

	for _, o := range e.observers {
		if err := o.SettingsSaved(ctx, s); err != nil {
			slog.WarnContext(ctx, "settings observer failed", "error", err)
		}
	}
	return nil
}
