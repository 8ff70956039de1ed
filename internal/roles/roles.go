package roles

import (
	"context"
	"slices"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	Anonymous     = "anonymous"
	Authenticated = "authenticated"
	Administrator = "administrator"
)

// DefaultIDs are the roles every site starts with.
var DefaultIDs = []string{Anonymous, Authenticated, Administrator}

type Role struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// Registry enumerates the roles defined by the host site.
type Registry interface {
	List(ctx context.Context) ([]Role, error)
}

type StaticRegistry struct {
	roles []Role
}

var _ Registry = (*StaticRegistry)(nil)

// NewStaticRegistry parses role specs of the form "id" or "id:Label".
// Duplicate and blank ids are dropped; with no specs the defaults are used.
func NewStaticRegistry(specs ...string) *StaticRegistry {
	if len(specs) == 0 {
		specs = DefaultIDs
	}
	title := cases.Title(language.English)

	parsed := lo.FilterMap(specs, func(spec string, _ int) (Role, bool) {
		id, label, _ := strings.Cut(spec, ":")
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			return Role{}, false
		}
		label = strings.TrimSpace(label)
		if label == "" {
			label = title.String(strings.ReplaceAll(id, "_", " "))
		}
		return Role{ID: id, Label: label}, true
	})
	return &StaticRegistry{roles: lo.UniqBy(parsed, func(r Role) string { return r.ID })}
}

func (s *StaticRegistry) List(_ context.Context) ([]Role, error) {
	return slices.Clone(s.roles), nil
}

// IDs returns the role ids in registry order.
func IDs(roles []Role) []string {
	return lo.Map(roles, func(r Role, _ int) string { return r.ID })
}

// Names maps role id to its label.
func Names(roles []Role) map[string]string {
	return lo.SliceToMap(roles, func(r Role) (string, string) { return r.ID, r.Label })
}

// Known keeps the ids present in roles, sorted and without duplicates.
func Known(roles []Role, ids []string) []string {
	names := Names(roles)
	known := lo.Uniq(lo.Filter(ids, func(id string, _ int) bool {
		_, ok := names[id]
		return ok
	}))
	slices.Sort(known)
	return known
}
