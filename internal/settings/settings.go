// Package settings edits the hotjar.settings configuration object: the Hotjar
// site ID plus the page and role rules deciding where the snippet is added.
package settings

import (
	_ "embed"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// ConfigName is the name of the configuration object in the store.
const ConfigName = "hotjar.settings"

// AccountMaxLength bounds the Hotjar ID field.
const AccountMaxLength = 20

// FrontToken stands for the site front page in a page list.
const FrontToken = "<front>"

type PageVisibility int

const (
	PagesExceptListed PageVisibility = 0
	PagesOnlyListed   PageVisibility = 1
	// PagesPHP is the legacy PHP-snippet mode. It is carried through
	// unchanged and never evaluated.
	PagesPHP PageVisibility = 2
)

func (v PageVisibility) Valid() bool {
	return v >= PagesExceptListed && v <= PagesPHP
}

type RoleVisibility int

const (
	RolesOnlySelected   RoleVisibility = 0
	RolesExceptSelected RoleVisibility = 1
)

func (v RoleVisibility) Valid() bool {
	return v == RolesOnlySelected || v == RolesExceptSelected
}

type Settings struct {
	Account         string         `json:"account" yaml:"account" jsonschema:"maxLength=20"`
	VisibilityPages PageVisibility `json:"visibility_pages" yaml:"visibility_pages" jsonschema:"enum=0,enum=1,enum=2"`
	Pages           string         `json:"pages" yaml:"pages"`
	VisibilityRoles RoleVisibility `json:"visibility_roles" yaml:"visibility_roles" jsonschema:"enum=0,enum=1"`
	Roles           []string       `json:"roles" yaml:"roles"`
}

func (s Settings) Equal(o Settings) bool {
	return s.Account == o.Account &&
		s.VisibilityPages == o.VisibilityPages &&
		s.Pages == o.Pages &&
		s.VisibilityRoles == o.VisibilityRoles &&
		slices.Equal(s.Roles, o.Roles)
}

//go:embed hotjar.settings.yml
var defaultsYAML []byte

// Defaults returns the settings a fresh install starts with.
func Defaults() Settings {
	s, err := ParseYAML(defaultsYAML)
	if err != nil {
		panic(fmt.Errorf("embedded hotjar.settings.yml: %w", err))
	}
	return s
}

func ParseYAML(b []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse %s: %w", ConfigName, err)
	}
	if s.Roles == nil {
		s.Roles = []string{}
	}
	return s, nil
}

func (s Settings) YAML() ([]byte, error) {
	if s.Roles == nil {
		s.Roles = []string{}
	}
	return yaml.Marshal(s)
}
