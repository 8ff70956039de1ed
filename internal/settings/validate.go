package settings

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"hotjar/internal/roles"
)

// Submitted field names.
const (
	FieldAccount         = "hotjar_account"
	FieldVisibilityPages = "hotjar_visibility_pages"
	FieldPages           = "hotjar_pages"
	FieldVisibilityRoles = "hotjar_visibility_roles"
	FieldRoles           = "hotjar_roles"
)

// Input is a raw form submission. Roles maps role id to the submitted
// checkbox value; unchecked boxes are either absent or falsy.
type Input struct {
	Account         string
	VisibilityPages string
	Pages           string
	VisibilityRoles string
	Roles           map[string]string
}

// ValidationError is attached to a single form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

const illegalChoice = "An illegal choice has been detected. Please contact the site administrator."

var lineBreak = regexp.MustCompile(`\r\n?|\n`)

// InputFromValues reads a submission in either checkbox form
// (hotjar_roles[editor]=editor) or list form (hotjar_roles=editor).
func InputFromValues(v url.Values) Input {
	in := Input{
		Account:         v.Get(FieldAccount),
		VisibilityPages: v.Get(FieldVisibilityPages),
		Pages:           v.Get(FieldPages),
		VisibilityRoles: v.Get(FieldVisibilityRoles),
		Roles:           map[string]string{},
	}
	for key, vals := range v {
		if len(vals) == 0 {
			continue
		}
		if key == FieldRoles {
			for _, id := range vals {
				in.Roles[id] = id
			}
			continue
		}
		if id, ok := roleKey(key); ok {
			in.Roles[id] = vals[len(vals)-1]
		}
	}
	return in
}

func roleKey(key string) (string, bool) {
	rest, ok := strings.CutPrefix(key, FieldRoles+"[")
	if !ok {
		return "", false
	}
	return strings.CutSuffix(rest, "]")
}

// RoleFieldName is the checkbox name for one role.
func RoleFieldName(id string) string {
	return FieldRoles + "[" + id + "]"
}

func (in Input) Values() url.Values {
	v := url.Values{}
	v.Set(FieldAccount, in.Account)
	v.Set(FieldVisibilityPages, in.VisibilityPages)
	v.Set(FieldPages, in.Pages)
	v.Set(FieldVisibilityRoles, in.VisibilityRoles)
	for id, val := range in.Roles {
		v.Set(RoleFieldName(id), val)
	}
	return v
}

// Validate turns a submission into Settings. It reports at most one error:
// the first problem found, in form order. Role ids unknown to available are
// dropped silently.
func Validate(in Input, available []roles.Role) (Settings, error) {
	account := strings.TrimSpace(in.Account)
	if account == "" {
		return Settings{}, &ValidationError{Field: FieldAccount, Message: "Hotjar ID field is required."}
	}
	// the length limit applies to the value as submitted, before trimming
	if n := utf8.RuneCountInString(in.Account); n > AccountMaxLength {
		return Settings{}, &ValidationError{
			Field:   FieldAccount,
			Message: fmt.Sprintf("Hotjar ID cannot be longer than %d characters but is currently %d characters long.", AccountMaxLength, n),
		}
	}

	vp, err := strconv.Atoi(strings.TrimSpace(in.VisibilityPages))
	if err != nil || !PageVisibility(vp).Valid() {
		return Settings{}, &ValidationError{Field: FieldVisibilityPages, Message: illegalChoice}
	}
	vr, err := strconv.Atoi(strings.TrimSpace(in.VisibilityRoles))
	if err != nil || !RoleVisibility(vr).Valid() {
		return Settings{}, &ValidationError{Field: FieldVisibilityRoles, Message: illegalChoice}
	}

	pages := strings.TrimSpace(in.Pages)
	if PageVisibility(vp) != PagesPHP {
		for _, page := range lineBreak.Split(pages, -1) {
			if page != FrontToken && !strings.HasPrefix(page, "/") {
				return Settings{}, &ValidationError{
					Field:   FieldPages,
					Message: fmt.Sprintf(`Path "%s" not prefixed with slash.`, page),
				}
			}
		}
	}

	checked := lo.Filter(lo.Keys(in.Roles), func(id string, _ int) bool {
		return truthy(in.Roles[id])
	})

	return Settings{
		Account:         account,
		VisibilityPages: PageVisibility(vp),
		Pages:           pages,
		VisibilityRoles: RoleVisibility(vr),
		Roles:           roles.Known(available, checked),
	}, nil
}

// SplitPages breaks a page list on any line break style and drops blank
// lines. It is for matching stored lists; Validate rejects blank entries.
func SplitPages(pages string) []string {
	return lo.Filter(lineBreak.Split(pages, -1), func(p string, _ int) bool {
		return p != ""
	})
}

func truthy(v string) bool {
	return v != "" && v != "0"
}

// InputFromSettings is the submission that would reproduce s.
func InputFromSettings(s Settings) Input {
	in := Input{
		Account:         s.Account,
		VisibilityPages: strconv.Itoa(int(s.VisibilityPages)),
		Pages:           s.Pages,
		VisibilityRoles: strconv.Itoa(int(s.VisibilityRoles)),
		Roles:           make(map[string]string, len(s.Roles)),
	}
	for _, id := range s.Roles {
		in.Roles[id] = id
	}
	return in
}
