package settings

import (
	"html/template"
	"slices"
	"strconv"

	"hotjar/internal/roles"
)

const FormID = "hotjar_admin_settings"

type FieldType string

const (
	TypeTextfield  FieldType = "textfield"
	TypeTextarea   FieldType = "textarea"
	TypeRadios     FieldType = "radios"
	TypeCheckboxes FieldType = "checkboxes"
	// TypeValue fields are never shown to the browser; their value is
	// carried server side.
	TypeValue FieldType = "value"
)

type Option struct {
	Value string
	Label string
}

type Field struct {
	Name        string
	Type        FieldType
	Title       string
	TitleHidden bool
	Description template.HTML
	Required    bool
	MaxLength   int
	Size        int
	Rows        int
	Options     []Option
	// Default is the current value; Defaults holds checked boxes.
	Default  string
	Defaults []string
}

func (f Field) Checked(value string) bool {
	if f.Type == TypeCheckboxes {
		return slices.Contains(f.Defaults, value)
	}
	return f.Default == value
}

type Group struct {
	Name   string
	Title  string
	Open   bool
	Fields []Field
}

// Form is a declarative description of the settings page. It holds no
// behavior; the admin handler renders it and Editor validates against it.
type Form struct {
	ID     string
	Groups []Group
}

func (f Form) Field(name string) (Field, bool) {
	for _, g := range f.Groups {
		for _, field := range g.Fields {
			if field.Name == name {
				return field, true
			}
		}
	}
	return Field{}, false
}

// Submission is what a browser posts when the form is sent back untouched:
// every visible field with its default, checked boxes only, no value fields.
func (f Form) Submission() Input {
	in := Input{Roles: map[string]string{}}
	for _, g := range f.Groups {
		for _, field := range g.Fields {
			switch field.Type {
			case TypeValue:
				continue
			case TypeCheckboxes:
				for _, opt := range field.Options {
					if field.Checked(opt.Value) {
						in.Roles[opt.Value] = opt.Value
					}
				}
			default:
				in.set(field.Name, field.Default)
			}
		}
	}
	return in
}

func (in *Input) set(name, value string) {
	switch name {
	case FieldAccount:
		in.Account = value
	case FieldVisibilityPages:
		in.VisibilityPages = value
	case FieldPages:
		in.Pages = value
	case FieldVisibilityRoles:
		in.VisibilityRoles = value
	}
}

const (
	accountDescription = `Your Hotjar ID can be found in your tracking code on the line <code>h._hjSettings={hjid:<b>12345</b>,hjsv:5};</code> where <code><b>12345</b></code> is your Hotjar ID`
	pagesDescription   = `Specify pages by using their paths. Enter one path per line. The '*' character is a wildcard. Example paths are <em class="placeholder">/blog</em> for the blog page and <em class="placeholder">/blog/*</em> for every personal blog. <em class="placeholder">&lt;front&gt;</em> is the front page.`
	rolesDescription   = `If none of the roles are selected, all users will be tracked. If a user has any of the roles checked, that user will be tracked (or excluded, depending on the setting above).`
)

// BuildForm describes the settings page for s. It has no side effects.
func BuildForm(s Settings, available []roles.Role) Form {
	general := Group{
		Name:  "general",
		Title: "General settings",
		Open:  true,
		Fields: []Field{{
			Name:        FieldAccount,
			Type:        TypeTextfield,
			Title:       "Hotjar ID",
			Description: template.HTML(accountDescription),
			Required:    true,
			MaxLength:   AccountMaxLength,
			Size:        15,
			Default:     s.Account,
		}},
	}

	pages := Group{Name: "page_track", Title: "Pages", Open: true}
	if s.VisibilityPages == PagesPHP {
		pages.Fields = []Field{
			{Name: FieldVisibilityPages, Type: TypeValue, Default: strconv.Itoa(int(PagesPHP))},
			{Name: FieldPages, Type: TypeValue, Default: s.Pages},
		}
	} else {
		pages.Fields = []Field{
			{
				Name:  FieldVisibilityPages,
				Type:  TypeRadios,
				Title: "Add tracking to specific pages",
				Options: []Option{
					{Value: strconv.Itoa(int(PagesExceptListed)), Label: "Every page except the listed pages"},
					{Value: strconv.Itoa(int(PagesOnlyListed)), Label: "The listed pages only"},
				},
				Default: strconv.Itoa(int(s.VisibilityPages)),
			},
			{
				Name:        FieldPages,
				Type:        TypeTextarea,
				Title:       "Pages",
				TitleHidden: true,
				Description: template.HTML(pagesDescription),
				Rows:        10,
				Default:     s.Pages,
			},
		}
	}

	roleOptions := make([]Option, 0, len(available))
	for _, r := range available {
		roleOptions = append(roleOptions, Option{Value: r.ID, Label: r.Label})
	}
	roleGroup := Group{
		Name:  "role_track",
		Title: "Roles",
		Open:  true,
		Fields: []Field{
			{
				Name:  FieldVisibilityRoles,
				Type:  TypeRadios,
				Title: "Add tracking for specific roles",
				Options: []Option{
					{Value: strconv.Itoa(int(RolesOnlySelected)), Label: "Add to the selected roles only"},
					{Value: strconv.Itoa(int(RolesExceptSelected)), Label: "Add to every role except the selected ones"},
				},
				Default: strconv.Itoa(int(s.VisibilityRoles)),
			},
			{
				Name:        FieldRoles,
				Type:        TypeCheckboxes,
				Title:       "Roles",
				Description: template.HTML(rolesDescription),
				Options:     roleOptions,
				Defaults:    slices.Clone(s.Roles),
			},
		},
	}

	return Form{
		ID:     FormID,
		Groups: []Group{general, pages, roleGroup},
	}
}

// WithInput returns a copy of f showing the submitted values instead of the
// stored ones, so a rejected submission is not lost. Value fields keep their
// stored contents.
func (f Form) WithInput(in Input) Form {
	out := Form{ID: f.ID, Groups: make([]Group, len(f.Groups))}
	for i, g := range f.Groups {
		g.Fields = slices.Clone(g.Fields)
		for j := range g.Fields {
			field := &g.Fields[j]
			switch field.Type {
			case TypeValue:
			case TypeCheckboxes:
				field.Defaults = nil
				for _, opt := range field.Options {
					if truthy(in.Roles[opt.Value]) {
						field.Defaults = append(field.Defaults, opt.Value)
					}
				}
			default:
				field.Default = in.get(field.Name)
			}
		}
		out.Groups[i] = g
	}
	return out
}

func (in Input) get(name string) string {
	switch name {
	case FieldAccount:
		return in.Account
	case FieldVisibilityPages:
		return in.VisibilityPages
	case FieldPages:
		return in.Pages
	case FieldVisibilityRoles:
		return in.VisibilityRoles
	}
	return ""
}
