package templates

import (
	"embed"
	"html/template"

	"hotjar/internal/settings"
	"hotjar/internal/static"
)

//go:embed *.html
var htmlFiles embed.FS

var Home,
	Settings *template.Template

func Init() error {
	funcs := template.FuncMap{
		"RoleFieldName":  settings.RoleFieldName,
		"StylesheetPath": static.StylesheetPath,
	}
	tmpls, err := template.New("all").Funcs(funcs).ParseFS(htmlFiles, "*.html")
	if err != nil {
		return err
	}
	Home = ensure(tmpls, "home.html")
	Settings = ensure(tmpls, "settings.html")
	return nil
}

func ensure(templates *template.Template, name string) *template.Template {
	tmpl := templates.Lookup(name)
	if tmpl == nil {
		panic("template " + name + " not found")
	}
	return tmpl
}
