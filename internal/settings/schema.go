package settings

import "github.com/invopop/jsonschema"

// Schema describes the stored hotjar.settings document.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{DoNotReference: true}
	s := r.Reflect(&Settings{})
	s.Title = ConfigName
	s.Description = "Hotjar tracking settings"
	return s
}
