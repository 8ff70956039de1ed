package templates

import (
	"bytes"
	"html/template"
	"io/fs"
	"regexp"
	"strings"
	"testing"

	"hotjar/internal/roles"
	"hotjar/internal/settings"
	"hotjar/internal/tracking"
)

var (
	scriptTagRE     = regexp.MustCompile(`(?is)<script\b([^>]*)>(.*?)</script>`)
	scriptSrcAttrRE = regexp.MustCompile(`(?i)\bsrc\s*=`)
	inlineHandlerRE = regexp.MustCompile(`(?is)\son[a-z]+\s*=`)
	javascriptURLRE = regexp.MustCompile(`(?i)javascript:`)
)

// inlineScripts returns the bodies of every <script> without a src.
func inlineScripts(src string) []string {
	var bodies []string
	for _, match := range scriptTagRE.FindAllStringSubmatch(src, -1) {
		if !scriptSrcAttrRE.MatchString(match[1]) {
			bodies = append(bodies, match[2])
		}
	}
	return bodies
}

func TestTemplateSourcesAvoidInlineJavaScript(t *testing.T) {
	entries, err := fs.ReadDir(htmlFiles, ".")
	if err != nil {
		t.Fatalf("failed to read embedded templates: %v", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".html") {
			continue
		}
		content, err := fs.ReadFile(htmlFiles, entry.Name())
		if err != nil {
			t.Fatalf("failed to read template %s: %v", entry.Name(), err)
		}
		src := string(content)

		if inlineHandlerRE.MatchString(src) {
			t.Errorf("template %s contains inline on* handlers", entry.Name())
		}
		if javascriptURLRE.MatchString(src) {
			t.Errorf("template %s contains javascript: URL", entry.Name())
		}
		if scripts := inlineScripts(src); len(scripts) != 0 {
			t.Errorf("template %s contains %d inline <script> blocks", entry.Name(), len(scripts))
		}
	}
}

// The Hotjar loader is the one inline script a served page may carry. It is
// injected through TrackingScript, never written into a template.
func TestRenderedPagesOnlyInlineTrackingScript(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to init templates: %v", err)
	}
	form := settings.BuildForm(settings.Defaults(), []roles.Role{{ID: "editor", Label: "Editor"}})

	render := func(t *testing.T, snippet template.HTML) map[string]string {
		t.Helper()
		pages := map[string]string{}
		var buf bytes.Buffer
		if err := Home.Execute(&buf, map[string]any{"TrackingScript": snippet, "SignedIn": true}); err != nil {
			t.Fatalf("failed to execute home template: %v", err)
		}
		pages["home"] = buf.String()

		buf.Reset()
		err := Settings.Execute(&buf, map[string]any{
			"Form":           form,
			"Error":          (*settings.ValidationError)(nil),
			"Token":          "tok",
			"Action":         "/admin/config/system/hotjar",
			"TrackingScript": snippet,
		})
		if err != nil {
			t.Fatalf("failed to execute settings template: %v", err)
		}
		pages["settings"] = buf.String()
		return pages
	}

	t.Run("no account", func(t *testing.T) {
		for name, out := range render(t, tracking.Script("")) {
			if scripts := inlineScripts(out); len(scripts) != 0 {
				t.Errorf("%s page has %d inline scripts without a tracking account", name, len(scripts))
			}
		}
	})

	t.Run("with account", func(t *testing.T) {
		for name, out := range render(t, tracking.Script("4242")) {
			scripts := inlineScripts(out)
			if len(scripts) != 1 {
				t.Fatalf("%s page: expected exactly the tracking script, got %d inline scripts", name, len(scripts))
			}
			if !strings.Contains(scripts[0], "hjid:4242,") || !strings.Contains(scripts[0], "https://static.hotjar.com/c/hotjar-") {
				t.Errorf("%s page: unexpected inline script %q", name, scripts[0])
			}
			if inlineHandlerRE.MatchString(out) || javascriptURLRE.MatchString(out) {
				t.Errorf("%s page contains inline handlers or javascript: URLs", name)
			}
		}
	})
}
