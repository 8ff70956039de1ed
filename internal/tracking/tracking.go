// Package tracking decides whether the Hotjar snippet belongs on a page and
// renders it.
package tracking

import (
	"context"
	"html/template"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"hotjar/internal/settings"
)

// Script generates the Hotjar tracking script HTML. Hotjar site IDs are
// numeric; anything else yields no script.
func Script(account string) template.HTML {
	if account == "" || strings.Trim(account, "0123456789") != "" {
		return ""
	}

	script := `<script type="text/javascript">
    (function(h,o,t,j,a,r){
        h.hj=h.hj||function(){(h.hj.q=h.hj.q||[]).push(arguments)};
        h._hjSettings={hjid:` + account + `,hjsv:6};
        a=o.getElementsByTagName('head')[0];
        r=o.createElement('script');r.async=1;
        r.src=t+h._hjSettings.hjid+j+h._hjSettings.hjsv;
        a.appendChild(r);
    })(window,document,'https://static.hotjar.com/c/hotjar-','.js?sv=');
</script>`

	return template.HTML(script)
}

// MatchPath reports whether path matches any line of patterns. A '*' matches
// any run of characters and <front> matches the front page. Matching ignores
// case.
func MatchPath(patterns, path, front string) bool {
	lines := settings.SplitPages(strings.TrimSpace(patterns))
	if len(lines) == 0 {
		return false
	}
	path = strings.ToLower(path)
	if front == "" {
		front = "/"
	}

	alternatives := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.ToLower(strings.TrimSpace(line))
		if line == settings.FrontToken {
			alternatives = append(alternatives, regexp.QuoteMeta("/"), regexp.QuoteMeta(strings.ToLower(front)))
			continue
		}
		alternatives = append(alternatives, strings.ReplaceAll(regexp.QuoteMeta(line), `\*`, `.*`))
	}
	re, err := regexp.Compile(`^(?:` + strings.Join(alternatives, "|") + `)$`)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// Visible applies the page rule and then the role rule. The legacy PHP page
// mode is never evaluated, so the snippet stays off while it is selected.
func Visible(s settings.Settings, path string, userRoles []string, front string) bool {
	if s.Account == "" {
		return false
	}

	switch s.VisibilityPages {
	case settings.PagesExceptListed:
		if MatchPath(s.Pages, path, front) {
			return false
		}
	case settings.PagesOnlyListed:
		if !MatchPath(s.Pages, path, front) {
			return false
		}
	default:
		return false
	}

	// no roles selected means every user
	if len(s.Roles) == 0 {
		return true
	}
	hit := slices.ContainsFunc(userRoles, func(r string) bool {
		return slices.Contains(s.Roles, r)
	})
	if s.VisibilityRoles == settings.RolesExceptSelected {
		return !hit
	}
	return hit
}

// Provider renders the snippet for a request from the current settings.
type Provider struct {
	store settings.Store
	front string
}

func NewProvider(store settings.Store, front string) *Provider {
	return &Provider{store: store, front: front}
}

func (p *Provider) Snippet(ctx context.Context, path string, userRoles []string) template.HTML {
	s, err := p.store.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load hotjar settings", "error", err)
		return ""
	}
	if !Visible(s, path, userRoles, p.front) {
		return ""
	}
	return Script(s.Account)
}
