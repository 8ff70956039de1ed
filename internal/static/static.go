package static

import (
	"crypto/sha256"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
)

//go:embed hotjar.css
var hotjarCSS []byte

// StylesheetPath is content addressed so the asset can be cached forever.
var StylesheetPath = sync.OnceValue(func() string {
	hash := fmt.Sprintf("%x", sha256.Sum256(hotjarCSS))
	return fmt.Sprintf("/static/hotjar.%s.css", hash[:12])
})

// Register serves the stylesheet referenced by the page templates.
func Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+StylesheetPath(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		if _, err := w.Write(hotjarCSS); err != nil {
			slog.ErrorContext(r.Context(), "failed to write stylesheet", "error", err)
		}
	})
}
