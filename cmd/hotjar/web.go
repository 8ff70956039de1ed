package main

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hotjar/internal/admin"
	"hotjar/internal/auth"
	"hotjar/internal/cache"
	"hotjar/internal/config"
	"hotjar/internal/history"
	"hotjar/internal/notify"
	"hotjar/internal/roles"
	"hotjar/internal/settings"
	"hotjar/internal/static"
	"hotjar/internal/templates"
	"hotjar/internal/tracking"
)

func runServer(ctx context.Context, cfg *config.Config) error {
	store, err := cache.MakeCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create cache: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	authClient, err := auth.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create auth client: %w", err)
	}

	handler, err := newHandler(cfg, store, authClient)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	go func() {
		slog.Info("Serving hotjar settings", "address", cfg.Addr, "storage", cfg.Storage.Backend)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		slog.Info("Shutdown signal received", "signal", sig)
		return gracefulShutdown(server)
	}
}

// newHandler wires every route. It is shared by runServer and the tests.
func newHandler(cfg *config.Config, store cache.ListCache, authClient auth.AuthClient) (http.Handler, error) {
	if err := templates.Init(); err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	registry := roles.NewStaticRegistry(cfg.Roles...)
	settingsStore := settings.NewCacheStore(store, registry)
	recorder := history.NewRecorder(store)
	editor := settings.NewEditor(settingsStore, notify.FromConfig(cfg), recorder)
	provider := tracking.NewProvider(settingsStore, cfg.FrontPage)

	mux := http.NewServeMux()
	authClient.Register(mux)
	static.Register(mux)
	admin.NewHandler(editor, settingsStore, provider, authClient, recorder).Register(mux, admin.New(cfg, authClient))

	ro := &readyOnce{}
	ro.Add(settingsStore)
	if r, ok := store.(Readyable); ok {
		ro.Add(r)
	}
	mux.Handle("GET /ready", ro)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_, err := authClient.GetUserIDFromRequest(r)
		data := struct {
			TrackingScript template.HTML
			SignedIn       bool
		}{
			TrackingScript: provider.Snippet(ctx, r.URL.Path, auth.RequestRoles(authClient, r)),
			SignedIn:       err == nil,
		}
		if err := templates.Home.Execute(w, data); err != nil {
			slog.ErrorContext(ctx, "home template execute error", "error", err)
			http.Error(w, "template error", http.StatusInternalServerError)
		}
	})

	return authClient.WithAuthHTTP(WithMiddleware(mux)), nil
}

func gracefulShutdown(svr *http.Server) error {
	// Give outstanding requests 25 seconds to complete (kubernetes has 30 second grace period)
	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := svr.Shutdown(ctx); err != nil {
		slog.Error("Server shutdown error", "error", err)
		if closeErr := svr.Close(); closeErr != nil {
			slog.Error("Server close error", "error", closeErr)
		}
		return err
	}
	return nil
}
