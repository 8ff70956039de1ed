package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"hotjar/internal/config"
	"hotjar/internal/telemetry"
)

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "", "Address to bind (overrides ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if addr != "" {
		cfg.Addr = addr
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, cfg, os.Stderr)
	if err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}

	runErr := runServer(ctx, cfg)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(flushCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	if runErr != nil {
		slog.Error("server error", "error", runErr)
		os.Exit(1)
	}
}
