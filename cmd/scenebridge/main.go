package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tailored-agentic-units/scenebridge/host"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to host config JSON file")
		addr       = flag.String("addr", "", "RPC listen address (overrides config)")
		script     = flag.String("script", "", "Lua script to run after the scene is built (overrides config)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	cfg, err := host.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *script != "" {
		cfg.Script.Path = *script
	}

	level := cfg.SlogLevel()
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := host.SetupTracing(ctx, cfg.Telemetry)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	h, err := host.New(cfg, host.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create host: %v", err)
	}
	defer h.Close()

	ids, err := h.BuildDefaultScene()
	if err != nil {
		log.Fatalf("Failed to build scene: %v", err)
	}
	fmt.Printf("window=%d renderer=%d interactor=%d\n", ids.Window, ids.Renderer, ids.Interactor)

	serveErr := make(chan error, 1)
	go func() { serveErr <- h.Serve(ctx) }()

	if err := h.RunScript(ctx); err != nil {
		logger.Error("script failed", "error", err)
	}

	if err := <-serveErr; err != nil {
		log.Fatalf("RPC server failed: %v", err)
	}
}
