// eroom generates escape-room asset bundles: scenario narrative, per-object
// scripts, and 3D models, fanned out behind a bounded job queue.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/eroom/pkg/api"
	"github.com/codeready-toolchain/eroom/pkg/config"
	"github.com/codeready-toolchain/eroom/pkg/jobstore"
	"github.com/codeready-toolchain/eroom/pkg/llmclient"
	"github.com/codeready-toolchain/eroom/pkg/mesh"
	"github.com/codeready-toolchain/eroom/pkg/meshclient"
	"github.com/codeready-toolchain/eroom/pkg/orchestrator"
	"github.com/codeready-toolchain/eroom/pkg/queue"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	configFile := flag.String("config-file",
		getEnv("CONFIG_FILE", ""),
		"Path to a YAML config file overriding the built-in defaults")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	rotator := mesh.LoadKeyRotatorFromEnv()
	if !rotator.HasKeys() {
		slog.Warn("No MESHY_API_KEY configured; model generation will short-circuit with hard errors")
	}

	meshDriver := mesh.NewDriver(meshclient.New(), rotator, cfg.Mesh)
	llm := llmclient.New()

	orch := orchestrator.New(llm, meshDriver, cfg)
	store := jobstore.New()
	manager := queue.New(cfg.Queue, orch, store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	manager.Start(ctx)
	slog.Info("Queue started", "worker_count", cfg.Queue.WorkerCount)

	server := api.NewServer(manager, store)

	httpPort := getEnv("HTTP_PORT", "8080")
	go func() {
		slog.Info("HTTP server listening", "port", httpPort)
		if err := server.Start(":" + httpPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	manager.Shutdown()
	slog.Info("Shutdown complete")
}
