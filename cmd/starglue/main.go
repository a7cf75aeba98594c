package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/starglue/starglue/cmd/starglue/commands"
	"github.com/starglue/starglue/pkg/telemetry"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	setupLogging()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("Received interrupt signal, shutting down...")
		cancel()
	}()

	if err := commands.Execute(ctx, Version, Commit, BuildDate); err != nil {
		log.Error().Err(err).Msg("Command execution failed")
		os.Exit(1)
	}
}

// setupLogging configures the global logger before any config file is
// read. The same construction path handles config-driven loggers later.
func setupLogging() {
	logger, err := telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "console",
	})
	if err != nil {
		// Unknown LOG_LEVEL; fall back to the defaults.
		logger, _ = telemetry.NewLogger(telemetry.LoggingConfig{Format: "console"})
	}
	log.Logger = logger
}
