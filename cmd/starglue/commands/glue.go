package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/starglue/starglue/pkg/backend"
	"github.com/starglue/starglue/pkg/config"
	"github.com/starglue/starglue/pkg/glue"
	"github.com/starglue/starglue/pkg/script"
	"github.com/starglue/starglue/pkg/telemetry"
)

func newGlueCommand() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "glue [path...]",
		Short: "Load glue paths and list the registered definitions",
		Long: `Load the given glue paths (or the configured ones) exactly as the host
runner would, and print every step definition and hook that registered,
with its source location. Useful for checking what a glue tree declares
without running a suite.`,
		Example: `  # List glue under the default features/steps
  starglue glue

  # List glue under specific paths
  starglue glue ./features/steps ./support

  # Reload and re-list whenever a .star file changes
  starglue glue --watch ./features/steps`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			paths := cfg.GluePaths
			if len(args) > 0 {
				paths = args
			}

			logger := cliLogger(cfg)
			if err := listGlue(cmd.Context(), cfg, paths, logger); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			watcher, err := script.NewWatcher(paths, logger)
			if err != nil {
				return err
			}
			return watcher.Run(cmd.Context(), func(changed string) {
				logger.Info().Str("path", changed).Msg("Glue changed, reloading")
				// A backend loads glue once; a change means a fresh one.
				if err := listGlue(cmd.Context(), cfg, paths, logger); err != nil {
					logger.Error().Err(err).Msg("Reload failed")
				}
			})
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "reload and re-list on glue changes")

	return cmd
}

func listGlue(ctx context.Context, cfg *config.Config, paths []string, logger zerolog.Logger) error {
	table := glue.NewTable()
	b := backend.New(backend.Options{
		Glue:                 table,
		DefaultTimeoutMillis: cfg.DefaultTimeoutMillis,
		Logger:               logger,
	})

	if err := b.LoadGlue(ctx, paths); err != nil {
		return err
	}

	steps := table.Steps()
	fmt.Printf("Steps (%d):\n", len(steps))
	for _, def := range steps {
		fmt.Printf("  %-40s  %s\n", def.Pattern(), def.Location())
	}

	for _, kind := range []glue.HookKind{glue.BeforeScenario, glue.AfterScenario, glue.BeforeStep, glue.AfterStep} {
		hooks := table.Hooks(kind)
		if len(hooks) == 0 {
			continue
		}
		fmt.Printf("Hooks [%s] (%d):\n", kind, len(hooks))
		for _, def := range hooks {
			fmt.Printf("  order=%-4d timeout=%-6dms  %s\n", def.Order(), def.TimeoutMillis(), def.Location())
		}
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// cliLogger builds the command's logger from the config's logging section,
// with --verbose overriding the level.
func cliLogger(cfg *config.Config) zerolog.Logger {
	lc := cfg.Logging
	lc.Format = "console"
	if verbose {
		lc.Level = "debug"
	}
	logger, err := telemetry.NewLogger(lc)
	if err != nil {
		logger, _ = telemetry.NewLogger(telemetry.LoggingConfig{Format: "console"})
	}
	return logger
}
