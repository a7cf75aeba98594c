package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starglue/starglue/pkg/config"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [config-file]",
		Short: "Validate a starglue configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("no config file given (use an argument or --config)")
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			fmt.Printf("%s is valid: %d glue path(s), default timeout %dms\n",
				path, len(cfg.GluePaths), cfg.DefaultTimeoutMillis)
			return nil
		},
	}
	return cmd
}
