package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/listing-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:               "listing-cli",
	Short:             "Harvest realtor.ca listings into a point shapefile",
	Long:              "Reads an area of interest from a KML document, pages through every realtor.ca listing inside its bounding box and writes them as a WGS-84 point shapefile.",
	PersistentPreRunE: loadConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

// loadConfig populates cfg and installs the global logger.
func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "load config")
	}
	if err := c.Validate(); err != nil {
		return eris.Wrap(err, "validate config")
	}
	if err := config.InitLogger(c.Log); err != nil {
		return eris.Wrap(err, "init logger")
	}
	cfg = c

	zap.L().Debug("config loaded",
		zap.String("command", cmd.Name()),
		zap.String("search_url", cfg.Realtor.SearchURL),
		zap.Int("page_size", cfg.Realtor.PageSize),
	)
	return nil
}

// withUsage prints the command's usage when argument validation fails.
// Runtime errors are reported without it.
func withUsage(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			_ = cmd.Usage()
			return err
		}
		return nil
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
