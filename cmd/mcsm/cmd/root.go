package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/logger"
	"github.com/oshokin/mcserver-manager/internal/output"
	"github.com/oshokin/mcserver-manager/internal/version"
)

var (
	// configPath to the mcsm.toml (or .yaml) file; its directory is the installation root.
	configPath string
	// logLevel is the minimum level written to stderr.
	logLevel string
	// outputFormat selects table, json or yaml for reports.
	outputFormat string

	// rootCmd represents the base command when called without any subcommands.
	rootCmd = &cobra.Command{
		Use:   "mcsm",
		Short: "Minecraft server and plugin manager",
		Long: "mcsm installs and updates a Purpur or Paper server together with its plugins.\n" +
			"It resolves the latest upstream builds, backs up replaced files under .bak/ and\n" +
			"records what was installed in state.toml next to the configuration.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)
			logger.DebugKV(cmd.Context(), "Starting", "version", version.Full(), "command", cmd.CommandPath())

			return nil
		},
	}
)

// Execute runs the mcsm CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), err.Error(), "kind", install.KindOf(err).String())
		os.Exit(1)
	}
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

func newFormatter(cmd *cobra.Command) (*output.Formatter, error) {
	return output.NewFormatter(cmd.OutOrStdout(), outputFormat)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", output.FormatTable, "report format (table, json, yaml)")
}
