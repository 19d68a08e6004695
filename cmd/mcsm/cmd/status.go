package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/mcserver-manager/internal/output"
	"github.com/oshokin/mcserver-manager/internal/service/status"
)

var (
	// statusCheck resolves a fresh plan.
	statusCheck bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show installed versions and verify files against state.toml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			formatter, err := newFormatter(cmd)
			if err != nil {
				return err
			}

			report, err := status.Run(ctx, &status.Options{
				ConfigPath: configPath,
				Check:      statusCheck,
			})
			if err != nil {
				return err
			}

			if err = formatter.Print(report); err != nil {
				return err
			}

			if formatter.IsTable() && report.LastChecked != "" {
				output.Info(formatter.Writer(), "Last apply: %s", report.LastChecked)
			}

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "also resolve upstream and show what update would do")

	rootCmd.AddCommand(statusCmd)
}
