package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/output"
	"github.com/oshokin/mcserver-manager/internal/service/listing"
)

var listCmd = &cobra.Command{
	Use:       "list <purpur|paper> [mc_version]",
	Short:     "Show the latest server build and plugin versions without installing",
	Args:      cobra.RangeArgs(1, 2), //nolint:mnd // Platform and optional version.
	ValidArgs: []string{install.PlatformPurpur, install.PlatformPaper},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		formatter, err := newFormatter(cmd)
		if err != nil {
			return err
		}

		options := &listing.Options{
			ConfigPath: configPath,
			Platform:   args[0],
		}

		if len(args) > 1 {
			options.MCVersion = args[1]
		}

		report, err := listing.Run(ctx, options)
		if err != nil {
			return err
		}

		if err = formatter.Print(report); err != nil {
			return err
		}

		if formatter.IsTable() {
			for _, problem := range report.Errors() {
				output.Warn(formatter.Writer(), "%s", problem)
			}
		}

		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(listCmd)
}
