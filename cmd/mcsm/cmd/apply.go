package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/service/apply"
)

var (
	// acceptEULA writes eula.txt after a successful apply.
	acceptEULA bool
	// dryRun stops update before anything is changed.
	dryRun bool

	installCmd = &cobra.Command{
		Use:   "install <purpur|paper> <mc_version>",
		Short: "Install the server and every default target, creating or patching the configuration",
		Long: "install writes or patches mc_version and server.type in the configuration, then\n" +
			"downloads the server and all default targets unconditionally. Replaced files are\n" +
			"moved to .bak/<timestamp>/ first.",
		Args:      cobra.ExactArgs(2), //nolint:mnd // Platform and version.
		ValidArgs: []string{install.PlatformPurpur, install.PlatformPaper},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, &apply.Options{
				Mode:      install.ModeInstall,
				Platform:  args[0],
				MCVersion: args[1],
			})
		},
	}

	updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Update artifacts whose upstream version changed or whose file is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runApply(cmd, &apply.Options{
				Mode:   install.ModeUpdate,
				DryRun: dryRun,
			})
		},
	}
)

func runApply(cmd *cobra.Command, options *apply.Options) error {
	ctx, stop := signalContext()
	defer stop()

	formatter, err := newFormatter(cmd)
	if err != nil {
		return err
	}

	options.ConfigPath = configPath
	options.AcceptEULA = acceptEULA

	result, err := apply.Run(ctx, options)
	if err != nil {
		return err
	}

	if err = formatter.Print(result); err != nil {
		return err
	}

	if formatter.IsTable() {
		apply.PrintSummary(formatter.Writer(), result)
	}

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	installCmd.Flags().BoolVar(&acceptEULA, "accept-eula", false, "write eula.txt (you accept the Minecraft EULA)")
	updateCmd.Flags().BoolVar(&acceptEULA, "accept-eula", false, "write eula.txt (you accept the Minecraft EULA)")
	updateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show decisions without backing up or downloading")

	rootCmd.AddCommand(installCmd, updateCmd)
}
