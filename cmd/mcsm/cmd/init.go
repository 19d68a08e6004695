package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/domain/install"
	"github.com/oshokin/mcserver-manager/internal/output"
)

var (
	// initOut is where init writes the template.
	initOut string
	// initForce overwrites an existing file.
	initForce bool

	initCmd = &cobra.Command{
		Use:       "init <purpur|paper>",
		Short:     "Write a commented configuration template",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{install.PlatformPurpur, install.PlatformPaper},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := initOut
			if target == "" {
				target = configPath
			}

			if err := config.WriteTemplate(target, args[0], initForce); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			output.OK(w, "Wrote %s", target)
			output.Step(w, "Next steps:")
			output.Info(w, "edit mc_version, user_agent and server.name in %s", target)
			output.Info(w, "mcsm install %s <mc_version> --accept-eula", args[0])

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().StringVar(&initOut, "out", "", "output path (defaults to --config)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(initCmd)
}
