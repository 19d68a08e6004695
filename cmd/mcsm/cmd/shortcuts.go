package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/oshokin/mcserver-manager/internal/config"
	"github.com/oshokin/mcserver-manager/internal/logger"
	"github.com/oshokin/mcserver-manager/internal/output"
	"github.com/oshokin/mcserver-manager/internal/service/launcher"
)

var (
	// shortcutName overrides the default "<server.name>-<mc_version>".
	shortcutName string

	setupCmd = &cobra.Command{
		Use:   "setup",
		Short: "Create a launcher script and a desktop or Start Menu shortcut",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			integration, handoff, err := prepareIntegration()
			if err != nil {
				return err
			}

			files, err := integration.InstallLauncher(ctx, handoff)
			if err != nil {
				return err
			}

			for _, file := range files {
				output.OK(cmd.OutOrStdout(), "Wrote %s", file)
			}

			return nil
		},
	}

	addsrvCmd = &cobra.Command{
		Use:   "addsrv",
		Short: "Start the server automatically at login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			integration, handoff, err := prepareIntegration()
			if err != nil {
				return err
			}

			registration, err := integration.RegisterAutostart(ctx, handoff)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			output.OK(w, "Registered %s (%s)", registration.Name, registration.Path)

			if registration.Hint != "" {
				output.Info(w, "Check with: %s", registration.Hint)
			}

			return nil
		},
	}

	rmsrvCmd = &cobra.Command{
		Use:   "rmsrv",
		Short: "Remove the autostart entry created by addsrv",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			integration, handoff, err := prepareIntegration()
			if err != nil {
				return err
			}

			registration, err := integration.RemoveAutostart(ctx, handoff)
			if err != nil {
				return err
			}

			if registration.Removed {
				output.OK(cmd.OutOrStdout(), "Removed %s (%s)", registration.Name, handoff.DisplayName)
			} else {
				output.Info(cmd.OutOrStdout(), "(not found) %s", registration.Path)
			}

			return nil
		},
	}

	shortcutsCmd = &cobra.Command{
		Use:   "shortcuts",
		Short: "Inspect launcher shortcuts and autostart entries",
	}

	shortcutsListCmd = &cobra.Command{
		Use:   "list",
		Short: "List shortcuts created by mcsm and mark the one of this configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			formatter, err := newFormatter(cmd)
			if err != nil {
				return err
			}

			integration, err := launcher.Detect()
			if err != nil {
				return err
			}

			report, err := launcher.ListReport(ctx, integration, expectedHandoff(ctx))
			if err != nil {
				return err
			}

			return formatter.Print(report)
		},
	}
)

// prepareIntegration loads the configuration and detects the host integration.
func prepareIntegration() (launcher.Integration, *launcher.Handoff, error) {
	cfg, _, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	integration, err := launcher.Detect()
	if err != nil {
		return nil, nil, err
	}

	return integration, launcher.HandoffFromConfig(cfg, shortcutName), nil
}

// expectedHandoff returns the shortcut of the current configuration, or nil without one.
func expectedHandoff(ctx context.Context) *launcher.Handoff {
	cfg, _, err := config.Read(configPath)
	if err != nil {
		if !errors.Is(err, config.ErrConfigNotFound) {
			logger.WarnKV(ctx, "Unable to read configuration for the expected shortcut", "error", err)
		}

		return nil
	}

	return launcher.HandoffFromConfig(cfg, "")
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	for _, command := range []*cobra.Command{setupCmd, addsrvCmd, rmsrvCmd} {
		command.Flags().StringVar(&shortcutName, "name", "", "shortcut display name (default <server.name>-<mc_version>)")
	}

	shortcutsCmd.AddCommand(shortcutsListCmd)
	rootCmd.AddCommand(setupCmd, addsrvCmd, rmsrvCmd, shortcutsCmd)
}
