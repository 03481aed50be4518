package main

import (
	"fmt"

	"github.com/mcpds/mcpds-setup/pkg/controller"
	"github.com/mcpds/mcpds-setup/pkg/logging"

	"github.com/spf13/cobra"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Show the locations setup would use",
	Long:  "Resolves the settings and prints every path a setup run touches. Nothing is changed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPaths(cmd)
	},
}

func runPaths(cmd *cobra.Command) error {
	ctrl := controller.New(controller.Config{
		SettingsPath: settingsPath,
		WorkDir:      workDir,
	})
	settings, paths, err := ctrl.Resolve(logging.NewDiscardLogger())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "server:   %s\n", settings.ServerName)
	fmt.Fprintf(out, "workdir:  %s\n", paths.WorkDir)
	fmt.Fprintf(out, "venv:     %s\n", paths.VenvDir)
	fmt.Fprintf(out, "dist:     %s\n", paths.DistDir)
	fmt.Fprintf(out, "app:      %s\n", paths.AppPath)
	fmt.Fprintf(out, "config:   %s\n", paths.ConfigPath)
	return nil
}
