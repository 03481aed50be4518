package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/mcpds/mcpds-setup/pkg/controller"

	"github.com/spf13/cobra"
)

var (
	setupVerbose       bool
	setupQuiet         bool
	setupLogFile       string
	setupTraceEndpoint string
	setupNoRestart     bool
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Provision the MCP server and register it with Claude Desktop",
	Long: `Runs every provisioning stage in order:

  toolchain      install uv if it is missing
  venv           create the virtual environment
  sync           install the project dependencies
  host-app       check that Claude Desktop is installed
  config-load    read the Claude Desktop config
  build          build the package wheel
  config-update  register the server entry
  restart        restart Claude so it rereads its config

Stages that need consent ask first. Declining a required step stops the run
without touching the Claude config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd)
	},
}

func init() {
	addSetupFlags(setupCmd)
}

func addSetupFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&setupVerbose, "verbose", "v", false, "Show debug logs")
	cmd.Flags().BoolVarP(&setupQuiet, "quiet", "q", false, "Suppress the banner, progress output and the stage summary")
	cmd.Flags().StringVar(&setupLogFile, "log-file", "", "Also write JSON logs to this file (rotated)")
	cmd.Flags().StringVar(&setupTraceEndpoint, "trace-endpoint", "", "OTLP/HTTP endpoint to export stage traces to")
	cmd.Flags().BoolVar(&setupNoRestart, "no-restart", false, "Do not restart Claude after updating its config")
}

func runSetup(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctrl := controller.New(controller.Config{
		SettingsPath:  settingsPath,
		WorkDir:       workDir,
		Verbose:       setupVerbose,
		Quiet:         setupQuiet,
		LogFile:       setupLogFile,
		TraceEndpoint: setupTraceEndpoint,
		NoRestart:     setupNoRestart,
	}, controller.WithIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()))
	ctrl.SetVersion(version)
	_, err := ctrl.Setup(ctx)
	return err
}
