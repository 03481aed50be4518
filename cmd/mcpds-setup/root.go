package main

import (
	"github.com/spf13/cobra"
)

var (
	settingsPath string
	workDir      string
)

var rootCmd = &cobra.Command{
	Use:   "mcpds-setup",
	Short: "Install mcp-server-ds and register it with Claude Desktop",
	Long: `Prepares this machine to run the mcp-server-ds MCP server.

Installs uv if needed, creates the project's virtual environment, builds the
package wheel and registers the server in the Claude Desktop configuration.
Claude is restarted afterwards so it picks up the change.

Running without a subcommand is the same as "mcpds-setup setup".`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "config", "c", "", "Settings file (default: mcpds-setup.yaml in the project directory, if present)")
	rootCmd.PersistentFlags().StringVarP(&workDir, "workdir", "C", "", "Project directory (default: current directory)")
	addSetupFlags(rootCmd)

	rootCmd.SetVersionTemplate(`{{printf "mcpds-setup version %s\n" .Version}}`)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(pathsCmd)
	rootCmd.AddCommand(versionCmd)
}
