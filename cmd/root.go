package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/inoreader-mcp/internal/config"
)

// rootCmd represents the base command for the inoreader-mcp application
var rootCmd = &cobra.Command{
	Use:   "inoreader-mcp",
	Short: "MCP server for the Inoreader feed reader",
	Long: `inoreader-mcp exposes the Inoreader REST API as Model Context Protocol
tools, so AI assistants can read streams, manage subscriptions and tags, and
mark articles read or starred.

Authenticate once with 'inoreader-mcp auth login', then run 'inoreader-mcp serve'
(the default when no subcommand is given).`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// configPath is the --config persistent flag.
var configPath string

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inoreader-mcp version %s\n" .Version}}`)

	// An MCP client launches the binary without arguments
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the YAML config file (default: $XDG_CONFIG_HOME/inoreader-mcp/config.yaml). Can also use INOREADER_CONFIG env var.")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// loadConfig resolves the configuration for the current invocation.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
