package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calmate application
var rootCmd = &cobra.Command{
	Use:   "calmate",
	Short: "Conversational scheduling assistant for Google Calendar",
	Long: `calmate books Google Calendar meetings from natural-language requests.

It can run as:
  - An HTTP API with a chat endpoint backed by an LLM (serve)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// debugMode forces debug logging regardless of LOG_LEVEL.
var debugMode bool

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calmate version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newExtractCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
	rootCmd.AddCommand(newVersionCmd())
}
