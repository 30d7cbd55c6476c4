package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default $XDG_CONFIG_HOME/alicia/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

var rootCmd = &cobra.Command{
	Use:   "alicia",
	Short: "Chat with AI models from the browser or the terminal",
	Long: `alicia serves a web chat page backed by configurable AI models and
renders replies as safe HTML with code blocks and long-reply folding.

Examples:
  alicia serve                          # web UI on http://127.0.0.1:8080
  alicia ask "explain goroutines"       # one-shot question in the terminal
  alicia render notes.md                # markdown to HTML fragment
  alicia render --plain notes.md        # markdown to speech text
  alicia history -c <conversation>      # show a stored conversation
  alicia config                         # effective configuration`,
	SilenceUsage:      true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
