// Package commands implements the rollcat CLI commands.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/rollcache/internal/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "rollcat",
	Short:         "Read objects through the rolling prefetch cache",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/rollcache/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "override the configured log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(benchCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func initLoggerFromFlags(cmd *cobra.Command) {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		return
	}
	logger.SetLevel(level)
}
