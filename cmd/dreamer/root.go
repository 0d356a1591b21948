package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/dreamer/config"
)

var cfgFile string

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dreamer",
		Short:         "A tagged-message agent that thinks, acts and remembers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $DREAMER_CONFIG)")

	cmd.AddCommand(chatCmd())
	cmd.AddCommand(memoriesCmd())
	return cmd
}

// resolveConfigPath prefers the flag, then DREAMER_CONFIG. An empty result
// loads defaults and environment only.
func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return os.Getenv("DREAMER_CONFIG")
}

func loadConfig() (*config.Config, error) {
	return config.Load(resolveConfigPath())
}
