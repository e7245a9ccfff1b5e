package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "0.1.0"
	buildTime = "unknown"
)

// cfgFile is the --config override shared by all commands.
var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "drip",
		Short: "Time-driven follow-up automation for leads",
		Long:  `Drip watches your leads and sends scheduled follow-ups when they sit too long in one status, escalating to you when the automation runs out of steps.`,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path (default ~/.drip/config.yaml)")

	rootCmd.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newResolveCmd(),
		newSkipCmd(),
		newLeadCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
