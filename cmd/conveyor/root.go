package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conveyor",
	Short: "Conveyor runs trunk-triggered release pipelines",
	Long: `Conveyor executes a declared release pipeline: matrix verification,
a release decision read from git history, and a conditional publish
fan-out across operating systems.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "conveyor.yaml", "Pipeline declaration file")
	rootCmd.PersistentFlags().String("repo", ".", "Working copy whose git history feeds the release decision")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
