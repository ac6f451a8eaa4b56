package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loopforge/conveyor/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the pipeline declaration for consistency",
	Long: `Parses the pipeline file and reports declaration faults: unknown
stage kinds, dangling dependencies, guards outside the dependency set and
operating systems without an upload target.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		if len(args) > 0 {
			configPath = args[0]
		}

		pipeline, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		if err := pipeline.Validate(); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Pipeline is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
