package main

import (
	"encoding/json"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"
	"github.com/spf13/cobra"

	"github.com/loopforge/conveyor"
	"github.com/loopforge/conveyor/internal/logging"
	"github.com/loopforge/conveyor/pkg/config"
	"github.com/loopforge/conveyor/pkg/domain"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the pipeline for one trigger",
	Long: `Loads the pipeline declaration and runs it for a trunk push. The
branch and commit default to the repository HEAD.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runPipeline(cmd); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("branch", "", "Trigger branch (default: repository HEAD)")
	runCmd.Flags().String("commit", "", "Trigger commit SHA (default: repository HEAD)")
	runCmd.Flags().Bool("json", false, "Print the run summary as JSON")
}

func runPipeline(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	repoPath, _ := cmd.Flags().GetString("repo")
	level, _ := cmd.Flags().GetString("log-level")
	branch, _ := cmd.Flags().GetString("branch")
	commit, _ := cmd.Flags().GetString("commit")
	jsonOut, _ := cmd.Flags().GetBool("json")

	pipeline, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if branch == "" || commit == "" {
		headBranch, headCommit, err := resolveHead(repoPath)
		if err != nil {
			return fmt.Errorf("resolving trigger from HEAD: %w", err)
		}
		if branch == "" {
			branch = headBranch
		}
		if commit == "" {
			commit = headCommit
		}
	}

	logger := logging.New(logging.ParseLevel(level))
	eng, err := conveyor.New(pipeline, repoPath, conveyor.WithLogger(logger))
	if err != nil {
		return err
	}

	summary, err := eng.Run(cmd.Context(), domain.Trigger{Branch: branch, Commit: commit})
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			return err
		}
	} else {
		printSummary(summary)
	}

	if !summary.Success {
		os.Exit(1)
	}
	return nil
}

func resolveHead(repoPath string) (branch, commit string, err error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", "", err
	}
	return head.Name().Short(), head.Hash().String(), nil
}

func printSummary(summary *domain.RunSummary) {
	fmt.Printf("run %s\n", summary.ID)
	for _, stage := range summary.Stages {
		fmt.Printf("  %-12s %s", stage.Name, stage.Status)
		if stage.Err != "" {
			fmt.Printf(" (%s)", stage.Err)
		}
		fmt.Println()
		if v, ok := stage.Outputs[domain.KeyVersion]; ok {
			fmt.Printf("    version: %s\n", v)
		}
		for _, cr := range stage.Contexts {
			fmt.Printf("    %-28s %s", cr.Context.Label(), cr.Status)
			if cr.Err != "" {
				fmt.Printf(" (%s)", cr.Err)
			}
			fmt.Println()
		}
	}
	if summary.Success {
		fmt.Println("run succeeded")
	} else {
		fmt.Println("run failed")
	}
}
