// Package main implements the storyweaver CLI: a five-stage story generation
// pipeline with shared embedded memory.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the config file location, empty for the default.
	configPath string

	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "storyweaver",
	Short: "Multi-agent story generation pipeline",
	Long: `storyweaver runs a fixed five-stage content pipeline: story direction,
character development, scene building, soundtrack metadata and quality
assessment. Every stage's output is recorded in a shared memory store with
embedding-based recall; feedback feeds per-agent learning statistics.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default ~/.config/storyweaver/config.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resetCmd)
}
