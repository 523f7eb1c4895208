package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"irl/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show irl build fingerprints",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("irl %s\n", version.Version)
		if version.GitCommit != "" {
			fmt.Printf("commit: %s\n", version.GitCommit)
		}
		if version.BuildDate != "" {
			fmt.Printf("built:  %s\n", version.BuildDate)
		}
		return nil
	},
}
