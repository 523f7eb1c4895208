package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] file.ir",
	Short: "Parse a textual IR file into its declaration tree",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	l, err := loadFile(args[0], maxDiagnostics)
	if err != nil {
		return err
	}

	printDiagnostics(l, useColor(cmd, os.Stderr))
	if !l.astOK {
		return fmt.Errorf("parse failed")
	}
	fmt.Printf("%d alias declaration(s), %d global(s), %d function(s)\n",
		len(l.ast.Aliases), len(l.ast.Globals), len(l.ast.Funcs))
	return nil
}
