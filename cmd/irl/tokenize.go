package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.ir",
	Short: "Tokenize a textual IR file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func runTokenize(cmd *cobra.Command, args []string) error {
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	l, tokens, err := loadTokens(args[0], maxDiagnostics)
	if err != nil {
		return err
	}

	printDiagnostics(l, useColor(cmd, os.Stderr))
	for _, tok := range tokens {
		start, _ := l.fs.Resolve(tok.Span)
		fmt.Printf("%d:%d %s %q\n", start.Line, start.Col, tok.Kind, tok.Text)
	}
	if l.bag.HasErrors() {
		return fmt.Errorf("tokenization reported errors")
	}
	return nil
}
