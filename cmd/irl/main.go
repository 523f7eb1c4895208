// Command irl is the toolchain front end for the IR graph this module
// implements: tokenize, parse, build, optimize, and interpret a textual IR
// program.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"irl/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "irl",
	Short: "IRL toolchain: parse, optimize, and run a CFG/SSA program graph",
	Long:  "irl tokenizes, parses, builds, optimizes, and interprets textual IR programs.",
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(tokenizeCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(optCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize diagnostics (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
