package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"irl/internal/ir"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] file.ir [file2.ir ...]",
	Short: "Build and SSA-verify one or more textual IR files, concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().Bool("print", false, "print the round-tripped textual IR on success")
}

// runBuild loads every argument concurrently (each file compiles
// independently — this grammar has no cross-file imports to serialize on)
// and reports results in argument order once every load has finished.
func runBuild(cmd *cobra.Command, args []string) error {
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	loadedFiles := make([]*loaded, len(args))

	g, _ := errgroup.WithContext(cmd.Context())
	for i, path := range args {
		i, path := i, path
		g.Go(func() error {
			l, err := loadFile(path, maxDiagnostics)
			if err != nil {
				return err
			}
			loadedFiles[i] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	shouldPrint, _ := cmd.Flags().GetBool("print")
	colored := useColor(cmd, os.Stderr)

	anyFailed := false
	totalGlobals, totalFuncs := 0, 0
	for i, l := range loadedFiles {
		if !l.astOK || !l.progOK {
			printDiagnostics(l, colored)
			anyFailed = true
			continue
		}
		verifyAll(l.prog, l.bag)
		printDiagnostics(l, colored)
		if l.bag.HasErrors() {
			anyFailed = true
			continue
		}
		totalGlobals += len(l.prog.Globals)
		totalFuncs += len(l.prog.Funcs)
		if shouldPrint {
			if len(args) > 1 {
				fmt.Printf("--- %s ---\n", args[i])
			}
			fmt.Print(ir.Print(l.prog, l.strs))
		}
	}
	if anyFailed {
		return fmt.Errorf("build failed for one or more files")
	}
	if !shouldPrint {
		fmt.Printf("%d file(s): %d global(s), %d function(s), verified\n", len(args), totalGlobals, totalFuncs)
	}
	return nil
}
