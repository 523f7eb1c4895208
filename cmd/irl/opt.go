package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"irl/internal/config"
	"irl/internal/ir"
	"irl/internal/pipeline"
)

var optCmd = &cobra.Command{
	Use:   "opt [flags] file.ir",
	Short: "Run the optimization pipeline over a textual IR file",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpt,
}

func init() {
	optCmd.Flags().String("passes", "", "comma-separated pass list overriding the default pipeline")
	optCmd.Flags().Int("max-iterations", 0, "cap the fixed-point loop (0 uses the default budget)")
	optCmd.Flags().Bool("no-ui", false, "disable the progress UI and print a plain summary")
	optCmd.Flags().Bool("print", false, "print the optimized textual IR on success")
}

func resolvePipelineOptions(cmd *cobra.Command, dir string) pipeline.Options {
	opts := pipeline.Options{}
	if m, ok, err := config.LoadFromDir(dir); err == nil && ok {
		opts.Passes = m.Pipeline.Passes
		opts.MaxIterations = m.Pipeline.MaxRounds
		opts.MaxPasses = m.Budget.MaxPasses
		opts.MaxMutations = m.Budget.MaxMutations
	}
	if passes, _ := cmd.Flags().GetString("passes"); passes != "" {
		opts.Passes = strings.Split(passes, ",")
	}
	if maxIter, _ := cmd.Flags().GetInt("max-iterations"); maxIter > 0 {
		opts.MaxIterations = maxIter
	}
	return opts
}

func runOpt(cmd *cobra.Command, args []string) error {
	maxDiagnostics, _ := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	l, err := loadFile(args[0], maxDiagnostics)
	if err != nil {
		return err
	}
	if !l.astOK || !l.progOK {
		printDiagnostics(l, useColor(cmd, os.Stderr))
		return fmt.Errorf("build failed")
	}
	verifyAll(l.prog, l.bag)
	printDiagnostics(l, useColor(cmd, os.Stderr))
	if l.bag.HasErrors() {
		return fmt.Errorf("build failed verification")
	}

	opts := resolvePipelineOptions(cmd, filepath.Dir(args[0]))

	noUI, _ := cmd.Flags().GetBool("no-ui")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	var res pipeline.Result
	if noUI || quiet || !isTerminal(os.Stdout) {
		res = pipeline.RunWithOptions(context.Background(), l.prog, nil, opts)
	} else {
		res = runPipelineWithUI(context.Background(), "optimizing "+args[0], []string{args[0]}, l.prog, opts)
	}

	for _, pp := range res.PanicsFound {
		fmt.Fprintf(os.Stderr, "pass %s: %v\n", pp.Pass, pp.Err)
	}
	for _, f := range res.BudgetExceeded {
		fmt.Fprintf(os.Stderr, "%s: pass budget exceeded, stopped at the last verified state\n", f)
	}

	shouldPrint, _ := cmd.Flags().GetBool("print")
	if shouldPrint {
		fmt.Print(ir.Print(l.prog, l.strs))
	} else if !quiet {
		fmt.Printf("%d iteration(s), %d pass invocation(s), %d panic(s)\n", res.Iterations, len(res.PassesRun), len(res.PanicsFound))
	}
	return nil
}
