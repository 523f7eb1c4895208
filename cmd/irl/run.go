package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"irl/internal/cache"
	"irl/internal/config"
	"irl/internal/interp"
	"irl/internal/ir"
	"irl/internal/pipeline"
	"irl/internal/symbols"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] file.ir",
	Short: "Optimize and interpret a textual IR file's entry function",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("entry", "", "entry function to run, overriding [package].entry")
	runCmd.Flags().Bool("no-optimize", false, "skip the optimization pipeline and interpret the graph as built")
	runCmd.Flags().Bool("no-ui", false, "disable the progress UI and print a plain summary")
	runCmd.Flags().Bool("no-cache", false, "bypass the on-disk run cache")
}

func runRun(cmd *cobra.Command, args []string) error {
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

	dir := filepath.Dir(args[0])
	manifest, hasManifest, _ := config.LoadFromDir(dir)

	entry, _ := cmd.Flags().GetString("entry")
	if entry == "" && hasManifest {
		entry = manifest.Package.Entry
	}
	if entry == "" {
		entry = "main"
	}
	entry = strings.TrimPrefix(entry, "@")

	noOptimize, _ := cmd.Flags().GetBool("no-optimize")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")

	opts := pipeline.Options{}
	if !noOptimize {
		opts = resolvePipelineOptions(cmd, dir)
	}
	resolvedConfig := fmt.Sprintf("entry=%s;optimize=%v;passes=%s", entry, !noOptimize, strings.Join(opts.Passes, ","))

	srcBytes, readErr := os.ReadFile(args[0])
	if readErr != nil {
		return fmt.Errorf("rereading %s for cache key: %w", args[0], readErr)
	}

	var runCache *cache.Cache
	var key cache.Digest
	if !noCache {
		if c, err := cache.Open("irl"); err == nil {
			runCache = c
			key = cache.Key(string(srcBytes), resolvedConfig)
			var cached cache.Payload
			if hit, err := runCache.Get(key, &cached); err == nil && hit {
				printRunResult(cached.GlobalNames, cached.GlobalValues, cached.Executed, cached.Cycles, quiet)
				return nil
			}
		}
	}

	if !noOptimize {
		noUI, _ := cmd.Flags().GetBool("no-ui")
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
	}

	mainSym := symbols.Global(l.strs.Intern(entry))
	result, err := interp.Run(l.prog, l.strs, mainSym)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	names := make([]string, 0, len(result.Globals))
	values := make([]int64, 0, len(result.Globals))
	for sym, v := range result.Globals {
		names = append(names, sym.String(l.strs))
		values = append(values, v)
	}

	if runCache != nil {
		_ = runCache.Put(key, &cache.Payload{
			PrintedIR:    ir.Print(l.prog, l.strs),
			GlobalNames:  names,
			GlobalValues: values,
			Executed:     result.Executed,
			Cycles:       result.Cycles,
		})
	}

	printRunResult(names, values, result.Executed, result.Cycles, quiet)
	return nil
}

func printRunResult(names []string, values []int64, executed, cycles int64, quiet bool) {
	if quiet {
		return
	}
	for i, name := range names {
		fmt.Printf("%s = %d\n", name, values[i])
	}
	fmt.Printf("executed=%d cycles=%d\n", executed, cycles)
}
