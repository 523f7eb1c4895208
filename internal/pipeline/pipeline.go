// Package pipeline drives the default optimization pipeline over an
// ir.Program: SCCP -> CopyProp -> DCE -> GVN -> GVN-PRE -> CopyProp -> DCE
// -> OSR -> DCE, iterated to a fixed point or a pass-count budget,
// recovering an ir.InvariantViolation panic from any one pass at the pass
// boundary rather than letting it escape the driver. Progress is reported
// on an Event channel consumed by internal/ui's bubbletea model from a
// background goroutine.
package pipeline

import (
	"context"
	"fmt"

	"irl/internal/gvn"
	"irl/internal/ir"
	"irl/internal/osr"
	"irl/internal/pre"
	"irl/internal/sccp"
	"irl/internal/ssa"
)

// Stage names one phase of the driver's work; it labels the progress events
// sent to the UI.
type Stage uint8

const (
	StageParse Stage = iota
	StageBuild
	StageVerify
	StageOptimize
	StageInterpret
)

func (s Stage) String() string {
	switch s {
	case StageParse:
		return "parse"
	case StageBuild:
		return "build"
	case StageVerify:
		return "verify"
	case StageOptimize:
		return "optimize"
	case StageInterpret:
		return "interpret"
	default:
		return "?"
	}
}

// Status is a stage's progress state for one file.
type Status uint8

const (
	StatusQueued Status = iota
	StatusWorking
	StatusDone
	StatusError
)

// Event is one progress notification, emitted to the channel the bubbletea
// model listens on.
type Event struct {
	File   string
	Stage  Stage
	Status Status
	Pass   string // set only when Stage == StageOptimize: the pass currently running
	Err    error
}

// Budget bounds how many times the fixed-point loop may iterate, how many
// individual pass invocations the driver may make, and how many total
// instruction mutations it may perform before giving up and reporting
// PassBudgetExceeded instead of running forever on a pipeline that never
// stabilizes (spec.md §5: "a budget (pass count and per-pass instruction
// mutation count)").
const (
	defaultMaxIterations = 32
	defaultMaxPasses     = 10000
	defaultMaxMutations  = 1_000_000
)

// defaultPasses is the pipeline run when a project manifest (internal/config)
// does not override [pipeline].passes.
var defaultPasses = []string{"sccp", "copyprop", "dce", "gvn", "gvn-pre", "copyprop", "dce", "osr", "dce"}

// Options lets a caller (cmd/irl, fed from internal/config's parsed
// irl.toml) override the pass list and iteration budget instead of taking
// the built-in default pipeline.
type Options struct {
	// Passes names each pass to run per round, in order; empty uses
	// defaultPasses. Unknown names are skipped (not an error) so a
	// manifest written against a future pass name degrades gracefully.
	Passes []string
	// MaxIterations caps the fixed-point loop; 0 uses defaultMaxIterations.
	MaxIterations int
	// MaxPasses caps the total number of individual pass invocations across
	// every iteration; 0 uses defaultMaxPasses.
	MaxPasses int
	// MaxMutations caps the total number of instructions mutated across
	// every pass invocation; 0 uses defaultMaxMutations.
	MaxMutations int
}

// Result summarizes one Run.
type Result struct {
	Iterations  int
	PassesRun   []string
	PanicsFound []PassPanic
	// BudgetExceeded names each function (fnLabel) where the driver stopped
	// early because the pass-count or mutation-count budget ran out before
	// reaching a fixed point: spec.md §7's non-fatal PassBudgetExceeded
	// outcome. The budget is checked before starting the next pass, so the
	// graph is left exactly as the last completed pass produced it — the
	// "last verified state" the spec requires, never a partial mutation.
	BudgetExceeded []string
}

// PassPanic records a recovered ir.InvariantViolation from one pass
// invocation; the driver continues with the next pass rather than
// aborting the whole pipeline, since an invariant violation in one pass
// should not prevent reporting results already computed by earlier passes.
type PassPanic struct {
	Pass string
	Err  error
}

// Run executes the default pipeline over every function in prog, reporting
// progress on events (nil is fine — events are dropped). It stops early if
// ctx is canceled.
func Run(ctx context.Context, prog *ir.Program, events chan<- Event) Result {
	return RunWithOptions(ctx, prog, events, Options{})
}

// RunWithOptions is Run with an explicit pass list and iteration budget,
// letting a caller drive the pipeline from a parsed project manifest
// instead of the built-in default.
func RunWithOptions(ctx context.Context, prog *ir.Program, events chan<- Event, opts Options) Result {
	res := Result{}
	for _, fn := range prog.Funcs {
		if ctx.Err() != nil {
			return res
		}
		runFunc(ctx, fn, prog.Globals, events, &res, opts)
	}
	return res
}

// passTable's functions return the number of instructions each invocation
// mutated, not just whether anything changed, so the driver can weigh that
// count against the per-pass instruction mutation budget (spec.md §5).
func passTable(globals []*ir.Global) map[string]func(*ir.Func) int {
	return map[string]func(*ir.Func) int{
		"sccp":     func(f *ir.Func) int { return sccp.RunWithGlobals(f, globals) },
		"copyprop": func(f *ir.Func) int { return ssa.CopyProp(f) },
		"dce":      func(f *ir.Func) int { return ssa.DCE(f) },
		"gvn":      func(f *ir.Func) int { return gvn.Run(f) },
		"gvn-pre":  func(f *ir.Func) int { return pre.Run(f) },
		"osr":      func(f *ir.Func) int { return osr.Run(f) },
	}
}

func runFunc(ctx context.Context, fn *ir.Func, globals []*ir.Global, events chan<- Event, res *Result, opts Options) {
	emit(events, Event{File: fnLabel(fn), Stage: StageOptimize, Status: StatusWorking})

	names := opts.Passes
	if len(names) == 0 {
		names = defaultPasses
	}
	maxIter := opts.MaxIterations
	if maxIter == 0 {
		maxIter = defaultMaxIterations
	}
	maxPasses := opts.MaxPasses
	if maxPasses == 0 {
		maxPasses = defaultMaxPasses
	}
	maxMutations := opts.MaxMutations
	if maxMutations == 0 {
		maxMutations = defaultMaxMutations
	}
	table := passTable(globals)

	passCount, mutationCount := 0, 0
iterations:
	for iter := 0; iter < maxIter; iter++ {
		res.Iterations++
		anyChanged := false
		for _, name := range names {
			if ctx.Err() != nil {
				return
			}
			run, ok := table[name]
			if !ok {
				continue
			}
			if passCount >= maxPasses || mutationCount >= maxMutations {
				res.BudgetExceeded = append(res.BudgetExceeded, fnLabel(fn))
				break iterations
			}
			emit(events, Event{File: fnLabel(fn), Stage: StageOptimize, Status: StatusWorking, Pass: name})
			mutated, err := runPassRecovering(name, fn, run)
			passCount++
			mutationCount += mutated
			res.PassesRun = append(res.PassesRun, name)
			if err != nil {
				res.PanicsFound = append(res.PanicsFound, PassPanic{Pass: name, Err: err})
				emit(events, Event{File: fnLabel(fn), Stage: StageOptimize, Status: StatusError, Pass: name, Err: err})
				continue
			}
			anyChanged = anyChanged || mutated > 0
		}
		if !anyChanged {
			break
		}
	}
	emit(events, Event{File: fnLabel(fn), Stage: StageOptimize, Status: StatusDone})
}

// runPassRecovering invokes run and converts a panicking
// ir.InvariantViolation into an error, matching spec.md §7's requirement
// that one pass's internal invariant failure not bring down the driver.
func runPassRecovering(name string, fn *ir.Func, run func(*ir.Func) int) (mutated int, err error) {
	defer func() {
		if r := recover(); r != nil {
			if iv, ok := r.(*ir.InvariantViolation); ok {
				err = fmt.Errorf("pass %s: %w", name, iv)
				return
			}
			panic(r)
		}
	}()
	mutated = run(fn)
	return mutated, nil
}

func fnLabel(fn *ir.Func) string {
	return fmt.Sprintf("fn#%d", fn.Name.Name)
}

func emit(events chan<- Event, e Event) {
	if events == nil {
		return
	}
	select {
	case events <- e:
	default:
	}
}
