package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"irl/internal/ir"
	"irl/internal/pipeline"
	"irl/internal/ui"
)

// runPipelineWithUI drives the pass pipeline on a background goroutine
// while a bubbletea progress model consumes its Event channel.
func runPipelineWithUI(ctx context.Context, title string, files []string, prog *ir.Program, opts pipeline.Options) pipeline.Result {
	events := make(chan pipeline.Event, 256)
	resultCh := make(chan pipeline.Result, 1)

	go func() {
		res := pipeline.RunWithOptions(ctx, prog, events, opts)
		resultCh <- res
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, _ = program.Run()
	return <-resultCh
}
