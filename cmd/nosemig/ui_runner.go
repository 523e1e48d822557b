package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"nosemig/internal/driver"
	"nosemig/internal/report"
	"nosemig/internal/ui"
)

type migrateOutcome struct {
	report *report.Report
	err    error
}

// runMigrateWithUI runs the migration while a Bubble Tea program renders
// its progress. files are the relative paths announced up front.
func runMigrateWithUI(ctx context.Context, title string, files []string, req driver.Request) (*report.Report, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan migrateOutcome, 1)

	go func() {
		req.Sink = driver.ChannelSink{Ch: events}
		rep, err := driver.Run(ctx, req)
		outcomeCh <- migrateOutcome{report: rep, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	if uiErr != nil {
		// keep the workers unblocked
		for range events {
		}
	}
	outcome := <-outcomeCh
	if uiErr != nil && outcome.err == nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
