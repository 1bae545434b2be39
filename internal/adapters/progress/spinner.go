package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/fatih/color"
)

// SpinnerSink renders orchestrator events as a spinner while a step runs
// and one status line per finished step
type SpinnerSink struct {
	spinner *spinner.Spinner
	out     io.Writer
	started time.Time
	// plain prints running steps as lines instead of animating
	plain bool
}

// NewSpinnerSink creates a spinner-based progress sink on stderr
func NewSpinnerSink(cfg *config.RuntimeConfig) *SpinnerSink {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.HideCursor = false
	return &SpinnerSink{spinner: s, out: os.Stderr, plain: cfg.NonInteractive}
}

// OnProgress handles progress events
func (p *SpinnerSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	prefix := ""
	if event.Total > 0 {
		prefix = fmt.Sprintf("[%d/%d] ", event.Current, event.Total)
	}

	switch event.Stage {
	case usecase.StageBuilding, usecase.StageDeclaring, usecase.StageDeploying,
		usecase.StageUpgrading, usecase.StageWaiting, usecase.StageWiring,
		usecase.StageLoading, usecase.StageChecking:
		if p.plain {
			fmt.Fprintf(p.out, "  %s%s\n", prefix, event.Message)
			return
		}
		p.spinner.Suffix = " " + prefix + event.Message
		if !p.spinner.Active() {
			p.started = time.Now()
			p.spinner.Start()
		}

	case usecase.StageBuilt, usecase.StageDeclared, usecase.StageDeployed,
		usecase.StageUpgraded, usecase.StageWiringApplied:
		p.line(color.New(color.FgGreen), "✓", prefix+event.Message)

	case usecase.StageContractSkipped, usecase.StageUpgradeSkipped, usecase.StageWiringSkipped:
		p.line(color.New(color.FgWhite, color.Faint), "⊘", prefix+event.Message)

	case usecase.StageFailed:
		p.line(color.New(color.FgRed), "✗", prefix+event.Message)

	case usecase.StageComplete:
		p.Stop()

	case usecase.StagePlanCreated, usecase.StageExported:
		p.line(color.New(color.FgCyan), "●", event.Message)

	default:
		if event.Message != "" {
			p.Info(event.Message)
		}
	}
}

// Info prints an info message
func (p *SpinnerSink) Info(message string) {
	p.pause(func() { color.New(color.FgCyan).Fprintln(p.out, message) })
}

// Error prints an error message
func (p *SpinnerSink) Error(message string) {
	p.pause(func() { color.New(color.FgRed).Fprintln(p.out, message) })
}

// line stops the spinner and prints a finished step with its duration
func (p *SpinnerSink) line(c *color.Color, icon, message string) {
	duration := ""
	if p.spinner.Active() {
		p.spinner.Stop()
		duration = fmt.Sprintf(" (%s)", time.Since(p.started).Round(100*time.Millisecond))
	}
	fmt.Fprintf(p.out, "%s %s%s\n", c.Sprint(icon), strings.TrimSpace(message), color.New(color.Faint).Sprint(duration))
}

func (p *SpinnerSink) pause(print func()) {
	wasActive := p.spinner.Active()
	if wasActive {
		p.spinner.Stop()
	}
	print()
	if wasActive {
		p.spinner.Start()
	}
}

// Stop stops the spinner if it is running
func (p *SpinnerSink) Stop() {
	if p.spinner.Active() {
		p.spinner.Stop()
	}
}

var _ usecase.ProgressSink = (*SpinnerSink)(nil)
