package artifacts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/creack/pty"
)

// ScarbBuilder compiles the Cairo project with scarb
type ScarbBuilder struct {
	binary      string
	projectRoot string
	debug       bool
	out         io.Writer
	log         *slog.Logger
}

// NewScarbBuilder creates a builder; debug streams compiler output to the terminal
func NewScarbBuilder(cfg *config.RuntimeConfig, log *slog.Logger) *ScarbBuilder {
	return &ScarbBuilder{
		binary:      cfg.Project.ScarbBinary,
		projectRoot: cfg.ProjectRoot,
		debug:       cfg.Debug,
		out:         os.Stdout,
		log:         log.With("component", "ScarbBuilder"),
	}
}

func buildArgs(opts usecase.BuildOptions) []string {
	var args []string
	if opts.Profile != "" {
		args = append(args, "--profile", opts.Profile)
	}
	args = append(args, "build")
	if opts.Feature != "" {
		args = append(args, "--features", opts.Feature)
	}
	return args
}

// Build runs scarb build with proper output handling
func (b *ScarbBuilder) Build(ctx context.Context, opts usecase.BuildOptions) error {
	start := time.Now()
	args := buildArgs(opts)
	b.log.Debug("running scarb", "args", args, "dir", b.projectRoot)

	cmd := exec.CommandContext(ctx, b.binary, args...)
	cmd.Dir = b.projectRoot

	if b.debug {
		return b.buildStreaming(cmd, start)
	}

	output, err := cmd.CombinedOutput()
	duration := time.Since(start)
	if err != nil {
		b.log.Error("scarb build failed", "error", err, "duration", duration)
		return fmt.Errorf("scarb build failed: %w\nOutput: %s", err, string(output))
	}

	b.log.Debug("scarb build completed successfully", "duration", duration)
	return nil
}

// buildStreaming runs under a PTY so scarb keeps its colors
func (b *ScarbBuilder) buildStreaming(cmd *exec.Cmd, start time.Time) error {
	ptyFile, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start pty: %w", err)
	}
	defer func() {
		// Close PTY after command finishes to avoid read errors
		_ = ptyFile.Close()
	}()

	_, _ = io.Copy(b.out, ptyFile)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("scarb build failed: %w", err)
	}
	b.log.Debug("scarb build completed successfully", "duration", time.Since(start))
	return nil
}

var _ usecase.ArtifactBuilder = (*ScarbBuilder)(nil)
