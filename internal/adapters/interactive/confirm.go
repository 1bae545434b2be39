package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/fatih/color"
	"github.com/manifoldco/promptui"
)

// ConfirmAdapter asks yes/no questions on the terminal
type ConfirmAdapter struct {
	config *config.RuntimeConfig
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewConfirmAdapter creates a new confirm adapter
func NewConfirmAdapter(cfg *config.RuntimeConfig) *ConfirmAdapter {
	return &ConfirmAdapter{config: cfg}
}

// Confirm returns true when the operator accepts. Non-interactive runs are
// treated as already confirmed.
func (c *ConfirmAdapter) Confirm(ctx context.Context, prompt string) (bool, error) {
	if c.config.NonInteractive {
		return true, nil
	}

	p := promptui.Prompt{
		Label:     color.New(color.FgYellow, color.Bold).Sprint(prompt),
		IsConfirm: true,
		Stdin:     c.stdin,
		Stdout:    c.stdout,
	}
	if _, err := p.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation cancelled: %w", err)
	}
	return true, nil
}

var _ usecase.Confirmer = (*ConfirmAdapter)(nil)
