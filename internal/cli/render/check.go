package render

import (
	"fmt"
	"io"

	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/fatih/color"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CheckRenderer renders the comparison between ledger and chain
type CheckRenderer struct {
	out io.Writer
}

// NewCheckRenderer creates a new check renderer
func NewCheckRenderer(out io.Writer) *CheckRenderer {
	return &CheckRenderer{out: out}
}

var _ Renderer[*usecase.CheckLedgerResult] = (*CheckRenderer)(nil)

// Render renders the check result
func (r *CheckRenderer) Render(result *usecase.CheckLedgerResult) error {
	if result == nil {
		return nil
	}
	if len(result.Entries) == 0 {
		fmt.Fprintf(r.out, "No deployments found on %s\n", result.Network)
		return nil
	}

	color.New(color.FgCyan, color.Bold).Fprintf(r.out, "Checking %d contracts on %s (%s)\n",
		len(result.Entries), result.Network, result.ChainID)

	title := cases.Title(language.English)
	data := make(TableData, 0, len(result.Entries))
	for _, e := range result.Entries {
		detail := ""
		switch e.Status {
		case usecase.CheckMismatch:
			detail = fmt.Sprintf("ledger %s, chain %s", e.Record.ClassHash.Short(), e.OnChain.Short())
		case usecase.CheckMissing:
			detail = "no contract at " + e.Record.Address.Short()
		case usecase.CheckError:
			detail = e.Err.Error()
		default:
			detail = "class " + e.OnChain.Short()
		}
		data = append(data, []string{
			r.statusIcon(e.Status),
			contractStyle.Sprint(e.Record.Contract),
			r.statusStyle(e.Status).Sprint(title.String(string(e.Status))),
			timestampStyle.Sprint(detail),
		})
	}
	fmt.Fprint(r.out, renderTableWithWidths(data, calculateColumnWidths(data), "  "))
	fmt.Fprintln(r.out)

	if result.InSync() {
		fmt.Fprintln(r.out, FormatSuccess("Ledger matches the chain"))
	} else {
		fmt.Fprintln(r.out, FormatWarning("Ledger and chain disagree"))
	}
	return nil
}

func (r *CheckRenderer) statusIcon(status usecase.CheckStatus) string {
	switch status {
	case usecase.CheckMatch:
		return color.New(color.FgGreen).Sprint("✓")
	case usecase.CheckMismatch, usecase.CheckMissing:
		return color.New(color.FgRed).Sprint("✗")
	default:
		return color.New(color.FgYellow).Sprint("?")
	}
}

func (r *CheckRenderer) statusStyle(status usecase.CheckStatus) *color.Color {
	switch status {
	case usecase.CheckMatch:
		return color.New(color.FgGreen)
	case usecase.CheckMismatch, usecase.CheckMissing:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
