package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/fatih/color"
)

// Color styles for table format
var (
	networkBg          = color.BgCyan
	networkHeader      = color.New(networkBg, color.FgBlack)
	networkHeaderBold  = color.New(networkBg, color.FgBlack, color.Bold)
	contractStyle      = color.New(color.FgGreen, color.Bold)
	upgradeableStyle   = color.New(color.FgMagenta, color.Bold)
	addressStyle       = color.New(color.FgWhite)
	classHashStyle     = color.New(color.FgCyan)
	timestampStyle     = color.New(color.Faint)
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
)

const timeFormat = "2006-01-02 15:04:05"

// DeploymentsRenderer renders the ledger of a network as a table
type DeploymentsRenderer struct {
	out io.Writer
}

// NewDeploymentsRenderer creates a new deployments renderer
func NewDeploymentsRenderer(out io.Writer) *DeploymentsRenderer {
	return &DeploymentsRenderer{out: out}
}

var _ Renderer[*usecase.DeploymentListResult] = (*DeploymentsRenderer)(nil)

// Render renders the deployment list
func (r *DeploymentsRenderer) Render(result *usecase.DeploymentListResult) error {
	if result == nil {
		return nil
	}
	if len(result.Records) == 0 {
		fmt.Fprintf(r.out, "No deployments found on %s\n", result.Network)
		return nil
	}

	chain := result.ChainID
	if chain == "" {
		chain = "unknown chain"
	}
	fmt.Fprintf(r.out, "%s%s\n",
		networkHeader.Sprintf(" ⛓ %-10s", "network:"),
		networkHeaderBold.Sprintf("%-30s", fmt.Sprintf("%s (%s)", strings.ToUpper(string(result.Network)), chain)))
	fmt.Fprintln(r.out, "│")

	data := make(TableData, 0, len(result.Records))
	for _, rec := range result.Records {
		data = append(data, recordRow(rec))
	}
	fmt.Fprintf(r.out, "│ %s\n", sectionHeaderStyle.Sprint("CONTRACTS"))
	fmt.Fprint(r.out, renderTableWithWidths(data, calculateColumnWidths(data), "│ "))
	fmt.Fprintln(r.out)

	if w := result.Wiring; w != nil {
		fmt.Fprintln(r.out, "│")
		fmt.Fprintf(r.out, "└─ %s %s %s\n",
			sectionHeaderStyle.Sprint("WIRING"),
			addressStyle.Sprint(w.TxHash.Short()),
			timestampStyle.Sprint(w.AppliedAt.Local().Format(timeFormat)))
	} else {
		fmt.Fprintln(r.out, "└─ "+timestampStyle.Sprint("wiring not applied"))
	}

	fmt.Fprintf(r.out, "\nTotal deployments: %d\n", len(result.Records))
	return nil
}

func recordRow(rec models.DeploymentRecord) []string {
	name := contractStyle.Sprint(rec.Contract)
	when := timestampStyle.Sprint(rec.DeployedAt.Local().Format(timeFormat))
	if rec.UpgradedAt != nil {
		name = upgradeableStyle.Sprint(rec.Contract)
		when = timestampStyle.Sprintf("upgraded %s", rec.UpgradedAt.Local().Format(timeFormat))
	}
	return []string{
		name,
		addressStyle.Sprint(rec.Address.String()),
		classHashStyle.Sprintf("class %s", rec.ClassHash.Short()),
		when,
	}
}
