package render

import (
	"fmt"
	"io"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/fatih/color"
)

// DeployRenderer prints the summary of a deploy or upgrade run
type DeployRenderer struct {
	out io.Writer
}

// NewDeployRenderer creates a new deploy renderer
func NewDeployRenderer(out io.Writer) *DeployRenderer {
	return &DeployRenderer{out: out}
}

// RenderDeploy renders a fresh deploy. result may be partial after a failure.
func (r *DeployRenderer) RenderDeploy(result *usecase.DeploySystemResult) error {
	if result == nil {
		return nil
	}
	fmt.Fprintln(r.out)
	r.dryRunBanner(result.DryRun)

	if len(result.Deployed) > 0 {
		fmt.Fprintf(r.out, "%s\n", sectionHeaderStyle.Sprintf("Deployed on %s", result.Network))
		r.records(result.Deployed)
	}
	if len(result.Skipped) > 0 {
		fmt.Fprintf(r.out, "%s\n", timestampStyle.Sprintf("Already deployed: %v", result.Skipped))
	}

	if w := result.Wiring; w != nil {
		switch {
		case w.Applied:
			fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Wiring applied: %d calls in %s", w.Calls, w.TxHash.Short())))
		case w.SkipReason != "":
			fmt.Fprintln(r.out, timestampStyle.Sprintf("Wiring skipped: %s", w.SkipReason))
		}
	}

	r.export(result.Export)
	return nil
}

// RenderUpgrade renders an upgrade run
func (r *DeployRenderer) RenderUpgrade(result *usecase.UpgradeSystemResult) error {
	if result == nil {
		return nil
	}
	fmt.Fprintln(r.out)
	r.dryRunBanner(result.DryRun)

	if len(result.Upgraded) > 0 {
		fmt.Fprintf(r.out, "%s\n", sectionHeaderStyle.Sprintf("Upgraded on %s", result.Network))
		r.records(result.Upgraded)
	}
	if len(result.Unchanged) > 0 {
		fmt.Fprintf(r.out, "%s\n", timestampStyle.Sprintf("Unchanged: %v", result.Unchanged))
	}
	if len(result.Upgraded) == 0 && len(result.Unchanged) == len(result.Contracts) {
		fmt.Fprintln(r.out, FormatSuccess("Every upgradeable contract is up to date"))
	}

	r.export(result.Export)
	return nil
}

func (r *DeployRenderer) records(records []models.DeploymentRecord) {
	data := make(TableData, 0, len(records))
	for _, rec := range records {
		data = append(data, recordRow(rec))
	}
	fmt.Fprint(r.out, renderTableWithWidths(data, calculateColumnWidths(data), "  "))
	fmt.Fprintln(r.out)
}

func (r *DeployRenderer) dryRunBanner(dryRun bool) {
	if dryRun {
		color.New(color.FgYellow, color.Bold).Fprintln(r.out, "DRY RUN: nothing was submitted and no ledger was written")
	}
}

func (r *DeployRenderer) export(res *models.ExportResult) {
	if res == nil || res.LatestPath == "" {
		return
	}
	fmt.Fprintf(r.out, "\nLedger: %s\n", res.LatestPath)
	if res.SnapshotPath != "" {
		fmt.Fprintf(r.out, "Snapshot: %s\n", res.SnapshotPath)
	}
}
