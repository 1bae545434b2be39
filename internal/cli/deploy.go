package cli

import (
	"github.com/cofi-market/cofi-deploy/internal/cli/render"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewDeployCmd creates the deploy command
func NewDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy or upgrade the contract system",
		Long: `Deploy the contract system of a network in dependency order, then apply the
wiring batch. With --upgrade, every upgradeable contract already in the ledger
is moved to its newly compiled class instead.

The ledger is written to deployments/<network>_latest.json and a timestamped
snapshot is kept when it changes.`,
		Example: `  # Fresh deploy on a local devnet
  cofi-deploy deploy

  # Resume an interrupted sepolia deploy without starting over
  cofi-deploy deploy --network sepolia --no-reset

  # Upgrade mainnet contracts whose compiled class changed
  cofi-deploy deploy --network mainnet --upgrade

  # Rehearse against the simulated chain
  cofi-deploy deploy --network sepolia --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			cfg := app.Config
			renderer := render.NewDeployRenderer(cmd.OutOrStdout())

			if cfg.Upgrade {
				result, err := app.UpgradeSystem.Run(cmd.Context(), usecase.UpgradeSystemParams{Feature: cfg.Feature})
				app.Progress.Stop()
				if renderErr := renderer.RenderUpgrade(result); renderErr != nil && err == nil {
					err = renderErr
				}
				return err
			}

			result, err := app.DeploySystem.Run(cmd.Context(), usecase.DeploySystemParams{
				Feature: cfg.Feature,
				Reset:   cfg.Reset,
			})
			app.Progress.Stop()
			if renderErr := renderer.RenderDeploy(result); renderErr != nil && err == nil {
				err = renderErr
			}
			return err
		},
	}

	cmd.Flags().Bool("upgrade", false, "Upgrade deployed contracts instead of deploying")
	cmd.Flags().Bool("reset", true, "Start from an empty ledger (history snapshots are kept)")
	cmd.Flags().Bool("no-reset", false, "Resume from the existing ledger")
	cmd.Flags().String("feature", "", "Scarb feature to build and deploy with")
	cmd.Flags().Bool("no-build", false, "Use existing artifacts without running scarb build")
	cmd.Flags().Bool("dry-run", false, "Run against a simulated chain and write nothing")

	return cmd
}
