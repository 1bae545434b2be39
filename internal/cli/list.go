package cli

import (
	"github.com/cofi-market/cofi-deploy/internal/cli/render"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var contracts []string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List deployments from the ledger",
		Long:    `List the current ledger records of a network, in deployment order.`,
		Example: `  # List sepolia deployments
  cofi-deploy list --network sepolia

  # Only the marketplace and the collection
  cofi-deploy list -n mainnet --contract Marketplace --contract CofiCollection`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			result, err := app.ListDeployments.Run(cmd.Context(), usecase.ListDeploymentsParams{Contracts: contracts})
			app.Progress.Stop()
			if err != nil {
				return err
			}

			return render.NewDeploymentsRenderer(cmd.OutOrStdout()).Render(result)
		},
	}

	cmd.Flags().StringSliceVar(&contracts, "contract", nil, "Filter by contract name (repeatable)")

	return cmd
}
