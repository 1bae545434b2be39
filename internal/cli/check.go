package cli

import (
	"fmt"

	"github.com/cofi-market/cofi-deploy/internal/cli/render"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/spf13/cobra"
)

// NewCheckCmd creates the check command
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [contract]",
		Short: "Compare the ledger with the chain",
		Long: `Read the class hash deployed at every ledger address and compare it with the
class hash the ledger recorded. Exits non-zero when they disagree.`,
		Example: `  # Check every sepolia contract
  cofi-deploy check --network sepolia

  # Check one contract
  cofi-deploy check Marketplace -n mainnet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params := usecase.CheckLedgerParams{}
			if len(args) == 1 {
				params.Contract = args[0]
			}

			result, err := app.CheckLedger.Run(cmd.Context(), params)
			app.Progress.Stop()
			if err != nil {
				return err
			}

			if err := render.NewCheckRenderer(cmd.OutOrStdout()).Render(result); err != nil {
				return err
			}
			if !result.InSync() {
				return fmt.Errorf("ledger for %s is out of sync with the chain", result.Network)
			}
			return nil
		},
	}

	return cmd
}
