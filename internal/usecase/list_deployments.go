package usecase

import (
	"context"

	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/samber/lo"
)

// ListDeploymentsParams contains parameters for listing deployments
type ListDeploymentsParams struct {
	// Restrict to these contracts; empty lists everything
	Contracts []string
}

// DeploymentListResult contains the current ledger records of a network
type DeploymentListResult struct {
	Network models.Network
	ChainID string
	Records []models.DeploymentRecord
	Wiring  *models.WiringMarker
	Ledger  *models.Ledger
}

// ListDeployments is the use case for listing deployments
type ListDeployments struct {
	config *config.RuntimeConfig
	store  LedgerStore
	sink   ProgressSink
}

// NewListDeployments creates a new ListDeployments use case
func NewListDeployments(cfg *config.RuntimeConfig, store LedgerStore, sink ProgressSink) *ListDeployments {
	return &ListDeployments{
		config: cfg,
		store:  store,
		sink:   sink,
	}
}

// Run executes the list deployments use case
func (uc *ListDeployments) Run(ctx context.Context, params ListDeploymentsParams) (*DeploymentListResult, error) {
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   StageLoading,
		Message: "Loading deployment ledger",
		Spinner: true,
	})

	ledger, err := uc.store.Load(ctx, uc.config.Network.Name, false)
	if err != nil {
		return nil, err
	}

	records := ledger.Records()
	if len(params.Contracts) > 0 {
		records = lo.Filter(records, func(r models.DeploymentRecord, _ int) bool {
			return lo.Contains(params.Contracts, r.Contract)
		})
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   StageComplete,
		Current: len(records),
		Total:   ledger.Len(),
		Message: "Deployments loaded",
	})

	return &DeploymentListResult{
		Network: ledger.Network,
		ChainID: ledger.ChainID,
		Records: records,
		Wiring:  ledger.Wiring(),
		Ledger:  ledger,
	}, nil
}
