package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// UpgradeEntrypoint is the entrypoint replacing the class of an upgradeable contract
const UpgradeEntrypoint = "upgrade"

// UpgradeSystemParams contains parameters for an in-place upgrade
type UpgradeSystemParams struct {
	Feature string
}

// UpgradeSystemResult contains the result of an upgrade run
type UpgradeSystemResult struct {
	Network   models.Network
	Contracts []string // upgradeable contracts considered, in order
	Upgraded  []models.DeploymentRecord
	Unchanged []string
	Export    *models.ExportResult
	Ledger    *models.Ledger
	States    map[string]models.ContractState // contracts touched by this run
	DryRun    bool
}

// UpgradeSystem replaces the class of every deployed upgradeable contract
// whose compiled artifact changed
type UpgradeSystem struct {
	config    *config.RuntimeConfig
	topology  TopologySource
	builder   ArtifactBuilder
	artifacts ArtifactResolver
	chain     ChainGateway
	ledgers   LedgerStore
	confirmer Confirmer
	progress  ProgressSink
	log       *slog.Logger
	now       func() time.Time
}

// NewUpgradeSystem creates a new UpgradeSystem use case
func NewUpgradeSystem(
	cfg *config.RuntimeConfig,
	topology TopologySource,
	builder ArtifactBuilder,
	artifacts ArtifactResolver,
	chain ChainGateway,
	ledgers LedgerStore,
	confirmer Confirmer,
	progress ProgressSink,
	log *slog.Logger,
) *UpgradeSystem {
	return &UpgradeSystem{
		config:    cfg,
		topology:  topology,
		builder:   builder,
		artifacts: artifacts,
		chain:     chain,
		ledgers:   ledgers,
		confirmer: confirmer,
		progress:  progress,
		log:       log.With("component", "UpgradeSystem"),
		now:       time.Now,
	}
}

// Run executes the upgrade. Every upgradeable contract must already be in
// the ledger; otherwise nothing is submitted.
func (uc *UpgradeSystem) Run(ctx context.Context, params UpgradeSystemParams) (*UpgradeSystemResult, error) {
	network := uc.config.Network
	if network == nil {
		return nil, fmt.Errorf("no network configured")
	}

	topo, err := uc.topology.Load(ctx)
	if err != nil {
		return nil, err
	}
	specs := topo.ForNetwork(network.Name, params.Feature).Upgradeable()

	ledger, err := uc.ledgers.Load(ctx, network.Name, false)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, spec := range specs {
		if !ledger.Has(spec.Name) {
			missing = append(missing, spec.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.MissingPriorDeploymentError{Network: network.Name, Contracts: missing}
	}

	if err := confirmProduction(ctx, uc.config, uc.confirmer, "Upgrade the contract system"); err != nil {
		return nil, err
	}

	result := &UpgradeSystemResult{
		Network: network.Name,
		Ledger:  ledger,
		DryRun:  uc.config.DryRun,
	}
	for _, spec := range specs {
		result.Contracts = append(result.Contracts, spec.Name)
	}
	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StagePlanCreated,
		Total:   len(specs),
		Message: fmt.Sprintf("Upgrading on %s: %v", network.Name, result.Contracts),
	})

	if err := buildArtifacts(ctx, uc.config, uc.builder, uc.progress, params.Feature); err != nil {
		return nil, err
	}
	artifacts, err := resolveArtifacts(ctx, uc.artifacts, specs)
	if err != nil {
		return nil, err
	}

	runner := newStepRunner(uc.chain, uc.progress, uc.log, len(specs))
	result.States = runner.states
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return uc.fail(ctx, ledger, result, err)
		}
		current := i + 1
		record, _ := ledger.Get(spec.Name)
		art := artifacts[spec.Name]

		if record.ArtifactHash != nil && record.ArtifactHash.Equal(art.hash) {
			result.Unchanged = append(result.Unchanged, spec.Name)
			runner.emit(ctx, StageUpgradeSkipped, spec.Name, current,
				fmt.Sprintf("%s unchanged (class %s)", spec.Name, record.ClassHash.Short()), false)
			continue
		}

		upgraded, err := uc.upgradeOne(ctx, runner, record, art, current)
		if err != nil {
			return uc.fail(ctx, ledger, result, runner.fail(spec.Name, err))
		}
		ledger.Register(spec.Name, *upgraded)
		rec, _ := ledger.Get(spec.Name)
		result.Upgraded = append(result.Upgraded, rec)
		uc.log.Info("upgraded", "contract", spec.Name, "address", rec.Address.Short(), "class_hash", rec.ClassHash.Short())
	}

	result.Export, err = exportLedger(ctx, uc.ledgers, ledger, uc.progress)
	if err != nil {
		return result, err
	}
	return result, nil
}

// upgradeOne declares the new class and points the existing instance at it
func (uc *UpgradeSystem) upgradeOne(ctx context.Context, runner *stepRunner, record models.DeploymentRecord, art resolvedArtifact, current int) (*models.DeploymentRecord, error) {
	name := record.Contract
	class, err := runner.declare(ctx, name, current, art)
	if err != nil {
		return nil, err
	}

	if err := runner.advance(name, models.StateUpgrading); err != nil {
		return nil, err
	}
	runner.emit(ctx, StageUpgrading, name, current,
		fmt.Sprintf("Upgrading %s at %s", name, record.Address.Short()), true)
	tx, err := uc.chain.InvokeBatch(context.WithoutCancel(ctx), []models.Call{{
		Target:     record.Address,
		Entrypoint: UpgradeEntrypoint,
		Args:       models.PositionalArgs(models.FeltValue(class.ClassHash)),
		ABI:        art.artifact.ABI,
	}})
	if err != nil {
		return nil, &domain.StepError{Contract: name, Step: domain.StepUpgrade, Err: err}
	}
	if _, err := runner.wait(ctx, name, current, tx); err != nil {
		return nil, &domain.StepError{Contract: name, Step: domain.StepUpgrade, Err: err}
	}
	if err := runner.advance(name, models.StateUpgraded); err != nil {
		return nil, err
	}
	runner.emit(ctx, StageUpgraded, name, current,
		fmt.Sprintf("%s upgraded to class %s", name, class.ClassHash.Short()), false)

	now := uc.now()
	artifactHash := art.hash
	upgraded := record
	upgraded.ClassHash = class.ClassHash
	upgraded.ArtifactHash = &artifactHash
	upgraded.TxHash = &tx
	upgraded.UpgradedAt = &now
	return &upgraded, nil
}

// fail exports what was upgraded before err and returns it
func (uc *UpgradeSystem) fail(ctx context.Context, ledger *models.Ledger, result *UpgradeSystemResult, err error) (*UpgradeSystemResult, error) {
	uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageFailed, Message: err.Error()})
	if ledger.IsDirty() {
		if res, exportErr := exportLedger(ctx, uc.ledgers, ledger, uc.progress); exportErr != nil {
			uc.log.Error("best-effort export failed", "error", exportErr)
		} else {
			result.Export = res
		}
	}
	return result, err
}
