package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/cairo"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// DeploySystemParams contains parameters for a fresh deploy
type DeploySystemParams struct {
	Feature string
	Reset   bool // start from an empty ledger instead of resuming
}

// WiringOutcome describes what happened to the post-deployment batch
type WiringOutcome struct {
	Calls       int
	Applied     bool
	SkipReason  string
	Fingerprint models.Felt
	TxHash      models.Felt
}

// DeploySystemResult contains the result of a fresh deploy. On failure it
// still carries what was registered before the failing step.
type DeploySystemResult struct {
	Network  models.Network
	Plan     *DeployPlan
	Deployed []models.DeploymentRecord
	Skipped  []string
	Wiring   *WiringOutcome
	Export   *models.ExportResult
	Ledger   *models.Ledger
	States   map[string]models.ContractState // contracts touched by this run
	DryRun   bool
}

// DeploySystem deploys every contract of the network topology that the
// ledger does not have yet, then applies the wiring batch
type DeploySystem struct {
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

// NewDeploySystem creates a new DeploySystem use case
func NewDeploySystem(
	cfg *config.RuntimeConfig,
	topology TopologySource,
	builder ArtifactBuilder,
	artifacts ArtifactResolver,
	chain ChainGateway,
	ledgers LedgerStore,
	confirmer Confirmer,
	progress ProgressSink,
	log *slog.Logger,
) *DeploySystem {
	return &DeploySystem{
		config:    cfg,
		topology:  topology,
		builder:   builder,
		artifacts: artifacts,
		chain:     chain,
		ledgers:   ledgers,
		confirmer: confirmer,
		progress:  progress,
		log:       log.With("component", "DeploySystem"),
		now:       time.Now,
	}
}

// Run executes the fresh deploy
func (uc *DeploySystem) Run(ctx context.Context, params DeploySystemParams) (*DeploySystemResult, error) {
	network := uc.config.Network
	if network == nil {
		return nil, fmt.Errorf("no network configured")
	}

	topo, err := uc.topology.Load(ctx)
	if err != nil {
		return nil, err
	}
	active := topo.ForNetwork(network.Name, params.Feature)
	plan, err := NewDeployPlan(network.Name, params.Feature, active)
	if err != nil {
		return nil, err
	}

	if err := confirmProduction(ctx, uc.config, uc.confirmer, "Deploy the contract system"); err != nil {
		return nil, err
	}

	ledger, err := uc.ledgers.Load(ctx, network.Name, params.Reset)
	if err != nil {
		return nil, err
	}
	if ledger.ChainID == "" {
		ledger.ChainID = network.ChainID
	}
	book := NewAddressBook(network.Name, network.DeployerAddress, active, ledger)
	if err := plan.CheckReferences(book); err != nil {
		return nil, err
	}

	result := &DeploySystemResult{
		Network: network.Name,
		Plan:    plan,
		Ledger:  ledger,
		DryRun:  uc.config.DryRun,
	}
	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:    StagePlanCreated,
		Total:    len(plan.Steps),
		Message:  fmt.Sprintf("Deploying to %s: %v", network.Name, plan.Names()),
		Metadata: plan,
	})

	if err := buildArtifacts(ctx, uc.config, uc.builder, uc.progress, params.Feature); err != nil {
		return nil, err
	}
	artifacts, err := resolveArtifacts(ctx, uc.artifacts, active.Contracts)
	if err != nil {
		return nil, err
	}

	if err := uc.execute(ctx, plan, book, ledger, artifacts, result); err != nil {
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

	result.Export, err = exportLedger(ctx, uc.ledgers, ledger, uc.progress)
	if err != nil {
		return result, err
	}
	return result, nil
}

func (uc *DeploySystem) execute(ctx context.Context, plan *DeployPlan, book *AddressBook, ledger *models.Ledger, artifacts map[string]resolvedArtifact, result *DeploySystemResult) error {
	runner := newStepRunner(uc.chain, uc.progress, uc.log, len(plan.Steps))
	result.States = runner.states

	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := step.Contract.Name
		current := i + 1

		if rec, ok := ledger.Get(name); ok {
			result.Skipped = append(result.Skipped, name)
			runner.emit(ctx, StageContractSkipped, name, current,
				fmt.Sprintf("%s already deployed at %s", name, rec.Address.Short()), false)
			continue
		}

		record, err := uc.deployOne(ctx, runner, book, step.Contract, current, artifacts[name])
		if err != nil {
			return runner.fail(name, err)
		}
		ledger.Register(name, *record)
		rec, _ := ledger.Get(name)
		result.Deployed = append(result.Deployed, rec)
		uc.log.Info("deployed", "contract", name, "address", rec.Address.Short())
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	wiring, err := uc.wire(ctx, runner, book, plan, ledger, artifacts)
	result.Wiring = wiring
	return err
}

// deployOne declares, deploys and confirms a single contract
func (uc *DeploySystem) deployOne(ctx context.Context, runner *stepRunner, book *AddressBook, spec models.ContractSpec, current int, art resolvedArtifact) (*models.DeploymentRecord, error) {
	name := spec.Name
	args, err := book.ResolveArgs(spec.Args)
	if err != nil {
		return nil, &domain.StepError{Contract: name, Step: domain.StepResolve, Err: err}
	}

	class, err := runner.declare(ctx, name, current, art)
	if err != nil {
		return nil, err
	}

	if err := runner.advance(name, models.StateDeploying); err != nil {
		return nil, err
	}
	runner.emit(ctx, StageDeploying, name, current, fmt.Sprintf("Deploying %s", name), true)
	deployed, err := uc.chain.Deploy(context.WithoutCancel(ctx), class, args)
	if err != nil {
		return nil, &domain.StepError{Contract: name, Step: domain.StepDeploy, Err: err}
	}
	if _, err := runner.wait(ctx, name, current, deployed.TxHash); err != nil {
		return nil, &domain.StepError{Contract: name, Step: domain.StepDeploy, Err: err}
	}
	if err := runner.advance(name, models.StateDeployed); err != nil {
		return nil, err
	}
	runner.emit(ctx, StageDeployed, name, current,
		fmt.Sprintf("%s deployed at %s", name, deployed.Address.Short()), false)

	artifactHash := art.hash
	txHash := deployed.TxHash
	return &models.DeploymentRecord{
		Address:         deployed.Address,
		ClassHash:       class.ClassHash,
		ConstructorArgs: &args,
		ArtifactHash:    &artifactHash,
		TxHash:          &txHash,
		DeployedAt:      uc.now(),
	}, nil
}

// wire submits the wiring calls of the active topology as one batch. The batch
// is skipped when its encoded fingerprint matches the last applied one.
func (uc *DeploySystem) wire(ctx context.Context, runner *stepRunner, book *AddressBook, plan *DeployPlan, ledger *models.Ledger, artifacts map[string]resolvedArtifact) (*WiringOutcome, error) {
	if len(plan.Topology.Wiring) == 0 {
		uc.progress.OnProgress(ctx, ProgressEvent{Stage: StageWiringSkipped, Message: "No wiring defined"})
		return &WiringOutcome{SkipReason: "no wiring defined"}, nil
	}

	calls, err := buildWiringCalls(book, plan.Topology.Wiring, artifacts)
	if err != nil {
		return nil, &domain.StepError{Step: domain.StepWiring, Err: err}
	}
	encoded := make([]cairo.EncodedCall, 0, len(calls))
	for _, c := range calls {
		enc, err := cairo.EncodeCall(c)
		if err != nil {
			return nil, &domain.StepError{Step: domain.StepWiring, Err: err}
		}
		encoded = append(encoded, enc)
	}

	outcome := &WiringOutcome{Calls: len(calls), Fingerprint: cairo.BatchFingerprint(encoded)}
	if marker := ledger.Wiring(); marker != nil && marker.Fingerprint.Equal(outcome.Fingerprint) {
		outcome.SkipReason = "already applied"
		uc.progress.OnProgress(ctx, ProgressEvent{
			Stage:   StageWiringSkipped,
			Message: fmt.Sprintf("Wiring already applied in %s", marker.TxHash.Short()),
		})
		return outcome, nil
	}

	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageWiring,
		Message: fmt.Sprintf("Submitting %d wiring calls", len(calls)),
		Spinner: true,
	})
	tx, err := uc.chain.InvokeBatch(context.WithoutCancel(ctx), calls)
	if err != nil {
		return outcome, &domain.StepError{Step: domain.StepWiring, Err: err}
	}
	if _, err := runner.wait(ctx, "", 0, tx); err != nil {
		return outcome, &domain.StepError{Step: domain.StepWiring, Err: err}
	}

	outcome.Applied = true
	outcome.TxHash = tx
	ledger.SetWiring(models.WiringMarker{Fingerprint: outcome.Fingerprint, TxHash: tx, AppliedAt: uc.now()})
	uc.progress.OnProgress(ctx, ProgressEvent{
		Stage:   StageWiringApplied,
		Message: fmt.Sprintf("Wiring applied in %s", tx.Short()),
	})
	return outcome, nil
}

// buildWiringCalls binds targets and arguments, attaching the target's ABI when known
func buildWiringCalls(book *AddressBook, wiring []models.WiringCall, artifacts map[string]resolvedArtifact) ([]models.Call, error) {
	calls := make([]models.Call, 0, len(wiring))
	for _, w := range wiring {
		target, err := book.ResolveValue(w.Target)
		if err != nil {
			return nil, fmt.Errorf("%s target: %w", w.Entrypoint, err)
		}
		addr, err := models.ParseFelt(target.String())
		if err != nil {
			return nil, fmt.Errorf("%s target: %w", w.Entrypoint, err)
		}
		args, err := book.ResolveArgs(w.Args)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", w.Entrypoint, err)
		}

		call := models.Call{Target: addr, Entrypoint: w.Entrypoint, Args: args}
		if w.Target.IsRef() {
			if name, ok := book.Contract(w.Target.Ref); ok {
				if art, ok := artifacts[name]; ok {
					call.ABI = art.artifact.ABI
				}
			}
		}
		calls = append(calls, call)
	}
	return calls, nil
}
