package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// resolvedArtifact is an artifact with its content fingerprint
type resolvedArtifact struct {
	artifact *models.Artifact
	hash     models.Felt
}

// stepRunner holds what the steps of one run share: the gateway, the
// per-run declare cache, contract states and progress reporting. Chain
// submissions and confirmations ignore cancellation of ctx; callers check
// ctx between steps.
type stepRunner struct {
	chain    ChainGateway
	progress ProgressSink
	log      *slog.Logger
	declared map[models.Felt]*models.DeclaredClass
	states   map[string]models.ContractState
	total    int
}

func newStepRunner(chain ChainGateway, progress ProgressSink, log *slog.Logger, total int) *stepRunner {
	return &stepRunner{
		chain:    chain,
		progress: progress,
		log:      log,
		declared: make(map[models.Felt]*models.DeclaredClass),
		states:   make(map[string]models.ContractState),
		total:    total,
	}
}

// advance moves contract to next; contracts not seen yet start absent
func (r *stepRunner) advance(contract string, next models.ContractState) error {
	current, ok := r.states[contract]
	if !ok {
		current = models.StateAbsent
	}
	state, err := current.Transition(next)
	if err != nil {
		return fmt.Errorf("%s: %w", contract, err)
	}
	r.states[contract] = state
	return nil
}

// fail marks contract failed and returns err
func (r *stepRunner) fail(contract string, err error) error {
	if contract != "" {
		r.states[contract] = models.StateFailed
	}
	return err
}

func (r *stepRunner) emit(ctx context.Context, stage, contract string, current int, msg string, spinner bool) {
	r.progress.OnProgress(ctx, ProgressEvent{
		Stage:    stage,
		Contract: contract,
		Current:  current,
		Total:    r.total,
		Message:  msg,
		Spinner:  spinner,
	})
}

// declare declares the class once per run and waits for the declare transaction
func (r *stepRunner) declare(ctx context.Context, contract string, current int, art resolvedArtifact) (*models.DeclaredClass, error) {
	if err := r.advance(contract, models.StateDeclaring); err != nil {
		return nil, err
	}
	if class, ok := r.declared[art.hash]; ok {
		return class, r.advance(contract, models.StateDeclared)
	}

	r.emit(ctx, StageDeclaring, contract, current, fmt.Sprintf("Declaring %s", contract), true)
	class, err := r.chain.Declare(context.WithoutCancel(ctx), art.artifact)
	if err != nil {
		return nil, &domain.StepError{Contract: contract, Step: domain.StepDeclare, Err: err}
	}
	if class.TxHash != nil {
		if _, err := r.wait(ctx, contract, current, *class.TxHash); err != nil {
			return nil, &domain.StepError{Contract: contract, Step: domain.StepDeclare, Err: err}
		}
	}

	msg := fmt.Sprintf("Declared %s (class %s)", contract, class.ClassHash.Short())
	if class.AlreadyDeclared {
		msg = fmt.Sprintf("%s already declared (class %s)", contract, class.ClassHash.Short())
	}
	r.emit(ctx, StageDeclared, contract, current, msg, false)
	r.declared[art.hash] = class
	return class, r.advance(contract, models.StateDeclared)
}

// wait blocks until txHash is accepted; rejections and reverts are errors
func (r *stepRunner) wait(ctx context.Context, contract string, current int, txHash models.Felt) (*models.Receipt, error) {
	r.emit(ctx, StageWaiting, contract, current, fmt.Sprintf("Waiting for %s", txHash.Short()), true)
	receipt, err := r.chain.WaitForConfirmation(context.WithoutCancel(ctx), txHash)
	if err != nil {
		return nil, err
	}
	if !receipt.Accepted() {
		return nil, &domain.TransactionRejectedError{
			TxHash: txHash.Short(),
			Status: receipt.ExecutionStatus,
			Reason: receipt.RevertReason,
		}
	}
	r.log.Debug("transaction accepted", "contract", contract, "tx", txHash.Short(), "block", receipt.BlockNumber)
	return receipt, nil
}

// resolveArtifacts resolves and fingerprints every contract before any chain call
func resolveArtifacts(ctx context.Context, resolver ArtifactResolver, specs []models.ContractSpec) (map[string]resolvedArtifact, error) {
	out := make(map[string]resolvedArtifact, len(specs))
	for _, spec := range specs {
		art, err := resolver.Resolve(ctx, spec)
		if err != nil {
			return nil, &domain.StepError{Contract: spec.Name, Step: domain.StepResolve, Err: err}
		}
		hash, err := resolver.ClassHashOf(art)
		if err != nil {
			return nil, &domain.StepError{Contract: spec.Name, Step: domain.StepResolve, Err: err}
		}
		out[spec.Name] = resolvedArtifact{artifact: art, hash: hash}
	}
	return out, nil
}

// buildArtifacts runs the compiler unless the run skips it
func buildArtifacts(ctx context.Context, cfg *config.RuntimeConfig, builder ArtifactBuilder, progress ProgressSink, feature string) error {
	if cfg.SkipBuild {
		return nil
	}
	progress.OnProgress(ctx, ProgressEvent{Stage: StageBuilding, Message: "Building contracts", Spinner: true})
	if err := builder.Build(ctx, BuildOptions{Profile: cfg.Project.Profile, Feature: feature}); err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	progress.OnProgress(ctx, ProgressEvent{Stage: StageBuilt, Message: "Contracts built"})
	return nil
}

// confirmProduction asks before touching a production network
func confirmProduction(ctx context.Context, cfg *config.RuntimeConfig, confirmer Confirmer, action string) error {
	if cfg.DryRun || !cfg.Network.Name.IsProduction() {
		return nil
	}
	ok, err := confirmer.Confirm(ctx, fmt.Sprintf("%s on %s?", action, cfg.Network.Name))
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAborted
	}
	return nil
}

// exportLedger writes the ledger even when ctx is already cancelled
func exportLedger(ctx context.Context, store LedgerStore, ledger *models.Ledger, progress ProgressSink) (*models.ExportResult, error) {
	res, err := store.Export(context.WithoutCancel(ctx), ledger)
	if err != nil {
		return nil, fmt.Errorf("failed to export ledger: %w", err)
	}
	if res.LatestPath != "" {
		progress.OnProgress(ctx, ProgressEvent{Stage: StageExported, Message: fmt.Sprintf("Ledger written to %s", res.LatestPath)})
	}
	return res, nil
}
