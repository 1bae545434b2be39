package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/sahilm/fuzzy"
)

// CheckStatus is the outcome of comparing one record with the chain
type CheckStatus string

const (
	CheckMatch    CheckStatus = "match"
	CheckMismatch CheckStatus = "mismatch"
	CheckMissing  CheckStatus = "missing"
	CheckError    CheckStatus = "error"
)

// CheckLedgerParams contains parameters for checking the ledger
type CheckLedgerParams struct {
	Contract string // empty checks every record
}

// CheckEntry is one compared record
type CheckEntry struct {
	Record  models.DeploymentRecord
	OnChain models.Felt
	Status  CheckStatus
	Err     error
}

// CheckLedgerResult contains the comparison for a network
type CheckLedgerResult struct {
	Network models.Network
	ChainID string
	Entries []CheckEntry
}

// InSync reports whether every record matched the chain
func (r *CheckLedgerResult) InSync() bool {
	for _, e := range r.Entries {
		if e.Status != CheckMatch {
			return false
		}
	}
	return true
}

// CheckLedger compares ledger class hashes with the classes deployed on chain
type CheckLedger struct {
	config    *config.RuntimeConfig
	store     LedgerStore
	inspector ChainInspector
	sink      ProgressSink
}

// NewCheckLedger creates a new CheckLedger use case
func NewCheckLedger(cfg *config.RuntimeConfig, store LedgerStore, inspector ChainInspector, sink ProgressSink) *CheckLedger {
	return &CheckLedger{
		config:    cfg,
		store:     store,
		inspector: inspector,
		sink:      sink,
	}
}

// Run executes the check
func (uc *CheckLedger) Run(ctx context.Context, params CheckLedgerParams) (*CheckLedgerResult, error) {
	ledger, err := uc.store.Load(ctx, uc.config.Network.Name, false)
	if err != nil {
		return nil, err
	}

	records := ledger.Records()
	if params.Contract != "" {
		rec, ok := ledger.Get(params.Contract)
		if !ok {
			return nil, &domain.UnknownContractError{
				Name:        params.Contract,
				Suggestions: suggestNames(params.Contract, ledger.Names()),
			}
		}
		records = []models.DeploymentRecord{rec}
	}

	chainID, err := uc.inspector.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain ID: %w", err)
	}

	result := &CheckLedgerResult{Network: ledger.Network, ChainID: chainID}
	for i, rec := range records {
		uc.sink.OnProgress(ctx, ProgressEvent{
			Stage:    StageChecking,
			Contract: rec.Contract,
			Current:  i + 1,
			Total:    len(records),
			Message:  fmt.Sprintf("Checking %s", rec.Contract),
			Spinner:  true,
		})

		entry := CheckEntry{Record: rec}
		onChain, err := uc.inspector.ClassHashAt(ctx, rec.Address)
		switch {
		case errors.Is(err, domain.ErrContractNotFound):
			entry.Status = CheckMissing
		case err != nil:
			entry.Status = CheckError
			entry.Err = err
		case onChain.Equal(rec.ClassHash):
			entry.Status = CheckMatch
			entry.OnChain = onChain
		default:
			entry.Status = CheckMismatch
			entry.OnChain = onChain
		}
		result.Entries = append(result.Entries, entry)
	}

	uc.sink.OnProgress(ctx, ProgressEvent{Stage: StageComplete, Message: "Check complete"})
	return result, nil
}

// suggestNames returns up to three names fuzzily matching name
func suggestNames(name string, names []string) []string {
	var out []string
	for _, m := range fuzzy.Find(name, names) {
		out = append(out, m.Str)
		if len(out) == 3 {
			break
		}
	}
	return out
}
