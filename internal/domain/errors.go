package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// Sentinel errors for orchestration operations
var (
	// ErrArtifactNotFound is returned when no compiled output exists for a contract
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrDeclareFailed is returned when the chain rejects a declare
	ErrDeclareFailed = errors.New("declare failed")

	// ErrDeployFailed is returned when the chain rejects a deploy
	ErrDeployFailed = errors.New("deploy failed")

	// ErrInvokeFailed is returned when the chain rejects an invoke or multicall
	ErrInvokeFailed = errors.New("invoke failed")

	// ErrMissingPriorDeployment is returned when upgrading a contract that was never deployed
	ErrMissingPriorDeployment = errors.New("missing prior deployment")

	// ErrCorruptLedger is returned when a persisted manifest exists but cannot be parsed
	ErrCorruptLedger = errors.New("corrupt ledger")

	// ErrTransactionRejected is returned when the chain reports a reverted or rejected transaction
	ErrTransactionRejected = errors.New("transaction rejected")

	// ErrTimeout is returned when a transaction is not confirmed within the configured wait
	ErrTimeout = errors.New("confirmation timeout")

	// ErrInvalidTopology is returned for malformed topologies (duplicates, cycles, bad references)
	ErrInvalidTopology = errors.New("invalid topology")

	// ErrUnresolvedReference is returned when a reference cannot be bound to an address
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrUnknownNetwork is returned for networks outside devnet, sepolia and mainnet
	ErrUnknownNetwork = errors.New("unknown network")

	// ErrContractNotFound is returned when no contract is deployed at an address
	ErrContractNotFound = errors.New("contract not found")

	// ErrAborted is returned when the operator declines a confirmation
	ErrAborted = errors.New("aborted by operator")
)

// Step names reported in StepError
const (
	StepResolve = "resolve"
	StepDeclare = "declare"
	StepDeploy  = "deploy"
	StepUpgrade = "upgrade"
	StepWiring  = "wiring"
	StepConfirm = "confirm"
)

// StepError identifies which contract and step aborted a run
type StepError struct {
	Contract string
	Step     string
	Err      error
}

func (e *StepError) Error() string {
	if e.Contract == "" {
		return fmt.Sprintf("%s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s of %s failed: %v", e.Step, e.Contract, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// MissingPriorDeploymentError lists the contracts an upgrade cannot proceed without
type MissingPriorDeploymentError struct {
	Network   models.Network
	Contracts []string
}

func (e *MissingPriorDeploymentError) Error() string {
	return fmt.Sprintf("cannot upgrade on %s: no existing deployment for %s (run a fresh deploy first)",
		e.Network, strings.Join(e.Contracts, ", "))
}

func (e *MissingPriorDeploymentError) Is(target error) bool {
	return target == ErrMissingPriorDeployment
}

// CorruptLedgerError reports the manifest that failed to parse
type CorruptLedgerError struct {
	Path string
	Err  error
}

func (e *CorruptLedgerError) Error() string {
	return fmt.Sprintf("corrupt ledger %s: %v", e.Path, e.Err)
}

func (e *CorruptLedgerError) Is(target error) bool {
	return target == ErrCorruptLedger
}

func (e *CorruptLedgerError) Unwrap() error {
	return e.Err
}

// TransactionRejectedError carries the chain's rejection reason
type TransactionRejectedError struct {
	TxHash string
	Status string
	Reason string
}

func (e *TransactionRejectedError) Error() string {
	msg := fmt.Sprintf("transaction %s %s", e.TxHash, strings.ToLower(e.Status))
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransactionRejectedError) Is(target error) bool {
	return target == ErrTransactionRejected
}

// UnknownContractError is returned when a contract name is not in the ledger
type UnknownContractError struct {
	Name        string
	Suggestions []string
}

func (e *UnknownContractError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown contract %q", e.Name)
	}
	return fmt.Sprintf("unknown contract %q, did you mean: %s?", e.Name, strings.Join(e.Suggestions, ", "))
}
