// Package simulated provides an in-memory Starknet chain used for dry runs and tests.
package simulated

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/cairo"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
)

// OpKind names a submitted operation
type OpKind string

const (
	OpDeclare OpKind = "declare"
	OpDeploy  OpKind = "deploy"
	OpInvoke  OpKind = "invoke"
)

// Op is one submission recorded by the chain
type Op struct {
	Kind        OpKind
	Contract    string
	ClassHash   models.Felt
	Address     models.Felt
	Entrypoints []string
	Calls       []cairo.EncodedCall // invokes only
	TxHash      models.Felt
}

// FailFunc injects failures. For declare and deploy a non-nil error fails the
// submission; for invokes the batch is accepted and then reverts with the error text.
type FailFunc func(op Op) error

// Gateway is a deterministic in-memory chain
type Gateway struct {
	mu        sync.Mutex
	chainID   string
	deployer  models.Felt
	nonce     uint64
	block     uint64
	declared  map[models.Felt]bool
	contracts map[models.Felt]models.Felt
	receipts  map[models.Felt]*models.Receipt
	ops       []Op
	lenient   bool
	failOn    FailFunc
	log       *slog.Logger
}

// New creates an empty chain whose deployments originate from deployer
func New(deployer models.Felt, chainID string, log *slog.Logger) *Gateway {
	return &Gateway{
		chainID:   chainID,
		deployer:  deployer,
		declared:  make(map[models.Felt]bool),
		contracts: make(map[models.Felt]models.Felt),
		receipts:  make(map[models.Felt]*models.Receipt),
		log:       log.With("component", "SimulatedChain"),
	}
}

// NewGatewayFromConfig creates the dry-run chain. Contracts recorded in an
// existing ledger are unknown to it, so invokes against them are accepted.
func NewGatewayFromConfig(cfg *config.RuntimeConfig, log *slog.Logger) *Gateway {
	var (
		deployer models.Felt
		chainID  string
	)
	if cfg.Network != nil {
		deployer = cfg.Network.DeployerAddress
		chainID = cfg.Network.ChainID
	}
	g := New(deployer, chainID, log)
	g.lenient = true
	return g
}

// FailOn installs a failure hook
func (g *Gateway) FailOn(fn FailFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failOn = fn
}

// Ops returns a copy of the operation log
func (g *Gateway) Ops() []Op {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Op, len(g.ops))
	copy(out, g.ops)
	return out
}

// ClassOf returns the class currently at address
func (g *Gateway) ClassOf(address models.Felt) (models.Felt, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.contracts[address]
	return c, ok
}

// Declare declares artifact; declaring the same program twice reports AlreadyDeclared
func (g *Gateway) Declare(ctx context.Context, artifact *models.Artifact) (*models.DeclaredClass, error) {
	classHash, err := cairo.Fingerprint(artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeclareFailed, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	op := Op{Kind: OpDeclare, Contract: artifact.Name, ClassHash: classHash}
	if err := g.fail(op); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDeclareFailed, artifact.Name, err)
	}

	class := &models.DeclaredClass{Contract: artifact.Name, ClassHash: classHash, Artifact: artifact}
	if g.declared[classHash] {
		class.AlreadyDeclared = true
		g.log.Debug("class already declared", "contract", artifact.Name, "class_hash", classHash.Short())
		return class, nil
	}

	g.declared[classHash] = true
	tx := g.accept(models.ExecutionSucceeded, "")
	class.TxHash = &tx
	op.TxHash = tx
	g.ops = append(g.ops, op)
	return class, nil
}

// Deploy deploys an instance at a deterministic address
func (g *Gateway) Deploy(ctx context.Context, class *models.DeclaredClass, args models.Args) (*models.DeployResult, error) {
	var abi *cairo.ABI
	if class.Artifact != nil {
		parsed, err := cairo.ParseABI(class.Artifact.ABI)
		if err != nil {
			return nil, err
		}
		abi = parsed
	}
	if _, err := abi.EncodeConstructor(args); err != nil {
		return nil, fmt.Errorf("%w: %s constructor: %v", domain.ErrDeployFailed, class.Contract, err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.declared[class.ClassHash] {
		return nil, fmt.Errorf("%w: class %s is not declared", domain.ErrDeployFailed, class.ClassHash.Short())
	}

	g.nonce++
	address := cairo.HashFelts(g.deployer, class.ClassHash, models.NewFelt(g.nonce))
	op := Op{Kind: OpDeploy, Contract: class.Contract, ClassHash: class.ClassHash, Address: address}
	if err := g.fail(op); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDeployFailed, class.Contract, err)
	}

	g.contracts[address] = class.ClassHash
	tx := g.accept(models.ExecutionSucceeded, "")
	op.TxHash = tx
	g.ops = append(g.ops, op)
	return &models.DeployResult{Address: address, TxHash: tx}, nil
}

// InvokeBatch applies all calls or none of them. upgrade(class_hash) replaces
// the class of the target.
func (g *Gateway) InvokeBatch(ctx context.Context, calls []models.Call) (models.Felt, error) {
	if len(calls) == 0 {
		return models.Felt{}, fmt.Errorf("%w: empty batch", domain.ErrInvokeFailed)
	}

	encoded := make([]cairo.EncodedCall, 0, len(calls))
	for _, c := range calls {
		enc, err := cairo.EncodeCall(c)
		if err != nil {
			return models.Felt{}, fmt.Errorf("%w: %v", domain.ErrInvokeFailed, err)
		}
		encoded = append(encoded, enc)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	op := Op{Kind: OpInvoke, Calls: encoded}
	for _, c := range encoded {
		op.Entrypoints = append(op.Entrypoints, c.Entrypoint)
	}
	if len(encoded) == 1 {
		op.Address = encoded[0].To
	}

	revert := ""
	upgrades := make(map[models.Felt]models.Felt)
	for _, c := range encoded {
		if _, ok := g.contracts[c.To]; !ok && !g.lenient {
			revert = fmt.Sprintf("no contract at %s", c.To.Short())
			break
		}
		if c.Entrypoint == "upgrade" {
			if len(c.Calldata) != 1 || !g.declared[c.Calldata[0]] {
				revert = "Class hash not found"
				break
			}
			upgrades[c.To] = c.Calldata[0]
		}
	}
	if revert == "" {
		if err := g.fail(op); err != nil {
			revert = err.Error()
		}
	}

	if revert != "" {
		op.TxHash = g.accept(models.ExecutionReverted, revert)
		g.ops = append(g.ops, op)
		return op.TxHash, nil
	}

	for addr, class := range upgrades {
		g.contracts[addr] = class
	}
	op.TxHash = g.accept(models.ExecutionSucceeded, "")
	g.ops = append(g.ops, op)
	return op.TxHash, nil
}

// WaitForConfirmation returns the stored receipt
func (g *Gateway) WaitForConfirmation(ctx context.Context, txHash models.Felt) (*models.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	r, ok := g.receipts[txHash]
	if !ok {
		return nil, fmt.Errorf("%w: transaction %s unknown", domain.ErrTimeout, txHash.Short())
	}
	if r.ExecutionStatus == models.ExecutionReverted {
		return r, &domain.TransactionRejectedError{
			TxHash: txHash.Short(),
			Status: r.ExecutionStatus,
			Reason: r.RevertReason,
		}
	}
	receipt := *r
	return &receipt, nil
}

// ChainID returns the configured chain id
func (g *Gateway) ChainID(ctx context.Context) (string, error) {
	return g.chainID, nil
}

// ClassHashAt returns the class deployed at address
func (g *Gateway) ClassHashAt(ctx context.Context, address models.Felt) (models.Felt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.contracts[address]
	if !ok {
		return models.Felt{}, fmt.Errorf("%w at %s", domain.ErrContractNotFound, address)
	}
	return c, nil
}

func (g *Gateway) fail(op Op) error {
	if g.failOn == nil {
		return nil
	}
	return g.failOn(op)
}

// accept records a receipt in a new block; callers hold g.mu
func (g *Gateway) accept(status, reason string) models.Felt {
	g.block++
	tx := cairo.HashFelts(g.deployer, models.NewFelt(g.block), models.NewFelt(uint64(len(g.ops))))
	g.receipts[tx] = &models.Receipt{
		TxHash:          tx,
		ExecutionStatus: status,
		FinalityStatus:  models.FinalityAcceptedL2,
		BlockNumber:     g.block,
		RevertReason:    reason,
	}
	return tx
}

var (
	_ usecase.ChainGateway   = (*Gateway)(nil)
	_ usecase.ChainInspector = (*Gateway)(nil)
)
