package starknet

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cofi-market/cofi-deploy/internal/adapters/sncast"
	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/cairo"
	"github.com/cofi-market/cofi-deploy/internal/domain/config"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/cofi-market/cofi-deploy/internal/usecase"
	"github.com/samber/lo"
)

// Gateway submits transactions through sncast and confirms them over JSON-RPC
type Gateway struct {
	network *config.Network
	cfg     *config.RuntimeConfig
	cast    *sncast.Executor
	log     *slog.Logger

	mu      sync.Mutex
	client  *Client
	poller  *Poller
	checked bool
}

// NewGateway creates a gateway for the configured network
func NewGateway(cfg *config.RuntimeConfig, cast *sncast.Executor, log *slog.Logger) *Gateway {
	return &Gateway{
		network: cfg.Network,
		cfg:     cfg,
		cast:    cast,
		log:     log.With("component", "StarknetGateway"),
	}
}

// connect dials lazily and verifies the chain id once
func (g *Gateway) connect(ctx context.Context) (*Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.network == nil {
		return nil, fmt.Errorf("no network configured")
	}
	if g.client == nil {
		c, err := Dial(ctx, g.network.RPCURL)
		if err != nil {
			return nil, err
		}
		g.client = c
		g.poller = NewPoller(c, g.cfg.PollInterval, g.cfg.ConfirmTimeout, g.log)
	}
	if !g.checked && g.network.ChainID != "" {
		chainID, err := g.client.ChainID(ctx)
		if err != nil {
			return nil, err
		}
		if chainID != g.network.ChainID {
			return nil, fmt.Errorf("chain ID mismatch: %s expects %s, RPC reports %s", g.network.Name, g.network.ChainID, chainID)
		}
		g.checked = true
	}
	return g.client, nil
}

// Declare declares the artifact's class; an already declared class is reused
func (g *Gateway) Declare(ctx context.Context, artifact *models.Artifact) (*models.DeclaredClass, error) {
	if _, err := g.connect(ctx); err != nil {
		return nil, err
	}
	res, err := g.cast.Declare(ctx, artifact)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDeclareFailed, artifact.Name, err)
	}
	g.log.Debug("declared", "contract", artifact.Name, "class_hash", res.ClassHash, "already_declared", res.AlreadyDeclared)
	return &models.DeclaredClass{
		Contract:        artifact.Name,
		ClassHash:       res.ClassHash,
		TxHash:          res.TxHash,
		AlreadyDeclared: res.AlreadyDeclared,
		Artifact:        artifact,
	}, nil
}

// Deploy encodes args against the class constructor and deploys an instance
func (g *Gateway) Deploy(ctx context.Context, class *models.DeclaredClass, args models.Args) (*models.DeployResult, error) {
	if _, err := g.connect(ctx); err != nil {
		return nil, err
	}

	var abi *cairo.ABI
	if class.Artifact != nil {
		parsed, err := cairo.ParseABI(class.Artifact.ABI)
		if err != nil {
			return nil, err
		}
		abi = parsed
	}
	calldata, err := abi.EncodeConstructor(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s constructor: %v", domain.ErrDeployFailed, class.Contract, err)
	}

	res, err := g.cast.Deploy(ctx, class.ClassHash, calldata)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDeployFailed, class.Contract, err)
	}
	return res, nil
}

// InvokeBatch submits all calls in one transaction
func (g *Gateway) InvokeBatch(ctx context.Context, calls []models.Call) (models.Felt, error) {
	if len(calls) == 0 {
		return models.Felt{}, fmt.Errorf("%w: empty batch", domain.ErrInvokeFailed)
	}
	if _, err := g.connect(ctx); err != nil {
		return models.Felt{}, err
	}

	encoded := make([]cairo.EncodedCall, 0, len(calls))
	for _, c := range calls {
		enc, err := cairo.EncodeCall(c)
		if err != nil {
			return models.Felt{}, fmt.Errorf("%w: %v", domain.ErrInvokeFailed, err)
		}
		encoded = append(encoded, enc)
	}

	var (
		tx  models.Felt
		err error
	)
	if len(encoded) == 1 {
		tx, err = g.cast.Invoke(ctx, encoded[0].To, encoded[0].Entrypoint, encoded[0].Calldata)
	} else {
		tx, err = g.cast.Multicall(ctx, lo.Map(encoded, func(c cairo.EncodedCall, _ int) sncast.MulticallEntry {
			return sncast.MulticallEntry{
				CallType:        "invoke",
				ContractAddress: c.To.String(),
				Function:        c.Entrypoint,
				Inputs:          lo.Map(c.Calldata, func(f models.Felt, _ int) string { return f.Short() }),
			}
		}))
	}
	if err != nil {
		return models.Felt{}, fmt.Errorf("%w: %v", domain.ErrInvokeFailed, err)
	}
	return tx, nil
}

// WaitForConfirmation polls until the transaction is final
func (g *Gateway) WaitForConfirmation(ctx context.Context, txHash models.Felt) (*models.Receipt, error) {
	if _, err := g.connect(ctx); err != nil {
		return nil, err
	}
	return g.poller.Wait(ctx, txHash)
}

// ChainID returns the chain id reported by the node
func (g *Gateway) ChainID(ctx context.Context) (string, error) {
	c, err := g.connect(ctx)
	if err != nil {
		return "", err
	}
	return c.ChainID(ctx)
}

// ClassHashAt returns the class of the contract at address
func (g *Gateway) ClassHashAt(ctx context.Context, address models.Felt) (models.Felt, error) {
	c, err := g.connect(ctx)
	if err != nil {
		return models.Felt{}, err
	}
	return c.ClassHashAt(ctx, address)
}

var (
	_ usecase.ChainGateway   = (*Gateway)(nil)
	_ usecase.ChainInspector = (*Gateway)(nil)
)
