package starknet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
)

// JSON-RPC error codes defined by the Starknet RPC spec
const (
	codeContractNotFound = 20
	codeTxHashNotFound   = 29
)

// TransactionStatus is the result of starknet_getTransactionStatus
type TransactionStatus struct {
	FinalityStatus  string `json:"finality_status"`
	ExecutionStatus string `json:"execution_status,omitempty"`
	FailureReason   string `json:"failure_reason,omitempty"`
}

type receiptResult struct {
	TransactionHash string `json:"transaction_hash"`
	ExecutionStatus string `json:"execution_status"`
	FinalityStatus  string `json:"finality_status"`
	BlockNumber     uint64 `json:"block_number"`
	RevertReason    string `json:"revert_reason,omitempty"`
}

// Client is a thin Starknet JSON-RPC client
type Client struct {
	rpc *rpc.Client
}

// Dial connects to a Starknet node
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying connection
func (c *Client) Close() {
	c.rpc.Close()
}

// ChainID returns the decoded chain id, e.g. SN_SEPOLIA
func (c *Client) ChainID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var raw string
	if err := c.rpc.CallContext(ctx, &raw, "starknet_chainId"); err != nil {
		return "", fmt.Errorf("failed to get chain ID: %w", err)
	}
	return decodeShortString(raw)
}

// ClassHashAt returns the class of the contract deployed at address
func (c *Client) ClassHashAt(ctx context.Context, address models.Felt) (models.Felt, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var raw string
	err := c.rpc.CallContext(ctx, &raw, "starknet_getClassHashAt", "latest", address.String())
	if err != nil {
		if rpcErrorCode(err) == codeContractNotFound {
			return models.Felt{}, fmt.Errorf("%w at %s", domain.ErrContractNotFound, address)
		}
		return models.Felt{}, fmt.Errorf("failed to get class hash: %w", err)
	}
	return models.ParseFelt(raw)
}

// TransactionStatus returns nil, nil while the node does not know the transaction yet
func (c *Client) TransactionStatus(ctx context.Context, txHash models.Felt) (*TransactionStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var status TransactionStatus
	if err := c.rpc.CallContext(ctx, &status, "starknet_getTransactionStatus", txHash.String()); err != nil {
		if rpcErrorCode(err) == codeTxHashNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &status, nil
}

// TransactionReceipt fetches the receipt of an accepted transaction
func (c *Client) TransactionReceipt(ctx context.Context, txHash models.Felt) (*models.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var r receiptResult
	if err := c.rpc.CallContext(ctx, &r, "starknet_getTransactionReceipt", txHash.String()); err != nil {
		return nil, err
	}
	return &models.Receipt{
		TxHash:          txHash,
		ExecutionStatus: r.ExecutionStatus,
		FinalityStatus:  r.FinalityStatus,
		BlockNumber:     r.BlockNumber,
		RevertReason:    r.RevertReason,
	}, nil
}

func rpcErrorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

// decodeShortString turns a felt-encoded ASCII string back into text
func decodeShortString(raw string) (string, error) {
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return "", fmt.Errorf("invalid chain id %q", raw)
	}
	return strings.TrimLeft(string(common.FromHex(raw)), "\x00"), nil
}
