package starknet

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cofi-market/cofi-deploy/internal/domain"
	"github.com/cofi-market/cofi-deploy/internal/domain/models"
)

// transactionReader is the subset of Client used while waiting
type transactionReader interface {
	TransactionStatus(ctx context.Context, txHash models.Felt) (*TransactionStatus, error)
	TransactionReceipt(ctx context.Context, txHash models.Felt) (*models.Receipt, error)
}

// Poller waits for transactions with exponential backoff between polls
type Poller struct {
	reader       transactionReader
	initialDelay time.Duration
	maxDelay     time.Duration
	timeout      time.Duration
	log          *slog.Logger
}

// NewPoller creates a poller; delays double from interval up to 8x interval
func NewPoller(reader transactionReader, interval, timeout time.Duration, log *slog.Logger) *Poller {
	return &Poller{
		reader:       reader,
		initialDelay: interval,
		maxDelay:     8 * interval,
		timeout:      timeout,
		log:          log,
	}
}

// Wait blocks until txHash is accepted, rejected or reverted, or the timeout elapses.
// Transient transport errors are retried; other RPC errors abort.
func (p *Poller) Wait(ctx context.Context, txHash models.Felt) (*models.Receipt, error) {
	deadline := time.Now().Add(p.timeout)
	delay := p.initialDelay
	attempt := 0

	for {
		attempt++
		receipt, done, err := p.poll(ctx, txHash)
		if done {
			return receipt, err
		}
		if err != nil {
			if !isRecoverableError(err) {
				return nil, fmt.Errorf("failed to poll transaction %s: %w", txHash.Short(), err)
			}
			p.log.Warn("poll failed, retrying", "tx", txHash.Short(), "attempt", attempt, "error", err)
		}

		if time.Now().Add(delay).After(deadline) {
			return nil, fmt.Errorf("%w: transaction %s not accepted after %s", domain.ErrTimeout, txHash.Short(), p.timeout)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while waiting for %s: %w", txHash.Short(), ctx.Err())
		case <-time.After(delay):
			delay *= 2
			if delay > p.maxDelay {
				delay = p.maxDelay
			}
		}
	}
}

// poll reports done=true once the transaction reached a final outcome
func (p *Poller) poll(ctx context.Context, txHash models.Felt) (*models.Receipt, bool, error) {
	status, err := p.reader.TransactionStatus(ctx, txHash)
	if err != nil {
		return nil, false, err
	}
	if status == nil {
		p.log.Debug("transaction not yet known", "tx", txHash.Short())
		return nil, false, nil
	}

	switch status.FinalityStatus {
	case models.ExecutionRejected:
		return nil, true, &domain.TransactionRejectedError{
			TxHash: txHash.Short(),
			Status: models.ExecutionRejected,
			Reason: status.FailureReason,
		}
	case models.FinalityAcceptedL2, models.FinalityAcceptedL1:
	default:
		p.log.Debug("transaction pending", "tx", txHash.Short(), "status", status.FinalityStatus)
		return nil, false, nil
	}

	receipt, err := p.reader.TransactionReceipt(ctx, txHash)
	if err != nil {
		return nil, false, err
	}
	if receipt.ExecutionStatus == models.ExecutionReverted {
		return receipt, true, &domain.TransactionRejectedError{
			TxHash: txHash.Short(),
			Status: models.ExecutionReverted,
			Reason: receipt.RevertReason,
		}
	}
	return receipt, true, nil
}

// isRecoverableError determines if an error is worth retrying
func isRecoverableError(err error) bool {
	if err == nil {
		return false
	}
	if rpcErrorCode(err) != 0 {
		return false
	}

	errStr := strings.ToLower(err.Error())
	recoverablePatterns := []string{
		"connection reset by peer",
		"connection refused",
		"deadline exceeded",
		"timeout",
		"eof",
		"temporarily unavailable",
		"too many requests",
		"502", "503", "504",
	}
	for _, pattern := range recoverablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
