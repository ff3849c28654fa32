package aleo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrTransactionRejected wraps any non-accepted terminal status.
	ErrTransactionRejected = errors.New("transaction rejected")
	// ErrFinalityTimeout means the transaction was still pending when the
	// polling bound expired. The transaction may yet land; callers leave the
	// audit row pending for the worker to resolve.
	ErrFinalityTimeout = errors.New("finality poll timed out")
)

// Tracker converts the wallet's asynchronous submit into a synchronous wait
// for a terminal state. One poll loop per submitted transaction id.
type Tracker struct {
	wallet   Wallet
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewTracker(wallet Wallet, interval, timeout time.Duration, log *zap.Logger) *Tracker {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Tracker{wallet: wallet, interval: interval, timeout: timeout, log: log}
}

// AwaitFinality polls until the transaction reaches a terminal state and
// returns the ledger's FINAL transaction id. The ledger may rewrite ids
// during finalization, so the result is not guaranteed equal to pendingID;
// all subsequent lookups must use the returned id.
func (t *Tracker) AwaitFinality(ctx context.Context, pendingID string) (string, error) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	deadline := time.NewTimer(t.timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			return "", fmt.Errorf("%w after %s (tx %s)", ErrFinalityTimeout, t.timeout, pendingID)
		case <-ticker.C:
			st, err := t.wallet.TransactionStatus(ctx, pendingID)
			if err != nil {
				return "", err
			}
			if st == nil {
				continue
			}

			switch {
			case st.Status == StatusAccepted && st.TransactionID != "":
				t.log.Debug("transaction finalized",
					zap.String("pending_id", pendingID),
					zap.String("final_id", st.TransactionID),
				)
				return st.TransactionID, nil
			case st.Status == StatusPending:
				continue
			default:
				return "", fmt.Errorf("%w: %s", ErrTransactionRejected, st.Status)
			}
		}
	}
}
