package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/config"
	"github.com/aleo-freelance/backend/internal/models"
	"github.com/aleo-freelance/backend/internal/repositories"
)

// Reconciler resolves audit rows left behind by finality timeouts and
// implied-accepted recoveries: it re-polls their status, stamps confirmed
// rows with block height, fails rejected ones, and expires rows that stayed
// pending past the configured age.
type Reconciler struct {
	txRepo *repositories.TransactionRepo
	wallet aleo.Wallet
	rdb    *redis.Client
	maxAge time.Duration
	log    *zap.Logger
}

func NewReconciler(txRepo *repositories.TransactionRepo, wallet aleo.Wallet, rdb *redis.Client, cfg *config.Config, log *zap.Logger) *Reconciler {
	maxAge := cfg.PendingTxMaxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Reconciler{txRepo: txRepo, wallet: wallet, rdb: rdb, maxAge: maxAge, log: log}
}

// Run processes one batch of unresolved audit rows. Returns the number of
// rows whose status changed.
func (r *Reconciler) Run(ctx context.Context) (int, error) {
	pending, err := r.txRepo.ListPending(ctx, 100)
	if err != nil {
		return 0, fmt.Errorf("list pending transactions: %w", err)
	}

	resolved := 0
	for _, rec := range pending {
		if !r.claim(ctx, rec.TransactionID) {
			continue
		}
		if r.resolve(ctx, rec) {
			resolved++
		}
	}
	return resolved, nil
}

// claim takes a short lease on one transaction id so overlapping worker
// instances don't poll the same row.
func (r *Reconciler) claim(ctx context.Context, txID string) bool {
	ok, err := r.rdb.SetNX(ctx, "reconcile:"+txID, 1, time.Minute).Result()
	if err != nil {
		// redis down: proceed anyway, the status update is idempotent
		return true
	}
	return ok
}

func (r *Reconciler) resolve(ctx context.Context, rec models.TransactionRecord) bool {
	st, err := r.wallet.TransactionStatus(ctx, rec.TransactionID)
	if err != nil {
		r.log.Warn("poll transaction status",
			zap.String("tx", rec.TransactionID), zap.Error(err))
		return false
	}

	now := time.Now().UTC()
	switch st.Status {
	case aleo.StatusAccepted:
		txID := rec.TransactionID
		if st.TransactionID != "" && st.TransactionID != txID {
			// The ledger rewrote the id during finalization.
			if err := r.txRepo.Finalize(ctx, rec.ID, st.TransactionID); err != nil {
				r.log.Error("rewrite final transaction id",
					zap.String("tx", txID), zap.Error(err))
				return false
			}
			txID = st.TransactionID
		}
		if err := r.txRepo.MarkStatus(ctx, txID, models.TxStatusConfirmed, st.BlockHeight, now); err != nil {
			r.log.Error("confirm transaction",
				zap.String("tx", txID), zap.Error(err))
			return false
		}
		r.log.Info("transaction confirmed",
			zap.String("tx", txID),
			zap.String("function", rec.FunctionName))
		return true

	case aleo.StatusPending:
		if now.Sub(rec.CreatedAt) > r.maxAge {
			if err := r.txRepo.MarkExpired(ctx, rec.TransactionID); err != nil {
				r.log.Error("expire transaction",
					zap.String("tx", rec.TransactionID), zap.Error(err))
				return false
			}
			r.log.Warn("transaction expired",
				zap.String("tx", rec.TransactionID),
				zap.Duration("age", now.Sub(rec.CreatedAt)))
			return true
		}
		return false

	default:
		if err := r.txRepo.MarkStatus(ctx, rec.TransactionID, models.TxStatusFailed, st.BlockHeight, now); err != nil {
			r.log.Error("fail transaction",
				zap.String("tx", rec.TransactionID), zap.Error(err))
			return false
		}
		r.log.Warn("transaction rejected",
			zap.String("tx", rec.TransactionID),
			zap.String("status", st.Status))
		return true
	}
}
