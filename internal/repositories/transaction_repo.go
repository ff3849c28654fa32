package repositories

import (
	"context"
	"time"

	"github.com/aleo-freelance/backend/internal/db"
	"github.com/aleo-freelance/backend/internal/models"
	"github.com/google/uuid"
)

// Ledger function names the audit log correlates by.
const (
	FuncRegisterClient     = "register_client"
	FuncRegisterFreelancer = "register_freelancer"
	FuncDepositFunds       = "deposit_funds"
	FuncCreateEscrow       = "create_escrow"
	FuncSubmitMilestone    = "submit_milestone"
	FuncApproveAndRelease  = "approve_and_release"
	FuncWithdrawFunds      = "withdraw_funds"
)

type TransactionRepo struct {
	db db.Querier
}

func NewTransactionRepo(q db.Querier) *TransactionRepo {
	return &TransactionRepo{db: q}
}

const txColumns = `id, transaction_id, function_name, caller_address, related_addresses,
	       inputs, status, escrow_id, milestone_index, block_height, confirmed_at, created_at`

func (r *TransactionRepo) scanTx(row interface{ Scan(...any) error }) (*models.TransactionRecord, error) {
	var t models.TransactionRecord
	err := row.Scan(&t.ID, &t.TransactionID, &t.FunctionName, &t.CallerAddress, &t.RelatedAddresses,
		&t.Inputs, &t.Status, &t.EscrowID, &t.MilestoneIndex, &t.BlockHeight, &t.ConfirmedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TransactionRepo) Create(ctx context.Context, t *models.TransactionRecord) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO transactions (transaction_id, function_name, caller_address,
			related_addresses, inputs, status, escrow_id, milestone_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, t.TransactionID, t.FunctionName, t.CallerAddress,
		t.RelatedAddresses, t.Inputs, t.Status, t.EscrowID, t.MilestoneIndex,
	).Scan(&t.ID, &t.CreatedAt)
}

// Finalize rewrites the audit row with the ledger's final transaction id.
// The ledger may assign a different id during finalization, and every later
// correlation lookup goes through the final one.
func (r *TransactionRepo) Finalize(ctx context.Context, id uuid.UUID, finalTxID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE transactions SET transaction_id = $1, status = $2 WHERE id = $3
	`, finalTxID, models.TxStatusAccepted, id)
	return err
}

// LinkEscrow attaches an escrow row id to an audit row created before the
// escrow existed (the create_escrow path mints the escrow after finality).
func (r *TransactionRepo) LinkEscrow(ctx context.Context, id, escrowID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		UPDATE transactions SET escrow_id = $1 WHERE id = $2
	`, escrowID, id)
	return err
}

// GetCorrelating finds the transaction record whose minted Escrow record is
// spendable for approving the given milestone: the create_escrow row for
// milestone 0, the approve_and_release row of the immediately prior
// milestone otherwise.
func (r *TransactionRepo) GetCorrelating(ctx context.Context, escrowID uuid.UUID, milestone int) (*models.TransactionRecord, error) {
	if milestone == 0 {
		return r.scanTx(r.db.QueryRow(ctx, `
			SELECT `+txColumns+` FROM transactions
			WHERE escrow_id = $1 AND function_name = $2
			ORDER BY created_at ASC LIMIT 1
		`, escrowID, FuncCreateEscrow))
	}
	return r.scanTx(r.db.QueryRow(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE escrow_id = $1 AND function_name = $2 AND milestone_index = $3
		ORDER BY created_at ASC LIMIT 1
	`, escrowID, FuncApproveAndRelease, milestone-1))
}

// ListPending returns audit rows still awaiting on-chain confirmation,
// oldest first. The worker resolves them.
func (r *TransactionRepo) ListPending(ctx context.Context, limit int) ([]models.TransactionRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE status IN ($1, $2) AND confirmed_at IS NULL
		ORDER BY created_at ASC LIMIT $3
	`, models.TxStatusPending, models.TxStatusAccepted, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransactionRecord
	for rows.Next() {
		t, err := r.scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) MarkStatus(ctx context.Context, txID, status string, blockHeight *int64, confirmedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE transactions SET status = $1, block_height = $2, confirmed_at = $3
		WHERE transaction_id = $4
	`, status, blockHeight, confirmedAt, txID)
	return err
}

func (r *TransactionRepo) MarkExpired(ctx context.Context, txID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE transactions SET status = $1 WHERE transaction_id = $2
	`, models.TxStatusExpired, txID)
	return err
}

func (r *TransactionRepo) ListByEscrow(ctx context.Context, escrowID uuid.UUID, limit int) ([]models.TransactionRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE escrow_id = $1 ORDER BY created_at DESC LIMIT $2
	`, escrowID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransactionRecord
	for rows.Next() {
		t, err := r.scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
