package repositories

import (
	"context"

	"github.com/aleo-freelance/backend/internal/db"
	"github.com/aleo-freelance/backend/internal/models"
	"github.com/google/uuid"
)

type MilestoneRepo struct {
	db db.Querier
}

func NewMilestoneRepo(q db.Querier) *MilestoneRepo {
	return &MilestoneRepo{db: q}
}

func (r *MilestoneRepo) Create(ctx context.Context, m *models.MilestoneSubmission) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO milestone_submissions (escrow_id, ledger_id, milestone_index, submitter_address, transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, m.EscrowID, m.LedgerID, m.MilestoneIndex, m.SubmitterAddress, m.TransactionID,
	).Scan(&m.ID, &m.CreatedAt)
}

func (r *MilestoneRepo) ListByEscrow(ctx context.Context, escrowID uuid.UUID) ([]models.MilestoneSubmission, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, escrow_id, ledger_id, milestone_index, submitter_address, transaction_id, created_at
		FROM milestone_submissions WHERE escrow_id = $1
		ORDER BY milestone_index ASC, created_at ASC
	`, escrowID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MilestoneSubmission
	for rows.Next() {
		var m models.MilestoneSubmission
		if err := rows.Scan(&m.ID, &m.EscrowID, &m.LedgerID, &m.MilestoneIndex,
			&m.SubmitterAddress, &m.TransactionID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
