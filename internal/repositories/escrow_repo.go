package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aleo-freelance/backend/internal/db"
	"github.com/aleo-freelance/backend/internal/models"
	"github.com/google/uuid"
)

// ErrMilestoneConflict means the compare-and-swap on the milestone index
// found the row already advanced: a concurrent approval won.
var ErrMilestoneConflict = errors.New("milestone index changed concurrently")

type EscrowRepo struct {
	db db.Querier
}

func NewEscrowRepo(q db.Querier) *EscrowRepo {
	return &EscrowRepo{db: q}
}

const escrowColumns = `id, ledger_id, client_address, freelancer_address,
	       total_amount, milestone_amounts, current_milestone, remaining_amount,
	       milestone_submitted, status, description, created_at, completed_at`

func (r *EscrowRepo) scanEscrow(row interface{ Scan(...any) error }) (*models.Escrow, error) {
	var e models.Escrow
	err := row.Scan(&e.ID, &e.LedgerID, &e.ClientAddress, &e.FreelancerAddress,
		&e.TotalAmount, &e.MilestoneAmounts, &e.CurrentMilestone, &e.RemainingAmount,
		&e.MilestoneSubmitted, &e.Status, &e.Description, &e.CreatedAt, &e.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EscrowRepo) Create(ctx context.Context, e *models.Escrow) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO escrows (ledger_id, client_address, freelancer_address,
			total_amount, milestone_amounts, current_milestone, remaining_amount,
			milestone_submitted, status, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, e.LedgerID, e.ClientAddress, e.FreelancerAddress,
		e.TotalAmount, e.MilestoneAmounts, e.CurrentMilestone, e.RemainingAmount,
		e.MilestoneSubmitted, e.Status, e.Description,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Escrow, error) {
	return r.scanEscrow(r.db.QueryRow(ctx, `
		SELECT `+escrowColumns+` FROM escrows WHERE id = $1
	`, id))
}

func (r *EscrowRepo) GetByLedgerID(ctx context.Context, ledgerID string) (*models.Escrow, error) {
	return r.scanEscrow(r.db.QueryRow(ctx, `
		SELECT `+escrowColumns+` FROM escrows WHERE ledger_id = $1
	`, ledgerID))
}

type EscrowFilter struct {
	Address string // matches either side
	Status  *string
	Limit   int
	Offset  int
}

func (r *EscrowRepo) List(ctx context.Context, f EscrowFilter) ([]models.Escrow, error) {
	query := `SELECT ` + escrowColumns + ` FROM escrows
		WHERE (client_address = $1 OR freelancer_address = $1)`
	args := []any{f.Address}
	argIdx := 2

	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *f.Status)
		argIdx++
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escrows []models.Escrow
	for rows.Next() {
		e, err := r.scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		escrows = append(escrows, *e)
	}
	return escrows, rows.Err()
}

func (r *EscrowRepo) SetMilestoneSubmitted(ctx context.Context, id uuid.UUID, submitted bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE escrows SET milestone_submitted = $1 WHERE id = $2
	`, submitted, id)
	return err
}

// ApplyApproval commits one approval outcome with a compare-and-swap on the
// milestone index: the update only lands if the row still sits at
// expectMilestone. RemainingAmount shrinks by exactly the released share.
func (r *EscrowRepo) ApplyApproval(ctx context.Context, id uuid.UUID, expectMilestone int, out models.ApprovalOutcome, now time.Time) error {
	status := models.EscrowStatusActive
	var completedAt *time.Time
	if out.Completed {
		status = models.EscrowStatusCompleted
		completedAt = &now
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE escrows SET
			current_milestone = $1,
			remaining_amount = remaining_amount - $2,
			milestone_submitted = false,
			status = $3,
			completed_at = $4
		WHERE id = $5 AND current_milestone = $6
	`, out.NextMilestone, out.Released, status, completedAt, id, expectMilestone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMilestoneConflict
	}
	return nil
}
