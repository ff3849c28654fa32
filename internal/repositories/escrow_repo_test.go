package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleo-freelance/backend/internal/models"
)

func TestEscrowRepoApplyApproval(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	id := uuid.New()
	now := time.Now()

	t.Run("advances milestone under compare-and-swap", func(t *testing.T) {
		out := models.ApprovalOutcome{MilestoneIndex: 0, NextMilestone: 1, Released: 50_000_000}
		mock.ExpectExec(`UPDATE escrows SET`).
			WithArgs(1, int64(50_000_000), models.EscrowStatusActive, (*time.Time)(nil), id, 0).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.ApplyApproval(context.Background(), id, 0, out, now)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("final milestone marks completion", func(t *testing.T) {
		out := models.ApprovalOutcome{MilestoneIndex: 1, NextMilestone: 2, Released: 50_000_000, Completed: true}
		mock.ExpectExec(`UPDATE escrows SET`).
			WithArgs(2, int64(50_000_000), models.EscrowStatusCompleted, &now, id, 1).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.ApplyApproval(context.Background(), id, 1, out, now)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race returns conflict", func(t *testing.T) {
		out := models.ApprovalOutcome{MilestoneIndex: 0, NextMilestone: 1, Released: 50_000_000}
		mock.ExpectExec(`UPDATE escrows SET`).
			WithArgs(1, int64(50_000_000), models.EscrowStatusActive, (*time.Time)(nil), id, 0).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.ApplyApproval(context.Background(), id, 0, out, now)
		assert.ErrorIs(t, err, ErrMilestoneConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEscrowRepoListFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewEscrowRepo(mock)
	cols := []string{
		"id", "ledger_id", "client_address", "freelancer_address",
		"total_amount", "milestone_amounts", "current_milestone", "remaining_amount",
		"milestone_submitted", "status", "description", "created_at", "completed_at",
	}
	ledgerID := "12345field"
	now := time.Now()

	t.Run("address only", func(t *testing.T) {
		mock.ExpectQuery(`FROM escrows\s+WHERE \(client_address = \$1 OR freelancer_address = \$1\)`).
			WithArgs("aleo1client", 20, 0).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(
				uuid.New(), &ledgerID, "aleo1client", "aleo1freelancer",
				int64(100_000_000), []int64{50_000_000, 50_000_000}, 0, int64(100_000_000),
				false, models.EscrowStatusActive, "landing page", now, (*time.Time)(nil),
			))

		escrows, err := repo.List(context.Background(), EscrowFilter{Address: "aleo1client"})
		require.NoError(t, err)
		require.Len(t, escrows, 1)
		assert.Equal(t, ledgerID, *escrows[0].LedgerID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("status filter adds predicate", func(t *testing.T) {
		status := models.EscrowStatusCompleted
		mock.ExpectQuery(`AND status = \$2`).
			WithArgs("aleo1client", status, 20, 0).
			WillReturnRows(pgxmock.NewRows(cols))

		escrows, err := repo.List(context.Background(), EscrowFilter{Address: "aleo1client", Status: &status})
		require.NoError(t, err)
		assert.Empty(t, escrows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTransactionRepoGetCorrelating(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewTransactionRepo(mock)
	escrowID := uuid.New()
	cols := []string{
		"id", "transaction_id", "function_name", "caller_address", "related_addresses",
		"inputs", "status", "escrow_id", "milestone_index", "block_height", "confirmed_at", "created_at",
	}
	now := time.Now()

	t.Run("first milestone correlates to create_escrow", func(t *testing.T) {
		mock.ExpectQuery(`WHERE escrow_id = \$1 AND function_name = \$2\s+ORDER BY created_at ASC`).
			WithArgs(escrowID, FuncCreateEscrow).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(
				uuid.New(), "at1create", FuncCreateEscrow, "aleo1client", []string{"aleo1freelancer"},
				map[string]any{"amount": "100000000"}, models.TxStatusConfirmed,
				&escrowID, (*int)(nil), (*int64)(nil), (*time.Time)(nil), now,
			))

		rec, err := repo.GetCorrelating(context.Background(), escrowID, 0)
		require.NoError(t, err)
		assert.Equal(t, "at1create", rec.TransactionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("later milestone correlates to prior approval", func(t *testing.T) {
		prior := 0
		mock.ExpectQuery(`AND milestone_index = \$3`).
			WithArgs(escrowID, FuncApproveAndRelease, 0).
			WillReturnRows(pgxmock.NewRows(cols).AddRow(
				uuid.New(), "at1approve0", FuncApproveAndRelease, "aleo1client", []string{"aleo1freelancer"},
				map[string]any(nil), models.TxStatusConfirmed,
				&escrowID, &prior, (*int64)(nil), (*time.Time)(nil), now,
			))

		rec, err := repo.GetCorrelating(context.Background(), escrowID, 1)
		require.NoError(t, err)
		assert.Equal(t, "at1approve0", rec.TransactionID)
		require.NotNil(t, rec.MilestoneIndex)
		assert.Equal(t, 0, *rec.MilestoneIndex)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
