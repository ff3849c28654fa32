package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/config"
	"github.com/aleo-freelance/backend/internal/events"
	"github.com/aleo-freelance/backend/internal/models"
	"github.com/aleo-freelance/backend/internal/repositories"
)

const (
	testProgram    = "freelancing_platform_v2.aleo"
	clientAddr     = "aleo1clientclientclientclientclientclientclientclientclientcl"
	freelancerAddr = "aleo1freelancerfreelancerfreelancerfreelancerfreelancerfreela"
)

type stubWallet struct {
	pendingID    string
	finalID      string
	executeErr   error
	records      []aleo.Record
	executeCalls int
	lastRequest  aleo.ExecuteRequest
}

func (w *stubWallet) ExecuteTransaction(_ context.Context, req aleo.ExecuteRequest) (string, error) {
	w.executeCalls++
	w.lastRequest = req
	if w.executeErr != nil {
		return "", w.executeErr
	}
	return w.pendingID, nil
}

func (w *stubWallet) RequestRecords(context.Context, string, bool) ([]aleo.Record, error) {
	return w.records, nil
}

func (w *stubWallet) Decrypt(_ context.Context, ciphertext string) (string, error) {
	return "plain:" + ciphertext, nil
}

func (w *stubWallet) TransactionStatus(context.Context, string) (*aleo.TxStatus, error) {
	return &aleo.TxStatus{Status: aleo.StatusAccepted, TransactionID: w.finalID}, nil
}

type serviceFixture struct {
	mock   pgxmock.PgxPoolIface
	wallet *stubWallet
	locks  *OpLocks
	svc    *EscrowService
}

func newServiceFixture(t *testing.T, explorerURL string) *serviceFixture {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	w := &stubWallet{}
	log := zap.NewNop()
	cfg := &config.Config{AleoProgram: testProgram, AleoNetwork: "testnet"}
	locks := NewOpLocks(rdb, time.Minute)

	svc := NewEscrowService(
		repositories.NewUserRepo(mock),
		repositories.NewEscrowRepo(mock),
		repositories.NewTransactionRepo(mock),
		repositories.NewMilestoneRepo(mock),
		repositories.NewNotificationRepo(mock),
		w,
		aleo.NewTracker(w, time.Millisecond, time.Second, log),
		aleo.NewExplorerClient(explorerURL, "testnet", log),
		locks,
		events.NewRedisPublisher(rdb, log),
		cfg,
		log,
	)
	return &serviceFixture{mock: mock, wallet: w, locks: locks, svc: svc}
}

func userColumns() []string {
	return []string{
		"address", "role", "client_rating", "freelancer_rating",
		"escrow_balance", "earned_balance",
		"completed_projects_as_client", "completed_projects_as_freelancer",
		"skills", "created_at", "updated_at",
	}
}

func userRow(address, role string, escrowBal, earnedBal int64, skills []string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(userColumns()).AddRow(
		address, role, decimal.Decimal{}, decimal.Decimal{},
		escrowBal, earnedBal, 0, 0, skills, now, now,
	)
}

func escrowColumns() []string {
	return []string{
		"id", "ledger_id", "client_address", "freelancer_address",
		"total_amount", "milestone_amounts", "current_milestone", "remaining_amount",
		"milestone_submitted", "status", "description", "created_at", "completed_at",
	}
}

func txColumns() []string {
	return []string{
		"id", "transaction_id", "function_name", "caller_address", "related_addresses",
		"inputs", "status", "escrow_id", "milestone_index", "block_height", "confirmed_at", "created_at",
	}
}

// expectLedgerAudit covers the audit insert and its finalization for one
// pipeline run.
func expectLedgerAudit(mock pgxmock.PgxPoolIface, pendingID, finalID string, auditID uuid.UUID) {
	mock.ExpectQuery(`INSERT INTO transactions`).
		WithArgs(pendingID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), models.TxStatusPending, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(auditID, time.Now()))
	mock.ExpectExec(`UPDATE transactions SET transaction_id`).
		WithArgs(finalID, models.TxStatusAccepted, auditID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
}

func expectNotification(mock pgxmock.PgxPoolIface, address string) {
	mock.ExpectQuery(`INSERT INTO notifications`).
		WithArgs(address, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now()))
}

func explorerStub(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

const createEscrowPayload = `{
	"execution": {
		"transitions": [{
			"function": "create_escrow",
			"outputs": [{"type": "future", "value": {"arguments": ["777field"]}}]
		}]
	}
}`

// TestEscrowLifecycle walks the full two-milestone flow: register both
// parties, deposit 100 ALEO, create a 100 ALEO escrow, then submit and
// approve both milestones.
func TestEscrowLifecycle(t *testing.T) {
	srv := explorerStub(t, createEscrowPayload)
	f := newServiceFixture(t, srv.URL)
	ctx := context.Background()

	const total = int64(100_000_000)
	const share = int64(50_000_000)
	escrowID := uuid.New()
	ledgerID := "777"

	// Register client.
	f.wallet.pendingID, f.wallet.finalID = "at1regc_pending", "at1regc_final"
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(clientAddr).WillReturnError(pgx.ErrNoRows)
	expectLedgerAudit(f.mock, "at1regc_pending", "at1regc_final", uuid.New())
	f.mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(clientAddr, models.RoleClient, pgxmock.AnyArg(), pgxmock.AnyArg(), []string(nil)).
		WillReturnRows(userRow(clientAddr, models.RoleClient, 0, 0, nil))

	user, res, err := f.svc.RegisterClient(ctx, clientAddr)
	require.NoError(t, err)
	assert.Equal(t, models.RoleClient, user.Role)
	assert.Equal(t, "at1regc_final", res.TransactionID)

	// Register freelancer with skills.
	f.wallet.pendingID, f.wallet.finalID = "at1regf_pending", "at1regf_final"
	skills := []string{"go", "aleo"}
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(freelancerAddr).WillReturnError(pgx.ErrNoRows)
	expectLedgerAudit(f.mock, "at1regf_pending", "at1regf_final", uuid.New())
	f.mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(freelancerAddr, models.RoleFreelancer, pgxmock.AnyArg(), pgxmock.AnyArg(), skills).
		WillReturnRows(userRow(freelancerAddr, models.RoleFreelancer, 0, 0, skills))

	_, _, err = f.svc.RegisterFreelancer(ctx, freelancerAddr, skills)
	require.NoError(t, err)
	// The on-chain argument is always a full 5-slot array.
	slots := aleo.EncodeSkillSlots(skills)
	assert.Equal(t, []string{aleo.Array(slots[:])}, f.wallet.lastRequest.Inputs)

	// Deposit 100 ALEO.
	f.wallet.pendingID, f.wallet.finalID = "at1dep_pending", "at1dep_final"
	f.wallet.records = []aleo.Record{
		{Owner: clientAddr, RecordName: aleo.RecordNameClient, Ciphertext: "ct-client"},
	}
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(clientAddr).WillReturnRows(userRow(clientAddr, models.RoleClient, 0, 0, nil))
	expectLedgerAudit(f.mock, "at1dep_pending", "at1dep_final", uuid.New())
	f.mock.ExpectExec(`UPDATE users SET escrow_balance = escrow_balance \+`).
		WithArgs(total, clientAddr).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	_, err = f.svc.Deposit(ctx, clientAddr, total)
	require.NoError(t, err)
	assert.Equal(t, []string{"plain:ct-client", aleo.U64(total)}, f.wallet.lastRequest.Inputs)

	// Create the escrow.
	f.wallet.pendingID, f.wallet.finalID = "at1create_pending", "at1create_final"
	auditID := uuid.New()
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(clientAddr).WillReturnRows(userRow(clientAddr, models.RoleClient, total, 0, nil))
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(freelancerAddr).WillReturnRows(userRow(freelancerAddr, models.RoleFreelancer, 0, 0, skills))
	expectLedgerAudit(f.mock, "at1create_pending", "at1create_final", auditID)
	f.mock.ExpectQuery(`SELECT .+ FROM escrows WHERE ledger_id`).
		WithArgs(ledgerID).WillReturnError(pgx.ErrNoRows)
	f.mock.ExpectQuery(`INSERT INTO escrows`).
		WithArgs(pgxmock.AnyArg(), clientAddr, freelancerAddr, total, []int64{share, share},
			0, total, false, models.EscrowStatusActive, "landing page").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(escrowID, time.Now()))
	f.mock.ExpectExec(`UPDATE users SET escrow_balance = escrow_balance -`).
		WithArgs(total, clientAddr).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectNotification(f.mock, freelancerAddr)
	f.mock.ExpectExec(`UPDATE transactions SET escrow_id`).
		WithArgs(escrowID, auditID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	escrow, res, err := f.svc.CreateEscrow(ctx, clientAddr, freelancerAddr, total, "landing page")
	require.NoError(t, err)
	require.NotNil(t, escrow)
	assert.Equal(t, ledgerID, *escrow.LedgerID)
	assert.Equal(t, escrowID, *res.EscrowID)
	require.Len(t, f.wallet.lastRequest.Inputs, 5)
	assert.Equal(t, freelancerAddr, f.wallet.lastRequest.Inputs[0])
	assert.Equal(t, aleo.U64(total), f.wallet.lastRequest.Inputs[1])
	assert.Equal(t, aleo.Array([]string{aleo.U64(share), aleo.U64(share)}), f.wallet.lastRequest.Inputs[2])

	activeEscrow := func(milestone int, remaining int64, submitted bool) *pgxmock.Rows {
		return pgxmock.NewRows(escrowColumns()).AddRow(
			escrowID, &ledgerID, clientAddr, freelancerAddr,
			total, []int64{share, share}, milestone, remaining,
			submitted, models.EscrowStatusActive, "landing page", time.Now(), (*time.Time)(nil),
		)
	}
	correlatingTx := func(txID, function string, milestoneIdx *int) *pgxmock.Rows {
		return pgxmock.NewRows(txColumns()).AddRow(
			uuid.New(), txID, function, clientAddr, []string{freelancerAddr},
			map[string]any(nil), models.TxStatusAccepted,
			&escrowID, milestoneIdx, (*int64)(nil), (*time.Time)(nil), time.Now(),
		)
	}

	// Submit milestone 0.
	f.wallet.pendingID, f.wallet.finalID = "at1sub0_pending", "at1sub0_final"
	f.mock.ExpectQuery(`SELECT .+ FROM escrows WHERE id`).
		WithArgs(escrowID).WillReturnRows(activeEscrow(0, total, false))
	expectLedgerAudit(f.mock, "at1sub0_pending", "at1sub0_final", uuid.New())
	f.mock.ExpectExec(`UPDATE escrows SET milestone_submitted`).
		WithArgs(true, escrowID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectQuery(`INSERT INTO milestone_submissions`).
		WithArgs(escrowID, ledgerID, 0, freelancerAddr, "at1sub0_final").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now()))
	expectNotification(f.mock, clientAddr)

	_, err = f.svc.SubmitMilestone(ctx, freelancerAddr, escrowID)
	require.NoError(t, err)
	assert.Equal(t, []string{aleo.FieldLiteral(ledgerID)}, f.wallet.lastRequest.Inputs)

	// Approve milestone 0: spends the record minted by create_escrow.
	f.wallet.pendingID, f.wallet.finalID = "at1app0_pending", "at1app0_final"
	f.wallet.records = []aleo.Record{
		{Owner: clientAddr, RecordName: aleo.RecordNameEscrow, TransactionID: "at1create_final", Ciphertext: "ct-escrow0"},
	}
	f.mock.ExpectQuery(`SELECT .+ FROM escrows WHERE id`).
		WithArgs(escrowID).WillReturnRows(activeEscrow(0, total, true))
	f.mock.ExpectQuery(`FROM transactions\s+WHERE escrow_id = \$1 AND function_name = \$2\s+ORDER BY`).
		WithArgs(escrowID, repositories.FuncCreateEscrow).
		WillReturnRows(correlatingTx("at1create_final", repositories.FuncCreateEscrow, nil))
	expectLedgerAudit(f.mock, "at1app0_pending", "at1app0_final", uuid.New())
	f.mock.ExpectExec(`UPDATE escrows SET`).
		WithArgs(1, share, models.EscrowStatusActive, pgxmock.AnyArg(), escrowID, 0).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectExec(`UPDATE users SET earned_balance = earned_balance \+`).
		WithArgs(share, freelancerAddr).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectNotification(f.mock, freelancerAddr)

	_, err = f.svc.ApproveMilestone(ctx, clientAddr, escrowID)
	require.NoError(t, err)
	assert.Equal(t, []string{aleo.FieldLiteral(ledgerID), "plain:ct-escrow0"}, f.wallet.lastRequest.Inputs)

	// Submit milestone 1.
	f.wallet.pendingID, f.wallet.finalID = "at1sub1_pending", "at1sub1_final"
	f.mock.ExpectQuery(`SELECT .+ FROM escrows WHERE id`).
		WithArgs(escrowID).WillReturnRows(activeEscrow(1, share, false))
	expectLedgerAudit(f.mock, "at1sub1_pending", "at1sub1_final", uuid.New())
	f.mock.ExpectExec(`UPDATE escrows SET milestone_submitted`).
		WithArgs(true, escrowID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectQuery(`INSERT INTO milestone_submissions`).
		WithArgs(escrowID, ledgerID, 1, freelancerAddr, "at1sub1_final").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(uuid.New(), time.Now()))
	expectNotification(f.mock, clientAddr)

	_, err = f.svc.SubmitMilestone(ctx, freelancerAddr, escrowID)
	require.NoError(t, err)

	// Approve milestone 1: spends the record minted by the prior approval,
	// found through the milestone_index correlation.
	f.wallet.pendingID, f.wallet.finalID = "at1app1_pending", "at1app1_final"
	f.wallet.records = []aleo.Record{
		{Owner: clientAddr, RecordName: aleo.RecordNameEscrow, TransactionID: "at1app0_final", Ciphertext: "ct-escrow1"},
	}
	prior := 0
	f.mock.ExpectQuery(`SELECT .+ FROM escrows WHERE id`).
		WithArgs(escrowID).WillReturnRows(activeEscrow(1, share, true))
	f.mock.ExpectQuery(`AND milestone_index = \$3`).
		WithArgs(escrowID, repositories.FuncApproveAndRelease, 0).
		WillReturnRows(correlatingTx("at1app0_final", repositories.FuncApproveAndRelease, &prior))
	expectLedgerAudit(f.mock, "at1app1_pending", "at1app1_final", uuid.New())
	f.mock.ExpectExec(`UPDATE escrows SET`).
		WithArgs(2, share, models.EscrowStatusCompleted, pgxmock.AnyArg(), escrowID, 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectExec(`UPDATE users SET earned_balance = earned_balance \+`).
		WithArgs(share, freelancerAddr).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectExec(`completed_projects_as_client`).
		WithArgs(clientAddr).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	f.mock.ExpectExec(`completed_projects_as_freelancer`).
		WithArgs(freelancerAddr).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectNotification(f.mock, freelancerAddr)

	_, err = f.svc.ApproveMilestone(ctx, clientAddr, escrowID)
	require.NoError(t, err)
	assert.Equal(t, []string{aleo.FieldLiteral(ledgerID), "plain:ct-escrow1"}, f.wallet.lastRequest.Inputs)

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

// TestWithdrawRejectedBeforeLedgerCall asserts the balance check runs before
// any ledger interaction.
func TestWithdrawRejectedBeforeLedgerCall(t *testing.T) {
	f := newServiceFixture(t, "http://127.0.0.1:0")
	ctx := context.Background()

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(clientAddr).WillReturnRows(userRow(clientAddr, models.RoleClient, 5_000_000, 0, nil))

	_, err := f.svc.Withdraw(ctx, clientAddr, 10_000_000)
	require.ErrorIs(t, err, repositories.ErrInsufficientBalance)
	assert.Zero(t, f.wallet.executeCalls)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestWithdrawBelowMinimum(t *testing.T) {
	f := newServiceFixture(t, "http://127.0.0.1:0")

	_, err := f.svc.Withdraw(context.Background(), clientAddr, MinWithdrawMicro-1)
	require.Error(t, err)
	assert.Zero(t, f.wallet.executeCalls)
}

// TestCreateEscrowImpliedAccepted covers the fallback boundary: the ledger
// call throws with the accepted marker and no final id, so the operation
// reports success but must not create a mirror row, because the escrow id
// cannot be extracted without a finalized payload.
func TestCreateEscrowImpliedAccepted(t *testing.T) {
	f := newServiceFixture(t, "http://127.0.0.1:0")
	ctx := context.Background()

	const total = int64(100_000_000)
	f.wallet.executeErr = errors.New("wallet bridge returned 500: status Accepted, no transaction id")
	f.wallet.records = []aleo.Record{
		{Owner: clientAddr, RecordName: aleo.RecordNameClient, Ciphertext: "ct-client"},
	}

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(clientAddr).WillReturnRows(userRow(clientAddr, models.RoleClient, total, 0, nil))
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(freelancerAddr).WillReturnRows(userRow(freelancerAddr, models.RoleFreelancer, 0, 0, []string{"go"}))

	escrow, res, err := f.svc.CreateEscrow(ctx, clientAddr, freelancerAddr, total, "landing page")
	require.NoError(t, err)
	assert.Nil(t, escrow)
	assert.True(t, res.Implied)
	assert.True(t, res.MirrorSkipped)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

// TestDepositImpliedAccepted: operations without derived values still commit
// the mirror write on the fallback path.
func TestDepositImpliedAccepted(t *testing.T) {
	f := newServiceFixture(t, "http://127.0.0.1:0")
	ctx := context.Background()

	const amount = int64(25_000_000)
	f.wallet.executeErr = errors.New("wallet bridge returned 502: Accepted")
	f.wallet.records = []aleo.Record{
		{Owner: clientAddr, RecordName: aleo.RecordNameClient, Ciphertext: "ct-client"},
	}

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(clientAddr).WillReturnRows(userRow(clientAddr, models.RoleClient, 0, 0, nil))
	f.mock.ExpectExec(`UPDATE users SET escrow_balance = escrow_balance \+`).
		WithArgs(amount, clientAddr).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	res, err := f.svc.Deposit(ctx, clientAddr, amount)
	require.NoError(t, err)
	assert.True(t, res.Implied)
	assert.False(t, res.MirrorSkipped)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

// TestDepositRejectedWithoutOwnershipRecord: no unspent Client record is an
// actionable precondition error, not a ledger failure.
func TestDepositRejectedWithoutOwnershipRecord(t *testing.T) {
	f := newServiceFixture(t, "http://127.0.0.1:0")

	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(clientAddr).WillReturnRows(userRow(clientAddr, models.RoleClient, 0, 0, nil))

	_, err := f.svc.Deposit(context.Background(), clientAddr, 1_000_000)
	require.ErrorIs(t, err, ErrNoOwnershipRecord)
	assert.Zero(t, f.wallet.executeCalls)
}

// TestOperationSerializedPerAddress: a second intent while one is in flight
// fails fast instead of racing for the same ownership record.
func TestOperationSerializedPerAddress(t *testing.T) {
	f := newServiceFixture(t, "http://127.0.0.1:0")
	ctx := context.Background()

	require.NoError(t, f.locks.Acquire(ctx, clientAddr))

	f.wallet.records = []aleo.Record{
		{Owner: clientAddr, RecordName: aleo.RecordNameClient, Ciphertext: "ct-client"},
	}
	f.mock.ExpectQuery(`SELECT .+ FROM users WHERE address`).
		WithArgs(clientAddr).WillReturnRows(userRow(clientAddr, models.RoleClient, 0, 0, nil))

	_, err := f.svc.Deposit(ctx, clientAddr, 1_000_000)
	require.ErrorIs(t, err, ErrOperationInFlight)
	assert.Zero(t, f.wallet.executeCalls)

	f.locks.Release(ctx, clientAddr)
	require.NoError(t, f.locks.Acquire(ctx, clientAddr))
}
