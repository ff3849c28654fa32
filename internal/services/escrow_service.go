package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/aleo-freelance/backend/internal/aleo"
	"github.com/aleo-freelance/backend/internal/config"
	"github.com/aleo-freelance/backend/internal/events"
	"github.com/aleo-freelance/backend/internal/models"
	"github.com/aleo-freelance/backend/internal/repositories"
)

var (
	// ErrNoOwnershipRecord means the caller holds no unspent Client record.
	// Surfaced as an actionable message, never retried.
	ErrNoOwnershipRecord = errors.New("no unspent ownership record found, register and deposit first")
	// ErrOwnershipRecordNotFound means no unspent Escrow record matches the
	// correlating transaction id. Hard stop for the approval path.
	ErrOwnershipRecordNotFound = errors.New("no ownership record matches the prior transaction")
	// ErrBalanceChanged means the mirrored balance dropped below the
	// requested withdrawal while the ledger call was in flight.
	ErrBalanceChanged = errors.New("balance changed during withdrawal")
	// ErrEscrowNotFound wraps a missing mirror row.
	ErrEscrowNotFound = errors.New("escrow not found")
	// ErrNotParticipant means the caller is neither side of the escrow they
	// tried to act on.
	ErrNotParticipant = errors.New("caller is not a participant of this escrow")
)

// Microcredit fees charged per program function.
const (
	FeeRegister        = 100_000
	FeeDeposit         = 200_000
	FeeCreateEscrow    = 200_000
	FeeSubmitMilestone = 100_000
	FeeApprove         = 150_000
	FeeWithdraw        = 200_000
)

// MinWithdrawMicro is the smallest withdrawal the program accepts.
const MinWithdrawMicro int64 = 10_000

// OpResult reports one completed ledger operation. Implied marks the
// accepted-but-thrown recovery path; MirrorSkipped marks the one case where
// success is reported without a mirror write (escrow creation recovered
// without a finalized payload to extract the ledger id from).
type OpResult struct {
	TransactionID string     `json:"transaction_id"`
	EscrowID      *uuid.UUID `json:"escrow_id,omitempty"`
	Implied       bool       `json:"implied,omitempty"`
	MirrorSkipped bool       `json:"mirror_skipped,omitempty"`
}

// EscrowService orchestrates the state-changing intents against the ledger
// and the off-chain mirror. Every intent runs the same five phases: gather
// preconditions, submit the ledger call, await finality, derive
// post-finality values, commit the mirror writes.
type EscrowService struct {
	userRepo      *repositories.UserRepo
	escrowRepo    *repositories.EscrowRepo
	txRepo        *repositories.TransactionRepo
	milestoneRepo *repositories.MilestoneRepo
	notifRepo     *repositories.NotificationRepo
	wallet        aleo.Wallet
	tracker       *aleo.Tracker
	explorer      *aleo.ExplorerClient
	locks         *OpLocks
	publisher     events.Publisher
	cfg           *config.Config
	log           *zap.Logger
}

func NewEscrowService(
	userRepo *repositories.UserRepo,
	escrowRepo *repositories.EscrowRepo,
	txRepo *repositories.TransactionRepo,
	milestoneRepo *repositories.MilestoneRepo,
	notifRepo *repositories.NotificationRepo,
	wallet aleo.Wallet,
	tracker *aleo.Tracker,
	explorer *aleo.ExplorerClient,
	locks *OpLocks,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		userRepo:      userRepo,
		escrowRepo:    escrowRepo,
		txRepo:        txRepo,
		milestoneRepo: milestoneRepo,
		notifRepo:     notifRepo,
		wallet:        wallet,
		tracker:       tracker,
		explorer:      explorer,
		locks:         locks,
		publisher:     publisher,
		cfg:           cfg,
		log:           log,
	}
}

// ledgerOp is one intent flowing through the shared five-phase pipeline.
type ledgerOp struct {
	function       string
	caller         string
	related        []string
	inputs         map[string]any
	request        aleo.ExecuteRequest
	escrowID       *uuid.UUID
	milestoneIndex *int

	// derive extracts values only available after finality. Optional.
	derive func(ctx context.Context, finalTxID string) error
	// commit writes the mirror-side effects. txID is the final ledger id,
	// or the pending id on the implied-accepted path.
	commit func(ctx context.Context, txID string) error
	// requiresDerived marks operations whose commit cannot run without
	// derive output. The implied-accepted recovery skips their commit.
	requiresDerived bool

	// auditRowID is filled by run once the audit row exists.
	auditRowID uuid.UUID
}

// run executes the pipeline. One in-flight operation per caller address;
// a second intent from the same address fails fast with
// ErrOperationInFlight instead of double-spending the same record.
func (s *EscrowService) run(ctx context.Context, op *ledgerOp) (*OpResult, error) {
	if err := s.locks.Acquire(ctx, op.caller); err != nil {
		return nil, err
	}
	defer s.locks.Release(context.WithoutCancel(ctx), op.caller)

	pendingID, err := s.wallet.ExecuteTransaction(ctx, op.request)
	if err != nil {
		return s.recover(ctx, op, pendingID, err)
	}

	rec := &models.TransactionRecord{
		TransactionID:    pendingID,
		FunctionName:     op.function,
		CallerAddress:    op.caller,
		RelatedAddresses: op.related,
		Inputs:           op.inputs,
		Status:           models.TxStatusPending,
		EscrowID:         op.escrowID,
		MilestoneIndex:   op.milestoneIndex,
	}
	if err := s.txRepo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record transaction %s: %w", pendingID, err)
	}
	op.auditRowID = rec.ID

	finalID, err := s.tracker.AwaitFinality(ctx, pendingID)
	if err != nil {
		if errors.Is(err, aleo.ErrFinalityTimeout) {
			// The transaction may yet land. Leave the audit row pending
			// for the worker to resolve.
			s.log.Warn("finality poll timed out",
				zap.String("function", op.function),
				zap.String("pending_tx", pendingID))
			return nil, err
		}
		return s.recover(ctx, op, pendingID, err)
	}

	if err := s.txRepo.Finalize(ctx, rec.ID, finalID); err != nil {
		s.log.Error("finalize audit row",
			zap.String("tx", finalID), zap.Error(err))
	}

	if op.derive != nil {
		if err := op.derive(ctx, finalID); err != nil {
			return nil, err
		}
	}
	if err := op.commit(ctx, finalID); err != nil {
		return nil, err
	}

	return &OpResult{TransactionID: finalID, EscrowID: op.escrowID}, nil
}

// recover implements the implicit-success fallback. The ledger call boundary
// sometimes throws even though the operation was accepted; when the error
// message carries the accepted marker the mirror commit still runs and the
// caller sees success. Operations that cannot commit without derived values
// report success with the mirror write skipped.
func (s *EscrowService) recover(ctx context.Context, op *ledgerOp, pendingID string, cause error) (*OpResult, error) {
	if !impliedAccepted(cause) {
		return nil, cause
	}

	s.log.Warn("ledger call threw with accepted marker, committing mirror state",
		zap.String("function", op.function),
		zap.String("caller", op.caller),
		zap.Error(cause))

	if op.requiresDerived {
		return &OpResult{TransactionID: pendingID, Implied: true, MirrorSkipped: true}, nil
	}
	if err := op.commit(ctx, pendingID); err != nil {
		return nil, err
	}
	return &OpResult{TransactionID: pendingID, Implied: true}, nil
}

func impliedAccepted(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Accepted")
}

// RegisterClient registers the caller's address with the client role,
// on-chain and in the mirror. Idempotent per address.
func (s *EscrowService) RegisterClient(ctx context.Context, address string) (*models.User, *OpResult, error) {
	if err := s.checkRole(ctx, address, models.RoleClient); err != nil {
		return nil, nil, err
	}

	var saved *models.User
	op := &ledgerOp{
		function: repositories.FuncRegisterClient,
		caller:   address,
		request: aleo.ExecuteRequest{
			Program:  s.cfg.AleoProgram,
			Function: repositories.FuncRegisterClient,
			Fee:      FeeRegister,
		},
		commit: func(ctx context.Context, txID string) error {
			u, err := s.userRepo.UpsertRole(ctx, &models.User{
				Address: address,
				Role:    models.RoleClient,
			})
			if err != nil {
				return err
			}
			saved = u
			return nil
		},
	}

	res, err := s.run(ctx, op)
	if err != nil {
		return nil, nil, err
	}
	return saved, res, nil
}

// RegisterFreelancer registers the caller with the freelancer role and a
// skill list. Skills go on-chain as a fixed 5-slot encoded array; the mirror
// keeps the literal strings for display.
func (s *EscrowService) RegisterFreelancer(ctx context.Context, address string, skills []string) (*models.User, *OpResult, error) {
	if err := models.ValidateSkills(skills); err != nil {
		return nil, nil, err
	}
	if err := s.checkRole(ctx, address, models.RoleFreelancer); err != nil {
		return nil, nil, err
	}

	slots := aleo.EncodeSkillSlots(skills)
	var saved *models.User
	op := &ledgerOp{
		function: repositories.FuncRegisterFreelancer,
		caller:   address,
		inputs:   map[string]any{"skills": skills},
		request: aleo.ExecuteRequest{
			Program:  s.cfg.AleoProgram,
			Function: repositories.FuncRegisterFreelancer,
			Inputs:   []string{aleo.Array(slots[:])},
			Fee:      FeeRegister,
		},
		commit: func(ctx context.Context, txID string) error {
			u, err := s.userRepo.UpsertRole(ctx, &models.User{
				Address:          address,
				Role:             models.RoleFreelancer,
				FreelancerRating: decimal.NewFromInt(5),
				Skills:           skills,
			})
			if err != nil {
				return err
			}
			saved = u
			return nil
		},
	}

	res, err := s.run(ctx, op)
	if err != nil {
		return nil, nil, err
	}
	return saved, res, nil
}

// Deposit moves amountMicro microcredits into the caller's on-chain escrow
// balance and mirrors the increment. The mirror is an additive running
// total, never re-derived from chain state.
func (s *EscrowService) Deposit(ctx context.Context, address string, amountMicro int64) (*OpResult, error) {
	if amountMicro <= 0 {
		return nil, aleo.ErrInvalidAmount
	}
	user, err := s.requireRole(ctx, address, models.RoleClient)
	if err != nil {
		return nil, err
	}

	plaintext, err := s.clientRecord(ctx, user.Address)
	if err != nil {
		return nil, err
	}

	op := &ledgerOp{
		function: repositories.FuncDepositFunds,
		caller:   address,
		inputs:   map[string]any{"amount": amountMicro},
		request: aleo.ExecuteRequest{
			Program:  s.cfg.AleoProgram,
			Function: repositories.FuncDepositFunds,
			Inputs:   []string{plaintext, aleo.U64(amountMicro)},
			Fee:      FeeDeposit,
		},
		commit: func(ctx context.Context, txID string) error {
			if err := s.userRepo.IncrementEscrowBalance(ctx, address, amountMicro); err != nil {
				return err
			}
			s.publish(ctx, events.EventFundsDeposited, map[string]any{
				"address": address,
				"amount":  amountMicro,
			})
			return nil
		},
	}
	return s.run(ctx, op)
}

// CreateEscrow escrows totalMicro for a freelancer, split into two milestone
// shares. The mirror row is created only after the ledger-minted escrow id
// is extracted from the finalized payload; without that id no later
// operation could be keyed, so extraction failure fails the whole intent.
func (s *EscrowService) CreateEscrow(ctx context.Context, clientAddr, freelancerAddr string, totalMicro int64, description string) (*models.Escrow, *OpResult, error) {
	if totalMicro <= 0 {
		return nil, nil, aleo.ErrInvalidAmount
	}
	client, err := s.requireRole(ctx, clientAddr, models.RoleClient)
	if err != nil {
		return nil, nil, err
	}
	if client.EscrowBalance < totalMicro {
		return nil, nil, fmt.Errorf("escrow balance %d below requested %d: %w",
			client.EscrowBalance, totalMicro, repositories.ErrInsufficientBalance)
	}
	if _, err := s.requireRole(ctx, freelancerAddr, models.RoleFreelancer); err != nil {
		return nil, nil, fmt.Errorf("freelancer %s: %w", freelancerAddr, err)
	}

	plaintext, err := s.clientRecord(ctx, clientAddr)
	if err != nil {
		return nil, nil, err
	}

	shares := models.SplitMilestones(totalMicro)
	var (
		ledgerID string
		escrow   *models.Escrow
	)
	op := &ledgerOp{
		function: repositories.FuncCreateEscrow,
		caller:   clientAddr,
		related:  []string{freelancerAddr},
		inputs: map[string]any{
			"freelancer":  freelancerAddr,
			"total":       totalMicro,
			"milestones":  shares[:],
			"description": description,
		},
		request: aleo.ExecuteRequest{
			Program:  s.cfg.AleoProgram,
			Function: repositories.FuncCreateEscrow,
			Inputs: []string{
				freelancerAddr,
				aleo.U64(totalMicro),
				aleo.Array([]string{aleo.U64(shares[0]), aleo.U64(shares[1])}),
				aleo.EncodeField(description),
				plaintext,
			},
			Fee: FeeCreateEscrow,
		},
		requiresDerived: true,
		derive: func(ctx context.Context, finalTxID string) error {
			payload, err := s.explorer.FetchTransaction(ctx, finalTxID)
			if err != nil {
				return fmt.Errorf("fetch finalized transaction %s: %w", finalTxID, err)
			}
			ledgerID, err = aleo.ExtractEscrowID(payload, repositories.FuncCreateEscrow)
			if err != nil {
				return fmt.Errorf("transaction %s: %w", finalTxID, err)
			}
			return nil
		},
		commit: func(ctx context.Context, txID string) error {
			// A retried intent can reach here after an earlier attempt
			// already mirrored the row; ledger_id is unique, so reuse it.
			if existing, err := s.escrowRepo.GetByLedgerID(ctx, ledgerID); err == nil {
				escrow = existing
				return nil
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}

			e := &models.Escrow{
				LedgerID:          &ledgerID,
				ClientAddress:     clientAddr,
				FreelancerAddress: freelancerAddr,
				TotalAmount:       totalMicro,
				MilestoneAmounts:  shares[:],
				RemainingAmount:   totalMicro,
				Status:            models.EscrowStatusActive,
				Description:       description,
			}
			if err := s.escrowRepo.Create(ctx, e); err != nil {
				return err
			}
			escrow = e

			if err := s.userRepo.DecrementEscrowBalance(ctx, clientAddr, totalMicro); err != nil {
				return err
			}

			s.notify(ctx, freelancerAddr, models.NotificationEscrowCreated,
				"New escrow",
				fmt.Sprintf("%s opened an escrow of %s ALEO for you", clientAddr, aleo.FormatCredits(totalMicro)),
				&e.ID)
			s.publish(ctx, events.EventEscrowCreated, map[string]any{
				"escrow_id":  e.ID.String(),
				"ledger_id":  ledgerID,
				"client":     clientAddr,
				"freelancer": freelancerAddr,
				"total":      totalMicro,
			})
			return nil
		},
	}

	res, err := s.run(ctx, op)
	if err != nil {
		return nil, nil, err
	}
	if escrow != nil {
		res.EscrowID = &escrow.ID
		if err := s.txRepo.LinkEscrow(ctx, op.auditRowID, escrow.ID); err != nil {
			s.log.Error("link audit row to escrow",
				zap.String("escrow", escrow.ID.String()), zap.Error(err))
		}
	}
	return escrow, res, nil
}

// SubmitMilestone marks the current milestone delivered. Freelancer only; a
// free on-chain action keyed by the escrow's ledger id, no ownership record
// is spent.
func (s *EscrowService) SubmitMilestone(ctx context.Context, caller string, escrowID uuid.UUID) (*OpResult, error) {
	e, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEscrowNotFound, escrowID)
	}
	if e.FreelancerAddress != caller {
		return nil, ErrNotParticipant
	}
	if err := e.CanSubmitMilestone(); err != nil {
		return nil, err
	}

	idx := e.CurrentMilestone
	op := &ledgerOp{
		function:       repositories.FuncSubmitMilestone,
		caller:         caller,
		related:        []string{e.ClientAddress},
		inputs:         map[string]any{"milestone": idx},
		escrowID:       &e.ID,
		milestoneIndex: &idx,
		request: aleo.ExecuteRequest{
			Program:  s.cfg.AleoProgram,
			Function: repositories.FuncSubmitMilestone,
			Inputs:   []string{aleo.FieldLiteral(*e.LedgerID)},
			Fee:      FeeSubmitMilestone,
		},
		commit: func(ctx context.Context, txID string) error {
			if err := s.escrowRepo.SetMilestoneSubmitted(ctx, e.ID, true); err != nil {
				return err
			}
			sub := &models.MilestoneSubmission{
				EscrowID:         e.ID,
				LedgerID:         *e.LedgerID,
				MilestoneIndex:   idx,
				SubmitterAddress: caller,
				TransactionID:    txID,
			}
			if err := s.milestoneRepo.Create(ctx, sub); err != nil {
				s.log.Error("record milestone submission",
					zap.String("escrow", e.ID.String()), zap.Error(err))
			}

			s.notify(ctx, e.ClientAddress, models.NotificationMilestoneSubmitted,
				"Milestone submitted",
				fmt.Sprintf("%s submitted milestone %d for review", caller, idx+1),
				&e.ID)
			s.publish(ctx, events.EventMilestoneSubmitted, map[string]any{
				"escrow_id": e.ID.String(),
				"milestone": idx,
			})
			return nil
		},
	}
	return s.run(ctx, op)
}

// ApproveMilestone releases the current milestone's share to the freelancer.
// Client only. The spendable Escrow record is located through the audit
// chain: milestone 0 spends the record minted by create_escrow, milestone N
// spends the one minted by the approval of milestone N-1.
func (s *EscrowService) ApproveMilestone(ctx context.Context, caller string, escrowID uuid.UUID) (*OpResult, error) {
	e, err := s.escrowRepo.GetByID(ctx, escrowID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEscrowNotFound, escrowID)
	}
	if e.ClientAddress != caller {
		return nil, ErrNotParticipant
	}
	if !e.MilestoneSubmitted {
		return nil, fmt.Errorf("milestone %d has not been submitted yet", e.CurrentMilestone)
	}
	outcome, err := e.Approve()
	if err != nil {
		return nil, err
	}

	corr, err := s.txRepo.GetCorrelating(ctx, e.ID, e.CurrentMilestone)
	if err != nil {
		return nil, fmt.Errorf("no correlating transaction for milestone %d: %w", e.CurrentMilestone, err)
	}

	records, err := s.wallet.RequestRecords(ctx, s.cfg.AleoProgram, false)
	if err != nil {
		return nil, fmt.Errorf("list ownership records: %w", err)
	}
	rec, ok := aleo.FindEscrowRecordByTx(records, corr.TransactionID)
	if !ok {
		return nil, fmt.Errorf("%w (tx %s)", ErrOwnershipRecordNotFound, corr.TransactionID)
	}
	plaintext, err := s.wallet.Decrypt(ctx, rec.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decrypt escrow record: %w", err)
	}
	if f, ok := aleo.RecordField(plaintext, "description"); ok && f != aleo.EncodeField(e.Description) {
		desc, _ := aleo.DecodeField(f)
		s.log.Warn("escrow record description differs from mirror",
			zap.String("escrow", e.ID.String()),
			zap.String("record_description", desc))
	}

	idx := outcome.MilestoneIndex
	op := &ledgerOp{
		function:       repositories.FuncApproveAndRelease,
		caller:         caller,
		related:        []string{e.FreelancerAddress},
		inputs:         map[string]any{"milestone": idx, "released": outcome.Released},
		escrowID:       &e.ID,
		milestoneIndex: &idx,
		request: aleo.ExecuteRequest{
			Program:  s.cfg.AleoProgram,
			Function: repositories.FuncApproveAndRelease,
			Inputs:   []string{aleo.FieldLiteral(*e.LedgerID), plaintext},
			Fee:      FeeApprove,
		},
		commit: func(ctx context.Context, txID string) error {
			if err := s.escrowRepo.ApplyApproval(ctx, e.ID, idx, outcome, time.Now().UTC()); err != nil {
				return err
			}
			if err := s.userRepo.IncrementEarnedBalance(ctx, e.FreelancerAddress, outcome.Released); err != nil {
				return err
			}

			if outcome.Completed {
				if err := s.userRepo.IncrementCompletedProjects(ctx, e.ClientAddress, e.FreelancerAddress); err != nil {
					s.log.Error("increment completed counters",
						zap.String("escrow", e.ID.String()), zap.Error(err))
				}
				s.notify(ctx, e.FreelancerAddress, models.NotificationEscrowCompleted,
					"Escrow completed",
					fmt.Sprintf("Final milestone released, %s ALEO earned in total", aleo.FormatCredits(e.TotalAmount)),
					&e.ID)
				s.publish(ctx, events.EventEscrowCompleted, map[string]any{
					"escrow_id": e.ID.String(),
				})
			} else {
				s.notify(ctx, e.FreelancerAddress, models.NotificationMilestoneApproved,
					"Milestone approved",
					fmt.Sprintf("Milestone %d approved, %s ALEO released", idx+1, aleo.FormatCredits(outcome.Released)),
					&e.ID)
			}
			s.publish(ctx, events.EventMilestoneApproved, map[string]any{
				"escrow_id": e.ID.String(),
				"milestone": idx,
				"released":  outcome.Released,
				"completed": outcome.Completed,
			})
			return nil
		},
	}
	return s.run(ctx, op)
}

// Withdraw moves amountMicro back out of the caller's on-chain escrow
// balance. All validation happens before the ledger call; the mirrored
// balance is re-verified at commit time because the call may have been in
// flight for minutes.
func (s *EscrowService) Withdraw(ctx context.Context, address string, amountMicro int64) (*OpResult, error) {
	if amountMicro <= 0 {
		return nil, aleo.ErrInvalidAmount
	}
	if amountMicro < MinWithdrawMicro {
		return nil, fmt.Errorf("minimum withdrawal is %s ALEO", aleo.FormatCredits(MinWithdrawMicro))
	}
	user, err := s.requireRole(ctx, address, models.RoleClient)
	if err != nil {
		return nil, err
	}
	if user.EscrowBalance < amountMicro {
		return nil, fmt.Errorf("escrow balance %d below requested %d: %w",
			user.EscrowBalance, amountMicro, repositories.ErrInsufficientBalance)
	}

	plaintext, err := s.clientRecord(ctx, address)
	if err != nil {
		return nil, err
	}

	op := &ledgerOp{
		function: repositories.FuncWithdrawFunds,
		caller:   address,
		inputs:   map[string]any{"amount": amountMicro},
		request: aleo.ExecuteRequest{
			Program:  s.cfg.AleoProgram,
			Function: repositories.FuncWithdrawFunds,
			Inputs:   []string{plaintext, aleo.U64(amountMicro)},
			Fee:      FeeWithdraw,
		},
		commit: func(ctx context.Context, txID string) error {
			// Re-verify before debiting: a concurrent operation may have
			// spent the balance while finality was pending.
			current, err := s.userRepo.GetByAddress(ctx, address)
			if err != nil {
				return err
			}
			if current.EscrowBalance < amountMicro {
				return fmt.Errorf("%w: have %d, withdrawing %d",
					ErrBalanceChanged, current.EscrowBalance, amountMicro)
			}
			if err := s.userRepo.DecrementEscrowBalance(ctx, address, amountMicro); err != nil {
				if errors.Is(err, repositories.ErrInsufficientBalance) {
					return fmt.Errorf("%w: %v", ErrBalanceChanged, err)
				}
				return err
			}
			s.publish(ctx, events.EventFundsWithdrawn, map[string]any{
				"address": address,
				"amount":  amountMicro,
			})
			return nil
		},
	}
	return s.run(ctx, op)
}

// clientRecord locates and decrypts the caller's unspent Client record.
func (s *EscrowService) clientRecord(ctx context.Context, address string) (string, error) {
	records, err := s.wallet.RequestRecords(ctx, s.cfg.AleoProgram, false)
	if err != nil {
		return "", fmt.Errorf("list ownership records: %w", err)
	}
	rec, ok := aleo.FindClientRecord(records, address)
	if !ok {
		return "", ErrNoOwnershipRecord
	}
	plaintext, err := s.wallet.Decrypt(ctx, rec.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("decrypt client record: %w", err)
	}
	return plaintext, nil
}

// checkRole rejects a registration that would switch an existing role.
func (s *EscrowService) checkRole(ctx context.Context, address, role string) error {
	existing, err := s.userRepo.GetByAddress(ctx, address)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil // no row yet, registration proceeds
	}
	if err != nil {
		return err
	}
	if existing.Role != models.RoleUnset && existing.Role != role {
		return repositories.ErrRoleConflict
	}
	return nil
}

// requireRole loads a profile and asserts its role.
func (s *EscrowService) requireRole(ctx context.Context, address, role string) (*models.User, error) {
	user, err := s.userRepo.GetByAddress(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("profile %s not found, register first", address)
	}
	if user.Role != role {
		return nil, fmt.Errorf("address %s is not registered as %s", address, role)
	}
	return user, nil
}

func (s *EscrowService) notify(ctx context.Context, address, typ, title, message string, escrowID *uuid.UUID) {
	n := &models.Notification{
		UserAddress:     address,
		Type:            typ,
		Title:           title,
		Message:         message,
		RelatedEscrowID: escrowID,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		s.log.Warn("create notification",
			zap.String("address", address), zap.String("type", typ), zap.Error(err))
	}
}

func (s *EscrowService) publish(ctx context.Context, eventType string, payload map[string]any) {
	_ = s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type:    eventType,
		Payload: payload,
	})
}
