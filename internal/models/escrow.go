package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Escrow statuses
const (
	EscrowStatusActive    = "active"
	EscrowStatusCompleted = "completed"
	EscrowStatusDisputed  = "disputed"
)

// MilestoneCount is the number of shares an escrow is split into at
// creation. The on-chain program takes a fixed-size milestone array.
const MilestoneCount = 2

// Escrow mirrors one on-chain escrow. LedgerID is the field identifier
// minted by the create_escrow transition; it is assigned exactly once, after
// the creating transaction finalizes, and every later on-chain call is keyed
// by it. Amounts are microcredits.
type Escrow struct {
	ID                 uuid.UUID  `json:"id"`
	LedgerID           *string    `json:"ledger_id,omitempty"`
	ClientAddress      string     `json:"client_address"`
	FreelancerAddress  string     `json:"freelancer_address"`
	TotalAmount        int64      `json:"total_amount"`
	MilestoneAmounts   []int64    `json:"milestone_amounts"`
	CurrentMilestone   int        `json:"current_milestone"`
	RemainingAmount    int64      `json:"remaining_amount"`
	MilestoneSubmitted bool       `json:"milestone_submitted"`
	Status             string     `json:"status"`
	Description        string     `json:"description"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// SplitMilestones divides a total into two shares: floor half first, the
// remainder second. For odd totals the shares differ by one unit; the
// asymmetry is intentional and matches the on-chain split.
func SplitMilestones(total int64) [MilestoneCount]int64 {
	first := total / 2
	return [MilestoneCount]int64{first, total - first}
}

// ApprovalOutcome is the mirror-side state transition produced by one
// successful approve_and_release.
type ApprovalOutcome struct {
	MilestoneIndex int   // milestone being released (index before advancing)
	NextMilestone  int
	Released       int64
	Completed      bool
}

// Approve computes the outcome of approving the current milestone. It does
// not mutate the escrow; the repository applies the transition with a
// compare-and-swap on the milestone index.
func (e *Escrow) Approve() (ApprovalOutcome, error) {
	if e.Status != EscrowStatusActive {
		return ApprovalOutcome{}, fmt.Errorf("escrow is %s, not active", e.Status)
	}
	if e.CurrentMilestone >= len(e.MilestoneAmounts) {
		return ApprovalOutcome{}, fmt.Errorf("all %d milestones already released", len(e.MilestoneAmounts))
	}
	released := e.MilestoneAmounts[e.CurrentMilestone]
	if released > e.RemainingAmount {
		return ApprovalOutcome{}, fmt.Errorf("milestone amount %d exceeds remaining %d", released, e.RemainingAmount)
	}
	next := e.CurrentMilestone + 1
	return ApprovalOutcome{
		MilestoneIndex: e.CurrentMilestone,
		NextMilestone:  next,
		Released:       released,
		Completed:      next == len(e.MilestoneAmounts),
	}, nil
}

// CanSubmitMilestone reports whether the freelancer may submit the current
// milestone: the escrow must be active, on-chain, and not already awaiting
// approval.
func (e *Escrow) CanSubmitMilestone() error {
	if e.Status != EscrowStatusActive {
		return fmt.Errorf("escrow is %s, not active", e.Status)
	}
	if e.LedgerID == nil || *e.LedgerID == "" {
		return fmt.Errorf("escrow has no ledger id yet")
	}
	if e.MilestoneSubmitted {
		return fmt.Errorf("current milestone already submitted")
	}
	return nil
}
