package models

import (
	"time"

	"github.com/google/uuid"
)

// MilestoneSubmission is the audit trail of freelancer submissions. One row
// per submit_milestone call, keyed by the escrow and the milestone index the
// submission was made for.
type MilestoneSubmission struct {
	ID               uuid.UUID `json:"id"`
	EscrowID         uuid.UUID `json:"escrow_id"`
	LedgerID         string    `json:"ledger_id"`
	MilestoneIndex   int       `json:"milestone_index"`
	SubmitterAddress string    `json:"submitter_address"`
	Description      string    `json:"description"`
	Status           string    `json:"status"`
	TransactionID    string    `json:"transaction_id"`
	CreatedAt        time.Time `json:"created_at"`
}
