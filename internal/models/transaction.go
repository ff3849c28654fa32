package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction statuses. "accepted" means the finality poll saw a terminal
// accept; "pending" rows are left behind by the implicit-success fallback and
// get resolved by the worker.
const (
	TxStatusPending   = "pending"
	TxStatusAccepted  = "accepted"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
	TxStatusExpired   = "expired"
)

// TransactionRecord is the audit row correlating a ledger transaction with
// the intent that produced it. Approving milestone N looks up the record of
// the specific prior operation here: the create_escrow row for milestone 0,
// the approve_and_release row with MilestoneIndex == N-1 otherwise.
type TransactionRecord struct {
	ID               uuid.UUID      `json:"id"`
	TransactionID    string         `json:"transaction_id"`
	FunctionName     string         `json:"function_name"`
	CallerAddress    string         `json:"caller_address"`
	RelatedAddresses []string       `json:"related_addresses,omitempty"`
	Inputs           map[string]any `json:"inputs,omitempty"`
	Status           string         `json:"status"`
	EscrowID         *uuid.UUID     `json:"escrow_id,omitempty"`
	MilestoneIndex   *int           `json:"milestone_index,omitempty"`
	BlockHeight      *int64         `json:"block_height,omitempty"`
	ConfirmedAt      *time.Time     `json:"confirmed_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
