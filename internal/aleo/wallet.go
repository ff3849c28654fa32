package aleo

import "context"

// Transaction status values as reported by the wallet adapter. The adapter
// capitalizes terminal states and lowercases "pending".
const (
	StatusPending  = "pending"
	StatusAccepted = "Accepted"
	StatusRejected = "Rejected"
)

// ExecuteRequest describes one program call. Inputs are positional Aleo
// literals, fees are microcredits.
type ExecuteRequest struct {
	Program    string   `json:"program"`
	Function   string   `json:"function"`
	Inputs     []string `json:"inputs"`
	Fee        int64    `json:"fee"`
	PrivateFee bool     `json:"private_fee"`
}

// TxStatus is one poll result. TransactionID is the ledger's current id for
// the transaction; on acceptance it is the FINAL id, which may differ from
// the pending id the caller submitted.
type TxStatus struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	BlockHeight   *int64 `json:"block_height,omitempty"`
}

// Record is one ownership record returned by the wallet: a ciphertext blob
// representing a spendable claim, plus the metadata used to select it.
type Record struct {
	Owner         string `json:"owner"`
	Sender        string `json:"sender,omitempty"`
	RecordName    string `json:"recordName"`
	FunctionName  string `json:"functionName,omitempty"`
	Spent         bool   `json:"spent"`
	TransactionID string `json:"transactionId"`
	Ciphertext    string `json:"recordCiphertext"`
}

// Wallet is the ledger capability surface the reconciliation engine consumes.
// Implementations: BridgeClient (HTTP sidecar) in production, mocks in tests.
type Wallet interface {
	// ExecuteTransaction submits a program call and returns the pending
	// transaction id.
	ExecuteTransaction(ctx context.Context, req ExecuteRequest) (string, error)
	// RequestRecords lists the caller's ownership records for a program.
	RequestRecords(ctx context.Context, program string, includeSpent bool) ([]Record, error)
	// Decrypt turns a record ciphertext into the plaintext the program
	// accepts as input.
	Decrypt(ctx context.Context, ciphertext string) (string, error)
	// TransactionStatus reports the current status of a submitted
	// transaction.
	TransactionStatus(ctx context.Context, txID string) (*TxStatus, error)
}
