package aleo

import "strings"

// Record type names minted by the escrow program.
const (
	RecordNameClient = "Client"
	RecordNameEscrow = "Escrow"
)

// FindClientRecord selects the caller's unspent Client record: type name,
// non-spent flag, and ownership match (owner or sender).
func FindClientRecord(records []Record, owner string) (*Record, bool) {
	for i := range records {
		r := &records[i]
		if r.RecordName != RecordNameClient || r.Spent {
			continue
		}
		if r.Owner == owner || r.Sender == owner || strings.Contains(r.Owner, owner) {
			return r, true
		}
	}
	return nil, false
}

// FindEscrowRecordByTx selects the unspent Escrow record minted by a specific
// transaction. The approval path uses this to pick the record produced by the
// escrow's prior operation; matching by type alone would be ambiguous when
// the caller holds several in-flight escrows.
func FindEscrowRecordByTx(records []Record, txID string) (*Record, bool) {
	want := strings.ToLower(strings.TrimSpace(txID))
	if want == "" {
		return nil, false
	}
	for i := range records {
		r := &records[i]
		if r.RecordName != RecordNameEscrow || r.Spent {
			continue
		}
		if strings.ToLower(strings.TrimSpace(r.TransactionID)) == want {
			return r, true
		}
	}
	return nil, false
}
