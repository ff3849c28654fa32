package aleo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// FieldByteLimit is the number of UTF-8 bytes that fit in one field element
// with the encoding used by the on-chain program. Longer strings are
// truncated; the loss is accepted for descriptive text.
const FieldByteLimit = 31

// EmptyField is the sentinel for unused skill slots.
const EmptyField = "0field"

// ErrEscrowIDNotFound is returned when a finalized transaction payload
// contains no extractable escrow identifier. Create-escrow callers must treat
// this as fatal: the mirror row is keyed by the id.
var ErrEscrowIDNotFound = errors.New("escrow id not found in transaction")

// EncodeField packs a string into a field literal: the first 31 UTF-8 bytes
// interpreted as a little-endian unsigned integer, rendered "<digits>field".
// Empty input encodes to the sentinel. Truncation is deterministic, so
// encoding an already-truncated string yields the same literal.
func EncodeField(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmptyField
	}
	b := []byte(s)
	if len(b) > FieldByteLimit {
		b = b[:FieldByteLimit]
	}
	n := new(big.Int)
	for i := len(b) - 1; i >= 0; i-- {
		n.Lsh(n, 8)
		n.Or(n, big.NewInt(int64(b[i])))
	}
	return n.String() + "field"
}

// DecodeField reverses EncodeField for values produced by it.
func DecodeField(f string) (string, error) {
	digits := strings.TrimSuffix(strings.TrimSpace(f), "field")
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return "", fmt.Errorf("invalid field literal %q", f)
	}
	if n.Sign() == 0 {
		return "", nil
	}
	var b []byte
	mask := big.NewInt(0xff)
	tmp := new(big.Int).Set(n)
	for tmp.Sign() > 0 {
		b = append(b, byte(new(big.Int).And(tmp, mask).Int64()))
		tmp.Rsh(tmp, 8)
	}
	return string(b), nil
}

// RecordField pulls a named field literal out of a decrypted record
// plaintext, e.g. the description of an Escrow record.
func RecordField(plaintext, name string) (string, bool) {
	re := regexp.MustCompile(regexp.QuoteMeta(name) + `\s*:\s*(\d+field)`)
	m := re.FindStringSubmatch(plaintext)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// EncodeSkillSlots encodes up to MaxSkills skills into exactly five field
// literals, padding unused slots with the empty sentinel. The on-chain
// register_freelancer signature takes a fixed 5-element array.
func EncodeSkillSlots(skills []string) [5]string {
	var slots [5]string
	for i := range slots {
		if i < len(skills) {
			slots[i] = EncodeField(skills[i])
		} else {
			slots[i] = EmptyField
		}
	}
	return slots
}

// U64 renders an unsigned-64 literal.
func U64(v int64) string {
	return fmt.Sprintf("%du64", v)
}

// FieldLiteral appends the field suffix to bare digits.
func FieldLiteral(digits string) string {
	if strings.HasSuffix(digits, "field") {
		return digits
	}
	return digits + "field"
}

// Array renders an Aleo array literal from element literals.
func Array(items []string) string {
	return "[" + strings.Join(items, ",") + "]"
}

var fieldArgPattern = regexp.MustCompile(`\[?\s*(\d+)field`)

type txPayload struct {
	Execution struct {
		Transitions []struct {
			Function string `json:"function"`
			Outputs  []struct {
				Type  string          `json:"type"`
				Value json.RawMessage `json:"value"`
			} `json:"outputs"`
		} `json:"transitions"`
	} `json:"execution"`
}

// ExtractEscrowID digs the ledger-minted escrow id out of a finalized
// transaction payload: the create_escrow transition's "future" output carries
// it as its first argument. The output value arrives either as a structured
// object with an arguments array or as a plaintext string; structured access
// is tried first, then a pattern match against the field-literal grammar.
// Returns the bare digits without the field suffix.
func ExtractEscrowID(payload []byte, function string) (string, error) {
	var tx txPayload
	if err := json.Unmarshal(payload, &tx); err != nil {
		return "", fmt.Errorf("parse transaction payload: %w", err)
	}

	for _, tr := range tx.Execution.Transitions {
		if tr.Function != function {
			continue
		}
		for _, out := range tr.Outputs {
			if out.Type != "future" {
				continue
			}
			if id, ok := extractFromValue(out.Value); ok {
				return id, nil
			}
		}
	}
	return "", ErrEscrowIDNotFound
}

func extractFromValue(value json.RawMessage) (string, bool) {
	// Structured shape: {"arguments": ["123field", ...]}
	var structured struct {
		Arguments []json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(value, &structured); err == nil && len(structured.Arguments) > 0 {
		var arg string
		if err := json.Unmarshal(structured.Arguments[0], &arg); err == nil {
			if m := fieldArgPattern.FindStringSubmatch(arg); m != nil {
				return m[1], true
			}
		}
	}

	// Plaintext shape: the whole future rendered as a string.
	var raw string
	if err := json.Unmarshal(value, &raw); err == nil {
		if m := fieldArgPattern.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}
