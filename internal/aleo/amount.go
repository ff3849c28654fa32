package aleo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MicrocreditsPerCredit is the base-unit scale: 1 ALEO = 1_000_000
// microcredits.
const MicrocreditsPerCredit = 1_000_000

var ErrInvalidAmount = errors.New("invalid amount")

var microScale = decimal.NewFromInt(MicrocreditsPerCredit)

// ParseCredits converts a decimal ALEO amount ("1.5") into microcredits.
// Rejects non-positive amounts and fractions finer than one microcredit.
func ParseCredits(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, s)
	}
	if d.Sign() <= 0 {
		return 0, fmt.Errorf("%w: must be positive", ErrInvalidAmount)
	}
	micro := d.Mul(microScale)
	if !micro.IsInteger() {
		return 0, fmt.Errorf("%w: finer than one microcredit", ErrInvalidAmount)
	}
	if !micro.BigInt().IsInt64() {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}
	return micro.IntPart(), nil
}

// FormatCredits renders microcredits as a decimal ALEO string.
func FormatCredits(micro int64) string {
	return decimal.NewFromInt(micro).Div(microScale).String()
}
