// Package amount converts between human token amounts and integer
// smallest-unit amounts using exact decimal arithmetic.
package amount

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	apperr "github.com/ggonzalez94/swapsage/internal/errors"
)

// MaxDecimals is the largest token precision whose 10^d still fits a uint256.
const MaxDecimals = 77

// HumanPrecision is the number of fractional digits kept for human amounts.
const HumanPrecision = 18

var decimalPattern = regexp.MustCompile(`^([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)

// ParseHuman parses a non-negative human-unit amount such as "1.25" or ".5".
func ParseHuman(input string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return decimal.Zero, apperr.New(apperr.CodeValidation, "amount is required")
	}
	if !decimalPattern.MatchString(raw) {
		return decimal.Zero, apperr.New(apperr.CodeValidation, fmt.Sprintf("amount must be a non-negative decimal like 1.23, got %q", input))
	}
	if strings.HasPrefix(raw, ".") {
		raw = "0" + raw
	}
	raw = strings.TrimSuffix(raw, ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperr.Wrap(apperr.CodeValidation, "invalid decimal amount", err)
	}
	return d, nil
}

// ToBaseUnits returns trunc(human * 10^decimals) as a base-10 integer string.
// Digits beyond the token precision are dropped, never rounded.
func ToBaseUnits(human decimal.Decimal, decimals int) (string, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return "", apperr.New(apperr.CodeValidation, fmt.Sprintf("decimals must be between 0 and %d", MaxDecimals))
	}
	if human.IsNegative() {
		return "", apperr.New(apperr.CodeValidation, "amount must be non-negative")
	}
	return human.Shift(int32(decimals)).BigInt().String(), nil
}

// HumanToBaseUnits parses input and converts it in one step.
func HumanToBaseUnits(input string, decimals int) (string, decimal.Decimal, error) {
	d, err := ParseHuman(input)
	if err != nil {
		return "", decimal.Zero, err
	}
	base, err := ToBaseUnits(d, decimals)
	if err != nil {
		return "", decimal.Zero, err
	}
	return base, d, nil
}

// CheckHumanPrecision rejects amounts with more fractional digits than the ledger stores.
func CheckHumanPrecision(d decimal.Decimal) error {
	if !d.Equal(d.Truncate(HumanPrecision)) {
		return apperr.New(apperr.CodeValidation, fmt.Sprintf("amount precision exceeds %d fractional digits", HumanPrecision))
	}
	return nil
}

// FormatBaseUnits converts a base-unit integer string into a trimmed decimal string.
func FormatBaseUnits(baseUnits string, decimals int) (string, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(baseUnits), 10)
	if !ok {
		return "", apperr.New(apperr.CodeValidation, fmt.Sprintf("base units must be an integer string, got %q", baseUnits))
	}
	if decimals < 0 {
		return "", apperr.New(apperr.CodeValidation, "decimals must be >= 0")
	}
	return decimal.NewFromBigInt(n, -int32(decimals)).String(), nil
}
