package utils

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNonPositiveAmount = errors.New("amount must be positive")
)

// ParseBaseUnits parses a user-supplied amount into exact base units of a
// token with the given number of decimals. Both "." and "," are accepted as
// thousands separators ("45.000.000" is forty-five million), and a single
// trailing fractional part is allowed when it is shorter than the grouping
// width ("1,5" is one and a half). The result is always an exact integer in
// base units; no floating point is involved at any step.
func ParseBaseUnits(amount string, decimals int) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.Wrap(ErrInvalidAmount, "amount is empty")
	}
	if decimals < 0 || decimals > 77 {
		return nil, errors.Wrapf(ErrInvalidAmount, "unsupported decimals %d", decimals)
	}

	whole, frac, err := splitAmountParts(amount)
	if err != nil {
		return nil, err
	}

	if len(frac) > decimals {
		return nil, errors.Wrapf(ErrInvalidAmount,
			"fractional part %q exceeds %d decimals", frac, decimals)
	}

	digits := whole + frac + strings.Repeat("0", decimals-len(frac))

	value, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, errors.Wrapf(ErrInvalidAmount, "cannot parse %q", amount)
	}
	if value.Sign() <= 0 {
		return nil, errors.Wrapf(ErrNonPositiveAmount, "got %q", amount)
	}

	return value, nil
}

// splitAmountParts normalizes separators and returns (wholeDigits, fracDigits).
//
// Disambiguation rule for "." and ",": a separator is a decimal point only
// when it is the last separator in the string and the digits after it do not
// form a full three-digit group matching the remaining groups. "45.000.000"
// therefore groups as thousands, while "45.000.5" has a fractional "5".
func splitAmountParts(amount string) (string, string, error) {
	for _, r := range amount {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return "", "", errors.Wrapf(ErrInvalidAmount, "unexpected character %q", r)
		}
	}

	normalized := strings.ReplaceAll(amount, ",", ".")
	parts := strings.Split(normalized, ".")
	if len(parts) == 1 {
		return parts[0], "", nil
	}

	last := parts[len(parts)-1]
	groups := parts[1 : len(parts)-1]

	// All interior groups must be exactly three digits for grouping to hold.
	for _, g := range groups {
		if len(g) != 3 {
			if len(parts) == 2 {
				return parts[0], last, nil
			}
			return "", "", errors.Wrapf(ErrInvalidAmount, "malformed grouping in %q", amount)
		}
	}

	if len(last) == 3 {
		return strings.Join(parts, ""), "", nil
	}

	return strings.Join(parts[:len(parts)-1], ""), last, nil
}

// SplitByPercentages splits total into len(percentages) integer amounts.
// Entries 1..N-1 take floor(total*pct/100); the final entry absorbs the
// remainder so the parts always sum to total exactly. Percentages must be
// validated with ValidateMilestonePercentages before calling.
func SplitByPercentages(total *big.Int, percentages []int) []*big.Int {
	if len(percentages) == 0 {
		return nil
	}

	hundred := big.NewInt(100)
	amounts := make([]*big.Int, len(percentages))
	allocated := new(big.Int)

	for i := 0; i < len(percentages)-1; i++ {
		part := new(big.Int).Mul(total, big.NewInt(int64(percentages[i])))
		part.Quo(part, hundred)
		amounts[i] = part
		allocated.Add(allocated, part)
	}

	amounts[len(percentages)-1] = new(big.Int).Sub(total, allocated)

	return amounts
}
