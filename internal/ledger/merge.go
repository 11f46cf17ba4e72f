package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"lpIncentives/internal/model"
)

// Decimals is the fixed-point scale of ledger amounts.
const Decimals = 18

// ToFixed converts a token amount into base-18 fixed point, truncating toward zero.
func ToFixed(amount decimal.Decimal) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", amount.String())
	}
	return amount.Shift(Decimals).Truncate(0).BigInt(), nil
}

// Merge adds this window's rewards to prev under category and returns the new
// ledger. prev is left untouched. Each reward is converted to fixed point once.
func Merge(prev Ledger, rewards model.RewardShare, category string) (Ledger, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("category label is required")
	}

	next := prev.Clone()
	for holder, reward := range rewards {
		if holder.IsZero() {
			return nil, fmt.Errorf("reward for zero address")
		}
		amount, err := ToFixed(reward)
		if err != nil {
			return nil, fmt.Errorf("holder %s: %w", holder, err)
		}

		entry, ok := next[holder]
		if !ok {
			entry = make(map[string]*big.Int, 1)
			next[holder] = entry
		}
		current, ok := entry[category]
		if !ok {
			current = new(big.Int)
		}
		entry[category] = new(big.Int).Add(current, amount)
	}
	return next, nil
}
