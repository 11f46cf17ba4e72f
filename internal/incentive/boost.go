package incentive

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lpIncentives/internal/model"
)

// ApplyBoost scales each holder's credit by the multiplier at the same index.
// A zero multiplier means no boost data and leaves the credit as is. Holders
// missing from the list pass through unchanged.
func ApplyBoost(acc model.HolderAccumulator, holders []model.Address, multipliers []decimal.Decimal) (model.HolderAccumulator, error) {
	if len(holders) != len(multipliers) {
		return nil, fmt.Errorf("boost: %d holders but %d multipliers", len(holders), len(multipliers))
	}

	out := acc.Clone()
	for i, holder := range holders {
		credit, ok := out[holder]
		if !ok {
			continue
		}
		m := multipliers[i]
		if m.IsNegative() {
			return nil, fmt.Errorf("boost: negative multiplier %s for %s", m, holder)
		}
		if m.IsZero() {
			continue
		}
		out[holder] = credit.Scale(m)
	}
	return out, nil
}
