package incentive

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lpIncentives/internal/model"
)

// Weights sets how much of the budget each credit category drives.
type Weights struct {
	Fees   decimal.Decimal `json:"fees"`
	Token0 decimal.Decimal `json:"token0"`
	Token1 decimal.Decimal `json:"token1"`
}

// DefaultWeights is 40% fees, 40% token0, 20% token1.
func DefaultWeights() Weights {
	return Weights{
		Fees:   decimal.RequireFromString("0.4"),
		Token0: decimal.RequireFromString("0.4"),
		Token1: decimal.RequireFromString("0.2"),
	}
}

// Validate checks every weight lies in [0,1].
func (w Weights) Validate() error {
	one := decimal.NewFromInt(1)
	for name, v := range map[string]decimal.Decimal{"fees": w.Fees, "token0": w.Token0, "token1": w.Token1} {
		if v.IsNegative() || v.GreaterThan(one) {
			return fmt.Errorf("weight %s=%s outside [0,1]", name, v)
		}
	}
	return nil
}

// Allocate splits budget across holders by their weighted share of each
// category total. A category whose total is zero contributes nothing.
func Allocate(acc model.HolderAccumulator, weights Weights, budget decimal.Decimal) (model.RewardShare, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if budget.IsNegative() {
		return nil, fmt.Errorf("negative budget %s", budget)
	}

	out := make(model.RewardShare, len(acc))
	if len(acc) == 0 {
		return out, nil
	}

	totals := acc.Totals()
	for _, holder := range acc.Holders() {
		credit := acc[holder]
		ratio := share(weights.Fees, credit.Fees, totals.Fees).
			Add(share(weights.Token0, credit.Token0, totals.Token0)).
			Add(share(weights.Token1, credit.Token1, totals.Token1))
		out[holder] = budget.Mul(ratio)
	}
	return out, nil
}

func share(weight, value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return weight.Mul(value).DivRound(total, divPrecision)
}
