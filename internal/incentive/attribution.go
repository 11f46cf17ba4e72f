// Package incentive turns trades and position state into weekly reward shares.
package incentive

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"lpIncentives/internal/clmath"
	"lpIncentives/internal/model"
)

// divPrecision is the number of fractional digits kept by credit divisions.
const divPrecision = 36

// Scales holds the decimal exponents used to normalise on-chain integers.
type Scales struct {
	Liquidity int32
	Token0    int32
	Token1    int32
}

// DefaultScales treats every on-chain integer as an 18-decimal amount.
func DefaultScales() Scales {
	return Scales{Liquidity: 18, Token0: 18, Token1: 18}
}

// Attribute credits every position that is in range for trade. Fee credit is
// the traded amount weighted by liquidity; token credit is the position's
// exposure weighted by this trade's share of totalVolume. Out-of-range
// positions and positions without liquidity produce nothing.
func Attribute(trade model.TradeEvent, positions []model.Position, totalVolume decimal.Decimal, scales Scales) ([]model.Contribution, error) {
	if trade.Amount.IsNegative() {
		return nil, fmt.Errorf("trade at block %d has negative amount", trade.BlockNumber)
	}

	volumeShare := decimal.Zero
	if totalVolume.IsPositive() {
		volumeShare = trade.Amount.DivRound(totalVolume, divPrecision)
	}

	out := make([]model.Contribution, 0, len(positions))
	for _, pos := range positions {
		if !pos.InRange(trade.Tick) {
			continue
		}
		if pos.Liquidity == nil || pos.Liquidity.Sign() <= 0 {
			continue
		}

		amount0, amount1, err := clmath.AmountsForTicks(trade.SqrtPriceX96, trade.Tick, pos.TickLower, pos.TickUpper, pos.Liquidity)
		if err != nil {
			return nil, fmt.Errorf("position %s exposure: %w", idString(pos.ID), err)
		}

		liquidity := decimal.NewFromBigInt(pos.Liquidity, -scales.Liquidity)
		out = append(out, model.Contribution{
			Owner: pos.Owner,
			Credit: model.Credit{
				Fees:   trade.Amount.Mul(liquidity),
				Token0: decimal.NewFromBigInt(amount0, -scales.Token0).Mul(volumeShare),
				Token1: decimal.NewFromBigInt(amount1, -scales.Token1).Mul(volumeShare),
			},
		})
	}
	return out, nil
}

func idString(id *big.Int) string {
	if id == nil {
		return "<nil>"
	}
	return id.String()
}
