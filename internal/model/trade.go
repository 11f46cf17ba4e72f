package model

import (
	"math/big"
	"sort"

	"github.com/shopspring/decimal"
)

// TradeEvent is one swap in the pool during the accounting window.
type TradeEvent struct {
	Timestamp    uint64          `json:"timestamp"`
	Tick         int32           `json:"tick"`
	SqrtPriceX96 *big.Int        `json:"sqrt_price_x96"`
	Amount       decimal.Decimal `json:"amount"`
	BlockNumber  uint64          `json:"block_number"`
}

// SortTrades orders trades by timestamp, then block number.
func SortTrades(trades []TradeEvent) {
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		return trades[i].BlockNumber < trades[j].BlockNumber
	})
}

// TotalVolume sums the traded amount of all trades.
func TotalVolume(trades []TradeEvent) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.Amount)
	}
	return total
}

// PositionRef identifies a liquidity position NFT.
type PositionRef struct {
	ID *big.Int `json:"id"`
}

// Position is the on-chain state of a liquidity position at a given block.
type Position struct {
	ID        *big.Int `json:"id"`
	Owner     Address  `json:"owner"`
	Liquidity *big.Int `json:"liquidity"`
	TickLower int32    `json:"tick_lower"`
	TickUpper int32    `json:"tick_upper"`
	Token0    Address  `json:"token0"`
	Token1    Address  `json:"token1"`
}

// InRange reports whether tick lies strictly inside the position bounds.
func (p Position) InRange(tick int32) bool {
	return p.TickLower < tick && tick < p.TickUpper
}
