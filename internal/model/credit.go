package model

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Credit holds the three reward categories credited to a holder.
type Credit struct {
	Fees   decimal.Decimal `json:"fees"`
	Token0 decimal.Decimal `json:"token0"`
	Token1 decimal.Decimal `json:"token1"`
}

// Add returns c + o.
func (c Credit) Add(o Credit) Credit {
	return Credit{
		Fees:   c.Fees.Add(o.Fees),
		Token0: c.Token0.Add(o.Token0),
		Token1: c.Token1.Add(o.Token1),
	}
}

// Scale multiplies every category by m.
func (c Credit) Scale(m decimal.Decimal) Credit {
	return Credit{
		Fees:   c.Fees.Mul(m),
		Token0: c.Token0.Mul(m),
		Token1: c.Token1.Mul(m),
	}
}

// IsZero reports whether all categories are zero.
func (c Credit) IsZero() bool {
	return c.Fees.IsZero() && c.Token0.IsZero() && c.Token1.IsZero()
}

// Contribution is the credit one in-range position earns its owner for one trade.
type Contribution struct {
	Owner Address
	Credit
}

// HolderAccumulator maps holders to their credited totals.
type HolderAccumulator map[Address]Credit

// Holders returns the accumulator keys in byte order.
func (a HolderAccumulator) Holders() []Address {
	holders := make([]Address, 0, len(a))
	for h := range a {
		holders = append(holders, h)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].Less(holders[j]) })
	return holders
}

// Totals sums every holder's credit.
func (a HolderAccumulator) Totals() Credit {
	total := Credit{}
	for _, h := range a.Holders() {
		total = total.Add(a[h])
	}
	return total
}

// Clone returns a shallow copy; Credit values are immutable.
func (a HolderAccumulator) Clone() HolderAccumulator {
	out := make(HolderAccumulator, len(a))
	for h, c := range a {
		out[h] = c
	}
	return out
}

// RewardShare maps holders to their amount of the weekly emission, in token units.
type RewardShare map[Address]decimal.Decimal

// Total sums all shares.
func (s RewardShare) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range s {
		total = total.Add(v)
	}
	return total
}
