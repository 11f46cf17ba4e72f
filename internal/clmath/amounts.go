package clmath

import (
	"errors"
	"math/big"
)

var ErrSqrtPriceZero = errors.New("sqrt price must be greater than zero")

// Amount0ForLiquidity returns the token0 held by liquidity between two sqrt
// prices, rounded down.
func Amount0ForLiquidity(sqrtA, sqrtB, liquidity *big.Int) (*big.Int, error) {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if sqrtA.Sign() <= 0 {
		return nil, ErrSqrtPriceZero
	}
	num := new(big.Int).Lsh(liquidity, 96)
	num.Mul(num, new(big.Int).Sub(sqrtB, sqrtA))
	num.Quo(num, sqrtB)
	return num.Quo(num, sqrtA), nil
}

// Amount1ForLiquidity returns the token1 held by liquidity between two sqrt
// prices, rounded down.
func Amount1ForLiquidity(sqrtA, sqrtB, liquidity *big.Int) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	out := new(big.Int).Sub(sqrtB, sqrtA)
	out.Mul(out, liquidity)
	return out.Quo(out, Q96)
}

// AmountsForLiquidity splits liquidity into token amounts at the current price
// for a range bounded by sqrtA and sqrtB.
func AmountsForLiquidity(sqrtPrice, sqrtA, sqrtB, liquidity *big.Int) (amount0, amount1 *big.Int, err error) {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	switch {
	case sqrtPrice.Cmp(sqrtA) <= 0:
		amount0, err = Amount0ForLiquidity(sqrtA, sqrtB, liquidity)
		amount1 = new(big.Int)
	case sqrtPrice.Cmp(sqrtB) < 0:
		amount0, err = Amount0ForLiquidity(sqrtPrice, sqrtB, liquidity)
		amount1 = Amount1ForLiquidity(sqrtA, sqrtPrice, liquidity)
	default:
		amount0 = new(big.Int)
		amount1 = Amount1ForLiquidity(sqrtA, sqrtB, liquidity)
	}
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// AmountsForTicks is AmountsForLiquidity with the range given as ticks. A nil
// or zero sqrtPrice falls back to the sqrt ratio of tick.
func AmountsForTicks(sqrtPrice *big.Int, tick, tickLower, tickUpper int32, liquidity *big.Int) (*big.Int, *big.Int, error) {
	if sqrtPrice == nil || sqrtPrice.Sign() == 0 {
		p, err := SqrtRatioAtTick(tick)
		if err != nil {
			return nil, nil, err
		}
		sqrtPrice = p
	}
	sqrtA, err := SqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtB, err := SqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	return AmountsForLiquidity(sqrtPrice, sqrtA, sqrtB, liquidity)
}
