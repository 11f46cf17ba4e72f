package clmath

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromString(s string) *big.Int {
	n, _ := new(big.Int).SetString(s, 10)
	return n
}

func TestSqrtRatioAtTick(t *testing.T) {
	t.Run("too low", func(t *testing.T) {
		_, err := SqrtRatioAtTick(MinTick - 1)
		assert.ErrorIs(t, err, ErrTickOutOfBounds)
	})

	t.Run("too high", func(t *testing.T) {
		_, err := SqrtRatioAtTick(MaxTick + 1)
		assert.ErrorIs(t, err, ErrTickOutOfBounds)
	})

	t.Run("min tick", func(t *testing.T) {
		got, err := SqrtRatioAtTick(MinTick)
		require.NoError(t, err)
		assert.Zero(t, fromString("4295128739").Cmp(got))
	})

	t.Run("max tick", func(t *testing.T) {
		got, err := SqrtRatioAtTick(MaxTick)
		require.NoError(t, err)
		assert.Zero(t, fromString("1461446703485210103287273052203988822378723970342").Cmp(got))
	})

	t.Run("zero tick is one", func(t *testing.T) {
		got, err := SqrtRatioAtTick(0)
		require.NoError(t, err)
		assert.Zero(t, Q96.Cmp(got))
	})

	t.Run("monotonic", func(t *testing.T) {
		prev, err := SqrtRatioAtTick(-1000)
		require.NoError(t, err)
		for tick := int32(-999); tick <= 1000; tick += 37 {
			cur, err := SqrtRatioAtTick(tick)
			require.NoError(t, err)
			assert.Equal(t, 1, cur.Cmp(prev), "tick %d", tick)
			prev = cur
		}
	})
}

func TestAmountsForLiquidity(t *testing.T) {
	liquidity := fromString("1000000000000000000")

	lower, err := SqrtRatioAtTick(-600)
	require.NoError(t, err)
	upper, err := SqrtRatioAtTick(600)
	require.NoError(t, err)

	t.Run("below range is all token0", func(t *testing.T) {
		a0, a1, err := AmountsForTicks(nil, -700, -600, 600, liquidity)
		require.NoError(t, err)
		assert.Positive(t, a0.Sign())
		assert.Zero(t, a1.Sign())
	})

	t.Run("above range is all token1", func(t *testing.T) {
		a0, a1, err := AmountsForTicks(nil, 700, -600, 600, liquidity)
		require.NoError(t, err)
		assert.Zero(t, a0.Sign())
		assert.Positive(t, a1.Sign())
	})

	t.Run("in range holds both", func(t *testing.T) {
		a0, a1, err := AmountsForLiquidity(Q96, lower, upper, liquidity)
		require.NoError(t, err)
		assert.Positive(t, a0.Sign())
		assert.Positive(t, a1.Sign())

		// symmetric range around price 1
		diff := new(big.Int).Sub(a0, a1)
		assert.True(t, diff.CmpAbs(big.NewInt(2)) <= 0, "a0=%s a1=%s", a0, a1)
	})

	t.Run("bounds order does not matter", func(t *testing.T) {
		a0, a1, err := AmountsForLiquidity(Q96, upper, lower, liquidity)
		require.NoError(t, err)
		b0, b1, err := AmountsForLiquidity(Q96, lower, upper, liquidity)
		require.NoError(t, err)
		assert.Zero(t, a0.Cmp(b0))
		assert.Zero(t, a1.Cmp(b1))
	})

	t.Run("explicit price overrides tick", func(t *testing.T) {
		a0, a1, err := AmountsForTicks(Q96, 500, -600, 600, liquidity)
		require.NoError(t, err)
		b0, b1, err := AmountsForTicks(nil, 0, -600, 600, liquidity)
		require.NoError(t, err)
		assert.Zero(t, a0.Cmp(b0))
		assert.Zero(t, a1.Cmp(b1))
	})
}
