package incentive

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpIncentives/internal/model"
)

var (
	alice = model.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob   = model.MustParseAddress("0x00000000000000000000000000000000000000b2")
	carol = model.MustParseAddress("0x00000000000000000000000000000000000000c3")
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func position(id int64, owner model.Address, liquidity *big.Int, lower, upper int32) model.Position {
	return model.Position{ID: big.NewInt(id), Owner: owner, Liquidity: liquidity, TickLower: lower, TickUpper: upper}
}

func TestAttributeRangeBoundaries(t *testing.T) {
	positions := []model.Position{
		position(1, alice, ether(1), 100, 200),
	}

	cases := []struct {
		name    string
		tick    int32
		inRange bool
	}{
		{"at lower bound", 100, false},
		{"at upper bound", 200, false},
		{"just inside lower", 101, true},
		{"just inside upper", 199, true},
		{"below", 50, false},
		{"above", 250, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			trade := model.TradeEvent{Tick: tc.tick, Amount: dec("10"), BlockNumber: 1}
			got, err := Attribute(trade, positions, dec("10"), DefaultScales())
			require.NoError(t, err)
			if tc.inRange {
				require.Len(t, got, 1)
				assert.Equal(t, alice, got[0].Owner)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestAttributeFeeCredit(t *testing.T) {
	trade := model.TradeEvent{Tick: 0, Amount: dec("250"), BlockNumber: 7}
	positions := []model.Position{
		position(1, alice, ether(2), -600, 600),
		position(2, bob, big.NewInt(0), -600, 600),
	}

	got, err := Attribute(trade, positions, dec("1000"), DefaultScales())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Fees.Equal(dec("500")), "fees=%s", got[0].Fees)
	assert.True(t, got[0].Token0.IsPositive())
	assert.True(t, got[0].Token1.IsPositive())
}

func TestAttributeFeeAdditivity(t *testing.T) {
	trade := model.TradeEvent{Tick: 10, Amount: dec("33.3"), BlockNumber: 3}

	split, err := Attribute(trade, []model.Position{
		position(1, alice, ether(3), -600, 600),
		position(2, alice, ether(5), -600, 600),
	}, dec("100"), DefaultScales())
	require.NoError(t, err)
	whole, err := Attribute(trade, []model.Position{
		position(3, alice, ether(8), -600, 600),
	}, dec("100"), DefaultScales())
	require.NoError(t, err)

	acc := Fold(model.HolderAccumulator{}, split)
	require.Len(t, whole, 1)
	assert.True(t, acc[alice].Fees.Equal(whole[0].Fees), "split=%s whole=%s", acc[alice].Fees, whole[0].Fees)
}

func TestAttributeZeroTotalVolume(t *testing.T) {
	trade := model.TradeEvent{Tick: 0, Amount: dec("0"), BlockNumber: 1}
	got, err := Attribute(trade, []model.Position{position(1, alice, ether(1), -60, 60)}, decimal.Zero, DefaultScales())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Token0.IsZero())
	assert.True(t, got[0].Token1.IsZero())
}

func TestAttributeTickOutOfBounds(t *testing.T) {
	trade := model.TradeEvent{Tick: 0, Amount: dec("1"), BlockNumber: 1}
	_, err := Attribute(trade, []model.Position{position(1, alice, ether(1), -900000, 600)}, dec("1"), DefaultScales())
	require.Error(t, err)
}

func TestFoldSumsContributions(t *testing.T) {
	contributions := []model.Contribution{
		{Owner: alice, Credit: model.Credit{Fees: dec("1"), Token0: dec("2"), Token1: dec("3")}},
		{Owner: bob, Credit: model.Credit{Fees: dec("4")}},
		{Owner: alice, Credit: model.Credit{Fees: dec("5"), Token1: dec("1")}},
	}
	start := model.HolderAccumulator{carol: {Fees: dec("9")}}

	acc := Fold(start, contributions)
	assert.True(t, acc[alice].Fees.Equal(dec("6")))
	assert.True(t, acc[alice].Token1.Equal(dec("4")))
	assert.True(t, acc[bob].Fees.Equal(dec("4")))
	assert.True(t, acc.Totals().Fees.Equal(dec("19")))

	_, touched := start[alice]
	assert.False(t, touched)
}

func TestApplyBoost(t *testing.T) {
	acc := model.HolderAccumulator{
		alice: {Fees: dec("10"), Token0: dec("1"), Token1: dec("2")},
		bob:   {Fees: dec("10"), Token0: dec("1"), Token1: dec("2")},
	}

	boosted, err := ApplyBoost(acc, []model.Address{alice, bob}, []decimal.Decimal{decimal.Zero, dec("2")})
	require.NoError(t, err)

	assert.True(t, boosted[alice].Fees.Equal(dec("10")))
	assert.True(t, boosted[alice].Token1.Equal(dec("2")))
	assert.True(t, boosted[bob].Fees.Equal(dec("20")))
	assert.True(t, boosted[bob].Token0.Equal(dec("2")))
	assert.True(t, boosted[bob].Token1.Equal(dec("4")))

	_, err = ApplyBoost(acc, []model.Address{alice}, nil)
	require.Error(t, err)
}

func TestAllocateTwoHolders(t *testing.T) {
	acc := model.HolderAccumulator{
		alice: {Fees: dec("60"), Token0: dec("6"), Token1: dec("0.6")},
		bob:   {Fees: dec("40"), Token0: dec("4"), Token1: dec("0.4")},
	}

	rewards, err := Allocate(acc, DefaultWeights(), dec("100"))
	require.NoError(t, err)
	require.Len(t, rewards, 2)
	assert.True(t, rewards[alice].Equal(dec("60")), "alice=%s", rewards[alice])
	assert.True(t, rewards[bob].Equal(dec("40")), "bob=%s", rewards[bob])
	assert.True(t, rewards.Total().LessThanOrEqual(dec("100")))
}

func TestAllocateMixedCategories(t *testing.T) {
	// alice: 0.4*10/10 + 0.4*5/10 + 0.2*0/10 = 0.6
	// bob:   0.4*0/10  + 0.4*5/10 + 0.2*10/10 = 0.4
	acc := model.HolderAccumulator{
		alice: {Fees: dec("10"), Token0: dec("5"), Token1: dec("0")},
		bob:   {Fees: dec("0"), Token0: dec("5"), Token1: dec("10")},
	}

	rewards, err := Allocate(acc, DefaultWeights(), dec("100"))
	require.NoError(t, err)
	assert.True(t, rewards[alice].Equal(dec("60")), "alice=%s", rewards[alice])
	assert.True(t, rewards[bob].Equal(dec("40")), "bob=%s", rewards[bob])
}

func TestAllocateZeroCategoryTotal(t *testing.T) {
	acc := model.HolderAccumulator{
		alice: {Fees: dec("1")},
		bob:   {Fees: dec("3")},
	}

	rewards, err := Allocate(acc, DefaultWeights(), dec("100"))
	require.NoError(t, err)
	assert.True(t, rewards[alice].Equal(dec("10")), "alice=%s", rewards[alice])
	assert.True(t, rewards[bob].Equal(dec("30")), "bob=%s", rewards[bob])
}

func TestAllocateEmpty(t *testing.T) {
	rewards, err := Allocate(model.HolderAccumulator{}, DefaultWeights(), dec("100"))
	require.NoError(t, err)
	assert.Empty(t, rewards)
}

func TestAllocateRejectsBadInput(t *testing.T) {
	acc := model.HolderAccumulator{alice: {Fees: dec("1")}}

	_, err := Allocate(acc, Weights{Fees: dec("1.5")}, dec("100"))
	require.Error(t, err)

	_, err = Allocate(acc, DefaultWeights(), dec("-1"))
	require.Error(t, err)
}

type fakePositions struct {
	byBlock map[uint64][]model.Position
	err     error
	calls   []uint64
}

func (f *fakePositions) Positions(_ context.Context, block uint64, _ []model.PositionRef) ([]model.Position, error) {
	f.calls = append(f.calls, block)
	if f.err != nil {
		return nil, f.err
	}
	return f.byBlock[block], nil
}

type fakeBoost struct {
	mult  map[model.Address]decimal.Decimal
	calls []uint64
}

func (f *fakeBoost) Multipliers(_ context.Context, block uint64, holders []model.Address) ([]decimal.Decimal, error) {
	f.calls = append(f.calls, block)
	out := make([]decimal.Decimal, len(holders))
	for i, h := range holders {
		out[i] = f.mult[h]
	}
	return out, nil
}

func TestCalculatorRun(t *testing.T) {
	trades := []model.TradeEvent{
		{Timestamp: 20, Tick: 0, Amount: dec("30"), BlockNumber: 200},
		{Timestamp: 10, Tick: 0, Amount: dec("70"), BlockNumber: 100},
	}
	reader := &fakePositions{byBlock: map[uint64][]model.Position{
		100: {position(1, alice, ether(1), -600, 600), position(2, bob, ether(1), -600, 600)},
		200: {position(1, alice, ether(1), -600, 600), position(2, bob, ether(1), 600, 1200)},
	}}
	boost := &fakeBoost{mult: map[model.Address]decimal.Decimal{bob: dec("2")}}

	calc := &Calculator{Positions: reader, Boost: boost, Scales: DefaultScales()}
	res, err := calc.Run(context.Background(), trades, nil)
	require.NoError(t, err)

	assert.Equal(t, []uint64{100, 200}, reader.calls)
	assert.Equal(t, []uint64{100, 200}, boost.calls)
	assert.Equal(t, 2, res.Trades)
	assert.Equal(t, 3, res.InRangePositions)
	assert.True(t, res.TotalVolume.Equal(dec("100")))

	// alice: 70 + 30 unscaled; bob: 70 doubled, out of range for the second trade
	assert.True(t, res.Credits[alice].Fees.Equal(dec("100")), "alice=%s", res.Credits[alice].Fees)
	assert.True(t, res.Credits[bob].Fees.Equal(dec("140")), "bob=%s", res.Credits[bob].Fees)
}

func TestCalculatorWindowBoost(t *testing.T) {
	trades := []model.TradeEvent{
		{Timestamp: 10, Tick: 0, Amount: dec("5"), BlockNumber: 100},
		{Timestamp: 20, Tick: 0, Amount: dec("5"), BlockNumber: 200},
	}
	pos := []model.Position{position(1, alice, ether(1), -600, 600)}
	reader := &fakePositions{byBlock: map[uint64][]model.Position{100: pos, 200: pos}}
	boost := &fakeBoost{mult: map[model.Address]decimal.Decimal{alice: dec("3")}}

	calc := &Calculator{Positions: reader, Boost: boost, Scales: DefaultScales(), Mode: BoostPerWindow}
	res, err := calc.Run(context.Background(), trades, nil)
	require.NoError(t, err)

	assert.Equal(t, []uint64{200}, boost.calls)
	assert.True(t, res.Credits[alice].Fees.Equal(dec("30")))
}

func TestCalculatorAbortsOnReadError(t *testing.T) {
	boom := errors.New("rpc down")
	calc := &Calculator{Positions: &fakePositions{err: boom}, Scales: DefaultScales()}

	_, err := calc.Run(context.Background(), []model.TradeEvent{{Timestamp: 1, Amount: dec("1"), BlockNumber: 1}}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestCalculatorCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calc := &Calculator{Positions: &fakePositions{}, Scales: DefaultScales()}

	_, err := calc.Run(ctx, []model.TradeEvent{{Timestamp: 1, Amount: dec("1"), BlockNumber: 1}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseBoostMode(t *testing.T) {
	m, err := ParseBoostMode("")
	require.NoError(t, err)
	assert.Equal(t, BoostPerTrade, m)

	m, err = ParseBoostMode("window")
	require.NoError(t, err)
	assert.Equal(t, BoostPerWindow, m)

	_, err = ParseBoostMode("block")
	require.Error(t, err)
}
