package incentive

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpIncentives/internal/model"
)

// PositionReader returns the state of refs at block. Positions whose read
// failed are left out of the result.
type PositionReader interface {
	Positions(ctx context.Context, block uint64, refs []model.PositionRef) ([]model.Position, error)
}

// BoostReader returns one multiplier per holder, aligned by index. A failed
// read yields zero for that holder.
type BoostReader interface {
	Multipliers(ctx context.Context, block uint64, holders []model.Address) ([]decimal.Decimal, error)
}

// BoostMode selects when multipliers are read and applied.
type BoostMode string

const (
	// BoostPerTrade reads multipliers at every trade block and scales that
	// trade's credit before it is added to the window.
	BoostPerTrade BoostMode = "trade"
	// BoostPerWindow reads multipliers once at the last trade block and
	// scales the window totals.
	BoostPerWindow BoostMode = "window"
)

// ParseBoostMode accepts "trade" or "window"; empty means trade.
func ParseBoostMode(s string) (BoostMode, error) {
	switch BoostMode(s) {
	case "", BoostPerTrade:
		return BoostPerTrade, nil
	case BoostPerWindow:
		return BoostPerWindow, nil
	default:
		return "", fmt.Errorf("unknown boost mode %q", s)
	}
}

// Calculator folds one window of trades into boosted per-holder credit.
type Calculator struct {
	Positions PositionReader
	Boost     BoostReader
	Scales    Scales
	Mode      BoostMode
	Logger    *zap.Logger
}

// Result is the outcome of one window.
type Result struct {
	Credits          model.HolderAccumulator
	Trades           int
	InRangePositions int
	TotalVolume      decimal.Decimal
}

// Run processes trades in timestamp order. Any reader error aborts the window.
func (c *Calculator) Run(ctx context.Context, trades []model.TradeEvent, refs []model.PositionRef) (Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if c.Positions == nil {
		return Result{}, fmt.Errorf("position reader is nil")
	}
	mode := c.Mode
	if mode == "" {
		mode = BoostPerTrade
	}

	ordered := append([]model.TradeEvent(nil), trades...)
	model.SortTrades(ordered)

	res := Result{
		Credits:     model.HolderAccumulator{},
		TotalVolume: model.TotalVolume(ordered),
	}

	for i, trade := range ordered {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		positions, err := c.Positions.Positions(ctx, trade.BlockNumber, refs)
		if err != nil {
			return Result{}, fmt.Errorf("read positions at block %d: %w", trade.BlockNumber, err)
		}
		contributions, err := Attribute(trade, positions, res.TotalVolume, c.Scales)
		if err != nil {
			return Result{}, fmt.Errorf("attribute trade at block %d: %w", trade.BlockNumber, err)
		}

		ephemeral := Fold(model.HolderAccumulator{}, contributions)
		if mode == BoostPerTrade {
			ephemeral, err = c.boost(ctx, trade.BlockNumber, ephemeral)
			if err != nil {
				return Result{}, err
			}
		}
		res.Credits = Combine(res.Credits, ephemeral)
		res.Trades++
		res.InRangePositions += len(contributions)

		logger.Info("trade processed",
			zap.Int("index", i+1),
			zap.Int("total", len(ordered)),
			zap.Uint64("block", trade.BlockNumber),
			zap.Int32("tick", trade.Tick),
			zap.Int("positions_read", len(positions)),
			zap.Int("in_range", len(contributions)),
		)
	}

	if mode == BoostPerWindow && len(ordered) > 0 {
		boosted, err := c.boost(ctx, ordered[len(ordered)-1].BlockNumber, res.Credits)
		if err != nil {
			return Result{}, err
		}
		res.Credits = boosted
	}
	return res, nil
}

func (c *Calculator) boost(ctx context.Context, block uint64, acc model.HolderAccumulator) (model.HolderAccumulator, error) {
	if c.Boost == nil || len(acc) == 0 {
		return acc, nil
	}
	holders := acc.Holders()
	multipliers, err := c.Boost.Multipliers(ctx, block, holders)
	if err != nil {
		return nil, fmt.Errorf("read boost at block %d: %w", block, err)
	}
	return ApplyBoost(acc, holders, multipliers)
}
