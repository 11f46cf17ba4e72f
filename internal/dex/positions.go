package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpIncentives/internal/model"
)

// PositionManagerAddress is the NonfungiblePositionManager deployment shared by
// every network the pool lives on.
var PositionManagerAddress = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")

// Read failure kinds reported to FailureHook.
const (
	FailurePosition = "position"
	FailureOwner    = "owner"
	FailureBoost    = "boost"
	FailureForeign  = "foreign_pool"
)

// FailureHook is told about every sub-call that was skipped.
type FailureHook func(kind string)

// PositionReader reads position state and owners in two aligned batches.
type PositionReader struct {
	multicall *Multicaller
	manager   common.Address
	token0    common.Address
	token1    common.Address
	onFailure FailureHook
	logger    *zap.Logger
}

// NewPositionReader reads from manager. Positions whose token pair differs
// from token0/token1 are dropped; zero tokens disable the check.
func NewPositionReader(mc *Multicaller, manager, token0, token1 common.Address, onFailure FailureHook, logger *zap.Logger) *PositionReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onFailure == nil {
		onFailure = func(string) {}
	}
	return &PositionReader{
		multicall: mc,
		manager:   manager,
		token0:    token0,
		token1:    token1,
		onFailure: onFailure,
		logger:    logger,
	}
}

// Positions returns every ref whose position and owner reads both succeeded.
// Results keep the order of refs.
func (r *PositionReader) Positions(ctx context.Context, block uint64, refs []model.PositionRef) ([]model.Position, error) {
	parsed, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse position manager abi: %w", err)
	}

	positionCalls := make([]Call, len(refs))
	ownerCalls := make([]Call, len(refs))
	for i, ref := range refs {
		if ref.ID == nil {
			return nil, fmt.Errorf("position ref %d has no id", i)
		}
		data, err := parsed.Pack("positions", ref.ID)
		if err != nil {
			return nil, fmt.Errorf("pack positions: %w", err)
		}
		positionCalls[i] = Call{Target: r.manager, Data: data, CanFail: true}

		data, err = parsed.Pack("ownerOf", ref.ID)
		if err != nil {
			return nil, fmt.Errorf("pack ownerOf: %w", err)
		}
		ownerCalls[i] = Call{Target: r.manager, Data: data, CanFail: true}
	}

	positionData, err := r.multicall.Call(ctx, block, positionCalls)
	if err != nil {
		return nil, fmt.Errorf("positions batch: %w", err)
	}
	ownerData, err := r.multicall.Call(ctx, block, ownerCalls)
	if err != nil {
		return nil, fmt.Errorf("owners batch: %w", err)
	}

	out := make([]model.Position, 0, len(refs))
	for i, ref := range refs {
		// A failed sub-call returns the revert payload, so anything that does
		// not decode counts as a failed read of that position only.
		pos, err := decodePosition(parsed.Unpack, ref.ID, positionData[i])
		if err != nil {
			r.skip(FailurePosition, ref, block, err)
			continue
		}
		owner, err := decodeOwner(parsed.Unpack, ownerData[i])
		if err != nil {
			r.skip(FailureOwner, ref, block, err)
			continue
		}
		pos.Owner = owner

		if !r.belongsToPool(pos) {
			r.skip(FailureForeign, ref, block, nil)
			continue
		}
		out = append(out, pos)
	}
	return out, nil
}

func (r *PositionReader) belongsToPool(pos model.Position) bool {
	if r.token0 != (common.Address{}) && pos.Token0.Common() != r.token0 {
		return false
	}
	if r.token1 != (common.Address{}) && pos.Token1.Common() != r.token1 {
		return false
	}
	return true
}

func (r *PositionReader) skip(kind string, ref model.PositionRef, block uint64, err error) {
	r.onFailure(kind)
	fields := []zap.Field{
		zap.String("reason", kind),
		zap.String("position", ref.ID.String()),
		zap.Uint64("block", block),
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	r.logger.Debug("position skipped", fields...)
}

type unpackFunc func(name string, data []byte) ([]interface{}, error)

func decodePosition(unpack unpackFunc, id *big.Int, data []byte) (model.Position, error) {
	if err := checkReturnData(data); err != nil {
		return model.Position{}, fmt.Errorf("position %s: %w", id, err)
	}
	values, err := unpack("positions", data)
	if err != nil {
		return model.Position{}, fmt.Errorf("unpack positions %s: %w", id, err)
	}
	if len(values) < 8 {
		return model.Position{}, fmt.Errorf("unpack positions %s: %d outputs", id, len(values))
	}

	token0, err := asAddress(values[2])
	if err != nil {
		return model.Position{}, fmt.Errorf("position %s token0: %w", id, err)
	}
	token1, err := asAddress(values[3])
	if err != nil {
		return model.Position{}, fmt.Errorf("position %s token1: %w", id, err)
	}
	lowerInt, err := asBigInt(values[5])
	if err != nil {
		return model.Position{}, fmt.Errorf("position %s tickLower: %w", id, err)
	}
	upperInt, err := asBigInt(values[6])
	if err != nil {
		return model.Position{}, fmt.Errorf("position %s tickUpper: %w", id, err)
	}
	lower, err := int24FromBig(lowerInt)
	if err != nil {
		return model.Position{}, fmt.Errorf("position %s tickLower: %w", id, err)
	}
	upper, err := int24FromBig(upperInt)
	if err != nil {
		return model.Position{}, fmt.Errorf("position %s tickUpper: %w", id, err)
	}
	if lower >= upper {
		return model.Position{}, fmt.Errorf("position %s: tickLower %d >= tickUpper %d", id, lower, upper)
	}
	liquidity, err := asBigInt(values[7])
	if err != nil {
		return model.Position{}, fmt.Errorf("position %s liquidity: %w", id, err)
	}

	return model.Position{
		ID:        new(big.Int).Set(id),
		Liquidity: liquidity,
		TickLower: lower,
		TickUpper: upper,
		Token0:    model.AddressFrom(token0),
		Token1:    model.AddressFrom(token1),
	}, nil
}

func decodeOwner(unpack unpackFunc, data []byte) (model.Address, error) {
	if err := checkReturnData(data); err != nil {
		return model.Address{}, fmt.Errorf("owner: %w", err)
	}
	values, err := unpack("ownerOf", data)
	if err != nil {
		return model.Address{}, fmt.Errorf("unpack ownerOf: %w", err)
	}
	if len(values) != 1 {
		return model.Address{}, fmt.Errorf("unpack ownerOf: %d outputs", len(values))
	}
	owner, err := asAddress(values[0])
	if err != nil {
		return model.Address{}, fmt.Errorf("owner: %w", err)
	}
	return model.AddressFrom(owner), nil
}

// BoostReader reads veMult(holder) for each holder in one batch.
type BoostReader struct {
	multicall *Multicaller
	contract  common.Address
	decimals  int32
	onFailure FailureHook
	logger    *zap.Logger
}

// NewBoostReader divides raw multipliers by 10^decimals.
func NewBoostReader(mc *Multicaller, contract common.Address, decimals int32, onFailure FailureHook, logger *zap.Logger) *BoostReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if onFailure == nil {
		onFailure = func(string) {}
	}
	return &BoostReader{multicall: mc, contract: contract, decimals: decimals, onFailure: onFailure, logger: logger}
}

// Multipliers returns one multiplier per holder at the same index. A failed
// read is reported as zero.
func (r *BoostReader) Multipliers(ctx context.Context, block uint64, holders []model.Address) ([]decimal.Decimal, error) {
	parsed, err := BoostABI()
	if err != nil {
		return nil, fmt.Errorf("parse boost abi: %w", err)
	}

	calls := make([]Call, len(holders))
	for i, h := range holders {
		data, err := parsed.Pack("veMult", h.Common())
		if err != nil {
			return nil, fmt.Errorf("pack veMult: %w", err)
		}
		calls[i] = Call{Target: r.contract, Data: data, CanFail: true}
	}

	results, err := r.multicall.Call(ctx, block, calls)
	if err != nil {
		return nil, fmt.Errorf("boost batch: %w", err)
	}

	out := make([]decimal.Decimal, len(holders))
	for i, h := range holders {
		raw, err := decodeMultiplier(parsed.Unpack, results[i])
		if err != nil {
			r.onFailure(FailureBoost)
			r.logger.Debug("boost read failed", zap.String("holder", h.String()), zap.Uint64("block", block), zap.Error(err))
			out[i] = decimal.Zero
			continue
		}
		out[i] = decimal.NewFromBigInt(raw, -r.decimals)
	}
	return out, nil
}

func decodeMultiplier(unpack unpackFunc, data []byte) (*big.Int, error) {
	if err := checkReturnData(data); err != nil {
		return nil, fmt.Errorf("veMult: %w", err)
	}
	values, err := unpack("veMult", data)
	if err != nil {
		return nil, fmt.Errorf("unpack veMult: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack veMult: %d outputs", len(values))
	}
	return asBigInt(values[0])
}
