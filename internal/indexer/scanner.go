// Package indexer reads pool swaps straight from chain logs, as an
// alternative to the subgraph trade source.
package indexer

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpIncentives/internal/dex"
	"lpIncentives/internal/model"
	"lpIncentives/internal/retry"
)

// LogSource is the chain access the scanner needs.
type LogSource interface {
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FirstBlockAtOrAfter(ctx context.Context, ts uint64) (uint64, error)
}

// ScanConfig holds runtime settings for the swap scanner.
type ScanConfig struct {
	BatchSize uint64
	// AmountToken selects which leg (0 or 1) is the traded amount.
	AmountToken int
	Decimals    int32
	Retry       retry.Policy
}

// SwapScanner turns pool Swap logs into trades.
type SwapScanner struct {
	cfg    ScanConfig
	chain  LogSource
	logger *zap.Logger
}

func NewSwapScanner(cfg ScanConfig, chain LogSource, logger *zap.Logger) (*SwapScanner, error) {
	if chain == nil {
		return nil, fmt.Errorf("chain client is nil")
	}
	if cfg.BatchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if cfg.AmountToken != 0 && cfg.AmountToken != 1 {
		return nil, fmt.Errorf("amount token must be 0 or 1, got %d", cfg.AmountToken)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SwapScanner{cfg: cfg, chain: chain, logger: logger}, nil
}

// Trades returns the first largest swaps of pool with lower < timestamp < upper
// and an amount above minAmount, ordered by timestamp.
func (s *SwapScanner) Trades(ctx context.Context, pool model.Address, lower, upper uint64, first int, minAmount decimal.Decimal) ([]model.TradeEvent, error) {
	topic, err := dex.SwapTopic()
	if err != nil {
		return nil, err
	}

	var firstBlock, afterLast uint64
	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		if firstBlock, err = s.chain.FirstBlockAtOrAfter(ctx, lower+1); err != nil {
			return err
		}
		afterLast, err = s.chain.FirstBlockAtOrAfter(ctx, upper)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve window blocks: %w", err)
	}
	window, ok := blocksBetween(firstBlock, afterLast)
	if !ok {
		s.logger.Info("no blocks in window", zap.Uint64("lower", lower), zap.Uint64("upper", upper))
		return nil, nil
	}

	ranges, err := SplitRange(window.From, window.To, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	trades := make([]model.TradeEvent, 0)
	for _, r := range ranges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		logs, err := s.filterLogs(ctx, r, pool.Common(), topic)
		if err != nil {
			return nil, fmt.Errorf("filter logs: %w", err)
		}
		for _, log := range logs {
			if log.Removed || s.isDuplicate(seen, log) {
				continue
			}
			trade, err := s.toTrade(ctx, log)
			if err != nil {
				return nil, err
			}
			if trade.Amount.GreaterThan(minAmount) {
				trades = append(trades, trade)
			}
		}
		s.logger.Debug("swap batch scanned", zap.Uint64("from", r.From), zap.Uint64("to", r.To), zap.Int("logs", len(logs)))
	}

	trades = largest(trades, first)
	model.SortTrades(trades)
	s.logger.Info("swaps scanned",
		zap.Int("count", len(trades)),
		zap.Uint64("from_block", window.From),
		zap.Uint64("to_block", window.To),
	)
	return trades, nil
}

func (s *SwapScanner) toTrade(ctx context.Context, log types.Log) (model.TradeEvent, error) {
	swap, err := dex.DecodeSwap(log)
	if err != nil {
		return model.TradeEvent{}, fmt.Errorf("decode swap %s:%d: %w", log.TxHash.Hex(), log.Index, err)
	}

	var ts uint64
	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		ts, err = s.chain.BlockTimestamp(ctx, swap.BlockNumber)
		if err != nil {
			s.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", swap.BlockNumber))
		}
		return err
	})
	if err != nil {
		return model.TradeEvent{}, fmt.Errorf("block timestamp %d: %w", swap.BlockNumber, err)
	}

	raw := swap.Amount0
	if s.cfg.AmountToken == 1 {
		raw = swap.Amount1
	}
	return model.TradeEvent{
		Timestamp:    ts,
		Tick:         swap.Tick,
		SqrtPriceX96: swap.SqrtPriceX96,
		Amount:       decimal.NewFromBigInt(raw, -s.cfg.Decimals).Abs(),
		BlockNumber:  swap.BlockNumber,
	}, nil
}

func (s *SwapScanner) filterLogs(ctx context.Context, r BlockRange, pool common.Address, topic common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		var err error
		logs, err = s.chain.FilterLogs(ctx, r.From, r.To, []common.Address{pool}, []common.Hash{topic})
		if err != nil {
			s.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", r.From), zap.Uint64("to", r.To))
		}
		return err
	})
	return logs, err
}

func (s *SwapScanner) isDuplicate(seen map[string]struct{}, log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := seen[id]; ok {
		return true
	}
	seen[id] = struct{}{}
	return false
}

// largest keeps the n biggest trades by amount; ties keep the earlier trade.
func largest(trades []model.TradeEvent, n int) []model.TradeEvent {
	if n <= 0 || len(trades) <= n {
		return trades
	}
	sorted := append([]model.TradeEvent(nil), trades...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount.GreaterThan(sorted[j].Amount)
	})
	return sorted[:n]
}
