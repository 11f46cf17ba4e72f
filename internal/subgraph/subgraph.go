// Package subgraph reads pool trades and position ids from a Uniswap v3 subgraph.
package subgraph

import (
	"context"
	_ "embed"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/machinebox/graphql"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lpIncentives/internal/model"
	"lpIncentives/internal/retry"
)

// DefaultPageSize is the largest page the hosted subgraphs return.
const DefaultPageSize = 1000

//go:embed queries/swaps.graphql
var swapsQuery string

//go:embed queries/swaps_testnet.graphql
var swapsTestnetQuery string

//go:embed queries/positions.graphql
var positionsQuery string

type Config struct {
	URL      string
	APIKey   string
	Testnet  bool
	PageSize int
	Retry    retry.Policy
}

// Client queries one subgraph endpoint.
type Client struct {
	cfg    Config
	gql    *graphql.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("subgraph url is required")
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, gql: graphql.NewClient(cfg.URL), logger: logger}, nil
}

type swapResponse struct {
	Timestamp    string `json:"timestamp"`
	Amount       string `json:"amount"`
	Tick         string `json:"tick"`
	SqrtPriceX96 string `json:"sqrtPriceX96"`
	Transaction  struct {
		BlockNumber string `json:"blockNumber"`
	} `json:"transaction"`
}

type positionSnapshotResponse struct {
	Position struct {
		ID string `json:"id"`
	} `json:"position"`
}

func (c *Client) run(ctx context.Context, req *graphql.Request, out interface{}) error {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	return retry.Do(ctx, c.cfg.Retry, func(ctx context.Context) error {
		err := c.gql.Run(ctx, req, out)
		if err != nil {
			c.logger.Warn("subgraph query failed", zap.Error(err))
		}
		return err
	})
}

// Trades returns up to first swaps of pool with lower < timestamp < upper and
// an amount above minAmount, largest first on the server and then re-sorted
// by timestamp.
func (c *Client) Trades(ctx context.Context, pool model.Address, lower, upper uint64, first int, minAmount decimal.Decimal) ([]model.TradeEvent, error) {
	query := swapsQuery
	if c.cfg.Testnet {
		query = swapsTestnetQuery
	}
	req := graphql.NewRequest(query)
	req.Var("pool", strings.ToLower(pool.String()))
	req.Var("lower", strconv.FormatUint(lower, 10))
	req.Var("upper", strconv.FormatUint(upper, 10))
	req.Var("first", first)
	if !c.cfg.Testnet {
		req.Var("minAmount", minAmount.String())
	}

	var resp struct {
		Swaps []swapResponse `json:"swaps"`
	}
	if err := c.run(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("query swaps: %w", err)
	}

	trades := make([]model.TradeEvent, 0, len(resp.Swaps))
	for i, s := range resp.Swaps {
		trade, err := s.toTrade()
		if err != nil {
			return nil, fmt.Errorf("swap %d: %w", i, err)
		}
		trades = append(trades, trade)
	}
	model.SortTrades(trades)
	c.logger.Info("swaps fetched", zap.Int("count", len(trades)), zap.Uint64("lower", lower), zap.Uint64("upper", upper))
	return trades, nil
}

func (s swapResponse) toTrade() (model.TradeEvent, error) {
	ts, err := strconv.ParseUint(s.Timestamp, 10, 64)
	if err != nil {
		return model.TradeEvent{}, fmt.Errorf("timestamp %q: %w", s.Timestamp, err)
	}
	tick, err := strconv.ParseInt(s.Tick, 10, 32)
	if err != nil {
		return model.TradeEvent{}, fmt.Errorf("tick %q: %w", s.Tick, err)
	}
	amount, err := decimal.NewFromString(s.Amount)
	if err != nil {
		return model.TradeEvent{}, fmt.Errorf("amount %q: %w", s.Amount, err)
	}
	block, err := strconv.ParseUint(s.Transaction.BlockNumber, 10, 64)
	if err != nil {
		return model.TradeEvent{}, fmt.Errorf("block %q: %w", s.Transaction.BlockNumber, err)
	}
	var sqrtPrice *big.Int
	if s.SqrtPriceX96 != "" {
		p, ok := new(big.Int).SetString(s.SqrtPriceX96, 10)
		if !ok {
			return model.TradeEvent{}, fmt.Errorf("sqrtPriceX96 %q", s.SqrtPriceX96)
		}
		sqrtPrice = p
	}
	return model.TradeEvent{
		Timestamp:    ts,
		Tick:         int32(tick),
		SqrtPriceX96: sqrtPrice,
		Amount:       amount.Abs(),
		BlockNumber:  block,
	}, nil
}

// PositionRefs pages through the pool's position snapshots and returns each
// position id once, in first-seen order.
func (c *Client) PositionRefs(ctx context.Context, pool model.Address) ([]model.PositionRef, error) {
	seen := make(map[string]struct{})
	refs := make([]model.PositionRef, 0)

	for skip := 0; ; skip += c.cfg.PageSize {
		req := graphql.NewRequest(positionsQuery)
		req.Var("pool", strings.ToLower(pool.String()))
		req.Var("first", c.cfg.PageSize)
		req.Var("skip", skip)

		var resp struct {
			PositionSnapshots []positionSnapshotResponse `json:"positionSnapshots"`
		}
		if err := c.run(ctx, req, &resp); err != nil {
			return nil, fmt.Errorf("query positions at skip %d: %w", skip, err)
		}

		for _, snap := range resp.PositionSnapshots {
			id := snap.Position.ID
			if _, dup := seen[id]; dup {
				continue
			}
			value, ok := new(big.Int).SetString(id, 10)
			if !ok {
				return nil, fmt.Errorf("position id %q", id)
			}
			seen[id] = struct{}{}
			refs = append(refs, model.PositionRef{ID: value})
		}

		if len(resp.PositionSnapshots) < c.cfg.PageSize {
			break
		}
	}

	c.logger.Info("positions fetched", zap.Int("count", len(refs)))
	return refs, nil
}
