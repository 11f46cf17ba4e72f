package dex

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lpIncentives/internal/model"
)

// TokenMetaCache remembers token metadata so repeated runs of a long lived
// process do not re-read immutable ERC20 fields.
type TokenMetaCache struct {
	mu      sync.Mutex
	byToken map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{byToken: make(map[common.Address]model.TokenMeta)}
}

// Lookup returns the cached metadata of token, reading it on a miss.
// A nil cache always reads.
func (c *TokenMetaCache) Lookup(ctx context.Context, client Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	if c != nil {
		c.mu.Lock()
		meta, ok := c.byToken[token]
		c.mu.Unlock()
		if ok {
			return meta, nil
		}
	}

	meta, err := FetchTokenMeta(ctx, client, token, logger)
	if err != nil {
		return model.TokenMeta{}, err
	}
	if c != nil {
		c.mu.Lock()
		c.byToken[token] = meta
		c.mu.Unlock()
	}
	return meta, nil
}

// FetchPoolTokens reads token0 and token1 of pool and their metadata.
func FetchPoolTokens(ctx context.Context, client Caller, pool common.Address, cache *TokenMetaCache, logger *zap.Logger) (model.PoolTokens, error) {
	if client == nil {
		return model.PoolTokens{}, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parsed, err := PoolABI()
	if err != nil {
		return model.PoolTokens{}, fmt.Errorf("parse pool abi: %w", err)
	}

	out := model.PoolTokens{Pool: model.AddressFrom(pool)}
	for _, side := range []struct {
		method string
		dst    *model.TokenMeta
	}{
		{"token0", &out.Token0},
		{"token1", &out.Token1},
	} {
		value, err := viewCall(ctx, client, pool, parsed, side.method)
		if err != nil {
			return model.PoolTokens{}, err
		}
		token, err := asAddress(value)
		if err != nil {
			return model.PoolTokens{}, fmt.Errorf("%s: %w", side.method, err)
		}
		if *side.dst, err = cache.Lookup(ctx, client, token, logger); err != nil {
			return model.PoolTokens{}, fmt.Errorf("%s metadata: %w", side.method, err)
		}
	}
	return out, nil
}

// FetchTokenMeta reads decimals and symbol. Decimals are required; symbol is
// tried as string, then as bytes32, and left empty when both fail.
func FetchTokenMeta(ctx context.Context, client Caller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: model.AddressFrom(token)}
	if client == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := erc20ABIString.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 abi: %w", err)
	}
	value, err := viewCall(ctx, client, token, stringABI, "decimals")
	if err != nil {
		return meta, err
	}
	if meta.Decimals, err = asUint8(value); err != nil {
		return meta, fmt.Errorf("decimals: %w", err)
	}

	if value, err := viewCall(ctx, client, token, stringABI, "symbol"); err == nil {
		meta.Symbol, _ = value.(string)
		return meta, nil
	}
	bytes32ABI, err := erc20ABIBytes32.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}
	value, err = viewCall(ctx, client, token, bytes32ABI, "symbol")
	if err != nil {
		logger.Debug("symbol unavailable", zap.String("token", token.Hex()), zap.Error(err))
		return meta, nil
	}
	meta.Symbol = bytes32ToString(value)
	return meta, nil
}

// viewCall calls an argument-free view method at the latest block and
// returns its first output.
func viewCall(ctx context.Context, client Caller, target common.Address, parsed abi.ABI, method string) (interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: no outputs", method)
	}
	return values[0], nil
}
