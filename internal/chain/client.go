// Package chain is the Ethereum RPC client shared by the readers, the log
// scanner and the distributor submitter.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is an ethclient with cached block timestamps and block search.
// CallContract, ChainID, HeaderByNumber, the gas and nonce helpers,
// SendTransaction, TransactionReceipt and Close come from the embedded client.
type Client struct {
	*ethclient.Client

	mu         sync.RWMutex
	timestamps map[uint64]uint64
}

func NewClient(ctx context.Context, rpcURL string) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return &Client{
		Client:     ethclient.NewClient(rc),
		timestamps: make(map[uint64]uint64),
	}, nil
}

// BlockTimestamp returns the timestamp of block number.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.timestamps[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, fmt.Errorf("header %d: %w", number, err)
	}
	c.mu.Lock()
	c.timestamps[number] = header.Time
	c.mu.Unlock()
	return header.Time, nil
}

// FirstBlockAtOrAfter returns the lowest block whose timestamp is >= ts, or
// head+1 when ts is still in the future.
func (c *Client) FirstBlockAtOrAfter(ctx context.Context, ts uint64) (uint64, error) {
	head, err := c.HeaderByNumber(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("head header: %w", err)
	}
	last := head.Number.Uint64()
	if head.Time < ts {
		return last + 1, nil
	}

	var searchErr error
	n := sort.Search(int(last)+1, func(i int) bool {
		if searchErr != nil {
			return true
		}
		blockTS, err := c.BlockTimestamp(ctx, uint64(i))
		if err != nil {
			searchErr = err
			return true
		}
		return blockTS >= ts
	})
	if searchErr != nil {
		return 0, fmt.Errorf("search block for %d: %w", ts, searchErr)
	}
	return uint64(n), nil
}

// FilterLogs returns the logs of addresses in [fromBlock, toBlock] whose
// first topic is one of topic0.
func (c *Client) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.Client.FilterLogs(ctx, query)
}
