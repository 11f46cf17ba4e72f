package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"lpIncentives/internal/retry"
)

// Caller executes eth_call at a block; *chain.Client satisfies it.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Call is one sub-call of a batched read.
type Call struct {
	Target  common.Address
	Data    []byte
	CanFail bool
}

// Batch is a half-open index range [From, To) of a call list.
type Batch struct {
	From int
	To   int
}

// SplitBatches splits n calls into batches of at most size calls.
func SplitBatches(n, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if n < 0 {
		return nil, fmt.Errorf("call count must be >= 0")
	}

	batches := make([]Batch, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		batches = append(batches, Batch{From: start, To: end})
	}
	return batches, nil
}

// Multicaller runs call lists through a MultiCallWithFailure contract.
type Multicaller struct {
	client    Caller
	address   common.Address
	chunkSize int
	retry     retry.Policy
	logger    *zap.Logger
}

// NewMulticaller builds a reader bound to the multicall contract at address.
// chunkSize <= 0 sends every list in one call.
func NewMulticaller(client Caller, address common.Address, chunkSize int, policy retry.Policy, logger *zap.Logger) *Multicaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Multicaller{client: client, address: address, chunkSize: chunkSize, retry: policy, logger: logger}
}

// Call executes calls at block and returns one result per call, in order.
// A failed sub-call yields empty bytes. A failure of the batch itself is
// retried and then returned.
func (m *Multicaller) Call(ctx context.Context, block uint64, calls []Call) ([][]byte, error) {
	if len(calls) == 0 {
		return [][]byte{}, nil
	}
	size := m.chunkSize
	if size <= 0 {
		size = len(calls)
	}
	batches, err := SplitBatches(len(calls), size)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, len(calls))
	for _, b := range batches {
		results, err := m.callBatch(ctx, block, calls[b.From:b.To])
		if err != nil {
			return nil, err
		}
		out = append(out, results...)
	}
	return out, nil
}

type multicallCall struct {
	Target  common.Address
	Data    []byte
	CanFail bool
}

func (m *Multicaller) callBatch(ctx context.Context, block uint64, calls []Call) ([][]byte, error) {
	parsed, err := MulticallABI()
	if err != nil {
		return nil, fmt.Errorf("parse multicall abi: %w", err)
	}

	args := make([]multicallCall, len(calls))
	for i, c := range calls {
		args[i] = multicallCall{Target: c.Target, Data: c.Data, CanFail: c.CanFail}
	}
	data, err := parsed.Pack("multiCall", args)
	if err != nil {
		return nil, fmt.Errorf("pack multiCall: %w", err)
	}

	var blockPtr *big.Int
	if block > 0 {
		blockPtr = new(big.Int).SetUint64(block)
	}
	msg := ethereum.CallMsg{To: &m.address, Data: data}

	var resp []byte
	err = retry.Do(ctx, m.retry, func(ctx context.Context) error {
		var callErr error
		resp, callErr = m.client.CallContract(ctx, msg, blockPtr)
		if callErr != nil {
			m.logger.Warn("multicall failed", zap.Uint64("block", block), zap.Int("calls", len(calls)), zap.Error(callErr))
		}
		return callErr
	})
	if err != nil {
		return nil, fmt.Errorf("call multiCall: %w", err)
	}

	values, err := parsed.Unpack("multiCall", resp)
	if err != nil {
		return nil, fmt.Errorf("unpack multiCall: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unpack multiCall: %d outputs", len(values))
	}
	results, ok := values[0].([][]byte)
	if !ok {
		return nil, fmt.Errorf("unpack multiCall: unexpected type %T", values[0])
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("multiCall returned %d results for %d calls", len(results), len(calls))
	}
	return results, nil
}
