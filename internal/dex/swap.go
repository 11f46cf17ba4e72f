package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Swap is a decoded pool Swap log.
type Swap struct {
	BlockNumber  uint64
	TxHash       common.Hash
	LogIndex     uint
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32
}

// SwapTopic returns topic0 of the pool Swap event.
func SwapTopic() (common.Hash, error) {
	parsed, err := PoolABI()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["Swap"].ID, nil
}

// DecodeSwap decodes a Swap log. Logs of any other event are rejected.
func DecodeSwap(log types.Log) (Swap, error) {
	parsed, err := PoolABI()
	if err != nil {
		return Swap{}, err
	}
	event := parsed.Events["Swap"]

	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return Swap{}, fmt.Errorf("log %s:%d is not a swap", log.TxHash.Hex(), log.Index)
	}
	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return Swap{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	var parties struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&parties, indexed, log.Topics[1:]); err != nil {
		return Swap{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return Swap{}, fmt.Errorf("unpack swap: %w", err)
	}
	if len(values) != 5 {
		return Swap{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	ints := make([]*big.Int, len(values))
	for i, v := range values {
		if ints[i], err = asBigInt(v); err != nil {
			return Swap{}, err
		}
	}
	tick, err := int24FromBig(ints[4])
	if err != nil {
		return Swap{}, err
	}

	return Swap{
		BlockNumber:  log.BlockNumber,
		TxHash:       log.TxHash,
		LogIndex:     log.Index,
		Sender:       parties.Sender,
		Recipient:    parties.Recipient,
		Amount0:      ints[0],
		Amount1:      ints[1],
		SqrtPriceX96: ints[2],
		Liquidity:    ints[3],
		Tick:         tick,
	}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
