// Package merkle builds the sorted-pair keccak tree committed to the
// distributor contract.
package merkle

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"lpIncentives/internal/model"
)

var (
	leafArgs     abi.Arguments
	leafArgsOnce sync.Once
	leafArgsErr  error
)

func leafArguments() (abi.Arguments, error) {
	leafArgsOnce.Do(func() {
		addressTy, err := abi.NewType("address", "", nil)
		if err != nil {
			leafArgsErr = err
			return
		}
		uintTy, err := abi.NewType("uint256", "", nil)
		if err != nil {
			leafArgsErr = err
			return
		}
		leafArgs = abi.Arguments{{Type: addressTy}, {Type: addressTy}, {Type: uintTy}}
	})
	return leafArgs, leafArgsErr
}

// Leaf hashes abi.encode(holder, rewardToken, total).
func Leaf(holder, rewardToken model.Address, total *big.Int) (common.Hash, error) {
	if total == nil || total.Sign() < 0 {
		return common.Hash{}, fmt.Errorf("leaf total for %s must be non-negative", holder)
	}
	if total.BitLen() > 256 {
		return common.Hash{}, fmt.Errorf("leaf total for %s overflows uint256", holder)
	}
	args, err := leafArguments()
	if err != nil {
		return common.Hash{}, fmt.Errorf("leaf abi: %w", err)
	}
	encoded, err := args.Pack(holder.Common(), rewardToken.Common(), total)
	if err != nil {
		return common.Hash{}, fmt.Errorf("encode leaf: %w", err)
	}
	return crypto.Keccak256Hash(encoded), nil
}
