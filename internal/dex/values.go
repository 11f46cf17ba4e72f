package dex

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Decoders for values returned by abi.Unpack.

var (
	minInt24 = big.NewInt(-1 << 23)
	maxInt24 = big.NewInt(1<<23 - 1)
)

func asAddress(value interface{}) (common.Address, error) {
	if v, ok := value.(common.Address); ok {
		return v, nil
	}
	return common.Address{}, fmt.Errorf("want address, got %T", value)
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return big.NewInt(int64(v)), nil
	case uint16:
		return big.NewInt(int64(v)), nil
	case uint32:
		return big.NewInt(int64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int8:
		return big.NewInt(int64(v)), nil
	case int16:
		return big.NewInt(int64(v)), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	}
	return nil, fmt.Errorf("want integer, got %T", value)
}

func asUint8(value interface{}) (uint8, error) {
	n, err := asBigInt(value)
	if err != nil {
		return 0, err
	}
	if n.Sign() < 0 || n.Cmp(big.NewInt(255)) > 0 {
		return 0, fmt.Errorf("%s does not fit uint8", n)
	}
	return uint8(n.Uint64()), nil
}

func int24FromBig(value *big.Int) (int32, error) {
	if value.Cmp(minInt24) < 0 || value.Cmp(maxInt24) > 0 {
		return 0, fmt.Errorf("%s does not fit int24", value)
	}
	return int32(value.Int64()), nil
}

func bytes32ToString(value interface{}) string {
	v, ok := value.([32]byte)
	if !ok {
		return ""
	}
	return string(bytes.TrimRight(v[:], "\x00"))
}

// checkReturnData rejects sub-call results that are not ABI return data.
// Return data is whole 32-byte words; a revert payload carries a 4-byte
// selector in front and would otherwise decode as garbage words.
func checkReturnData(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty result")
	}
	if len(data)%32 == 0 {
		return nil
	}
	if reason, err := abi.UnpackRevert(data); err == nil {
		return fmt.Errorf("reverted: %s", reason)
	}
	return fmt.Errorf("reverted with %d bytes", len(data))
}
