package model

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidAddress is returned when a string is not a 20-byte hex address.
var ErrInvalidAddress = errors.New("invalid address")

// Address is a validated account address. Its text form is always the
// EIP-55 checksummed hex string, so the same holder can never appear twice
// under different casings.
type Address struct {
	addr common.Address
}

// ParseAddress validates input and returns its canonical Address.
func ParseAddress(input string) (Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, input)
	}
	return Address{addr: common.HexToAddress(input)}, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(input string) Address {
	a, err := ParseAddress(input)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFrom wraps an already decoded go-ethereum address.
func AddressFrom(addr common.Address) Address {
	return Address{addr: addr}
}

// Common returns the underlying go-ethereum address.
func (a Address) Common() common.Address {
	return a.addr
}

// String returns the checksummed hex form.
func (a Address) String() string {
	return a.addr.Hex()
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a.addr == (common.Address{})
}

// Less orders addresses by their raw bytes.
func (a Address) Less(b Address) bool {
	return bytes.Compare(a.addr[:], b.addr[:]) < 0
}

// MarshalText implements encoding.TextMarshaler so Address works as a JSON map key.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
