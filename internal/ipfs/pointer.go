// Package ipfs pins ledger snapshots and converts CIDs to on-chain pointers.
package ipfs

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// PointerFromCID strips the sha2-256 multihash prefix from a CIDv0 and returns
// the 32-byte digest stored on chain.
func PointerFromCID(text string) (common.Hash, error) {
	c, err := cid.Decode(text)
	if err != nil {
		return common.Hash{}, fmt.Errorf("decode cid %q: %w", text, err)
	}
	if c.Version() != 0 {
		return common.Hash{}, fmt.Errorf("cid %q is version %d, want 0", text, c.Version())
	}
	decoded, err := mh.Decode(c.Hash())
	if err != nil {
		return common.Hash{}, fmt.Errorf("decode multihash: %w", err)
	}
	if decoded.Code != mh.SHA2_256 || len(decoded.Digest) != common.HashLength {
		return common.Hash{}, fmt.Errorf("cid %q is not a sha2-256 multihash", text)
	}
	return common.BytesToHash(decoded.Digest), nil
}

// CIDFromPointer rebuilds the CIDv0 text from an on-chain pointer.
func CIDFromPointer(pointer common.Hash) (string, error) {
	hash, err := mh.Encode(pointer.Bytes(), mh.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("encode multihash: %w", err)
	}
	return cid.NewCidV0(hash).String(), nil
}
