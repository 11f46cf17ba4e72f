// Package distributor builds and submits the updateTree call that commits a
// new merkle root on chain.
package distributor

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const distributorABIJSON = `[
  {
    "inputs": [
      {
        "components": [
          {"internalType": "bytes32", "name": "merkleRoot", "type": "bytes32"},
          {"internalType": "bytes32", "name": "ipfsHash", "type": "bytes32"}
        ],
        "internalType": "struct MerkleRootDistributor.MerkleTree",
        "name": "_tree",
        "type": "tuple"
      }
    ],
    "name": "updateTree",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  },
  {
    "inputs": [],
    "name": "tree",
    "outputs": [
      {"internalType": "bytes32", "name": "merkleRoot", "type": "bytes32"},
      {"internalType": "bytes32", "name": "ipfsHash", "type": "bytes32"}
    ],
    "stateMutability": "view",
    "type": "function"
  }
]`

var (
	distributorABI     abi.ABI
	distributorABIOnce sync.Once
	distributorABIErr  error
)

// ABI returns the parsed distributor ABI.
func ABI() (abi.ABI, error) {
	distributorABIOnce.Do(func() {
		distributorABI, distributorABIErr = abi.JSON(strings.NewReader(distributorABIJSON))
	})
	return distributorABI, distributorABIErr
}

// Payload is a ready-to-send updateTree call.
type Payload struct {
	Distributor common.Address `json:"distributor"`
	Root        common.Hash    `json:"merkle_root"`
	Pointer     common.Hash    `json:"ipfs_hash"`
	Calldata    hexutil.Bytes  `json:"calldata"`
}

type merkleTree struct {
	MerkleRoot [32]byte
	IpfsHash   [32]byte
}

// BuildPayload encodes updateTree((root, pointer)).
func BuildPayload(distributor common.Address, root, pointer common.Hash) (Payload, error) {
	parsed, err := ABI()
	if err != nil {
		return Payload{}, fmt.Errorf("parse distributor abi: %w", err)
	}
	data, err := parsed.Pack("updateTree", merkleTree{MerkleRoot: root, IpfsHash: pointer})
	if err != nil {
		return Payload{}, fmt.Errorf("pack updateTree: %w", err)
	}
	return Payload{Distributor: distributor, Root: root, Pointer: pointer, Calldata: data}, nil
}
