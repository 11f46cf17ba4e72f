package merkle

import (
	"bytes"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrUnknownLeaf is returned when a proof is requested for a leaf not in the tree.
var ErrUnknownLeaf = errors.New("leaf not in tree")

// Tree is a binary keccak tree whose leaves are sorted by value and whose
// pairs are sorted before hashing, so the root only depends on the leaf set.
type Tree struct {
	layers [][]common.Hash
	index  map[common.Hash]int
}

// NewTree sorts a copy of leaves and builds every layer up to the root.
func NewTree(leaves []common.Hash) *Tree {
	sorted := append([]common.Hash(nil), leaves...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })

	t := &Tree{index: make(map[common.Hash]int, len(sorted))}
	for i, leaf := range sorted {
		if _, ok := t.index[leaf]; !ok {
			t.index[leaf] = i
		}
	}
	if len(sorted) == 0 {
		return t
	}

	t.layers = append(t.layers, sorted)
	for layer := sorted; len(layer) > 1; {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				// odd node moves up unchanged
				next = append(next, layer[i])
				continue
			}
			next = append(next, HashPair(layer[i], layer[i+1]))
		}
		t.layers = append(t.layers, next)
		layer = next
	}
	return t
}

// HashPair hashes the 64-byte concatenation of a and b in ascending order.
func HashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// Root returns the tree root, or the zero hash for an empty tree.
func (t *Tree) Root() common.Hash {
	if len(t.layers) == 0 {
		return common.Hash{}
	}
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Leaves returns the sorted leaves.
func (t *Tree) Leaves() []common.Hash {
	if len(t.layers) == 0 {
		return nil
	}
	return append([]common.Hash(nil), t.layers[0]...)
}

// Proof returns the sibling hashes from leaf up to the root.
func (t *Tree) Proof(leaf common.Hash) ([]common.Hash, error) {
	idx, ok := t.index[leaf]
	if !ok {
		return nil, ErrUnknownLeaf
	}

	proof := make([]common.Hash, 0, len(t.layers))
	for _, layer := range t.layers[:len(t.layers)-1] {
		sibling := idx ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		idx /= 2
	}
	return proof, nil
}
