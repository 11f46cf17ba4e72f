package merkle

import (
	"bytes"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpIncentives/internal/ledger"
	"lpIncentives/internal/model"
)

var rewardToken = model.MustParseAddress("0x98585dFc8d9e7D48F0b1aE47ce33332CF4237D96")

func holder(i int) model.Address {
	return model.AddressFrom(common.BigToAddress(big.NewInt(int64(1000 + i))))
}

// verify recomputes the root from leaf and proof.
func verify(root, leaf common.Hash, proof []common.Hash) bool {
	node := leaf
	for _, sibling := range proof {
		node = HashPair(node, sibling)
	}
	return node == root
}

func TestLeafEncoding(t *testing.T) {
	h := holder(1)
	total := big.NewInt(123456789)

	got, err := Leaf(h, rewardToken, total)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.Write(common.LeftPadBytes(h.Common().Bytes(), 32))
	buf.Write(common.LeftPadBytes(rewardToken.Common().Bytes(), 32))
	buf.Write(common.LeftPadBytes(total.Bytes(), 32))
	assert.Equal(t, crypto.Keccak256Hash(buf.Bytes()), got)

	_, err = Leaf(h, rewardToken, big.NewInt(-1))
	require.Error(t, err)
}

func TestTreeShapes(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		tree := NewTree(nil)
		assert.Equal(t, common.Hash{}, tree.Root())
		assert.Empty(t, tree.Leaves())
	})

	t.Run("single leaf is the root", func(t *testing.T) {
		leaf := crypto.Keccak256Hash([]byte("a"))
		tree := NewTree([]common.Hash{leaf})
		assert.Equal(t, leaf, tree.Root())
		proof, err := tree.Proof(leaf)
		require.NoError(t, err)
		assert.Empty(t, proof)
	})

	t.Run("odd node is promoted", func(t *testing.T) {
		leaves := []common.Hash{
			crypto.Keccak256Hash([]byte("a")),
			crypto.Keccak256Hash([]byte("b")),
			crypto.Keccak256Hash([]byte("c")),
		}
		tree := NewTree(leaves)
		sorted := tree.Leaves()
		want := HashPair(HashPair(sorted[0], sorted[1]), sorted[2])
		assert.Equal(t, want, tree.Root())
	})

	t.Run("unknown leaf", func(t *testing.T) {
		tree := NewTree([]common.Hash{crypto.Keccak256Hash([]byte("a"))})
		_, err := tree.Proof(crypto.Keccak256Hash([]byte("z")))
		assert.ErrorIs(t, err, ErrUnknownLeaf)
	})
}

func TestHashPairIsSymmetric(t *testing.T) {
	a := crypto.Keccak256Hash([]byte("a"))
	b := crypto.Keccak256Hash([]byte("b"))
	assert.Equal(t, HashPair(a, b), HashPair(b, a))
}

func TestRootInvariantUnderPermutation(t *testing.T) {
	leaves := make([]common.Hash, 0, 11)
	for i := 0; i < 11; i++ {
		leaf, err := Leaf(holder(i), rewardToken, big.NewInt(int64(i*7+1)))
		require.NoError(t, err)
		leaves = append(leaves, leaf)
	}
	want := NewTree(leaves).Root()

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]common.Hash(nil), leaves...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, NewTree(shuffled).Root())
	}
}

func TestBuildCommitment(t *testing.T) {
	l := ledger.Ledger{}
	for i := 0; i < 7; i++ {
		l[holder(i)] = map[string]*big.Int{
			"Uni-V3 NEWO/USDC LP": big.NewInt(int64(100 * (i + 1))),
			"other":               big.NewInt(1),
		}
	}
	pointer := common.HexToHash("0x01")

	c, err := Build(l, rewardToken, pointer)
	require.NoError(t, err)
	require.Len(t, c.Claims, 7)
	require.Len(t, c.Leaves, 7)
	assert.Equal(t, pointer, c.ContentPointer)

	for i := 0; i < 7; i++ {
		claim, ok := c.Claim(holder(i))
		require.True(t, ok)
		assert.Equal(t, int64(100*(i+1)+1), claim.Total.Int64())

		proof, err := c.Proof(holder(i))
		require.NoError(t, err)
		assert.True(t, verify(c.Root, claim.Leaf, proof), "holder %d", i)
	}

	_, err = c.Proof(holder(99))
	assert.ErrorIs(t, err, ErrUnknownHolder)
}

func TestBuildIgnoresMapOrder(t *testing.T) {
	a := ledger.Ledger{
		holder(1): {"x": big.NewInt(5)},
		holder(2): {"x": big.NewInt(6)},
		holder(3): {"x": big.NewInt(7)},
	}
	b := ledger.Ledger{
		holder(3): {"x": big.NewInt(7)},
		holder(1): {"x": big.NewInt(2), "y": big.NewInt(3)},
		holder(2): {"x": big.NewInt(6)},
	}

	ca, err := Build(a, rewardToken, common.Hash{})
	require.NoError(t, err)
	cb, err := Build(b, rewardToken, common.Hash{})
	require.NoError(t, err)
	assert.Equal(t, ca.Root, cb.Root)
}

func TestBuildEmptyLedger(t *testing.T) {
	c, err := Build(ledger.Ledger{}, rewardToken, common.Hash{})
	require.NoError(t, err)
	assert.True(t, c.Empty())
	assert.Equal(t, common.Hash{}, c.Root)
}
