package merkle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"lpIncentives/internal/ledger"
	"lpIncentives/internal/model"
)

// ErrUnknownHolder is returned when a proof is requested for a holder without a claim.
var ErrUnknownHolder = errors.New("holder has no claim")

// Claim is one holder's cumulative entitlement.
type Claim struct {
	Holder model.Address `json:"holder"`
	Total  *big.Int      `json:"total"`
	Leaf   common.Hash   `json:"leaf"`
}

// Commitment is what gets published for one run: the root, the leaves it was
// built from and the content pointer of the published ledger.
type Commitment struct {
	Root           common.Hash   `json:"root"`
	RewardToken    model.Address `json:"reward_token"`
	ContentPointer common.Hash   `json:"content_pointer"`
	Leaves         []common.Hash `json:"leaves"`
	Claims         []Claim       `json:"claims"`

	tree   *Tree
	byUser map[model.Address]int
}

// Build sums each holder's categories, hashes one leaf per holder and builds
// the tree.
func Build(l ledger.Ledger, rewardToken model.Address, pointer common.Hash) (*Commitment, error) {
	holders := l.Holders()
	claims := make([]Claim, 0, len(holders))
	leaves := make([]common.Hash, 0, len(holders))
	byUser := make(map[model.Address]int, len(holders))

	for _, holder := range holders {
		total := l.HolderTotal(holder)
		leaf, err := Leaf(holder, rewardToken, total)
		if err != nil {
			return nil, fmt.Errorf("build leaf: %w", err)
		}
		byUser[holder] = len(claims)
		claims = append(claims, Claim{Holder: holder, Total: total, Leaf: leaf})
		leaves = append(leaves, leaf)
	}

	tree := NewTree(leaves)
	return &Commitment{
		Root:           tree.Root(),
		RewardToken:    rewardToken,
		ContentPointer: pointer,
		Leaves:         tree.Leaves(),
		Claims:         claims,
		tree:           tree,
		byUser:         byUser,
	}, nil
}

// Empty reports whether the commitment has no claims.
func (c *Commitment) Empty() bool {
	return len(c.Claims) == 0
}

// Claim returns holder's claim.
func (c *Commitment) Claim(holder model.Address) (Claim, bool) {
	i, ok := c.byUser[holder]
	if !ok {
		return Claim{}, false
	}
	return c.Claims[i], true
}

// Proof returns the proof for holder's leaf.
func (c *Commitment) Proof(holder model.Address) ([]common.Hash, error) {
	claim, ok := c.Claim(holder)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHolder, holder)
	}
	return c.tree.Proof(claim.Leaf)
}

// ClaimProof is a claim with its proof in the form claimants submit.
type ClaimProof struct {
	Holder model.Address `json:"holder"`
	Total  string        `json:"total"`
	Leaf   common.Hash   `json:"leaf"`
	Proof  []common.Hash `json:"proof"`
}

// Proofs returns every claim with its proof, in holder order.
func (c *Commitment) Proofs() ([]ClaimProof, error) {
	out := make([]ClaimProof, 0, len(c.Claims))
	for _, claim := range c.Claims {
		proof, err := c.tree.Proof(claim.Leaf)
		if err != nil {
			return nil, err
		}
		out = append(out, ClaimProof{
			Holder: claim.Holder,
			Total:  claim.Total.String(),
			Leaf:   claim.Leaf,
			Proof:  proof,
		})
	}
	return out, nil
}
