package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"lpIncentives/internal/ipfs"
	"lpIncentives/internal/ledger"
	"lpIncentives/internal/merkle"
	"lpIncentives/internal/model"
)

type proofOutput struct {
	Root           common.Hash         `json:"root"`
	ContentPointer common.Hash         `json:"content_pointer"`
	Total          string              `json:"total"`
	Claims         []merkle.ClaimProof `json:"claims"`
}

func runProof(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("ledger")
	tokenText, _ := cmd.Flags().GetString("reward-token")
	holderText, _ := cmd.Flags().GetString("holder")
	cidText, _ := cmd.Flags().GetString("cid")

	if path == "" {
		return fmt.Errorf("ledger file is required")
	}
	token, err := model.ParseAddress(tokenText)
	if err != nil {
		return fmt.Errorf("reward-token: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	l, err := ledger.Decode(data)
	if err != nil {
		return err
	}

	var pointer common.Hash
	if strings.TrimSpace(cidText) != "" {
		if pointer, err = ipfs.PointerFromCID(strings.TrimSpace(cidText)); err != nil {
			return err
		}
	}

	c, err := merkle.Build(l, token, pointer)
	if err != nil {
		return err
	}
	out := proofOutput{Root: c.Root, ContentPointer: pointer, Total: l.Total().String()}

	if holderText == "" {
		if out.Claims, err = c.Proofs(); err != nil {
			return err
		}
	} else {
		holder, err := model.ParseAddress(holderText)
		if err != nil {
			return fmt.Errorf("holder: %w", err)
		}
		claim, ok := c.Claim(holder)
		if !ok {
			return fmt.Errorf("%w: %s", merkle.ErrUnknownHolder, holder)
		}
		proof, err := c.Proof(holder)
		if err != nil {
			return err
		}
		out.Claims = []merkle.ClaimProof{{Holder: holder, Total: claim.Total.String(), Leaf: claim.Leaf, Proof: proof}}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
