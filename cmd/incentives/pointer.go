package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"lpIncentives/internal/ipfs"
)

// convertPointer maps a CIDv0 to its 0x pointer and a 0x pointer back to CIDv0.
func convertPointer(input string) (string, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		raw := common.FromHex(input)
		if len(raw) != common.HashLength {
			return "", fmt.Errorf("pointer %q is not 32 bytes", input)
		}
		return ipfs.CIDFromPointer(common.BytesToHash(raw))
	}
	pointer, err := ipfs.PointerFromCID(input)
	if err != nil {
		return "", err
	}
	return pointer.Hex(), nil
}

func runPointer(cmd *cobra.Command, args []string) error {
	out, err := convertPointer(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
