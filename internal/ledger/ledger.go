package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"lpIncentives/internal/model"
)

// ErrMalformed wraps every decode failure of a persisted ledger.
var ErrMalformed = errors.New("malformed ledger")

// Ledger is the all-time cumulative reward table: holder -> category -> amount
// in base-18 fixed point. Values are treated as immutable; Merge returns a new
// Ledger instead of mutating its input.
type Ledger map[model.Address]map[string]*big.Int

// Decode parses the persisted JSON form. Any malformed holder or amount fails
// the whole document.
func Decode(data []byte) (Ledger, error) {
	var raw map[string]map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	out := make(Ledger, len(raw))
	for holderText, categories := range raw {
		holder, err := model.ParseAddress(holderText)
		if err != nil {
			return nil, fmt.Errorf("%w: holder: %v", ErrMalformed, err)
		}
		if _, dup := out[holder]; dup {
			return nil, fmt.Errorf("%w: duplicate holder %s", ErrMalformed, holder)
		}
		entry := make(map[string]*big.Int, len(categories))
		for category, amountText := range categories {
			amount, err := parseAmount(amountText)
			if err != nil {
				return nil, fmt.Errorf("%w: %s/%s: %v", ErrMalformed, holder, category, err)
			}
			entry[category] = amount
		}
		out[holder] = entry
	}
	return out, nil
}

// MarshalJSON encodes amounts as decimal strings; keys come out sorted.
func (l Ledger) MarshalJSON() ([]byte, error) {
	raw := make(map[string]map[string]string, len(l))
	for holder, categories := range l {
		entry := make(map[string]string, len(categories))
		for category, amount := range categories {
			entry[category] = amount.String()
		}
		raw[holder.String()] = entry
	}
	return json.Marshal(raw)
}

// Clone deep-copies the ledger.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for holder, categories := range l {
		entry := make(map[string]*big.Int, len(categories))
		for category, amount := range categories {
			entry[category] = new(big.Int).Set(amount)
		}
		out[holder] = entry
	}
	return out
}

// Holders returns the holders in byte order.
func (l Ledger) Holders() []model.Address {
	holders := make([]model.Address, 0, len(l))
	for holder := range l {
		holders = append(holders, holder)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].Less(holders[j]) })
	return holders
}

// HolderTotal sums every category of one holder.
func (l Ledger) HolderTotal(holder model.Address) *big.Int {
	sum := new(big.Int)
	for _, amount := range l[holder] {
		sum.Add(sum, amount)
	}
	return sum
}

// Total sums every entry.
func (l Ledger) Total() *big.Int {
	sum := new(big.Int)
	for holder := range l {
		sum.Add(sum, l.HolderTotal(holder))
	}
	return sum
}

func parseAmount(text string) (*big.Int, error) {
	text = strings.TrimSpace(text)
	// Older snapshots wrote zero rewards as an empty string.
	if text == "" {
		return new(big.Int), nil
	}
	amount, ok := new(big.Int).SetString(text, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", text)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", text)
	}
	return amount, nil
}
