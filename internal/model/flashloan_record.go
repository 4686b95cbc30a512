package model

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// FlashloanRecord is a normalized flashloan leg attributed to an account.
type FlashloanRecord struct {
	Asset   string
	Amount  *big.Int
	Account string
}

type flashloanRecordJSON struct {
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
	Account string `json:"account"`
}

// NewFlashloanRecord normalizes both addresses and copies the amount.
func NewFlashloanRecord(asset common.Address, amount *big.Int, account common.Address) FlashloanRecord {
	value := new(big.Int)
	if amount != nil {
		value.Set(amount)
	}
	return FlashloanRecord{
		Asset:   NormalizeAddress(asset),
		Amount:  value,
		Account: NormalizeAddress(account),
	}
}

// NormalizeAddress returns the lowercase 0x-prefixed hex form of an address.
func NormalizeAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// IsEmpty reports whether the record carries no data.
func (r FlashloanRecord) IsEmpty() bool {
	return r.Asset == "" && r.Account == "" && (r.Amount == nil || r.Amount.Sign() == 0)
}

// MarshalJSON encodes the amount as a base-10 string.
func (r FlashloanRecord) MarshalJSON() ([]byte, error) {
	amount := "0"
	if r.Amount != nil {
		amount = r.Amount.String()
	}
	return json.Marshal(flashloanRecordJSON{Asset: r.Asset, Amount: amount, Account: r.Account})
}

// UnmarshalJSON decodes a FlashloanRecord with a base-10 string amount.
func (r *FlashloanRecord) UnmarshalJSON(data []byte) error {
	var raw flashloanRecordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	amount := new(big.Int)
	if raw.Amount != "" {
		if _, ok := amount.SetString(raw.Amount, 10); !ok {
			return fmt.Errorf("invalid amount: %s", raw.Amount)
		}
	}
	*r = FlashloanRecord{Asset: raw.Asset, Amount: amount, Account: raw.Account}
	return nil
}
