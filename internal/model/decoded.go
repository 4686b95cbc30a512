package model

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Args holds decoded arguments keyed by their ABI name.
type Args map[string]interface{}

// DecodedEvent is a receipt log decoded against a known event ABI.
type DecodedEvent struct {
	Address   common.Address
	Name      string
	Signature string
	LogIndex  uint64
	Args      Args
}

// DecodedCall is a call frame decoded against a known method ABI.
type DecodedCall struct {
	From      common.Address
	To        common.Address
	Method    string
	Signature string
	// Index is the frame position in depth-first call order.
	Index int
	Args  Args
}

// Address returns the named argument as an address.
func (a Args) Address(name string) (common.Address, error) {
	value, ok := a[name]
	if !ok {
		return common.Address{}, fmt.Errorf("missing argument %s", name)
	}
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		if v == nil {
			return common.Address{}, fmt.Errorf("argument %s is nil", name)
		}
		return *v, nil
	case string:
		if !common.IsHexAddress(v) {
			return common.Address{}, fmt.Errorf("argument %s: invalid address %s", name, v)
		}
		return common.HexToAddress(v), nil
	default:
		return common.Address{}, fmt.Errorf("argument %s: unsupported address type %T", name, value)
	}
}

// BigInt returns the named argument as a new big.Int.
func (a Args) BigInt(name string) (*big.Int, error) {
	value, ok := a[name]
	if !ok {
		return nil, fmt.Errorf("missing argument %s", name)
	}
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("argument %s is nil", name)
		}
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	case int:
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("argument %s: unsupported int type %T", name, value)
	}
}

// Bool returns the named argument as a bool.
func (a Args) Bool(name string) (bool, error) {
	value, ok := a[name]
	if !ok {
		return false, fmt.Errorf("missing argument %s", name)
	}
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("argument %s: unsupported bool type %T", name, value)
	}
	return v, nil
}
