package model

import "github.com/ethereum/go-ethereum/common"

// TxContext is the fully decoded view of a single transaction.
// It is built once and only read by detectors.
type TxContext struct {
	ChainID     uint64
	BlockNumber uint64
	TxHash      common.Hash
	Events      []DecodedEvent
	Calls       []DecodedCall
}

// EventsBySignature returns events with the given canonical signature in log order.
func (tx *TxContext) EventsBySignature(sig string) []DecodedEvent {
	if tx == nil {
		return nil
	}
	out := make([]DecodedEvent, 0)
	for _, ev := range tx.Events {
		if ev.Signature == sig {
			out = append(out, ev)
		}
	}
	return out
}

// CallsBySignature returns calls with the given canonical signature in call order.
func (tx *TxContext) CallsBySignature(sig string) []DecodedCall {
	if tx == nil {
		return nil
	}
	out := make([]DecodedCall, 0)
	for _, call := range tx.Calls {
		if call.Signature == sig {
			out = append(out, call)
		}
	}
	return out
}

// HasSignature reports whether any event or call carries the signature.
func (tx *TxContext) HasSignature(sig string) bool {
	if tx == nil {
		return false
	}
	for _, ev := range tx.Events {
		if ev.Signature == sig {
			return true
		}
	}
	for _, call := range tx.Calls {
		if call.Signature == sig {
			return true
		}
	}
	return false
}
