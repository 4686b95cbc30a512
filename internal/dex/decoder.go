package dex

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"flashloanScope/internal/chain"
	"flashloanScope/internal/model"
)

// TxMeta identifies the transaction being decoded.
type TxMeta struct {
	ChainID     uint64
	BlockNumber uint64
	TxHash      common.Hash
}

// ContextDecoder decodes receipt logs and call frames of known flashloan protocols.
type ContextDecoder struct {
	events  map[common.Hash]abi.Event
	methods map[[4]byte]abi.Method
}

// NewContextDecoder builds a decoder covering every supported protocol ABI.
func NewContextDecoder() (*ContextDecoder, error) {
	d := &ContextDecoder{
		events:  make(map[common.Hash]abi.Event),
		methods: make(map[[4]byte]abi.Method),
	}

	loaders := []func() (abi.ABI, error){AaveV2PoolABI, BalancerVaultABI, DODOPoolABI, V3PoolABI}
	for _, load := range loaders {
		parsed, err := load()
		if err != nil {
			return nil, fmt.Errorf("parse abi: %w", err)
		}
		for _, event := range parsed.Events {
			d.events[event.ID] = event
		}
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	for _, name := range []string{"flash", "swap"} {
		method, ok := poolABI.Methods[name]
		if !ok {
			return nil, fmt.Errorf("pool abi missing method %s", name)
		}
		var id [4]byte
		copy(id[:], method.ID)
		d.methods[id] = method
	}

	return d, nil
}

// Topic0s returns the topic0 of every decodable event in byte order.
func (d *ContextDecoder) Topic0s() []common.Hash {
	out := make([]common.Hash, 0, len(d.events))
	for id := range d.events {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// CanDecodeLog checks if the log's topic0 is supported.
func (d *ContextDecoder) CanDecodeLog(log *types.Log) bool {
	if log == nil || len(log.Topics) == 0 {
		return false
	}
	_, ok := d.events[log.Topics[0]]
	return ok
}

// DecodeLog converts a receipt log into a DecodedEvent.
func (d *ContextDecoder) DecodeLog(log *types.Log) (model.DecodedEvent, error) {
	if log == nil || len(log.Topics) == 0 {
		return model.DecodedEvent{}, fmt.Errorf("missing topics")
	}
	event, ok := d.events[log.Topics[0]]
	if !ok {
		return model.DecodedEvent{}, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	indexed := indexedArguments(event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return model.DecodedEvent{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	args := make(map[string]interface{}, len(event.Inputs))
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(args, indexed, log.Topics[1:]); err != nil {
			return model.DecodedEvent{}, fmt.Errorf("parse topics: %w", err)
		}
	}
	if err := event.Inputs.NonIndexed().UnpackIntoMap(args, log.Data); err != nil {
		return model.DecodedEvent{}, fmt.Errorf("unpack %s: %w", event.Name, err)
	}

	return model.DecodedEvent{
		Address:   log.Address,
		Name:      event.RawName,
		Signature: event.Sig,
		LogIndex:  uint64(log.Index),
		Args:      model.Args(args),
	}, nil
}

// CanDecodeCall checks if the frame's selector is supported.
func (d *ContextDecoder) CanDecodeCall(frame chain.CallFrame) bool {
	if len(frame.Input) < 4 {
		return false
	}
	var id [4]byte
	copy(id[:], frame.Input[:4])
	_, ok := d.methods[id]
	return ok
}

// DecodeCall converts a call frame into a DecodedCall.
func (d *ContextDecoder) DecodeCall(frame chain.CallFrame, index int) (model.DecodedCall, error) {
	if len(frame.Input) < 4 {
		return model.DecodedCall{}, fmt.Errorf("input too short: %d bytes", len(frame.Input))
	}
	var id [4]byte
	copy(id[:], frame.Input[:4])
	method, ok := d.methods[id]
	if !ok {
		return model.DecodedCall{}, fmt.Errorf("unsupported selector: %x", id)
	}

	args := make(map[string]interface{}, len(method.Inputs))
	if err := method.Inputs.UnpackIntoMap(args, frame.Input[4:]); err != nil {
		return model.DecodedCall{}, fmt.Errorf("unpack %s: %w", method.Name, err)
	}

	return model.DecodedCall{
		From:      frame.From,
		To:        frame.To,
		Method:    method.RawName,
		Signature: method.Sig,
		Index:     index,
		Args:      model.Args(args),
	}, nil
}

// Decode builds the transaction context from receipt logs and an optional call trace.
// Items with unknown selectors are skipped; known selectors that fail to decode are
// returned as DecodeErrors and left out of the context.
func (d *ContextDecoder) Decode(meta TxMeta, logs []*types.Log, root *chain.CallFrame) (*model.TxContext, []model.DecodeError) {
	tx := &model.TxContext{
		ChainID:     meta.ChainID,
		BlockNumber: meta.BlockNumber,
		TxHash:      meta.TxHash,
		Events:      make([]model.DecodedEvent, 0),
		Calls:       make([]model.DecodedCall, 0),
	}
	var failures []model.DecodeError

	for _, log := range logs {
		if !d.CanDecodeLog(log) {
			continue
		}
		event, err := d.DecodeLog(log)
		if err != nil {
			failures = append(failures, decodeError(meta, "log", uint64(log.Index), log.Address, log.Topics[0].Hex(), err))
			continue
		}
		tx.Events = append(tx.Events, event)
	}

	for i, frame := range FlattenCalls(root) {
		if !d.CanDecodeCall(frame) {
			continue
		}
		call, err := d.DecodeCall(frame, i)
		if err != nil {
			failures = append(failures, decodeError(meta, "call", uint64(i), frame.To, fmt.Sprintf("0x%x", frame.Input[:4]), err))
			continue
		}
		tx.Calls = append(tx.Calls, call)
	}

	return tx, failures
}

// FlattenCalls walks a call tree depth-first in execution order.
// Reverted frames and their children are dropped.
func FlattenCalls(root *chain.CallFrame) []chain.CallFrame {
	if root == nil {
		return nil
	}
	out := make([]chain.CallFrame, 0)
	var walk func(frame chain.CallFrame)
	walk = func(frame chain.CallFrame) {
		if frame.Error != "" {
			return
		}
		out = append(out, frame)
		for _, child := range frame.Calls {
			walk(child)
		}
	}
	walk(*root)
	return out
}

func decodeError(meta TxMeta, source string, index uint64, address common.Address, selector string, err error) model.DecodeError {
	return model.DecodeError{
		ChainID:     meta.ChainID,
		BlockNumber: meta.BlockNumber,
		TxHash:      meta.TxHash.Hex(),
		Source:      source,
		Index:       index,
		Address:     model.NormalizeAddress(address),
		Selector:    selector,
		Error:       err.Error(),
	}
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
