package protocol

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"flashloanScope/internal/model"
)

// Protocol identifiers accepted by the registry.
const (
	ProtocolAaveV2    = "aave-v2"
	ProtocolBalancer  = "balancer"
	ProtocolDODO      = "dodo"
	ProtocolUniswapV3 = "uniswap-v3"
)

var (
	// ErrUnknownProtocol is returned when selecting an unregistered protocol.
	ErrUnknownProtocol = errors.New("unknown protocol")
	// ErrInvalidFlashLegs marks a flash call whose legs are both zero or both positive.
	ErrInvalidFlashLegs = errors.New("flash call must borrow exactly one token")
	// ErrAmbiguousSwap marks a flash call matched by swaps with different recipients under the strict policy.
	ErrAmbiguousSwap = errors.New("ambiguous swap correlation")
)

// Detector extracts normalized flashloans of one protocol from a transaction context.
//
// Detect returns every record it could resolve. Failures are per record: the
// returned error joins them and never discards the records that succeeded.
type Detector interface {
	Name() string
	Applies(tx *model.TxContext) bool
	Detect(ctx context.Context, tx *model.TxContext) ([]model.FlashloanRecord, error)
}

// ChainReader performs read-only accessor calls scoped to a block.
type ChainReader interface {
	ReadAddress(ctx context.Context, contract common.Address, accessor string, blockNumber uint64) (common.Address, error)
}

// AuxiliaryReadError is a failed accessor read. Only the record depending on it is dropped.
type AuxiliaryReadError struct {
	Contract    common.Address
	Accessor    string
	BlockNumber uint64
	Err         error
}

func (e *AuxiliaryReadError) Error() string {
	return fmt.Sprintf("read %s on %s at block %d: %v", e.Accessor, model.NormalizeAddress(e.Contract), e.BlockNumber, e.Err)
}

func (e *AuxiliaryReadError) Unwrap() error {
	return e.Err
}

func readAddress(ctx context.Context, reader ChainReader, contract common.Address, accessor string, blockNumber uint64) (common.Address, error) {
	if reader == nil {
		return common.Address{}, &AuxiliaryReadError{Contract: contract, Accessor: accessor, BlockNumber: blockNumber, Err: errors.New("chain reader is nil")}
	}
	addr, err := reader.ReadAddress(ctx, contract, accessor, blockNumber)
	if err != nil {
		return common.Address{}, &AuxiliaryReadError{Contract: contract, Accessor: accessor, BlockNumber: blockNumber, Err: err}
	}
	return addr, nil
}
