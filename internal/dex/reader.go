package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"flashloanScope/internal/chain"
)

const defaultCacheSize = 4096

// ContractCaller performs an eth_call at a block height.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ReaderConfig configures the accessor reader.
type ReaderConfig struct {
	CacheSize    int
	MaxRetries   int
	RetryBackoff time.Duration
	Logger       *zap.Logger
}

type accessorKey struct {
	contract common.Address
	accessor string
}

// AccessorReader resolves token addresses through zero-argument view accessors.
// Token accessors of pools are immutable, so results are cached by contract and accessor.
type AccessorReader struct {
	caller       ContractCaller
	accessorABI  abi.ABI
	cache        *lru.Cache[accessorKey, common.Address]
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

// NewAccessorReader builds an AccessorReader on top of a contract caller.
func NewAccessorReader(caller ContractCaller, cfg ReaderConfig) (*AccessorReader, error) {
	if caller == nil {
		return nil, fmt.Errorf("contract caller is nil")
	}
	parsed, err := AccessorABI()
	if err != nil {
		return nil, fmt.Errorf("parse accessor abi: %w", err)
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[accessorKey, common.Address](size)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessorReader{
		caller:       caller,
		accessorABI:  parsed,
		cache:        cache,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       logger,
	}, nil
}

// ReadAddress calls accessor on contract at blockNumber and returns the address it yields.
func (r *AccessorReader) ReadAddress(ctx context.Context, contract common.Address, accessor string, blockNumber uint64) (common.Address, error) {
	key := accessorKey{contract: contract, accessor: accessor}
	if addr, ok := r.cache.Get(key); ok {
		return addr, nil
	}

	if _, ok := r.accessorABI.Methods[accessor]; !ok {
		return common.Address{}, fmt.Errorf("unsupported accessor %s", accessor)
	}
	data, err := r.accessorABI.Pack(accessor)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", accessor, err)
	}

	// Never nil: a nil block would read "latest" instead of the tx's block.
	block := new(big.Int).SetUint64(blockNumber)

	var resp []byte
	err = chain.WithRetry(ctx, r.maxRetries, r.retryBackoff, func(ctx context.Context) error {
		var err error
		resp, err = r.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, block)
		if err != nil {
			r.logger.Debug("accessor call failed",
				zap.String("contract", contract.Hex()),
				zap.String("accessor", accessor),
				zap.Uint64("block_number", blockNumber),
				zap.Error(err),
			)
		}
		return err
	})
	if err != nil {
		return common.Address{}, fmt.Errorf("call %s: %w", accessor, err)
	}

	values, err := r.accessorABI.Unpack(accessor, resp)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", accessor, err)
	}
	if len(values) != 1 {
		return common.Address{}, fmt.Errorf("%s return size %d", accessor, len(values))
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s unexpected type %T", accessor, values[0])
	}

	r.cache.Add(key, addr)
	return addr, nil
}
