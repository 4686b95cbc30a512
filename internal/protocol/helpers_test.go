package protocol

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"flashloanScope/internal/dex"
	"flashloanScope/internal/model"
)

type fakeReader struct {
	mu      sync.Mutex
	results map[string]common.Address
	fail    map[string]error
	reads   []string
	blocks  []uint64
}

func newFakeReader() *fakeReader {
	return &fakeReader{results: make(map[string]common.Address), fail: make(map[string]error)}
}

func (f *fakeReader) set(contract common.Address, accessor string, addr common.Address) {
	f.results[readerKey(contract, accessor)] = addr
}

func (f *fakeReader) ReadAddress(_ context.Context, contract common.Address, accessor string, blockNumber uint64) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := readerKey(contract, accessor)
	f.reads = append(f.reads, key)
	f.blocks = append(f.blocks, blockNumber)
	if err, ok := f.fail[key]; ok {
		return common.Address{}, err
	}
	addr, ok := f.results[key]
	if !ok {
		return common.Address{}, errors.New("execution reverted")
	}
	return addr, nil
}

func readerKey(contract common.Address, accessor string) string {
	return model.NormalizeAddress(contract) + ":" + accessor
}

func addr(hex string) common.Address {
	return common.HexToAddress(hex)
}

func aaveEvent(logIndex uint64, target, asset common.Address, amount int64) model.DecodedEvent {
	return model.DecodedEvent{
		Address:   addr("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9"),
		Name:      "FlashLoan",
		Signature: dex.AaveV2FlashLoanSig,
		LogIndex:  logIndex,
		Args: model.Args{
			"target":       target,
			"initiator":    addr("0xBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"),
			"asset":        asset,
			"amount":       big.NewInt(amount),
			"premium":      big.NewInt(9),
			"referralCode": uint16(0),
		},
	}
}

func balancerEvent(logIndex uint64, recipient, token common.Address, amount int64) model.DecodedEvent {
	return model.DecodedEvent{
		Address:   addr("0xBA12222222228d8Ba445958a75a0704d566BF2C8"),
		Name:      "FlashLoan",
		Signature: dex.BalancerFlashLoanSig,
		LogIndex:  logIndex,
		Args: model.Args{
			"recipient": recipient,
			"token":     token,
			"amount":    big.NewInt(amount),
			"feeAmount": big.NewInt(3),
		},
	}
}

func dodoEvent(logIndex uint64, pool, assetTo common.Address, base, quote int64) model.DecodedEvent {
	return model.DecodedEvent{
		Address:   pool,
		Name:      "DODOFlashLoan",
		Signature: dex.DODOFlashLoanSig,
		LogIndex:  logIndex,
		Args: model.Args{
			"borrower":    addr("0x4444444444444444444444444444444444444444"),
			"assetTo":     assetTo,
			"baseAmount":  big.NewInt(base),
			"quoteAmount": big.NewInt(quote),
		},
	}
}

func flashCall(index int, pool, recipient common.Address, amount0, amount1 int64) model.DecodedCall {
	return model.DecodedCall{
		To:        pool,
		Method:    "flash",
		Signature: dex.V3PoolFlashCallSig,
		Index:     index,
		Args: model.Args{
			"recipient": recipient,
			"amount0":   big.NewInt(amount0),
			"amount1":   big.NewInt(amount1),
			"data":      []byte{},
		},
	}
}

func swapCall(index int, pool, recipient common.Address, zeroForOne bool) model.DecodedCall {
	return model.DecodedCall{
		To:        pool,
		Method:    "swap",
		Signature: dex.V3PoolSwapCallSig,
		Index:     index,
		Args: model.Args{
			"recipient":         recipient,
			"zeroForOne":        zeroForOne,
			"amountSpecified":   big.NewInt(100),
			"sqrtPriceLimitX96": big.NewInt(1),
			"data":              []byte{},
		},
	}
}
