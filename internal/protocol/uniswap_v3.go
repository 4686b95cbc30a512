package protocol

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"flashloanScope/internal/dex"
	"flashloanScope/internal/model"
)

// SwapTieBreak decides which compatible swap overrides the flash recipient
// when several swaps on the same pool qualify.
type SwapTieBreak string

const (
	// TieBreakLast takes the last compatible swap in call order.
	TieBreakLast SwapTieBreak = "last"
	// TieBreakNearest takes the compatible swap closest to the flash call; ties go to the later swap.
	TieBreakNearest SwapTieBreak = "nearest"
	// TieBreakStrict fails the record when compatible swaps disagree on the recipient.
	TieBreakStrict SwapTieBreak = "strict"
)

// ParseSwapTieBreak parses a tie-break policy name. Empty selects TieBreakLast.
func ParseSwapTieBreak(input string) (SwapTieBreak, error) {
	switch SwapTieBreak(strings.ToLower(strings.TrimSpace(input))) {
	case "", TieBreakLast:
		return TieBreakLast, nil
	case TieBreakNearest:
		return TieBreakNearest, nil
	case TieBreakStrict:
		return TieBreakStrict, nil
	default:
		return "", fmt.Errorf("unsupported swap tie-break: %s", input)
	}
}

// UniswapV3Options configures the V3 pool detector.
type UniswapV3Options struct {
	TieBreak    SwapTieBreak
	Concurrency int
}

// UniswapV3Detector reads pool flash calls and attributes each loan to the
// recipient of a same-pool swap that sends the borrowed token back into the pool,
// falling back to the flash recipient.
type UniswapV3Detector struct {
	reader ChainReader
	opts   UniswapV3Options
}

func NewUniswapV3Detector(reader ChainReader, opts UniswapV3Options) *UniswapV3Detector {
	if opts.TieBreak == "" {
		opts.TieBreak = TieBreakLast
	}
	return &UniswapV3Detector{reader: reader, opts: opts}
}

func (d *UniswapV3Detector) Name() string { return ProtocolUniswapV3 }

func (d *UniswapV3Detector) Applies(tx *model.TxContext) bool {
	return tx.HasSignature(dex.V3PoolFlashCallSig)
}

type flashLeg struct {
	pool       common.Address
	tokenIndex int
	amount     *big.Int
	account    common.Address
	callIndex  int
}

func (d *UniswapV3Detector) Detect(ctx context.Context, tx *model.TxContext) ([]model.FlashloanRecord, error) {
	flashes := tx.CallsBySignature(dex.V3PoolFlashCallSig)
	swaps := tx.CallsBySignature(dex.V3PoolSwapCallSig)

	legs := make([]flashLeg, 0, len(flashes))
	var errs []error
	for _, call := range flashes {
		leg, err := d.resolveLeg(call, swaps)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s call %d: %w", d.Name(), call.Index, err))
			continue
		}
		legs = append(legs, leg)
	}

	assets := make([]common.Address, len(legs))
	readErrs := fanOut(ctx, len(legs), d.opts.Concurrency, func(ctx context.Context, i int) error {
		accessor := dex.AccessorToken0
		if legs[i].tokenIndex == 1 {
			accessor = dex.AccessorToken1
		}
		addr, err := readAddress(ctx, d.reader, legs[i].pool, accessor, tx.BlockNumber)
		if err != nil {
			return err
		}
		assets[i] = addr
		return nil
	})

	records := make([]model.FlashloanRecord, 0, len(legs))
	for i, leg := range legs {
		if readErrs[i] != nil {
			errs = append(errs, fmt.Errorf("%s call %d: %w", d.Name(), leg.callIndex, readErrs[i]))
			continue
		}
		records = append(records, model.NewFlashloanRecord(assets[i], leg.amount, leg.account))
	}
	return records, errors.Join(errs...)
}

func (d *UniswapV3Detector) resolveLeg(call model.DecodedCall, swaps []model.DecodedCall) (flashLeg, error) {
	amount0, err := call.Args.BigInt("amount0")
	if err != nil {
		return flashLeg{}, err
	}
	amount1, err := call.Args.BigInt("amount1")
	if err != nil {
		return flashLeg{}, err
	}
	recipient, err := call.Args.Address("recipient")
	if err != nil {
		return flashLeg{}, err
	}

	leg := flashLeg{pool: call.To, account: recipient, callIndex: call.Index}
	switch {
	case amount0.Sign() > 0 && amount1.Sign() == 0:
		leg.tokenIndex = 0
		leg.amount = amount0
	case amount1.Sign() > 0 && amount0.Sign() == 0:
		leg.tokenIndex = 1
		leg.amount = amount1
	default:
		return flashLeg{}, fmt.Errorf("%w: amount0=%s amount1=%s", ErrInvalidFlashLegs, amount0, amount1)
	}

	override, ok, err := d.correlate(call, leg.tokenIndex, swaps)
	if err != nil {
		return flashLeg{}, err
	}
	if ok {
		leg.account = override
	}
	return leg, nil
}

type swapMatch struct {
	recipient common.Address
	index     int
}

// correlate finds the swap recipient that overrides the flash recipient, if any.
// A swap qualifies when it targets the same pool and sells the borrowed token:
// zeroForOne for token0, oneForZero for token1.
func (d *UniswapV3Detector) correlate(flash model.DecodedCall, tokenIndex int, swaps []model.DecodedCall) (common.Address, bool, error) {
	matches := make([]swapMatch, 0)
	for _, swap := range swaps {
		if swap.To != flash.To {
			continue
		}
		zeroForOne, err := swap.Args.Bool("zeroForOne")
		if err != nil {
			return common.Address{}, false, fmt.Errorf("swap call %d: %w", swap.Index, err)
		}
		if (tokenIndex == 0) != zeroForOne {
			continue
		}
		recipient, err := swap.Args.Address("recipient")
		if err != nil {
			return common.Address{}, false, fmt.Errorf("swap call %d: %w", swap.Index, err)
		}
		matches = append(matches, swapMatch{recipient: recipient, index: swap.Index})
	}
	if len(matches) == 0 {
		return common.Address{}, false, nil
	}

	switch d.opts.TieBreak {
	case TieBreakNearest:
		best := matches[0]
		for _, m := range matches[1:] {
			if distance(m.index, flash.Index) <= distance(best.index, flash.Index) {
				best = m
			}
		}
		return best.recipient, true, nil
	case TieBreakStrict:
		for _, m := range matches[1:] {
			if m.recipient != matches[0].recipient {
				return common.Address{}, false, fmt.Errorf("%w: %d swaps on %s", ErrAmbiguousSwap, len(matches), model.NormalizeAddress(flash.To))
			}
		}
		return matches[0].recipient, true, nil
	default:
		return matches[len(matches)-1].recipient, true, nil
	}
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
