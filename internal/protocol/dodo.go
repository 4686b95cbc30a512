package protocol

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"flashloanScope/internal/dex"
	"flashloanScope/internal/model"
)

// DODODetector reads DODOFlashLoan events. The event carries base and quote
// legs but no token address, so the borrowed token is read from the pool.
type DODODetector struct {
	reader      ChainReader
	concurrency int
}

func NewDODODetector(reader ChainReader, concurrency int) *DODODetector {
	return &DODODetector{reader: reader, concurrency: concurrency}
}

func (d *DODODetector) Name() string { return ProtocolDODO }

func (d *DODODetector) Applies(tx *model.TxContext) bool {
	return tx.HasSignature(dex.DODOFlashLoanSig)
}

type dodoLeg struct {
	pool     common.Address
	accessor string
	amount   *big.Int
	assetTo  common.Address
	logIndex uint64
}

func (d *DODODetector) Detect(ctx context.Context, tx *model.TxContext) ([]model.FlashloanRecord, error) {
	events := tx.EventsBySignature(dex.DODOFlashLoanSig)
	legs := make([]dodoLeg, 0, len(events))
	var errs []error
	for _, ev := range events {
		leg, ok, err := selectDODOLeg(ev)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s log %d: %w", d.Name(), ev.LogIndex, err))
			continue
		}
		if !ok {
			continue
		}
		legs = append(legs, leg)
	}

	assets := make([]common.Address, len(legs))
	readErrs := fanOut(ctx, len(legs), d.concurrency, func(ctx context.Context, i int) error {
		addr, err := readAddress(ctx, d.reader, legs[i].pool, legs[i].accessor, tx.BlockNumber)
		if err != nil {
			return err
		}
		assets[i] = addr
		return nil
	})

	records := make([]model.FlashloanRecord, 0, len(legs))
	for i, leg := range legs {
		if readErrs[i] != nil {
			errs = append(errs, fmt.Errorf("%s log %d: %w", d.Name(), leg.logIndex, readErrs[i]))
			continue
		}
		records = append(records, model.NewFlashloanRecord(assets[i], leg.amount, leg.assetTo))
	}
	return records, errors.Join(errs...)
}

// selectDODOLeg picks the quote leg when positive, else the base leg.
// Both legs zero is a no-op and reports ok=false.
func selectDODOLeg(ev model.DecodedEvent) (dodoLeg, bool, error) {
	baseAmount, err := ev.Args.BigInt("baseAmount")
	if err != nil {
		return dodoLeg{}, false, err
	}
	quoteAmount, err := ev.Args.BigInt("quoteAmount")
	if err != nil {
		return dodoLeg{}, false, err
	}
	assetTo, err := ev.Args.Address("assetTo")
	if err != nil {
		return dodoLeg{}, false, err
	}

	leg := dodoLeg{pool: ev.Address, assetTo: assetTo, logIndex: ev.LogIndex}
	switch {
	case quoteAmount.Sign() > 0:
		leg.accessor = dex.AccessorQuoteToken
		leg.amount = quoteAmount
	case baseAmount.Sign() > 0:
		leg.accessor = dex.AccessorBaseToken
		leg.amount = baseAmount
	default:
		return dodoLeg{}, false, nil
	}
	return leg, true, nil
}
