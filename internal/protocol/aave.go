package protocol

import (
	"context"
	"errors"
	"fmt"

	"flashloanScope/internal/dex"
	"flashloanScope/internal/model"
)

// AaveV2Detector reads lending pool FlashLoan events. The loan is attributed to the receiving target.
type AaveV2Detector struct{}

func NewAaveV2Detector() *AaveV2Detector {
	return &AaveV2Detector{}
}

func (d *AaveV2Detector) Name() string { return ProtocolAaveV2 }

func (d *AaveV2Detector) Applies(tx *model.TxContext) bool {
	return tx.HasSignature(dex.AaveV2FlashLoanSig)
}

func (d *AaveV2Detector) Detect(_ context.Context, tx *model.TxContext) ([]model.FlashloanRecord, error) {
	events := tx.EventsBySignature(dex.AaveV2FlashLoanSig)
	records := make([]model.FlashloanRecord, 0, len(events))
	var errs []error
	for _, ev := range events {
		asset, err := ev.Args.Address("asset")
		if err != nil {
			errs = append(errs, fmt.Errorf("%s log %d: %w", d.Name(), ev.LogIndex, err))
			continue
		}
		amount, err := ev.Args.BigInt("amount")
		if err != nil {
			errs = append(errs, fmt.Errorf("%s log %d: %w", d.Name(), ev.LogIndex, err))
			continue
		}
		target, err := ev.Args.Address("target")
		if err != nil {
			errs = append(errs, fmt.Errorf("%s log %d: %w", d.Name(), ev.LogIndex, err))
			continue
		}
		records = append(records, model.NewFlashloanRecord(asset, amount, target))
	}
	return records, errors.Join(errs...)
}
