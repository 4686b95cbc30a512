package protocol

import (
	"context"
	"errors"
	"fmt"

	"flashloanScope/internal/dex"
	"flashloanScope/internal/model"
)

// BalancerDetector reads vault FlashLoan events. The fee is protocol bookkeeping and is not reported.
type BalancerDetector struct{}

func NewBalancerDetector() *BalancerDetector {
	return &BalancerDetector{}
}

func (d *BalancerDetector) Name() string { return ProtocolBalancer }

func (d *BalancerDetector) Applies(tx *model.TxContext) bool {
	return tx.HasSignature(dex.BalancerFlashLoanSig)
}

func (d *BalancerDetector) Detect(_ context.Context, tx *model.TxContext) ([]model.FlashloanRecord, error) {
	events := tx.EventsBySignature(dex.BalancerFlashLoanSig)
	records := make([]model.FlashloanRecord, 0, len(events))
	var errs []error
	for _, ev := range events {
		record, err := balancerRecord(ev)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s log %d: %w", d.Name(), ev.LogIndex, err))
			continue
		}
		records = append(records, record)
	}
	return records, errors.Join(errs...)
}

func balancerRecord(ev model.DecodedEvent) (model.FlashloanRecord, error) {
	token, err := ev.Args.Address("token")
	if err != nil {
		return model.FlashloanRecord{}, err
	}
	amount, err := ev.Args.BigInt("amount")
	if err != nil {
		return model.FlashloanRecord{}, err
	}
	receiver, err := ev.Args.Address("recipient")
	if err != nil {
		return model.FlashloanRecord{}, err
	}
	return model.NewFlashloanRecord(token, amount, receiver), nil
}
