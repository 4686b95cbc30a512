package detect

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"flashloanScope/internal/model"
	"flashloanScope/internal/protocol"
)

// Outcome is the output of one detector for one transaction.
type Outcome struct {
	Protocol string
	Records  []model.FlashloanRecord
	Err      error
}

// Result is the combined detection output for one transaction.
type Result struct {
	Records  []model.FlashloanRecord
	Outcomes []Outcome
}

// Err joins every detector error, or returns nil.
func (r Result) Err() error {
	errs := make([]error, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		if outcome.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", outcome.Protocol, outcome.Err))
		}
	}
	return errors.Join(errs...)
}

// Engine runs detectors over a transaction context.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Run executes detectors concurrently over the same context and merges their
// records in invocation order. A failing detector does not affect the others.
func (e *Engine) Run(ctx context.Context, tx *model.TxContext, detectors []protocol.Detector) Result {
	outcomes := make([]Outcome, len(detectors))

	var g errgroup.Group
	for i, d := range detectors {
		g.Go(func() error {
			records, err := d.Detect(ctx, tx)
			outcomes[i] = Outcome{Protocol: d.Name(), Records: records, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	outputs := make([][]model.FlashloanRecord, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			e.logger.Warn("detector failed",
				zap.String("tx_hash", txHash(tx)),
				zap.String("protocol", outcome.Protocol),
				zap.Int("records", len(outcome.Records)),
				zap.Error(outcome.Err),
			)
		}
		outputs = append(outputs, outcome.Records)
	}

	return Result{Records: Aggregate(outputs...), Outcomes: outcomes}
}

// Summarize converts a detection result into an output row.
func Summarize(tx *model.TxContext, result Result) model.TxFlashloans {
	row := model.TxFlashloans{
		Protocols:  make([]string, 0, len(result.Outcomes)),
		Flashloans: result.Records,
	}
	if tx != nil {
		row.ChainID = tx.ChainID
		row.BlockNumber = tx.BlockNumber
		row.TxHash = tx.TxHash.Hex()
	}
	for _, outcome := range result.Outcomes {
		row.Protocols = append(row.Protocols, outcome.Protocol)
		if outcome.Err != nil {
			row.Errors = append(row.Errors, fmt.Sprintf("%s: %v", outcome.Protocol, outcome.Err))
		}
	}
	return row
}

func txHash(tx *model.TxContext) string {
	if tx == nil {
		return ""
	}
	return tx.TxHash.Hex()
}
