package protocol

import (
	"fmt"
	"strings"

	"flashloanScope/internal/model"
)

// Options configures the default registry.
type Options struct {
	Concurrency int
	TieBreak    SwapTieBreak
}

// Registry maps protocol identifiers to detectors in registration order.
type Registry struct {
	order     []string
	detectors map[string]Detector
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// DefaultRegistry registers every supported protocol.
func DefaultRegistry(reader ChainReader, opts Options) *Registry {
	r := NewRegistry()
	r.Register(NewAaveV2Detector())
	r.Register(NewBalancerDetector())
	r.Register(NewDODODetector(reader, opts.Concurrency))
	r.Register(NewUniswapV3Detector(reader, UniswapV3Options{
		TieBreak:    opts.TieBreak,
		Concurrency: opts.Concurrency,
	}))
	return r
}

// Register adds or replaces a detector under its name.
func (r *Registry) Register(d Detector) {
	name := d.Name()
	if _, ok := r.detectors[name]; !ok {
		r.order = append(r.order, name)
	}
	r.detectors[name] = d
}

// Names returns the registered protocol identifiers.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Select returns the detectors for names in the given order.
func (r *Registry) Select(names []string) ([]Detector, error) {
	out := make([]Detector, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		d, ok := r.detectors[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, name)
		}
		out = append(out, d)
	}
	return out, nil
}

// Touched returns, in registration order, the detectors whose protocol appears in tx.
func (r *Registry) Touched(tx *model.TxContext) []Detector {
	out := make([]Detector, 0)
	for _, name := range r.order {
		d := r.detectors[name]
		if d.Applies(tx) {
			out = append(out, d)
		}
	}
	return out
}
