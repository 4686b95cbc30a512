package protocol

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// fanOut runs fn for every index with at most limit in flight and waits for all of them.
// A failing task never cancels its siblings; errors are returned per index.
func fanOut(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) []error {
	errs := make([]error, n)
	if n == 0 {
		return errs
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
