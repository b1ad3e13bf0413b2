package remediate

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ApplyBatch runs independent write sessions concurrently, at most limit
// at a time (limit <= 0 means one per request). Sessions never contend:
// each writes its own output file with its own document handle. Results
// are returned in request order; a failed session is a Result with
// Success false, never an aborted batch.
func (e *Engine) ApplyBatch(ctx context.Context, reqs []Request, limit int) []*Result {
	results := make([]*Result, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	if limit <= 0 || limit > len(reqs) {
		limit = len(reqs)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = e.Apply(ctx, req)
			return nil
		})
	}
	g.Wait()
	return results
}
