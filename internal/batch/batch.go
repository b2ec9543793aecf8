// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch runs the extraction backend over segments with bounded
// concurrency. Segments are processed in sequential batches; within a batch
// up to Workers calls run concurrently. Output order always matches
// submission order, which the reconciler's first-value-wins rule depends on.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// ErrInvalidConfig wraps batch configuration violations.
var ErrInvalidConfig = errors.New("batch: invalid batch config")

// ExtractFunc is the per-segment extraction call. An error marks the segment
// failed; it never aborts the batch or subsequent batches.
type ExtractFunc func(ctx context.Context, seg types.Segment) (types.FieldMap, error)

// Run executes fn over segments in batches of cfg.BatchSize with at most
// cfg.Workers concurrent calls per batch, waiting for each batch to finish
// before starting the next. The returned slice has one SegmentResult per
// input segment, in submission order; each worker writes only its own slot.
// Progress lines go to w.
func Run(ctx context.Context, segments []types.Segment, fn ExtractFunc, cfg types.BatchConfig, w io.Writer) ([]types.SegmentResult, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, cfg.Workers)
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidConfig, cfg.BatchSize)
	}

	results := make([]types.SegmentResult, len(segments))
	totalBatches := (len(segments) + cfg.BatchSize - 1) / cfg.BatchSize

	for start := 0; start < len(segments); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(segments) {
			end = len(segments)
		}
		group := segments[start:end]

		fmt.Fprintf(w, "processing batch %d/%d (%d segments)\n",
			start/cfg.BatchSize+1, totalBatches, len(group))
		began := time.Now()

		var g errgroup.Group
		g.SetLimit(cfg.Workers)
		for _, seg := range group {
			seg := seg
			g.Go(func() error {
				// Workers write only their own result slot; warnings are
				// emitted from this goroutine after the barrier so w is
				// never written concurrently.
				fields, err := fn(ctx, seg)
				if err != nil {
					results[seg.Index] = types.SegmentResult{Index: seg.Index, Err: err.Error()}
					return nil
				}
				results[seg.Index] = types.SegmentResult{Index: seg.Index, Fields: fields}
				return nil
			})
		}
		// Workers never return errors; Wait is a pure barrier between batches.
		g.Wait()

		for _, seg := range group {
			if msg := results[seg.Index].Err; msg != "" {
				fmt.Fprintf(w, "warning: segment %d failed: %s\n", seg.Index, msg)
			}
		}

		fmt.Fprintf(w, "batch processed in %.2fs\n", time.Since(began).Seconds())
	}

	return results, nil
}
