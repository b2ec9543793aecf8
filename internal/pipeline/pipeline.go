// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one extraction job end to end: segmentation, batched
// backend calls, reconciliation, deduplication, and normalization. A job is
// a single run-to-completion pass with no state shared across jobs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Dudoxx/extractor-merger/internal/batch"
	"github.com/Dudoxx/extractor-merger/internal/merge"
	"github.com/Dudoxx/extractor-merger/internal/normalize"
	"github.com/Dudoxx/extractor-merger/internal/segment"
	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// DefaultDateFormat is the canonical date representation.
const DefaultDateFormat = "dd/mm/YYYY"

// ErrNoFields is returned when a job requests no fields.
var ErrNoFields = errors.New("pipeline: no fields requested")

// Backend is the extraction contract the pipeline consumes: given a text
// segment, the requested fields, and a system prompt, return a field map or
// fail. Retries and timeouts are the backend's concern.
type Backend interface {
	ExtractFields(ctx context.Context, text string, fields []string, systemPrompt string) (types.FieldMap, error)
}

// Run executes one extraction job over text. The only fatal conditions are
// empty input, invalid configuration, and a missing field list; every
// per-segment and dedup failure degrades gracefully, so a successful return
// always carries a total merged record. Progress and warnings go to w.
// Cancellation, if any, is the caller's timeout wrapping ctx.
func Run(ctx context.Context, text string, cfg types.JobConfig, backend Backend, dedup merge.DedupBackend, w io.Writer) (*types.JobResult, error) {
	if len(cfg.Fields) == 0 {
		return nil, ErrNoFields
	}
	applyDefaults(&cfg)

	began := time.Now()

	segments, err := segment.Split(text, cfg.Chunking)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "segmented text into %d segments (%s mode)\n", len(segments), cfg.Chunking.Method)

	results, err := batch.Run(ctx, segments, func(ctx context.Context, seg types.Segment) (types.FieldMap, error) {
		return backend.ExtractFields(ctx, seg.Text, cfg.Fields, cfg.SystemPrompt)
	}, cfg.Batch, w)
	if err != nil {
		return nil, err
	}

	merged := merge.Merge(results, cfg.Fields, cfg.Merge, w)
	dedupCalls := merge.Deduplicate(ctx, merged.Record, merged.ListFields, dedup, w)

	record := normalize.Apply(merged.Record, cfg.Fields, cfg.DateFields, cfg.DateFormat, merged.Sentinel)

	return &types.JobResult{
		Record:       record,
		Fields:       cfg.Fields,
		Segments:     len(segments),
		BackendCalls: len(segments) + dedupCalls,
		Conflicts:    merged.Conflicts,
		Elapsed:      time.Since(began),
	}, nil
}

func applyDefaults(cfg *types.JobConfig) {
	if cfg.Chunking.Method == "" {
		cfg.Chunking.Method = types.ChunkByWords
	}
	if cfg.Batch.Workers <= 0 {
		cfg.Batch.Workers = 5
	}
	if cfg.Batch.BatchSize <= 0 {
		cfg.Batch.BatchSize = 10
	}
	if cfg.DateFormat == "" {
		cfg.DateFormat = DefaultDateFormat
	}
}
