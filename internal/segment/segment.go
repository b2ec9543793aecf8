// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits long-form text into ordered, overlapping segments
// sized for single extraction calls. Both strategies are pure functions of
// the input text and configuration.
package segment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// ErrEmptyInput is returned when the input text contains no words.
var ErrEmptyInput = errors.New("segment: empty input text")

// ErrInvalidConfig wraps chunking configuration violations.
var ErrInvalidConfig = errors.New("segment: invalid chunking config")

// Split segments text according to cfg. Segment indices are dense from 0 and
// match submission order. The only fatal conditions at this layer are empty
// input and an invalid configuration.
func Split(text string, cfg types.ChunkingConfig) ([]types.Segment, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	switch cfg.Method {
	case types.ChunkByParagraphs:
		return byParagraphs(text, cfg), nil
	case types.ChunkByWords, "":
		return byWords(text, cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, cfg.Method)
	}
}

func validate(cfg types.ChunkingConfig) error {
	if cfg.TargetSize <= 0 {
		return fmt.Errorf("%w: target size must be positive, got %d", ErrInvalidConfig, cfg.TargetSize)
	}
	if cfg.Overlap < 0 {
		return fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidConfig, cfg.Overlap)
	}
	if cfg.Overlap >= cfg.TargetSize {
		return fmt.Errorf("%w: overlap %d must be smaller than target size %d", ErrInvalidConfig, cfg.Overlap, cfg.TargetSize)
	}
	if cfg.MinSize < 0 {
		return fmt.Errorf("%w: min size must be non-negative, got %d", ErrInvalidConfig, cfg.MinSize)
	}
	return nil
}

// byWords slides a window of TargetSize words, advancing by
// TargetSize-Overlap each step. Windows shorter than MinSize are dropped
// unless they are the final window covering the tail of the text. Text with
// fewer words than TargetSize is returned as a single segment, verbatim.
func byWords(text string, cfg types.ChunkingConfig) []types.Segment {
	words := strings.Fields(text)

	if len(words) <= cfg.TargetSize {
		return []types.Segment{{Index: 0, Text: text}}
	}

	step := cfg.TargetSize - cfg.Overlap
	var segments []types.Segment
	for start := 0; start < len(words); start += step {
		end := start + cfg.TargetSize
		if end > len(words) {
			end = len(words)
		}
		window := words[start:end]

		// Drop short windows unless this is the tail of the text.
		if len(window) < cfg.MinSize && start+cfg.TargetSize < len(words) {
			continue
		}

		segments = append(segments, types.Segment{
			Index: len(segments),
			Text:  strings.Join(window, " "),
		})
	}
	return segments
}

// byParagraphs accumulates whole paragraphs (blank-line separated) into a
// running segment, closing it once adding the next paragraph would exceed
// TargetSize words and the segment already holds at least MinSize words. The
// closed segment's trailing paragraphs, up to Overlap words, seed the next
// segment as lead-in context.
func byParagraphs(text string, cfg types.ChunkingConfig) []types.Segment {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if t := strings.TrimSpace(p); t != "" {
			paragraphs = append(paragraphs, t)
		}
	}
	if len(paragraphs) == 0 {
		return nil
	}

	var segments []types.Segment
	var current []string
	currentSize := 0
	var overlap []string

	appendSegment := func(paras []string) {
		segments = append(segments, types.Segment{
			Index: len(segments),
			Text:  strings.Join(paras, " "),
		})
	}

	for _, para := range paragraphs {
		paraSize := wordCount(para)

		// An empty accumulator never closes, so an oversized first paragraph
		// with MinSize 0 cannot emit a zero-word segment.
		if len(current) > 0 && currentSize+paraSize > cfg.TargetSize && currentSize >= cfg.MinSize {
			appendSegment(current)

			current = append([]string(nil), overlap...)
			currentSize = 0
			for _, p := range current {
				currentSize += wordCount(p)
			}
			overlap = nil
		}

		current = append(current, para)
		currentSize += paraSize

		// Track recent paragraphs as overlap, trimmed to Overlap words.
		overlap = append(overlap, para)
		overlapSize := 0
		for _, p := range overlap {
			overlapSize += wordCount(p)
		}
		for overlapSize > cfg.Overlap && len(overlap) > 1 {
			overlapSize -= wordCount(overlap[0])
			overlap = overlap[1:]
		}
	}

	if len(current) > 0 {
		appendSegment(current)
	}
	return segments
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
