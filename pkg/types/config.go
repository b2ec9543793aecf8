// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ChunkingMethod selects the segmentation strategy.
type ChunkingMethod string

const (
	// ChunkByWords slides a fixed-size word window over the token stream.
	ChunkByWords ChunkingMethod = "words"

	// ChunkByParagraphs accumulates whole paragraphs up to the target size.
	ChunkByParagraphs ChunkingMethod = "paragraphs"
)

// ChunkingConfig holds segmenter settings. All sizes are word counts.
type ChunkingConfig struct {
	// Method selects word or paragraph segmentation (default words).
	Method ChunkingMethod `json:"method" yaml:"method"`

	// TargetSize is the target segment length (default 1000).
	TargetSize int `json:"target_size" yaml:"target_size"`

	// Overlap is the number of words shared between consecutive segments
	// (default 100).
	Overlap int `json:"overlap" yaml:"overlap"`

	// MinSize is the smallest segment emitted, except for the final segment
	// covering the tail of the text (default 200).
	MinSize int `json:"min_size" yaml:"min_size"`
}

// BatchConfig holds batch executor settings.
type BatchConfig struct {
	// Workers bounds concurrent extraction calls within a batch (default 5).
	Workers int `json:"workers" yaml:"workers"`

	// BatchSize is the number of segments per sequential batch (default 10).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// MergeConfig holds reconciler settings.
type MergeConfig struct {
	// Sentinel is the placeholder for fields not found in any segment
	// (default "unknown").
	Sentinel string `json:"sentinel" yaml:"sentinel"`

	// ListFieldKeywords flags field names as list-valued by substring match.
	// Empty means the built-in lexicon.
	ListFieldKeywords []string `json:"list_field_keywords,omitempty" yaml:"list_field_keywords,omitempty"`
}

// BackendConfig holds settings for the extraction backend client.
type BackendConfig struct {
	// BaseURL is the OpenAI-compatible API root
	// (default "https://llm-proxy.dudoxx.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey authenticates requests.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model identifier (default "dudoxx").
	Model string `json:"model" yaml:"model"`

	// Timeout is the per-request HTTP timeout (default 30s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries is the number of attempts per call (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RetryDelay is the fixed delay between attempts (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

// JobConfig groups everything one extraction job needs besides the input text.
type JobConfig struct {
	// Fields lists the field names to extract, in request order.
	Fields []string `json:"fields" yaml:"fields"`

	// Chunking configures the segmenter.
	Chunking ChunkingConfig `json:"chunking" yaml:"chunking"`

	// Batch configures the batch executor.
	Batch BatchConfig `json:"batch" yaml:"batch"`

	// Merge configures the reconciler.
	Merge MergeConfig `json:"merge" yaml:"merge"`

	// DateFields names the fields to rewrite into DateFormat. Empty means
	// fields with "date" in the name.
	DateFields []string `json:"date_fields,omitempty" yaml:"date_fields,omitempty"`

	// DateFormat is the canonical date representation (default "dd/mm/YYYY").
	DateFormat string `json:"date_format" yaml:"date_format"`

	// SystemPrompt overrides the default extraction system prompt.
	SystemPrompt string `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
}

// HistoryConfig holds settings for the job-history store.
type HistoryConfig struct {
	// HistoryDir is the directory holding the job database (default "history").
	HistoryDir string `json:"history_dir" yaml:"history_dir"`

	// MaxResults is the default page size for listings (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}
