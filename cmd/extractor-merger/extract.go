// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Dudoxx/extractor-merger/internal/dudoxx"
	"github.com/Dudoxx/extractor-merger/internal/jobstore"
	"github.com/Dudoxx/extractor-merger/internal/pipeline"
	"github.com/Dudoxx/extractor-merger/pkg/types"
)

// inputDir is where relative input paths are resolved.
const inputDir = "input_data"

var extractCmd = &cobra.Command{
	Use:   "extract [input-file]",
	Short: "Run a field-extraction job over a text file",
	Long: `Extract reads a text file, splits it into overlapping segments, sends
each segment to the DUDOXX backend with the requested field list, and merges
the per-segment results into one record. The record is printed to stdout
(or --output) and saved to the job history unless --no-save is given.

Relative input paths are resolved against input_data/ when the file does not
exist in the working directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputPath, err := resolveInput(args[0])
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input %s: %w", inputPath, err)
	}

	cfg, err := jobConfigFromFlags(cmd)
	if err != nil {
		return err
	}

	client, err := backendClient(cmd)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "extracting %d fields from %s\n", len(cfg.Fields), inputPath)

	result, err := pipeline.Run(context.Background(), string(data), cfg, client, client, os.Stderr)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "done: %d segments, %d backend calls, %d conflicts, %.2fs\n",
		result.Segments, result.BackendCalls, len(result.Conflicts), result.Elapsed.Seconds())

	if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
		if err := saveJob(cmd, inputPath, result); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save job history: %v\n", err)
		}
	}

	return writeRecord(cmd, result)
}

// resolveInput returns the input path as given when it exists, otherwise
// tries input_data/.
func resolveInput(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if !filepath.IsAbs(name) {
		fallback := filepath.Join(inputDir, name)
		if _, err := os.Stat(fallback); err == nil {
			return fallback, nil
		}
	}
	return "", fmt.Errorf("input file %q does not exist", name)
}

func jobConfigFromFlags(cmd *cobra.Command) (types.JobConfig, error) {
	fieldsFlag, _ := cmd.Flags().GetString("fields")
	fields := splitCSV(fieldsFlag)
	if len(fields) == 0 {
		return types.JobConfig{}, fmt.Errorf("--fields is required (comma-separated field names)")
	}

	dateFieldsFlag, _ := cmd.Flags().GetString("date-fields")
	listKeywordsFlag, _ := cmd.Flags().GetString("list-field-keywords")
	method, _ := cmd.Flags().GetString("chunk-method")
	systemPrompt, _ := cmd.Flags().GetString("system-prompt")

	return types.JobConfig{
		Fields: fields,
		Chunking: types.ChunkingConfig{
			Method:     types.ChunkingMethod(method),
			TargetSize: intSetting(cmd, "chunk-size", "chunk_size"),
			Overlap:    intSetting(cmd, "chunk-overlap", "chunk_overlap"),
			MinSize:    intSetting(cmd, "min-chunk-size", "min_chunk_size"),
		},
		Batch: types.BatchConfig{
			Workers:   intSetting(cmd, "max-workers", "max_threads"),
			BatchSize: intSetting(cmd, "batch-size", "batch_size"),
		},
		Merge: types.MergeConfig{
			Sentinel:          stringSetting(cmd, "unknown-value", "unknown_value"),
			ListFieldKeywords: splitCSV(listKeywordsFlag),
		},
		DateFields:   splitCSV(dateFieldsFlag),
		DateFormat:   stringSetting(cmd, "date-format", "date_format"),
		SystemPrompt: systemPrompt,
	}, nil
}

func backendClient(cmd *cobra.Command) (*dudoxx.Client, error) {
	apiKey := stringSetting(cmd, "api-key", "api_key")
	apiKey = loadedSecrets.Get("dudoxx-api-key", apiKey)

	return dudoxx.NewClient(types.BackendConfig{
		BaseURL:    stringSetting(cmd, "base-url", "base_url"),
		APIKey:     apiKey,
		Model:      stringSetting(cmd, "model", "model_name"),
		Timeout:    viper.GetDuration("request_timeout"),
		MaxRetries: viper.GetInt("max_retries"),
		RetryDelay: viper.GetDuration("retry_delay"),
	})
}

func saveJob(cmd *cobra.Command, inputPath string, result *types.JobResult) error {
	store, err := jobstore.NewStore(types.HistoryConfig{
		HistoryDir: stringSetting(cmd, "history-dir", "history_dir"),
	})
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Save(context.Background(), filepath.Base(inputPath), result)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved as job %d\n", id)
	return nil
}

// writeRecord renders the merged record to --output or stdout.
func writeRecord(cmd *cobra.Command, result *types.JobResult) error {
	format, _ := cmd.Flags().GetString("format")

	var rendered []byte
	switch format {
	case "json", "":
		data, err := json.MarshalIndent(result.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding record: %w", err)
		}
		rendered = append(data, '\n')
	case "text":
		rendered = []byte(renderText(result))
	default:
		return fmt.Errorf("unsupported format %q: use json or text", format)
	}

	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		if err := os.WriteFile(outPath, rendered, 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "results written to %s\n", outPath)
		return nil
	}

	_, err := os.Stdout.Write(rendered)
	return err
}

// renderText prints fields in request order, list entries indented.
func renderText(result *types.JobResult) string {
	var b strings.Builder
	for _, field := range result.Fields {
		value := result.Record[field]
		if value.IsList {
			fmt.Fprintf(&b, "%s:\n", field)
			for _, item := range value.List {
				fmt.Fprintf(&b, "  - %s\n", item)
			}
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", field, value.Scalar)
	}
	return b.String()
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// intSetting prefers an explicitly set flag over the viper value (config
// file or DUDOXX_* environment variable).
func intSetting(cmd *cobra.Command, flag, key string) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	return viper.GetInt(key)
}

func stringSetting(cmd *cobra.Command, flag, key string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if v := viper.GetString(key); v != "" {
		return v
	}
	v, _ := cmd.Flags().GetString(flag)
	return v
}

func init() {
	extractCmd.Flags().String("fields", "", "comma-separated list of fields to extract (required)")
	extractCmd.Flags().String("chunk-method", "words", "segmentation method: words or paragraphs")
	extractCmd.Flags().Int("chunk-size", 1000, "target segment size in words")
	extractCmd.Flags().Int("chunk-overlap", 100, "overlap between segments in words")
	extractCmd.Flags().Int("min-chunk-size", 200, "minimum segment size in words")
	extractCmd.Flags().Int("max-workers", 5, "concurrent extraction calls per batch")
	extractCmd.Flags().Int("batch-size", 10, "segments per sequential batch")
	extractCmd.Flags().String("unknown-value", "unknown", "placeholder for fields not found in the text")
	extractCmd.Flags().String("date-fields", "", "comma-separated date fields to normalize (default: fields with 'date' in the name)")
	extractCmd.Flags().String("list-field-keywords", "", "comma-separated name fragments flagging list-valued fields (default: built-in lexicon)")
	extractCmd.Flags().String("date-format", "dd/mm/YYYY", "canonical date format")
	extractCmd.Flags().String("system-prompt", "", "override the extraction system prompt")
	extractCmd.Flags().String("api-key", "", "DUDOXX API key (or DUDOXX_API_KEY, or .secrets/dudoxx-api-key)")
	extractCmd.Flags().String("base-url", "", "DUDOXX API base URL")
	extractCmd.Flags().String("model", "", "model identifier")
	extractCmd.Flags().String("format", "json", "output format: json or text")
	extractCmd.Flags().String("output", "", "write results to a file instead of stdout")
	extractCmd.Flags().String("history-dir", "", "job history directory")
	extractCmd.Flags().Bool("no-save", false, "do not record this job in the history")

	rootCmd.AddCommand(extractCmd)
}
