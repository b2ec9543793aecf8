// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Dudoxx/extractor-merger/internal/jobstore"
	"github.com/Dudoxx/extractor-merger/pkg/types"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage the job history (list, show, export)",
	Long: `Jobs manages the local SQLite history of past extraction runs. Use
subcommands to list recent jobs, show one job's merged record, or export
the full history.`,
}

// --- list subcommand ---

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent extraction jobs",
	RunE:  runJobsList,
}

func runJobsList(cmd *cobra.Command, args []string) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	jobs, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}

	if len(jobs) == 0 {
		fmt.Println("No jobs found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-5s  %-30s  %-8s  %-9s  %-9s  %-8s  %s\n",
		"ID", "Input", "Fields", "Segments", "Conflicts", "Elapsed", "Created")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 95))

	for _, job := range jobs {
		input := job.Input
		if len(input) > 30 {
			input = input[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-5d  %-30s  %-8d  %-9d  %-9d  %-8s  %s\n",
			job.ID, input, len(job.Fields), job.Segments, len(job.Conflicts),
			job.Elapsed.Round(10*time.Millisecond), job.CreatedAt.Format("2006-01-02 15:04"))
	}

	fmt.Fprintf(os.Stdout, "\n%d jobs\n", len(jobs))
	return nil
}

// --- show subcommand ---

var jobsShowCmd = &cobra.Command{
	Use:   "show [job-id]",
	Short: "Show one job's merged record and conflicts",
	Args:  cobra.ExactArgs(1),
	RunE:  runJobsShow,
}

func runJobsShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid job ID %q", args[0])
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	job, err := store.Get(context.Background(), id)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	}

	fmt.Fprintf(os.Stdout, "Job %d: %s (%s)\n", job.ID, job.Input, job.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(os.Stdout, "%d segments, %d backend calls, %s\n\n", job.Segments, job.BackendCalls, job.Elapsed)

	for _, field := range job.Fields {
		value := job.Record[field]
		if value.IsList {
			fmt.Fprintf(os.Stdout, "%s:\n", field)
			for _, item := range value.List {
				fmt.Fprintf(os.Stdout, "  - %s\n", item)
			}
			continue
		}
		fmt.Fprintf(os.Stdout, "%s: %s\n", field, value.Scalar)
	}

	if len(job.Conflicts) > 0 {
		fmt.Fprintf(os.Stdout, "\n%d conflicts:\n", len(job.Conflicts))
		for _, c := range job.Conflicts {
			fmt.Fprintf(os.Stdout, "  %s: kept %q, discarded %q (segment %d)\n",
				c.Field, c.Kept, c.Discarded, c.SegmentIndex)
		}
	}
	return nil
}

// --- export subcommand ---

var jobsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the job history to YAML or JSON",
	RunE:  runJobsExport,
}

func runJobsExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	historyDir := stringSetting(cmd, "history-dir", "history_dir")

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	switch format {
	case "yaml", "":
		if err := store.ExportYAML(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.yaml\n", historyDir)
	case "json":
		if err := store.ExportJSON(context.Background()); err != nil {
			return err
		}
		fmt.Printf("Exported to %s/export.json\n", historyDir)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

func openStore(cmd *cobra.Command) (*jobstore.Store, error) {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return jobstore.NewStore(types.HistoryConfig{
		HistoryDir: stringSetting(cmd, "history-dir", "history_dir"),
		MaxResults: maxResults,
	})
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	jobsCmd.PersistentFlags().String("history-dir", "", "job history directory")
	jobsCmd.PersistentFlags().Int("max-results", 20, "default number of jobs listed")

	jobsListCmd.Flags().Int("limit", 0, "maximum jobs to list (0 = default, negative = all)")
	jobsListCmd.Flags().Bool("json", false, "output jobs as JSON")

	jobsShowCmd.Flags().Bool("json", false, "output the job as JSON")

	jobsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	// Wire subcommands.
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsExportCmd)

	rootCmd.AddCommand(jobsCmd)
}
