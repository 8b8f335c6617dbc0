package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/callsight-ai/callsight/internal/dataset"
	"github.com/callsight-ai/callsight/internal/report"
	"github.com/callsight-ai/callsight/internal/stream"
)

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Run a batch on a callsight server and follow its progress",
	Long: `Run a batch on a callsight server and follow its progress.

Loads records from a CSV or XLSX file, submits them to the running server,
and prints the event stream live until the terminal result arrives.

Examples:
  callsight watch calls.csv
  callsight watch calls.xlsx --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		save, _ := cmd.Flags().GetBool("save")
		return runWatch(args[0], save)
	},
}

func init() {
	watchCmd.Flags().Bool("save", false, "save the analysis in the server's history")
}

func runWatch(path string, save bool) error {
	records, err := dataset.Load(path)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records with transcripts in %s", path)
	}
	printStep("Submitting %d records from %s", len(records), path)

	client, err := newAPIClient()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wire := make([]map[string]any, len(records))
	for i, rec := range records {
		wire[i] = map[string]any{
			"id":               rec.ID,
			"customer":         rec.Customer,
			"transcript":       rec.Transcript,
			"call_reason":      rec.CallReason,
			"issues_discussed": rec.IssuesDiscussed,
			"duration_seconds": rec.DurationSeconds,
		}
	}

	resp, err := client.post(ctx, "/v1/analyses", map[string]any{
		"source":  filepath.Base(path),
		"save":    save,
		"records": wire,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	r := stream.NewReader(resp.Body)
	var terminal *stream.TerminalRecord
	for {
		f, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(os.Stderr, "stopped")
				return ctx.Err()
			}
			return err
		}
		if f.Event != nil {
			printEvent(f.Event.Message, f.Event.Type)
		}
		if f.Terminal != nil {
			terminal = f.Terminal
		}
	}

	if terminal == nil {
		return fmt.Errorf("stream ended without a result")
	}
	if !terminal.Success {
		return fmt.Errorf("analysis failed: %s", terminal.Error)
	}
	if terminal.Data != nil {
		fmt.Println()
		fmt.Print(report.Table(*terminal.Data))
	}
	return nil
}
