package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/callsight-ai/callsight/internal/config"
	"github.com/callsight-ai/callsight/internal/dataset"
	"github.com/callsight-ai/callsight/internal/pipeline"
	"github.com/callsight-ai/callsight/internal/provider"
	"github.com/callsight-ai/callsight/internal/report"
	"github.com/callsight-ai/callsight/internal/stats"
	"github.com/callsight-ai/callsight/internal/storage"
	"github.com/callsight-ai/callsight/internal/stream"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Classify a batch of call transcripts locally",
	Long: `Classify a batch of call transcripts locally.

Loads records from a CSV or XLSX file, enriches them one at a time through
the configured provider, and prints category and sentiment statistics.

Examples:
  callsight analyze calls.csv
  callsight analyze calls.xlsx --export stats.csv
  callsight analyze calls.csv --save`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		export, _ := cmd.Flags().GetString("export")
		save, _ := cmd.Flags().GetBool("save")
		return runAnalyze(args[0], export, save)
	},
}

func init() {
	analyzeCmd.Flags().String("export", "", "write category statistics to a CSV file")
	analyzeCmd.Flags().Bool("save", false, "save the analysis to local history")
}

func runAnalyze(path, export string, save bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	records, err := dataset.Load(path)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no records with transcripts in %s", path)
	}
	printStep("Loaded %d records from %s", len(records), path)

	classifier, err := provider.New(cfg.ProviderSettings())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The batch runs behind the same framed channel the server uses: the
	// producer writes pipeline events into a pipe, the consumer decodes and
	// prints them. Ctrl-C cancels the producer; the pipe drains cleanly.
	pr, pw := io.Pipe()
	sw := stream.NewWriter(pw)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer pw.Close()
		orch := pipeline.New(classifier, sw)
		enriched, err := orch.Run(gctx, records)
		if err != nil {
			sw.Close(stream.TerminalRecord{Success: false, Error: err.Error()})
			return err
		}
		snap := stats.Aggregate(enriched)
		sw.Close(stream.TerminalRecord{
			Success: true,
			Message: fmt.Sprintf("Analyzed %d calls", snap.TotalCalls),
			Data:    &snap,
		})
		return nil
	})

	var terminal *stream.TerminalRecord
	g.Go(func() error {
		r := stream.NewReader(pr)
		for {
			f, err := r.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if f.Event != nil {
				printEvent(f.Event.Message, f.Event.Type)
			}
			if f.Terminal != nil {
				terminal = f.Terminal
			}
		}
	})

	runErr := g.Wait()

	if save {
		if err := saveLocal(cfg, filepath.Base(path), len(records), terminal); err != nil {
			printWarning("could not save analysis: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if terminal == nil || !terminal.Success || terminal.Data == nil {
		return fmt.Errorf("analysis produced no result")
	}

	fmt.Println()
	fmt.Print(report.Table(*terminal.Data))

	if export != "" {
		data, err := report.CSV(*terminal.Data)
		if err != nil {
			return fmt.Errorf("rendering export: %w", err)
		}
		if err := os.WriteFile(export, data, 0o644); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		printSuccess("Statistics exported to %s", export)
	}
	return nil
}

// saveLocal persists the finished analysis into the history database.
func saveLocal(cfg config.Config, source string, totalCalls int, terminal *stream.TerminalRecord) error {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	a := storage.Analysis{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Source:     source,
		Status:     storage.StatusAborted,
		TotalCalls: totalCalls,
	}
	if terminal != nil && terminal.Success && terminal.Data != nil {
		payload, err := json.Marshal(terminal.Data)
		if err != nil {
			return err
		}
		a.Status = storage.StatusCompleted
		a.TotalCalls = terminal.Data.TotalCalls
		a.SnapshotJSON = string(payload)
	}
	if err := store.SaveAnalysis(a); err != nil {
		return err
	}
	printSuccess("Saved analysis %s", a.ID)
	return nil
}
