// Package api exposes the analysis pipeline and history over HTTP. The run
// endpoint streams pipeline events as server-sent-events frames; the rest of
// the surface is plain JSON.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/callsight-ai/callsight/internal/dataset"
	"github.com/callsight-ai/callsight/internal/pipeline"
	"github.com/callsight-ai/callsight/internal/provider"
	"github.com/callsight-ai/callsight/internal/stats"
	"github.com/callsight-ai/callsight/internal/storage"
	"github.com/callsight-ai/callsight/internal/stream"
)

const maxRequestBodySize = 20 << 20 // 20MB; transcripts are bulky

// AnalyzeRequest is the run-endpoint body. Records arrive inline; loading
// files from disk is the CLI's job, not the server's.
type AnalyzeRequest struct {
	Source  string       `json:"source"`
	Save    bool         `json:"save"`
	Records []CallRecord `json:"records"`
}

// CallRecord is the wire form of one input call.
type CallRecord struct {
	ID              string  `json:"id"`
	Customer        string  `json:"customer"`
	Transcript      string  `json:"transcript"`
	CallReason      string  `json:"call_reason"`
	IssuesDiscussed string  `json:"issues_discussed"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// AnalysisSummary is the list-endpoint row: history metadata without the
// snapshot payload.
type AnalysisSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	TotalCalls int       `json:"total_calls"`
}

type AppDeps struct {
	Store      *storage.Store
	Classifier provider.Classifier
	Token      string
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/v1/analyses", handleAnalyze(deps))
		r.Get("/v1/analyses", handleListAnalyses(deps))
		r.Get("/v1/analyses/{id}", handleGetAnalysis(deps))
		r.Delete("/v1/analyses/{id}", handleDeleteAnalysis(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleAnalyze(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AnalyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Records) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "records is required and must not be empty")
			return
		}
		if _, ok := w.(http.Flusher); !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		records := make([]dataset.CallRecord, 0, len(req.Records))
		for i, rec := range req.Records {
			id := rec.ID
			if id == "" {
				id = fmt.Sprintf("row-%d", i+1)
			}
			records = append(records, dataset.CallRecord{
				ID:              id,
				Customer:        rec.Customer,
				Transcript:      rec.Transcript,
				CallReason:      rec.CallReason,
				IssuesDiscussed: rec.IssuesDiscussed,
				DurationSeconds: rec.DurationSeconds,
			})
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		sw := stream.NewWriter(w)
		orch := pipeline.New(deps.Classifier, sw)

		enriched, err := orch.Run(r.Context(), records)
		if err != nil {
			sw.Close(stream.TerminalRecord{
				Success: false,
				Error:   err.Error(),
			})
			if req.Save {
				saveAborted(deps, req.Source, len(records))
			}
			return
		}

		snap := stats.Aggregate(enriched)
		if req.Save {
			saveCompleted(deps, req.Source, snap)
		}
		sw.Close(stream.TerminalRecord{
			Success: true,
			Message: fmt.Sprintf("Analyzed %d calls", snap.TotalCalls),
			Data:    &snap,
		})
	}
}

func saveCompleted(deps AppDeps, source string, snap stats.Snapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}
	_ = deps.Store.SaveAnalysis(storage.Analysis{
		ID:           uuid.New().String(),
		CreatedAt:    time.Now().UTC(),
		Source:       source,
		Status:       storage.StatusCompleted,
		TotalCalls:   snap.TotalCalls,
		SnapshotJSON: string(payload),
	})
}

func saveAborted(deps AppDeps, source string, totalCalls int) {
	_ = deps.Store.SaveAnalysis(storage.Analysis{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Source:     source,
		Status:     storage.StatusAborted,
		TotalCalls: totalCalls,
	})
}

func handleListAnalyses(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		analyses, err := deps.Store.ListAnalyses(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list analyses: %v", err)
			return
		}

		summaries := make([]AnalysisSummary, 0, len(analyses))
		for _, a := range analyses {
			summaries = append(summaries, AnalysisSummary{
				ID:         a.ID,
				CreatedAt:  a.CreatedAt,
				Source:     a.Source,
				Status:     a.Status,
				TotalCalls: a.TotalCalls,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summaries)
	}
}

func handleGetAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		a, err := deps.Store.GetAnalysis(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get analysis: %v", err)
			return
		}

		out := map[string]any{
			"id":          a.ID,
			"created_at":  a.CreatedAt,
			"source":      a.Source,
			"status":      a.Status,
			"total_calls": a.TotalCalls,
		}
		if a.SnapshotJSON != "" {
			out["snapshot"] = json.RawMessage(a.SnapshotJSON)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}

func handleDeleteAnalysis(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		err := deps.Store.DeleteAnalysis(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "analysis not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete analysis: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
