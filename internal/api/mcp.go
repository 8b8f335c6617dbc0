package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/callsight-ai/callsight/internal/stats"
	"github.com/callsight-ai/callsight/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store *storage.Store
}

// NewMCPServer creates an MCP server exposing the analysis history as tools
// and resources. The pipeline itself is not reachable over MCP; runs happen
// through the HTTP API or the CLI.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"callsight",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("callsight — call transcript classification history: per-category counts, sentiment distribution, and summaries of past batch analyses."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_analyses",
			mcp.WithDescription("List past batch analyses, newest first, without their full snapshots."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpListAnalyses(deps),
	)

	s.AddTool(
		mcp.NewTool("get_analysis",
			mcp.WithDescription("Fetch one analysis by ID including its full category and sentiment snapshot."),
			mcp.WithString("id", mcp.Description("Analysis ID"), mcp.Required()),
		),
		mcpGetAnalysis(deps),
	)

	s.AddTool(
		mcp.NewTool("top_categories",
			mcp.WithDescription("Return the leading call categories of one analysis with counts and sentiment breakdown."),
			mcp.WithString("id", mcp.Description("Analysis ID"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of categories (default 10)")),
		),
		mcpTopCategories(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"callsight://recent",
			"Recent Analyses",
			mcp.WithResourceDescription("Last 10 analyses (metadata only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpListAnalyses(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		analyses, err := deps.Store.ListAnalyses(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list analyses: %v", err)), nil
		}

		summaries := make([]AnalysisSummary, len(analyses))
		for i, a := range analyses {
			summaries[i] = AnalysisSummary{
				ID:         a.ID,
				CreatedAt:  a.CreatedAt,
				Source:     a.Source,
				Status:     a.Status,
				TotalCalls: a.TotalCalls,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetAnalysis(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		a, err := deps.Store.GetAnalysis(id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("analysis %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get analysis: %v", err)), nil
		}

		out := map[string]any{
			"id":          a.ID,
			"created_at":  a.CreatedAt.Format(time.RFC3339),
			"source":      a.Source,
			"status":      a.Status,
			"total_calls": a.TotalCalls,
		}
		if a.SnapshotJSON != "" {
			out["snapshot"] = json.RawMessage(a.SnapshotJSON)
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal analysis: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTopCategories(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}

		a, err := deps.Store.GetAnalysis(id)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("analysis %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get analysis: %v", err)), nil
		}
		if a.SnapshotJSON == "" {
			return mcpError(fmt.Sprintf("analysis %s has no snapshot (status %s)", id, a.Status)), nil
		}

		var snap stats.Snapshot
		if err := json.Unmarshal([]byte(a.SnapshotJSON), &snap); err != nil {
			return mcpError(fmt.Sprintf("failed to decode snapshot: %v", err)), nil
		}

		cats := snap.Categories
		if len(cats) > limit {
			cats = cats[:limit]
		}

		b, err := json.Marshal(cats)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal categories: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		analyses, err := deps.Store.ListAnalyses(10)
		if err != nil {
			return nil, fmt.Errorf("failed to list analyses: %w", err)
		}

		summaries := make([]AnalysisSummary, len(analyses))
		for i, a := range analyses {
			summaries[i] = AnalysisSummary{
				ID:         a.ID,
				CreatedAt:  a.CreatedAt,
				Source:     a.Source,
				Status:     a.Status,
				TotalCalls: a.TotalCalls,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal analyses: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
