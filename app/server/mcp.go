package server

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

const archiveSeparator = "\n\n---\n\n"

// RunMCP exposes archive search as an MCP tool over SSE, so agent hosts can
// query the same index the chat endpoint uses. Disabled unless configured.
func (s *Server) RunMCP(ctx context.Context) error {
	if !s.cfg.MCP.Enabled {
		return nil
	}

	srv := mcpserver.NewMCPServer("runcoach", "1.0.0")

	srv.AddTool(
		mcp.NewTool("search_archive",
			mcp.WithDescription("Search the ingested group chat archive for excerpts relevant to a query."),
			mcp.WithString("query",
				mcp.Required(),
				mcp.Description("Free-text query to search for."),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of excerpts to return."),
			),
		),
		s.handleArchiveSearch,
	)

	sse := mcpserver.NewSSEServer(srv)

	go func() {
		<-ctx.Done()

		if err := sse.Shutdown(context.Background()); err != nil {
			slog.Error("Failed to shut down MCP server", "error", err)
		}
	}()

	slog.Info("MCP server listening", "addr", s.cfg.MCP.Addr)

	return sse.Start(s.cfg.MCP.Addr)
}

func (s *Server) handleArchiveSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	limit := request.GetInt("limit", s.cfg.Index.TopK)

	results, err := s.conv.SearchArchive(ctx, query, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No matching excerpts found."), nil
	}

	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Entry.Text
	}

	return mcp.NewToolResultText(strings.Join(texts, archiveSeparator)), nil
}
