// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the graph analysis tools for LLM integration via stdio
// transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/cluster"
	"github.com/starford/ansuz/internal/graph"
	"github.com/starford/ansuz/internal/graphservice"
)

// Server wraps the MCP server with graph tools.
type Server struct {
	mcp *server.MCPServer
	svc *graphservice.Service
}

// New creates a new MCP server with all graph tools registered.
func New(svc *graphservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_graph_stats",
		mcp.WithDescription("Analyze the vault's wikilink graph: forward links, backlinks, dangling links, and orphan notes."),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory (empty for the whole vault)")),
	), s.getGraphStats)

	s.mcp.AddTool(mcp.NewTool("get_quick_stats",
		mcp.WithDescription("Numeric-only graph summary: note, connection, mention, dangling, and orphan counts."),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory")),
	), s.getQuickStats)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all notes that link to the given title or filename, with surrounding context."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title or filename to find backlinks for")),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("get_dangling_links",
		mcp.WithDescription("List wikilink targets that resolve to no existing note, with the notes referencing them."),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory")),
	), s.getDanglingLinks)

	s.mcp.AddTool(mcp.NewTool("get_orphan_notes",
		mcp.WithDescription("List notes with neither incoming nor outgoing wikilinks."),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory")),
	), s.getOrphanNotes)

	s.mcp.AddTool(mcp.NewTool("cluster_dangling_links",
		mcp.WithDescription("Group similar dangling link targets into clusters, each with a representative spelling. "+
			"Useful for finding typo variants of the same intended note."),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory")),
		mcp.WithNumber("threshold", mcp.Description("Similarity threshold between 0 and 1 (default 0.7)")),
		mcp.WithNumber("min_size", mcp.Description("Minimum cluster size (default 2)")),
	), s.clusterDanglingLinks)

	s.mcp.AddTool(mcp.NewTool("find_similar_links",
		mcp.WithDescription("Score dangling link targets against one query string and return the close matches."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Query target to match against")),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory")),
		mcp.WithNumber("threshold", mcp.Description("Similarity threshold between 0 and 1 (default 0.7)")),
	), s.findSimilarLinks)

	s.mcp.AddTool(mcp.NewTool("rank_notes",
		mcp.WithDescription("Score note importance with PageRank over the wikilink graph."),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory")),
	), s.rankNotes)

	s.mcp.AddTool(mcp.NewTool("refresh_graph",
		mcp.WithDescription("Discard the cached graph analysis so the next query re-reads the vault."),
		mcp.WithString("dir", mcp.Description("Optional vault subdirectory")),
	), s.refreshGraph)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func dirArg(req mcp.CallToolRequest) string {
	if d, err := req.RequireString("dir"); err == nil {
		return d
	}
	return ""
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getGraphStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Stats(ctx, dirArg(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(st), nil
}

func (s *Server) getQuickStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	qs, err := s.svc.Quick(ctx, dirArg(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(qs), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.Backlinks(ctx, dirArg(req), title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(entries) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return jsonResult(entries), nil
}

func (s *Server) getDanglingLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	links, err := s.svc.Dangling(ctx, dirArg(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(links) == 0 {
		return mcp.NewToolResultText("no dangling links"), nil
	}
	return jsonResult(links), nil
}

func (s *Server) getOrphanNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	orphans, err := s.svc.Orphans(ctx, dirArg(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(orphans) == 0 {
		return mcp.NewToolResultText("no orphan notes"), nil
	}
	return mcp.NewToolResultText(strings.Join(orphans, "\n")), nil
}

func (s *Server) clusterDanglingLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var opts cluster.Options
	if v, err := req.RequireFloat("threshold"); err == nil {
		opts.Threshold = v
	}
	if v, err := req.RequireFloat("min_size"); err == nil {
		opts.MinClusterSize = int(v)
	}

	clusters, err := s.svc.Clusters(ctx, dirArg(req), opts)
	if err != nil {
		if errors.Is(err, apperr.ErrTooManyTargets) {
			return mcp.NewToolResultError("too many dangling targets to cluster"), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(clusters) == 0 {
		return mcp.NewToolResultText("no clusters found"), nil
	}
	return jsonResult(clusters), nil
}

func (s *Server) findSimilarLinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	threshold := 0.0
	if v, fErr := req.RequireFloat("threshold"); fErr == nil {
		threshold = v
	}

	matches, err := s.svc.SimilarDangling(ctx, dirArg(req), target, threshold)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no dangling links similar to %q", target)), nil
	}
	return jsonResult(matches), nil
}

func (s *Server) rankNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.PageRank(ctx, dirArg(req), graph.PageRankOptions{})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) refreshGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir := dirArg(req)
	s.svc.Refresh(ctx, dir)
	return mcp.NewToolResultText("graph cache refreshed"), nil
}
