// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes linkpeek's link resolution and view reconciliation tools
// for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/linkpeek/internal/apperr"
	"github.com/starford/linkpeek/internal/link"
	"github.com/starford/linkpeek/internal/linkservice"
)

// GrammarURI addresses the link grammar resource.
const GrammarURI = "linkpeek://link-grammar"

// Server wraps the MCP server with linkpeek tools.
type Server struct {
	mcp *server.MCPServer
	svc *linkservice.Service
}

// New creates a new MCP server with all linkpeek tools registered.
func New(svc *linkservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"linkpeek",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("resolve_link",
		mcp.WithDescription("Find the link under a cursor position in one line of Markdown and map it to a vault file. "+
			"Read the link grammar via get_link_grammar or the "+GrammarURI+" resource to see what counts as a link."),
		mcp.WithString("line", mcp.Required(), mcp.Description("One line of Markdown source")),
		mcp.WithNumber("cursor", mcp.Required(), mcp.Description("Cursor offset in the line, in UTF-16 code units")),
	), s.resolveLink)

	s.mcp.AddTool(mcp.NewTool("resolve_html",
		mcp.WithDescription("Extract the link target from a rendered HTML element and map it to a vault file."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML snippet containing the clicked element")),
		mcp.WithString("target", mcp.Description("CSS selector of the clicked element (default "+link.TargetSelector+")")),
	), s.resolveHTML)

	s.mcp.AddTool(mcp.NewTool("resolve_vault_path",
		mcp.WithDescription("Map a link path such as 'Note', 'folder/Note' or an alias to a vault file, with suggestions when it does not resolve."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Link path without fragment")),
	), s.resolveVaultPath)

	s.mcp.AddTool(mcp.NewTool("list_views",
		mcp.WithDescription("List the views the host currently has open."),
		mcp.WithString("kind", mcp.Description("Optional view kind filter (e.g. markdown)")),
	), s.listViews)

	s.mcp.AddTool(mcp.NewTool("plan_reconcile",
		mcp.WithDescription("Dry run: show which duplicate views would be closed, stepped back or activated if the given view became active."),
		mcp.WithString("view_id", mcp.Required(), mcp.Description("Id of the view to activate")),
	), s.planReconcile)

	s.mcp.AddTool(mcp.NewTool("get_link_grammar",
		mcp.WithDescription("Returns the link grammar and vault resolution rules linkpeek applies."),
	), s.getLinkGrammar)

	// Resource: link grammar.
	s.mcp.AddResource(
		mcp.NewResource(GrammarURI, "Link Grammar",
			mcp.WithResourceDescription("Link syntaxes linkpeek recognises and how link paths map to vault files."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGrammarResource,
	)

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

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) resolveLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	line, err := req.RequireString("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cursor, err := req.RequireInt("cursor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, ok := s.svc.Resolve(ctx, link.Input{Text: &link.TextContext{Line: line, Cursor: cursor}})
	if !ok {
		return mcp.NewToolResultText("no link at cursor"), nil
	}
	return jsonResult(res), nil
}

func (s *Server) resolveHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("html")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	node, err := link.ParseFragment(src, req.GetString("target", ""))
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultText("no link in element"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, ok := s.svc.Resolve(ctx, link.Input{Node: node})
	if !ok {
		return mcp.NewToolResultText("no link in element"), nil
	}
	return jsonResult(res), nil
}

func (s *Server) resolveVaultPath(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	file, suggestions, err := s.svc.ResolveVaultPath(path)
	if err != nil {
		msg := fmt.Sprintf("unresolved: %s", path)
		if len(suggestions) > 0 {
			msg += "\ndid you mean:\n" + strings.Join(suggestions, "\n")
		}
		return mcp.NewToolResultError(msg), nil
	}
	return mcp.NewToolResultText(file), nil
}

func (s *Server) listViews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	views, err := s.svc.ListViews(ctx, req.GetString("kind", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(views) == 0 {
		return mcp.NewToolResultText("no open views"), nil
	}
	return jsonResult(views), nil
}

func (s *Server) planReconcile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("view_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	plan, err := s.svc.PlanReconcile(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("view not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(plan), nil
}

func (s *Server) getLinkGrammar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var b strings.Builder
	b.WriteString(LinkGrammar)
	b.WriteString("\n## Reading-mode rules in effect\n\n")
	for i, name := range s.svc.RuleNames() {
		fmt.Fprintf(&b, "%d. %s\n", i+1, name)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) readGrammarResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GrammarURI,
			MIMEType: "text/markdown",
			Text:     LinkGrammar,
		},
	}, nil
}
