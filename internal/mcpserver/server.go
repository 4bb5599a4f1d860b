// Package mcpserver exposes the expression search as an MCP tool over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/ingest"
	"github.com/shiplet/ast-search/internal/scan"
	"github.com/shiplet/ast-search/internal/search"
)

const ToolName = "search_expression"

// Tool runs scans on behalf of MCP clients. Defaults supplies the worker
// count, extension filter and excludes; the query comes from each call.
type Tool struct {
	Loader   *ingest.Loader
	Defaults scan.Options
	Logger   *slog.Logger
}

func (t *Tool) logger() *slog.Logger {
	if t.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return t.Logger
}

// Definition describes the tool's arguments.
func (t *Tool) Definition() mcp.Tool {
	kinds := make([]string, 0, len(api.ExpressionKinds()))
	for _, k := range api.ExpressionKinds() {
		kinds = append(kinds, string(k))
	}
	return mcp.NewTool(ToolName,
		mcp.WithDescription("Report whether a named function or property in JavaScript, TypeScript, Vue or ESTree JSON files contains an expression such as `this`."),
		mcp.WithString("path", mcp.Required(), mcp.Description("File or directory to search")),
		mcp.WithString("function", mcp.Description("Name of the function, method, declarator or call to search in")),
		mcp.WithString("property", mcp.Description("Name of the object property to search in")),
		mcp.WithString("expression", mcp.Description("Expression kind to look for"), mcp.Enum(kinds...)),
		mcp.WithBoolean("multiple", mcp.Description("Check every function with the name, not only the first")),
		mcp.WithBoolean("locations", mcp.Description("Identify results by file:line:column instead of file")),
		mcp.WithString("scope", mcp.Description("JSONPath selecting the subtrees to search in")),
	)
}

type failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type result struct {
	Query       string       `json:"query"`
	Files       int          `json:"files"`
	Found       bool         `json:"found"`
	Identifiers []string     `json:"identifiers"`
	Hits        []search.Hit `json:"hits"`
	Skipped     []string     `json:"skipped,omitempty"`
	Failures    []failure    `json:"failures,omitempty"`
}

// Handle serves one tool call. Usage faults and scan errors are returned as
// tool errors so the client can show them.
func (t *Tool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	expression := t.Defaults.Query.Expression
	if expression == "" {
		expression = api.ThisExpression
	}
	q := api.Query{
		Function:   req.GetString("function", ""),
		Property:   req.GetString("property", ""),
		Expression: api.ExpressionKind(req.GetString("expression", string(expression))),
		Multiple:   req.GetBool("multiple", t.Defaults.Query.Multiple),
	}

	opts := t.Defaults
	opts.Query = q
	opts.Scope = req.GetString("scope", t.Defaults.Scope)
	s := &scan.Scanner{Loader: t.Loader, Opts: opts, Logger: t.logger()}

	t.logger().Info("tool call", "tool", ToolName, "path", path, "query", q.String())
	rep, err := s.Run(ctx, []string{path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := result{
		Query:       q.String(),
		Files:       rep.Files,
		Found:       len(rep.Hits) > 0,
		Identifiers: rep.Identifiers(req.GetBool("locations", false)),
		Hits:        rep.Hits,
		Skipped:     rep.Skipped,
	}
	if out.Identifiers == nil {
		out.Identifiers = []string{}
	}
	if out.Hits == nil {
		out.Hits = []search.Hit{}
	}
	for _, f := range rep.Failures {
		out.Failures = append(out.Failures, failure{Path: f.Path, Error: f.Err.Error()})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// New builds an MCP server with the search tool registered.
func New(version string, t *Tool) *server.MCPServer {
	s := server.NewMCPServer("ast-search", version, server.WithToolCapabilities(false))
	s.AddTool(t.Definition(), t.Handle)
	return s
}

// ServeStdio serves t over stdin/stdout until the client disconnects.
func ServeStdio(version string, t *Tool) error {
	return server.ServeStdio(New(version, t))
}
