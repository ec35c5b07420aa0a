package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCP tool names.
const (
	ToolList   = "snippet_list"
	ToolSearch = "snippet_search"
	ToolRender = "snippet_render"
)

// RegisterMCP registers the snippet tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerListTool(srv)
	p.registerSearchTool(srv)
	p.registerRenderTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (p *Pipeline) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolList,
		Description: "List every example snippet with its language and tags.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	srv.AddTool(tool, func(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		hits, err := p.Search("", p.store.Len())
		if err != nil {
			return toolError(ToolList, err), nil
		}
		return jsonResult(ToolList, hits), nil
	})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (p *Pipeline) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolSearch,
		Description: "Search example snippets by keyword. Returns ranked matches.",
		InputSchema: inputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Keywords"},
			"limit": map[string]any{"type": "integer", "description": "Max results (default 10)"},
		}, []string{"query"}),
	}
	srv.AddTool(tool, func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r searchRequest
		if err := decodeArgs(req, &r); err != nil {
			return toolError(ToolSearch, err), nil
		}
		hits, err := p.Search(r.Query, r.Limit)
		if err != nil {
			return toolError(ToolSearch, err), nil
		}
		return jsonResult(ToolSearch, hits), nil
	})
}

type renderRequest struct {
	ID      string `json:"id"`
	Execute bool   `json:"execute,omitempty"`
}

func (p *Pipeline) registerRenderTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        ToolRender,
		Description: "Render a snippet with its highlighted lines, optionally running it to attach program output.",
		InputSchema: inputSchema(map[string]any{
			"id":      map[string]any{"type": "string", "description": "Snippet ID"},
			"execute": map[string]any{"type": "boolean", "description": "Run the snippet in the sandbox"},
		}, []string{"id"}),
	}
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r renderRequest
		if err := decodeArgs(req, &r); err != nil {
			return toolError(ToolRender, err), nil
		}
		rendered, err := p.Render(ctx, r.ID, Options{Execute: r.Execute})
		if err != nil {
			return toolError(ToolRender, err), nil
		}
		return jsonResult(ToolRender, rendered), nil
	})
}

func decodeArgs(req *mcp.CallToolRequest, v any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func jsonResult(tool string, v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(tool, err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

func toolError(tool string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: %v", tool, err)}},
	}
}
