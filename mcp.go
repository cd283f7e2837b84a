package precis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/scrivano/precis/papers"
)

// RegisterMCP registers the precis tools on an MCP server. The tools share
// the service's single-flight lock with every other front end: a call that
// collides with an in-flight operation is refused, not queued.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerSearchTool(srv)
	s.registerPaperTool(srv)
	s.registerSubmitTool(srv)
	s.registerUploadTool(srv)
	s.registerUploadsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// registerTool wraps a handler into the MCP call shape: tool failures are
// reported in-band on the result, never as protocol errors.
func registerTool(srv *mcp.Server, tool *mcp.Tool, handler func(ctx context.Context, args json.RawMessage) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := handler(ctx, req.Params.Arguments)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func (s *Service) registerSearchTool(srv *mcp.Server) {
	type req struct {
		Query string `json:"query"`
		Page  int    `json:"page"`
		Sort  string `json:"sort_by"`
	}

	tool := &mcp.Tool{
		Name:        "precis_search",
		Description: "Search arXiv papers by query with pagination and sort order",
		InputSchema: inputSchema(map[string]any{
			"query":   map[string]any{"type": "string", "description": "Search query"},
			"page":    map[string]any{"type": "integer", "description": "Zero-based page index"},
			"sort_by": map[string]any{"type": "string", "description": "relevance, submitted_date or last_updated"},
		}, []string{"query"}),
	}

	registerTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var p req
		if err := json.Unmarshal(args, &p); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		return s.Search(ctx, p.Query, p.Page, papers.Sort(p.Sort))
	})
}

func (s *Service) registerPaperTool(srv *mcp.Server) {
	type req struct {
		ID string `json:"id"`
	}

	tool := &mcp.Tool{
		Name:        "precis_paper",
		Description: "Fetch a paper record, including its summary once processing finished",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Paper or upload identifier"},
		}, []string{"id"}),
	}

	registerTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var p req
		if err := json.Unmarshal(args, &p); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		return s.Paper(ctx, p.ID)
	})
}

func (s *Service) registerSubmitTool(srv *mcp.Server) {
	type req struct {
		ID string `json:"id"`
	}

	tool := &mcp.Tool{
		Name:        "precis_submit",
		Description: "Queue summarization for an existing paper; poll precis_paper for the result",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Paper identifier"},
		}, []string{"id"}),
	}

	registerTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var p req
		if err := json.Unmarshal(args, &p); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		rec, err := s.Paper(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if err := s.Submit(ctx, *rec); err != nil {
			return nil, err
		}
		return map[string]string{"status": "queued", "id": rec.ID}, nil
	})
}

func (s *Service) registerUploadTool(srv *mcp.Server) {
	type req struct {
		Path string `json:"path"`
	}

	tool := &mcp.Tool{
		Name:        "precis_upload",
		Description: "Upload a local document (pdf, md, txt, html, docx) for summarization; poll precis_paper with the returned id",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "Path to the document"},
		}, []string{"path"}),
	}

	registerTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var p req
		if err := json.Unmarshal(args, &p); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
		return s.Upload(ctx, p.Path)
	})
}

func (s *Service) registerUploadsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "precis_uploads",
		Description: "List locally recorded uploads, newest first",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	registerTool(srv, tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		return s.Uploads(ctx)
	})
}
