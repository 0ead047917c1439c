// CLAUDE:SUMMARY MCP tool surface: search, get_doc, suggest, update, status, stats over kit.RegisterMCPTool.
package caselaw

import (
	"context"
	"encoding/json"

	"github.com/hazyhaar/caselaw/kit"
	"github.com/hazyhaar/caselaw/search"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers all caselaw tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerSearch(srv)
	s.registerGetDoc(srv)
	s.registerSuggest(srv)
	s.registerUpdate(srv)
	s.registerStatus(srv)
	s.registerStats(srv)
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

func (s *Service) registerSearch(srv *mcp.Server) {
	type req struct {
		Query    string   `json:"query"`
		Language []string `json:"language"`
		Canton   []string `json:"canton"`
		Level    []string `json:"level"`
		SourceID []string `json:"source_id"`
		DateFrom string   `json:"date_from"`
		DateTo   string   `json:"date_to"`
		Docket   string   `json:"docket"`
		Page     int      `json:"page"`
		PageSize int      `json:"page_size"`
		Sort     string   `json:"sort"`
	}

	tool := &mcp.Tool{
		Name:        "caselaw_search",
		Description: "Full-text search over Swiss court decisions with filters and facets",
		InputSchema: inputSchema(map[string]any{
			"query":     map[string]any{"type": "string", "description": "FTS query; empty browses by date"},
			"language":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Language codes: de, fr, it"},
			"canton":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Canton codes, e.g. ZH, BE"},
			"level":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Court level: federal, cantonal"},
			"source_id": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Source identifiers"},
			"date_from": map[string]any{"type": "string", "description": "Earliest decision date (YYYY-MM-DD)"},
			"date_to":   map[string]any{"type": "string", "description": "Latest decision date (YYYY-MM-DD)"},
			"docket":    map[string]any{"type": "string", "description": "Docket number prefix"},
			"page":      map[string]any{"type": "integer", "description": "Page number, 1-based"},
			"page_size": map[string]any{"type": "integer", "description": "Results per page, max 100"},
			"sort":      map[string]any{"type": "string", "description": "relevance, date_desc, or date_asc"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.Search(ctx, search.Request{
			Query: p.Query,
			Filters: search.Filters{
				Language: p.Language,
				Canton:   p.Canton,
				Level:    p.Level,
				SourceID: p.SourceID,
				DateFrom: p.DateFrom,
				DateTo:   p.DateTo,
				Docket:   p.Docket,
			},
			Page:     p.Page,
			PageSize: p.PageSize,
			Sort:     p.Sort,
		})
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerGetDoc(srv *mcp.Server) {
	type req struct {
		ID string `json:"id"`
	}

	tool := &mcp.Tool{
		Name:        "caselaw_get_doc",
		Description: "Fetch one decision by id, including the full text",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Decision id"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.GetDoc(ctx, p.ID)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerSuggest(srv *mcp.Server) {
	type req struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}

	tool := &mcp.Tool{
		Name:        "caselaw_suggest",
		Description: "Typeahead suggestions for a title or docket prefix",
		InputSchema: inputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Prefix to complete"},
			"limit": map[string]any{"type": "integer", "description": "Max suggestions, default 8"},
		}, []string{"query"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		items, err := s.SuggestPrefix(ctx, p.Query, p.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"items": items}, nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &p}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerUpdate(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "caselaw_update",
		Description: "Pull the remote manifest and apply new snapshot/delta artifacts",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Update(ctx)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerStatus(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "caselaw_status",
		Description: "Report local install state: snapshot week, applied deltas, paths",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Status(), nil
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (s *Service) registerStats(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "caselaw_stats",
		Description: "Corpus statistics: document count, date range, language/canton/source breakdowns",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.Stats(ctx)
	}

	decode := func(r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &req{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
