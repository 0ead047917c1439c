// CLAUDE:SUMMARY MCP round-trip tests over in-memory transports: search, get_doc, stats.
package caselaw

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "caselaw-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	svc := newTestService(t)
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Search(t *testing.T) {
	session := mcpSession(t)

	text := mcpCallTool(t, session, "caselaw_search", map[string]any{
		"query":    "Datenschutz",
		"language": []string{"de"},
	})

	var resp struct {
		Total   int `json:"total"`
		Results []struct {
			ID string `json:"id"`
		} `json:"results"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 || len(resp.Results) != 1 {
		t.Fatalf("total = %d, results = %d, want 1/1", resp.Total, len(resp.Results))
	}
	if resp.Results[0].ID != "zh-1" {
		t.Errorf("id = %q", resp.Results[0].ID)
	}
}

func TestMCP_SearchInvalidSyntax(t *testing.T) {
	session := mcpSession(t)

	text := mcpCallTool(t, session, "caselaw_search", map[string]any{
		"query": `"unbalanced`,
	})

	var resp struct {
		Error   bool   `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.Error || resp.Message == "" {
		t.Errorf("expected structured error, got %s", text)
	}
}

func TestMCP_GetDoc(t *testing.T) {
	session := mcpSession(t)

	text := mcpCallTool(t, session, "caselaw_get_doc", map[string]any{"id": "bger-1"})

	var doc struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.ID != "bger-1" || !strings.Contains(doc.Title, "Protection") {
		t.Errorf("doc = %+v", doc)
	}
}

func TestMCP_Stats(t *testing.T) {
	session := mcpSession(t)

	text := mcpCallTool(t, session, "caselaw_stats", map[string]any{})

	var resp struct {
		Store struct {
			Count int64 `json:"count"`
		} `json:"store"`
		ByLanguage map[string]int64 `json:"by_language"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Store.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Store.Count)
	}
	if resp.ByLanguage["de"] != 1 {
		t.Errorf("by_language = %v", resp.ByLanguage)
	}
}
