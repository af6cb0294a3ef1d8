package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/notebase/internal/activities"
	"github.com/starford/notebase/internal/content"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/querycache"
)

func testServer(t *testing.T) (*Server, []models.RawRecord) {
	t.Helper()
	mem := content.NewMemory()
	var seeded []models.RawRecord
	for _, r := range content.DemoRecords() {
		seeded = append(seeded, mem.Insert(r))
	}
	client := querycache.NewCachedClient(mem, querycache.DefaultPolicy())
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	acts := activities.New(client,
		activities.WithClock(func() time.Time { return now }),
		activities.WithIDGenerator(func() string { return "tx-new" }))
	t.Cleanup(acts.Close)
	return New(client, acts), seeded
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper, so dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_items":
		result, err = srv.listItems(ctx, req)
	case "get_item":
		result, err = srv.getItem(ctx, req)
	case "toggle_item":
		result, err = srv.toggleItem(ctx, req)
	case "add_transaction":
		result, err = srv.addTransaction(ctx, req)
	case "toggle_checklist_item":
		result, err = srv.toggleChecklistItem(ctx, req)
	case "advance_episode":
		result, err = srv.advanceEpisode(ctx, req)
	case "get_filter_language":
		result, err = srv.getFilterLanguage(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode[T any](t *testing.T, r *mcp.CallToolResult) T {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool error: %s", resultText(r))
	}
	var v T
	if err := json.Unmarshal([]byte(resultText(r)), &v); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	return v
}

func TestListItems_TypeFilter(t *testing.T) {
	srv, _ := testServer(t)

	out := decode[listResponse](t, callTool(t, srv, "list_items", map[string]any{"type": "debt"}))
	if out.TotalItems != 2 {
		t.Fatalf("debts = %d, want 2", out.TotalItems)
	}
	if out.Items[0].Title != "Bob" || out.Items[1].Title != "Alice owes me for the train" {
		t.Errorf("items = %+v", out.Items)
	}
	if !strings.Contains(out.Filter, "frontmatter.type = 'debt'") {
		t.Errorf("filter = %q", out.Filter)
	}
}

func TestListItems_PagingAndQuery(t *testing.T) {
	srv, _ := testServer(t)

	out := decode[listResponse](t, callTool(t, srv, "list_items", map[string]any{"page": 2, "per_page": 3}))
	if out.Page != 2 || out.TotalPages != 3 || len(out.Items) != 3 {
		t.Errorf("page 2 = %+v", out)
	}

	out = decode[listResponse](t, callTool(t, srv, "list_items", map[string]any{"query": "BRAKE"}))
	if out.TotalItems != 1 || out.Items[0].Title != "Fix bike" {
		t.Errorf("fulltext = %+v", out.Items)
	}
}

func TestListItems_BadQueryLang(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_items", map[string]any{"mode": "querylang", "query": "path = "})
	if !r.IsError {
		t.Error("expected error for malformed filter")
	}
	r = callTool(t, srv, "list_items", map[string]any{"mode": "regex"})
	if !r.IsError {
		t.Error("expected error for unknown mode")
	}
}

func TestGetItem(t *testing.T) {
	srv, seeded := testServer(t)

	item := decode[models.Item](t, callTool(t, srv, "get_item", map[string]any{"id": seeded[4].ID}))
	if item.Frontmatter.Type != frontmatter.TypeTrack || *item.Frontmatter.Episode != 4 {
		t.Errorf("item = %+v", item.Frontmatter)
	}

	r := callTool(t, srv, "get_item", map[string]any{"id": "nope"})
	if !r.IsError || !strings.Contains(resultText(r), "nope") {
		t.Errorf("missing item = %q", resultText(r))
	}
}

func TestToggleItem(t *testing.T) {
	srv, seeded := testServer(t)

	d := decode[models.Display](t, callTool(t, srv, "toggle_item", map[string]any{"id": seeded[0].ID}))
	if !d.Done || d.Completed != "2024-06-01T12:00:00Z" {
		t.Errorf("toggled = %+v", d)
	}
	d = decode[models.Display](t, callTool(t, srv, "toggle_item", map[string]any{"id": seeded[0].ID}))
	if d.Done {
		t.Error("second toggle should reopen")
	}
}

func TestAddTransaction(t *testing.T) {
	srv, seeded := testServer(t)

	tx := decode[frontmatter.Transaction](t, callTool(t, srv, "add_transaction",
		map[string]any{"id": seeded[2].ID, "amount": 12.5, "comment": "cinema"}))
	if tx.ID != "tx-new" || tx.Amount != 12.5 || tx.Comment == nil || *tx.Comment != "cinema" {
		t.Errorf("transaction = %+v", tx)
	}

	r := callTool(t, srv, "add_transaction", map[string]any{"id": seeded[0].ID, "amount": 1.0})
	if !r.IsError {
		t.Error("adding a transaction to a task should fail")
	}
	r = callTool(t, srv, "add_transaction", map[string]any{"id": seeded[2].ID})
	if !r.IsError {
		t.Error("amount is required")
	}
}

func TestChecklistAndEpisode(t *testing.T) {
	srv, seeded := testServer(t)

	list := decode[[]frontmatter.ChecklistItem](t, callTool(t, srv, "toggle_checklist_item",
		map[string]any{"id": seeded[5].ID, "name": "eggs"}))
	if len(list) != 3 || !list[1].Done {
		t.Errorf("checklist = %+v", list)
	}

	r := callTool(t, srv, "advance_episode", map[string]any{"id": seeded[4].ID})
	if got := resultText(r); got != "Severance: episode 5" {
		t.Errorf("advance = %q", got)
	}
}

func TestFilterLanguage(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_filter_language", nil)
	if !strings.Contains(resultText(r), "frontmatter.<key>") {
		t.Error("filter language text missing field reference")
	}
	contents, err := srv.readFilterLanguageResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
