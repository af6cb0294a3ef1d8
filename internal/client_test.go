package internal

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/starford/notebase/internal/content"
	"github.com/starford/notebase/internal/query"
)

func mockConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Client.Backend = BackendMock
	cfg.Filters.Path = filepath.Join(t.TempDir(), "filters.json")
	return cfg
}

func TestNewContentClient_Mock(t *testing.T) {
	cfg := mockConfig(t)
	c, err := NewContentClient(context.Background(), cfg, NewLogger(cfg, io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*content.Memory); !ok {
		t.Fatalf("client = %T, want *content.Memory", c)
	}
	res, err := c.GetList(context.Background(), 1, 50, query.Build(query.DefaultState()))
	if err != nil {
		t.Fatal(err)
	}
	if res.TotalItems != len(content.DemoRecords()) {
		t.Errorf("total = %d, want %d", res.TotalItems, len(content.DemoRecords()))
	}
}

func TestNewContentClient_LiveLoginFails(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Client.BaseURL = "http://127.0.0.1:1"
	cfg.Client.Email = "me@example.com"
	cfg.Client.Password = "x"
	if _, err := NewContentClient(context.Background(), cfg, NewLogger(cfg, io.Discard)); err == nil {
		t.Error("unreachable server should fail the login")
	}
}

func TestOpenClient_UsesStoredFilter(t *testing.T) {
	cfg := mockConfig(t)
	ctx := context.Background()

	stack, err := OpenClient(ctx, cfg, NewLogger(cfg, io.Discard))
	if err != nil {
		t.Fatal(err)
	}
	defer stack.Close()

	state := query.FilterState{Mode: query.ModeFulltext, TypeFilter: "debt", TypeFilterEnabled: true}
	if err := stack.Filters.SetCurrent(state); err != nil {
		t.Fatal(err)
	}
	if err := stack.Activities.SetFilter(stack.Filters.Current()); err != nil {
		t.Fatal(err)
	}
	feed := stack.Activities.Load(ctx, 1)
	if feed.Err != nil || feed.Result.TotalItems != 2 {
		t.Errorf("feed = %+v", feed)
	}
}
