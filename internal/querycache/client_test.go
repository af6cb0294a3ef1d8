package querycache

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/content"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
)

// countingClient counts backend reads.
type countingClient struct {
	content.Client
	lists, items int
}

func (c *countingClient) GetList(ctx context.Context, page, size int, filter string) (models.ListResult, error) {
	c.lists++
	return c.Client.GetList(ctx, page, size, filter)
}

func (c *countingClient) GetItem(ctx context.Context, id string) (models.Item, error) {
	c.items++
	return c.Client.GetItem(ctx, id)
}

func newCached(t *testing.T) (*CachedClient, *countingClient, *content.Memory) {
	t.Helper()
	mem := content.NewMemory(content.WithRecords(content.DemoRecords()...))
	cc := &countingClient{Client: mem}
	return NewCachedClient(cc, DefaultPolicy()), cc, mem
}

func TestCachedClient_MutationInvalidates(t *testing.T) {
	ctx := context.Background()
	c, backend, _ := newCached(t)
	filter := "deleted = '' && frontmatter.type = 'task'"

	list, err := c.GetList(ctx, 1, 10, filter)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetList(ctx, 1, 10, filter); err != nil {
		t.Fatal(err)
	}
	if backend.lists != 1 {
		t.Fatalf("list fetched %d times, want 1", backend.lists)
	}

	target := list.Items[0]
	if target.Done() {
		t.Fatal("fixture task should be open")
	}
	fm := target.Frontmatter.Clone()
	fm.Completed = "2024-06-01T00:00:00Z"
	if err := c.UpdateFrontmatter(ctx, target.ID, fm); err != nil {
		t.Fatal(err)
	}

	list, err = c.GetList(ctx, 1, 10, filter)
	if err != nil {
		t.Fatal(err)
	}
	if backend.lists != 2 {
		t.Errorf("list not refetched after mutation")
	}
	if !list.Items[0].Done() {
		t.Error("refetched list does not reflect the mutation")
	}
}

func TestCachedClient_FailedMutationKeepsCache(t *testing.T) {
	ctx := context.Background()
	c, backend, _ := newCached(t)
	if _, err := c.GetList(ctx, 1, 10, ""); err != nil {
		t.Fatal(err)
	}
	err := c.UpdateContent(ctx, "missing", "x")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("error = %v", err)
	}
	if _, err := c.GetList(ctx, 1, 10, ""); err != nil {
		t.Fatal(err)
	}
	if backend.lists != 1 {
		t.Errorf("failed mutation invalidated the cache")
	}
}

func TestCachedClient_ReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCached(t)
	a, err := c.GetList(ctx, 1, 10, "frontmatter.type = 'groceries'")
	if err != nil {
		t.Fatal(err)
	}
	a.Items[0].Frontmatter.Checklist = append(a.Items[0].Frontmatter.Checklist, frontmatter.ChecklistItem{Name: "x"})
	b, _ := c.GetList(ctx, 1, 10, "frontmatter.type = 'groceries'")
	if len(b.Items[0].Frontmatter.Checklist) != 3 {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestCachedClient_FreshBypassesCache(t *testing.T) {
	ctx := context.Background()
	c, backend, mem := newCached(t)
	list, _ := c.GetList(ctx, 1, 1, "")
	id := list.Items[0].ID

	if _, err := c.GetItem(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := mem.UpdateContent(ctx, id, "changed elsewhere"); err != nil {
		t.Fatal(err)
	}
	cached, _ := c.GetItem(ctx, id)
	if cached.Content == "changed elsewhere" {
		t.Fatal("expected a cached read")
	}
	fresh, err := c.Fresh(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if fresh.Content != "changed elsewhere" || backend.items != 2 {
		t.Errorf("Fresh = %q after %d backend reads", fresh.Content, backend.items)
	}
}
