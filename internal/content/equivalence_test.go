package content_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/starford/notebase/internal/api"
	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/content"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/index"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/noteservice"
	"github.com/starford/notebase/internal/query"
	"github.com/starford/notebase/internal/testutil"
)

const (
	testEmail    = "me@example.com"
	testPassword = "correct horse"
)

// Ids and timestamps are assigned by each backend independently.
var itemOpts = cmp.Options{
	cmpopts.IgnoreFields(models.Item{}, "ID", "Created", "Updated", "Hash"),
	cmpopts.EquateEmpty(),
}

// liveServer serves fixtures from a vault-backed content store and returns
// an unauthenticated live client for it.
func liveServer(t *testing.T, fixtures []models.RawRecord) *content.HTTPClient {
	t.Helper()
	// A stepping clock keeps creation order equal to fixture order.
	db := testutil.TestDB(t, index.WithClock(testutil.SteppingClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), time.Second)))
	_, store := testutil.TestVault(t)
	testutil.SeedVault(t, store, db, fixtures...)

	r := chi.NewRouter()
	r.Mount("/api", api.NewRouter(noteservice.NewService(store, db), api.NewSessions(testEmail, testPassword, time.Hour), nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := content.NewHTTPClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// literalFixtures hold text that collides with LIKE syntax and non-ASCII case.
var literalFixtures = []models.RawRecord{
	{
		Path:        "inbox/Paid.md",
		Content:     "I paid 100% of it from C:\\temp folder.\n",
		Frontmatter: map[string]any{"title": "ÄPFEL kaufen", "summary": "file_name"},
		Created:     "2024-12-01 09:00:00.000Z",
	},
	{
		Path:        "inbox/Other.md",
		Content:     "fileXname, 100 percent\n",
		Frontmatter: map[string]any{"title": "äpfel"},
		Created:     "2024-12-02 09:00:00.000Z",
	},
}

func bothClients(t *testing.T) map[string]content.Client {
	t.Helper()
	fixtures := append(content.DemoRecords(), literalFixtures...)
	live := liveServer(t, fixtures)
	mem := content.NewMemory(content.WithCredentials(testEmail, testPassword), content.WithRecords(fixtures...))

	ctx := context.Background()
	clients := map[string]content.Client{"live": live, "memory": mem}
	for name, c := range clients {
		if _, err := c.Authenticate(ctx, testEmail, testPassword); err != nil {
			t.Fatalf("%s: authenticate: %v", name, err)
		}
	}
	return clients
}

func idByPath(t *testing.T, c content.Client, path string) string {
	t.Helper()
	res, err := c.GetList(context.Background(), 1, 50, "path = "+query.Quote(path))
	if err != nil || len(res.Items) != 1 {
		t.Fatalf("lookup %s: %v (%d items)", path, err, len(res.Items))
	}
	return res.Items[0].ID
}

func TestAdapters_ListsAgree(t *testing.T) {
	clients := bothClients(t)
	ctx := context.Background()

	states := []query.FilterState{
		query.DefaultState(),
		{TypeFilter: "debt", TypeFilterEnabled: true},
		{TypeFilter: "task", TypeFilterEnabled: true, PathFilter: "TASKS/", PathFilterEnabled: true},
		{Query: "brake"},
		{Query: "alice"},
		{Mode: query.ModeQueryLang, Query: "frontmatter.season = 2 || frontmatter.currency = 'EUR'"},
		{Mode: query.ModeQueryLang, Query: "frontmatter.completed != ''"},
		{Mode: query.ModeQueryLang, Query: "frontmatter.title = null"},
		{Query: "100%"},
		{Query: "file_name"},
		{Query: `C:\temp`},
		{Query: "äpfel"},
		{Query: "KAUFEN"},
		{PathFilter: "in_box", PathFilterEnabled: true},
	}
	pages := []struct{ page, size int }{{1, 50}, {1, 3}, {3, 3}, {4, 3}}

	for _, state := range states {
		filter := query.Build(state)
		for _, p := range pages {
			mem, err := clients["memory"].GetList(ctx, p.page, p.size, filter)
			if err != nil {
				t.Fatalf("memory %q: %v", filter, err)
			}
			live, err := clients["live"].GetList(ctx, p.page, p.size, filter)
			if err != nil {
				t.Fatalf("live %q: %v", filter, err)
			}
			if diff := cmp.Diff(mem, live, itemOpts); diff != "" {
				t.Errorf("filter %q page %d/%d: adapters differ (-memory +live):\n%s", filter, p.page, p.size, diff)
			}
		}
	}
}

func TestAdapters_LiteralSearch(t *testing.T) {
	clients := bothClients(t)
	ctx := context.Background()

	cases := map[string][]string{
		"100%":      {"inbox/Paid.md"},
		"file_name": {"inbox/Paid.md"},
		`C:\temp`:   {"inbox/Paid.md"},
		"äpfel":     {"inbox/Other.md"},
		"ÄPFEL":     {"inbox/Paid.md"},
		"Äpfel":     {"inbox/Paid.md"},
	}
	for name, c := range clients {
		for q, want := range cases {
			res, err := c.GetList(ctx, 1, 50, query.Build(query.FilterState{Query: q}))
			if err != nil {
				t.Fatalf("%s %q: %v", name, q, err)
			}
			var got []string
			for _, item := range res.Items {
				got = append(got, item.Path)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s: search %q (-want +got):\n%s", name, q, diff)
			}
		}
	}
}

func TestAdapters_ItemsAgree(t *testing.T) {
	clients := bothClients(t)
	ctx := context.Background()

	for _, path := range []string{"tasks/Renew passport.md", "debts/Bob.md", "tracks/Severance.md", "groceries/Weekend.md", "inbox/Scratch.md"} {
		items := map[string]models.Item{}
		for name, c := range clients {
			item, err := c.GetItem(ctx, idByPath(t, c, path))
			if err != nil {
				t.Fatalf("%s %s: %v", name, path, err)
			}
			items[name] = item
		}
		if diff := cmp.Diff(items["memory"], items["live"], itemOpts); diff != "" {
			t.Errorf("%s differs (-memory +live):\n%s", path, diff)
		}
	}
}

func TestAdapters_MutationsAgree(t *testing.T) {
	clients := bothClients(t)
	ctx := context.Background()

	after := map[string]models.Item{}
	for name, c := range clients {
		id := idByPath(t, c, "debts/Bob.md")
		item, err := c.GetItem(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		next := item.Clone()
		next.Frontmatter.Completed = "2024-06-01T12:00:00Z"
		next.Frontmatter.Transactions = append(next.Frontmatter.Transactions, frontmatter.Transaction{
			ID: "tx-3", Amount: -24.5, Created: "2024-06-01T12:00:00Z", Comment: frontmatter.String("settled"),
		})
		if err := c.UpdateFrontmatter(ctx, id, next.Frontmatter); err != nil {
			t.Fatalf("%s: update frontmatter: %v", name, err)
		}
		if err := c.UpdateContent(ctx, id, "All square.\n"); err != nil {
			t.Fatalf("%s: update content: %v", name, err)
		}
		if after[name], err = c.GetItem(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	if diff := cmp.Diff(after["memory"], after["live"], itemOpts); diff != "" {
		t.Errorf("updated item differs (-memory +live):\n%s", diff)
	}
	if got := after["live"].Frontmatter.Balance(); got != 0 {
		t.Errorf("balance = %v, want 0", got)
	}
	if after["live"].Content != "All square.\n" {
		t.Errorf("content = %q", after["live"].Content)
	}
}

func TestAdapters_ErrorsAgree(t *testing.T) {
	clients := bothClients(t)
	ctx := context.Background()

	for name, c := range clients {
		if _, err := c.GetItem(ctx, "no-such-id"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s: missing item = %v, want ErrNotFound", name, err)
		}
		if err := c.UpdateContent(ctx, "no-such-id", "x"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("%s: update missing = %v, want ErrNotFound", name, err)
		}
		if _, err := c.GetList(ctx, 1, 10, "path = "); !errors.Is(err, apperr.ErrBackend) {
			t.Errorf("%s: malformed filter = %v, want ErrBackend", name, err)
		}
		if _, err := c.GetList(ctx, 0, 10, ""); !errors.Is(err, apperr.ErrBackend) {
			t.Errorf("%s: page 0 = %v, want ErrBackend", name, err)
		}

		c.ClearAuth(ctx)
		if c.IsAuthenticated(ctx) {
			t.Errorf("%s: still authenticated after ClearAuth", name)
		}
		if _, err := c.GetList(ctx, 1, 10, ""); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("%s: anonymous list = %v, want ErrUnauthorized", name, err)
		}
		if _, err := c.Authenticate(ctx, testEmail, "wrong"); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Errorf("%s: bad password = %v, want ErrUnauthorized", name, err)
		}
	}
}
