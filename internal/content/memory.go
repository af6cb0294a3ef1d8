package content

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/checksum"
	"github.com/starford/notebase/internal/filterexpr"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/parser"
)

// Memory is an in-process Client over a fixed record set. It evaluates
// filters, orders results and soft-deletes exactly like the content store.
type Memory struct {
	mu      sync.Mutex
	records []*models.RawRecord
	byID    map[string]*models.RawRecord
	seq     int

	now      func() time.Time
	logger   *slog.Logger
	email    string
	password string
	ttl      time.Duration

	token   string
	expires time.Time
}

// MemoryOption configures a Memory client.
type MemoryOption func(*Memory)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

// WithCredentials makes the client require authentication with the given
// credentials. Without it every login succeeds and no call needs a session.
func WithCredentials(email, password string) MemoryOption {
	return func(m *Memory) {
		m.email = email
		m.password = password
	}
}

// WithMemoryLogger sets the logger used for degraded records.
func WithMemoryLogger(l *slog.Logger) MemoryOption {
	return func(m *Memory) {
		m.logger = l
	}
}

// WithRecords seeds the client.
func WithRecords(records ...models.RawRecord) MemoryOption {
	return func(m *Memory) {
		for _, r := range records {
			m.insert(r)
		}
	}
}

// NewMemory returns an in-memory client.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		byID:   make(map[string]*models.RawRecord),
		now:    time.Now,
		logger: slog.Default(),
		ttl:    24 * time.Hour,
	}
	// Options run in order, so a clock passed before WithRecords stamps the seeds.
	for _, opt := range opts {
		opt(m)
	}
	if m.email == "" {
		m.token = "memory"
	}
	return m
}

// Insert adds a record and returns its stored form. Missing id, slug,
// timestamps and hash are filled in.
func (m *Memory) Insert(r models.RawRecord) models.RawRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneRaw(m.insert(r))
}

// Delete soft-deletes record id.
func (m *Memory) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || r.Deleted != "" {
		return fmt.Errorf("%w: record %s", apperr.ErrNotFound, id)
	}
	ts := m.timestamp()
	r.Deleted = ts
	r.Updated = ts
	return nil
}

func (m *Memory) insert(r models.RawRecord) *models.RawRecord {
	m.seq++
	if r.ID == "" {
		r.ID = fmt.Sprintf("rec%012d", m.seq)
	}
	if r.Slug == "" {
		r.Slug = parser.Slug(r.Path)
	}
	if r.Created == "" {
		r.Created = m.timestamp()
	}
	if r.Updated == "" {
		r.Updated = r.Created
	}
	r.Frontmatter = canonical(r.Frontmatter)
	if r.Hash == "" {
		r.Hash = recordHash(r.Frontmatter, r.Content)
	}
	rec := &r
	if old, ok := m.byID[r.ID]; ok {
		*old = r
		return old
	}
	m.records = append(m.records, rec)
	m.byID[r.ID] = rec
	return rec
}

// IsAuthenticated reports whether a session is held.
func (m *Memory) IsAuthenticated(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authed()
}

// ClearAuth drops the session.
func (m *Memory) ClearAuth(_ context.Context) {
	m.mu.Lock()
	m.token = ""
	m.expires = time.Time{}
	m.mu.Unlock()
}

// Authenticate checks credentials and opens a session.
func (m *Memory) Authenticate(ctx context.Context, email, password string) (AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return AuthResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.email != "" && (email != m.email || password != m.password) {
		return AuthResult{}, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthorized)
	}
	var b [16]byte
	_, _ = rand.Read(b[:])
	m.token = hex.EncodeToString(b[:])
	m.expires = m.now().Add(m.ttl).UTC().Truncate(time.Second)
	return AuthResult{Token: m.token, Email: email, Expires: m.expires}, nil
}

// GetList returns one page of records matching filter, ordered by
// (created, id).
func (m *Memory) GetList(ctx context.Context, page, pageSize int, filter string) (models.ListResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ListResult{}, err
	}
	if err := checkPage(page, pageSize); err != nil {
		return models.ListResult{}, err
	}
	expr, err := filterexpr.Parse(filter)
	if err != nil {
		return models.ListResult{}, apperr.Backend(http.StatusBadRequest, "invalid filter", err)
	}

	m.mu.Lock()
	if err := m.requireAuth(); err != nil {
		m.mu.Unlock()
		return models.ListResult{}, err
	}
	var matched []models.RawRecord
	for _, r := range m.records {
		if filterexpr.Match(expr, resolver(r)) {
			matched = append(matched, cloneRaw(r))
		}
	}
	m.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Created != matched[j].Created {
			return matched[i].Created < matched[j].Created
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start, end := models.PageBounds(page, pageSize, total)
	raw := models.RawListResult{
		Items:      matched[start:end],
		Page:       page,
		PerPage:    pageSize,
		TotalItems: total,
		TotalPages: models.TotalPages(total, pageSize),
	}
	if raw.Items == nil {
		raw.Items = []models.RawRecord{}
	}
	return models.ToListResult(raw, m.report), nil
}

// GetItem returns the record with id.
func (m *Memory) GetItem(ctx context.Context, id string) (models.Item, error) {
	if err := ctx.Err(); err != nil {
		return models.Item{}, err
	}
	m.mu.Lock()
	r, err := m.lookup(id)
	var raw models.RawRecord
	if err == nil {
		raw = cloneRaw(r)
	}
	m.mu.Unlock()
	if err != nil {
		return models.Item{}, err
	}
	item, report := models.ToItemReport(raw)
	if report != nil {
		m.report(raw, report)
	}
	return item, nil
}

// UpdateFrontmatter replaces the frontmatter of record id.
func (m *Memory) UpdateFrontmatter(ctx context.Context, id string, data frontmatter.Frontmatter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fm := canonical(data.ToMap())
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.lookup(id)
	if err != nil {
		return err
	}
	r.Frontmatter = fm
	r.Hash = recordHash(fm, r.Content)
	r.Updated = m.timestamp()
	return nil
}

// UpdateContent replaces the body of record id.
func (m *Memory) UpdateContent(ctx context.Context, id string, data string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.lookup(id)
	if err != nil {
		return err
	}
	r.Content = data
	r.Hash = recordHash(r.Frontmatter, data)
	r.Updated = m.timestamp()
	return nil
}

func (m *Memory) lookup(id string) (*models.RawRecord, error) {
	if err := m.requireAuth(); err != nil {
		return nil, err
	}
	r, ok := m.byID[id]
	if !ok || r.Deleted != "" {
		return nil, fmt.Errorf("%w: record %s", apperr.ErrNotFound, id)
	}
	return r, nil
}

func (m *Memory) authed() bool {
	if m.token == "" {
		return false
	}
	return m.expires.IsZero() || m.now().Before(m.expires)
}

func (m *Memory) requireAuth() error {
	if m.email == "" || m.authed() {
		return nil
	}
	return fmt.Errorf("%w: session required", apperr.ErrUnauthorized)
}

func (m *Memory) timestamp() string {
	return m.now().UTC().Format(models.TimeLayout)
}

func (m *Memory) report(raw models.RawRecord, report *frontmatter.DegradedError) {
	m.logger.Debug("record frontmatter degraded",
		slog.String("id", raw.ID),
		slog.String("path", raw.Path),
		slog.String("error", report.Error()))
}

var _ Client = (*Memory)(nil)

func resolver(r *models.RawRecord) filterexpr.Resolver {
	fm, _ := r.Frontmatter.(map[string]any)
	return filterexpr.MapResolver(map[string]string{
		"id":      r.ID,
		"path":    r.Path,
		"slug":    r.Slug,
		"content": r.Content,
		"created": r.Created,
		"updated": r.Updated,
		"deleted": r.Deleted,
		"hash":    r.Hash,
	}, fm)
}

// canonical returns v as it reads back after a JSON round trip, which is
// how the content store keeps frontmatter.
func canonical(v any) any {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func cloneRaw(r *models.RawRecord) models.RawRecord {
	out := *r
	out.Frontmatter = canonical(r.Frontmatter)
	return out
}

// recordHash fingerprints a record the way the content store does: the
// digest of the file it would write.
func recordHash(fm any, body string) string {
	m, _ := fm.(map[string]any)
	data, err := parser.Compose(m, body)
	if err != nil {
		data = []byte(body)
	}
	return checksum.Sum(data)
}
