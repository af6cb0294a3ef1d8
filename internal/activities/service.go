// Package activities implements the item mutations of the tracker and the
// debounced, filtered activity feed.
package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/notebase/internal/apperr"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
	"github.com/starford/notebase/internal/query"
	"github.com/starford/notebase/internal/querycache"
)

// ErrWrongType is returned when an operation does not apply to the item's
// content variant.
var ErrWrongType = errors.New("operation does not apply to this item type")

// DefaultDebounce is the quiet period before a filter change reloads the feed.
const DefaultDebounce = 300 * time.Millisecond

// DefaultPageSize is the feed page size.
const DefaultPageSize = 20

// Feed is one published state of the activity list.
type Feed struct {
	State  query.FilterState
	Filter string
	Result models.ListResult
	Err    error
}

// Service performs mutations through a cached client. Every mutation reads
// the item fresh, edits a clone and writes it back; the cache is
// invalidated before the call returns.
type Service struct {
	client   *querycache.CachedClient
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	ctx      context.Context
	pageSize int
	delay    time.Duration

	debouncer *querycache.Debouncer[query.FilterState]

	mu     sync.Mutex
	state  query.FilterState
	page   int
	subs   map[int]func(Feed)
	nextID int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces the transaction id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// WithDebounce sets the filter quiet period.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.delay = d
	}
}

// WithPageSize sets the feed page size.
func WithPageSize(n int) Option {
	return func(s *Service) {
		s.pageSize = n
	}
}

// WithContext sets the context debounced reloads run under.
func WithContext(ctx context.Context) Option {
	return func(s *Service) {
		s.ctx = ctx
	}
}

// New returns a Service over client.
func New(client *querycache.CachedClient, opts ...Option) *Service {
	s := &Service{
		client:   client,
		logger:   slog.Default(),
		now:      time.Now,
		newID:    uuid.NewString,
		ctx:      context.Background(),
		pageSize: DefaultPageSize,
		delay:    DefaultDebounce,
		state:    query.DefaultState(),
		page:     1,
		subs:     make(map[int]func(Feed)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.debouncer = querycache.NewDebouncer(s.delay, func(state query.FilterState) {
		s.publish(s.load(s.ctx, state, 1))
	})
	return s
}

// Close cancels any pending feed reload.
func (s *Service) Close() {
	s.debouncer.Stop()
}

// Subscribe registers fn for feed updates and returns a function that
// unregisters it.
func (s *Service) Subscribe(fn func(Feed)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// State returns the current filter state.
func (s *Service) State() query.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetFilter records state and schedules a reload of the first page after
// the quiet period. Only the last state of a burst is loaded.
func (s *Service) SetFilter(state query.FilterState) error {
	state = state.Normalized()
	if err := state.Validate(); err != nil {
		return fmt.Errorf("activities: filter state: %w", err)
	}
	s.mu.Lock()
	s.state = state
	s.page = 1
	s.mu.Unlock()
	s.debouncer.Trigger(state)
	return nil
}

// FlushFilter loads a pending filter change immediately.
func (s *Service) FlushFilter() {
	s.debouncer.Flush()
}

// Load fetches page of the current filter now and publishes it.
func (s *Service) Load(ctx context.Context, page int) Feed {
	s.mu.Lock()
	state := s.state
	s.page = page
	s.mu.Unlock()
	feed := s.load(ctx, state, page)
	s.publish(feed)
	return feed
}

func (s *Service) load(ctx context.Context, state query.FilterState, page int) Feed {
	filter := query.Build(state)
	res, err := s.client.GetList(ctx, page, s.pageSize, filter)
	if err != nil {
		s.logger.Warn("activity feed load failed",
			slog.String("filter", filter),
			slog.String("error", err.Error()))
	}
	return Feed{State: state, Filter: filter, Result: res, Err: err}
}

func (s *Service) publish(feed Feed) {
	s.mu.Lock()
	if feed.State != s.state {
		// Superseded by a later SetFilter.
		s.mu.Unlock()
		return
	}
	subs := make([]func(Feed), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(feed)
	}
}

// mutate runs edit on a fresh clone of item id and writes the frontmatter
// back.
func (s *Service) mutate(ctx context.Context, id string, edit func(fm *frontmatter.Frontmatter) error) (models.Item, error) {
	item, err := s.client.Fresh(ctx, id)
	if err != nil {
		return models.Item{}, err
	}
	next := item.Clone()
	if err := edit(&next.Frontmatter); err != nil {
		return models.Item{}, err
	}
	if err := s.client.UpdateFrontmatter(ctx, id, next.Frontmatter); err != nil {
		return models.Item{}, err
	}
	s.logger.Debug("item updated", slog.String("id", id), slog.String("type", string(next.Frontmatter.Type)))
	return next, nil
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// Toggle flips completion: an open item gets the current time, a completed
// one is reopened.
func (s *Service) Toggle(ctx context.Context, id string) (models.Item, error) {
	return s.mutate(ctx, id, func(fm *frontmatter.Frontmatter) error {
		if fm.Done() {
			fm.Completed = ""
		} else {
			fm.Completed = s.timestamp()
		}
		return nil
	})
}

// AddTransaction appends a ledger entry to a debt.
func (s *Service) AddTransaction(ctx context.Context, id string, amount float64, comment string) (frontmatter.Transaction, error) {
	tx := frontmatter.Transaction{ID: s.newID(), Amount: amount}
	if c := strings.TrimSpace(comment); c != "" {
		tx.Comment = frontmatter.String(c)
	}
	_, err := s.mutate(ctx, id, func(fm *frontmatter.Frontmatter) error {
		if fm.Type != frontmatter.TypeDebt {
			return fmt.Errorf("%w: %s is %s", ErrWrongType, id, fm.Type)
		}
		tx.Created = s.timestamp()
		fm.Transactions = append(fm.Transactions, tx)
		return nil
	})
	if err != nil {
		return frontmatter.Transaction{}, err
	}
	return tx, nil
}

// TransactionUpdate lists the fields to change; nil fields are kept.
type TransactionUpdate struct {
	Amount  *float64
	Comment *string
	Created *string
}

// UpdateTransaction edits the transaction txID of debt id.
func (s *Service) UpdateTransaction(ctx context.Context, id, txID string, upd TransactionUpdate) (frontmatter.Transaction, error) {
	var out frontmatter.Transaction
	_, err := s.mutate(ctx, id, func(fm *frontmatter.Frontmatter) error {
		i := fm.TransactionIndex(txID)
		if i < 0 {
			return fmt.Errorf("%w: %s in %s", apperr.ErrTransactionNotFound, txID, id)
		}
		tx := &fm.Transactions[i]
		if upd.Amount != nil {
			tx.Amount = *upd.Amount
		}
		if upd.Comment != nil {
			if c := strings.TrimSpace(*upd.Comment); c != "" {
				tx.Comment = frontmatter.String(c)
			} else {
				tx.Comment = nil
			}
		}
		if upd.Created != nil {
			if _, ok := frontmatter.ParseTimestamp(*upd.Created); !ok {
				return fmt.Errorf("activities: invalid created %q", *upd.Created)
			}
			tx.Created = *upd.Created
		}
		out = *tx
		return nil
	})
	if err != nil {
		return frontmatter.Transaction{}, err
	}
	return out, nil
}

// RemoveTransaction deletes the transaction txID of debt id.
func (s *Service) RemoveTransaction(ctx context.Context, id, txID string) error {
	_, err := s.mutate(ctx, id, func(fm *frontmatter.Frontmatter) error {
		i := fm.TransactionIndex(txID)
		if i < 0 {
			return fmt.Errorf("%w: %s in %s", apperr.ErrTransactionNotFound, txID, id)
		}
		fm.Transactions = append(fm.Transactions[:i], fm.Transactions[i+1:]...)
		return nil
	})
	return err
}

// ToggleChecklistItem flips the first checklist entry named name.
func (s *Service) ToggleChecklistItem(ctx context.Context, id, name string) (models.Item, error) {
	return s.mutate(ctx, id, func(fm *frontmatter.Frontmatter) error {
		i := fm.ChecklistIndex(name)
		if i < 0 {
			return fmt.Errorf("%w: checklist entry %q in %s", apperr.ErrNotFound, name, id)
		}
		fm.Checklist[i].Done = !fm.Checklist[i].Done
		return nil
	})
}

// AddChecklistItem appends an open entry to a grocery list.
func (s *Service) AddChecklistItem(ctx context.Context, id, name string) (models.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Item{}, errors.New("activities: checklist entry name is required")
	}
	return s.mutate(ctx, id, func(fm *frontmatter.Frontmatter) error {
		if fm.Type != frontmatter.TypeGroceries {
			return fmt.Errorf("%w: %s is %s", ErrWrongType, id, fm.Type)
		}
		if fm.ChecklistIndex(name) >= 0 {
			return fmt.Errorf("%w: checklist entry %q", apperr.ErrAlreadyExists, name)
		}
		fm.Checklist = append(fm.Checklist, frontmatter.ChecklistItem{Name: name})
		return nil
	})
}

// AdvanceEpisode moves a track to its next episode.
func (s *Service) AdvanceEpisode(ctx context.Context, id string) (models.Item, error) {
	return s.mutate(ctx, id, func(fm *frontmatter.Frontmatter) error {
		if fm.Type != frontmatter.TypeTrack {
			return fmt.Errorf("%w: %s is %s", ErrWrongType, id, fm.Type)
		}
		next := 1
		if fm.Episode != nil {
			next = *fm.Episode + 1
		}
		fm.Episode = frontmatter.Int(next)
		return nil
	})
}

// EditContent replaces the body of item id.
func (s *Service) EditContent(ctx context.Context, id, body string) error {
	return s.client.UpdateContent(ctx, id, body)
}
