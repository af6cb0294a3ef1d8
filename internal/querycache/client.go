package querycache

import (
	"context"
	"strconv"
	"time"

	"github.com/starford/notebase/internal/content"
	"github.com/starford/notebase/internal/frontmatter"
	"github.com/starford/notebase/internal/models"
)

// Namespaces of CachedClient keys.
const (
	OpList = "items"
	OpItem = "item"
)

// ListKey is the cache key of one list page.
func ListKey(filter string, page, pageSize int) Key {
	return Key{Op: OpList, Params: strconv.Itoa(page) + "|" + strconv.Itoa(pageSize) + "|" + filter}
}

// ItemKey is the cache key of one item.
func ItemKey(id string) Key {
	return Key{Op: OpItem, Params: id}
}

// CachedClient is a content.Client that serves reads from a cache and
// invalidates it after every successful mutation, before returning.
type CachedClient struct {
	client content.Client
	lists  *Cache[models.ListResult]
	items  *Cache[models.Item]
}

// NewCachedClient wraps client.
func NewCachedClient(client content.Client, policy Policy, opts ...Option) *CachedClient {
	return &CachedClient{
		client: client,
		lists:  New[models.ListResult](policy, opts...),
		items:  New[models.Item](policy, opts...),
	}
}

// GetList returns a page, cached under ListKey.
func (c *CachedClient) GetList(ctx context.Context, page, pageSize int, filter string) (models.ListResult, error) {
	res, err := c.lists.Fetch(ctx, ListKey(filter, page, pageSize), func(ctx context.Context) (models.ListResult, error) {
		return c.client.GetList(ctx, page, pageSize, filter)
	})
	if err != nil {
		return models.ListResult{}, err
	}
	return cloneList(res), nil
}

// GetItem returns an item, cached under ItemKey.
func (c *CachedClient) GetItem(ctx context.Context, id string) (models.Item, error) {
	item, err := c.items.Fetch(ctx, ItemKey(id), func(ctx context.Context) (models.Item, error) {
		return c.client.GetItem(ctx, id)
	})
	if err != nil {
		return models.Item{}, err
	}
	return item.Clone(), nil
}

// Fresh reads id from the backend, bypassing and then refreshing the cache.
// Read-modify-write sequences start here.
func (c *CachedClient) Fresh(ctx context.Context, id string) (models.Item, error) {
	c.items.Invalidate(ItemKey(id))
	return c.GetItem(ctx, id)
}

// UpdateFrontmatter writes through and invalidates the item and every list.
func (c *CachedClient) UpdateFrontmatter(ctx context.Context, id string, data frontmatter.Frontmatter) error {
	if err := c.client.UpdateFrontmatter(ctx, id, data); err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

// UpdateContent writes through and invalidates the item and every list.
func (c *CachedClient) UpdateContent(ctx context.Context, id string, data string) error {
	if err := c.client.UpdateContent(ctx, id, data); err != nil {
		return err
	}
	c.invalidate(id)
	return nil
}

func (c *CachedClient) IsAuthenticated(ctx context.Context) bool {
	return c.client.IsAuthenticated(ctx)
}

// ClearAuth drops the session and everything cached under it.
func (c *CachedClient) ClearAuth(ctx context.Context) {
	c.client.ClearAuth(ctx)
	c.lists.InvalidatePrefix(OpList)
	c.items.InvalidatePrefix(OpItem)
}

func (c *CachedClient) Authenticate(ctx context.Context, email, password string) (content.AuthResult, error) {
	return c.client.Authenticate(ctx, email, password)
}

// Sweep evicts unused entries from both caches.
func (c *CachedClient) Sweep() int {
	return c.lists.Sweep() + c.items.Sweep()
}

// Janitor sweeps both caches until ctx is done.
func (c *CachedClient) Janitor(ctx context.Context, interval time.Duration) {
	go c.items.Janitor(ctx, interval)
	c.lists.Janitor(ctx, interval)
}

func (c *CachedClient) invalidate(id string) {
	c.items.Invalidate(ItemKey(id))
	c.lists.InvalidatePrefix(OpList)
}

func cloneList(res models.ListResult) models.ListResult {
	items := make([]models.Item, len(res.Items))
	for i, it := range res.Items {
		items[i] = it.Clone()
	}
	res.Items = items
	return res
}

var _ content.Client = (*CachedClient)(nil)
