// Package rediscache adds a read-through Redis cache in front of the
// product repository. It is wired only when a Redis URL is configured;
// cache failures fall back to the database and are logged, never surfaced.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/karomart/backend/internal/domain/catalog"
)

const productKeyPrefix = "product:"

var _ catalog.ProductRepository = (*ProductCache)(nil)

// ProductCache decorates a product repository with per-product caching.
// Reads by id are served from Redis when fresh; every mutation invalidates
// the touched entries. List queries always hit the database, since stock
// and discount filters make them poor cache candidates.
type ProductCache struct {
	catalog.ProductRepository

	client *redis.Client
	ttl    time.Duration
}

// NewProductCache wraps next with a Redis cache using the given TTL.
func NewProductCache(next catalog.ProductRepository, client *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{ProductRepository: next, client: client, ttl: ttl}
}

// GetByID serves the product from cache when present, falling back to the
// database and repopulating on a miss.
func (c *ProductCache) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	if p, ok := c.cached(ctx, id); ok {
		return p, nil
	}

	p, err := c.ProductRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, p)
	return p, nil
}

// Create inserts the product and primes the cache.
func (c *ProductCache) Create(ctx context.Context, p *catalog.Product) error {
	if err := c.ProductRepository.Create(ctx, p); err != nil {
		return err
	}
	c.store(ctx, p)
	return nil
}

// Update rewrites the product and drops the stale cache entry.
func (c *ProductCache) Update(ctx context.Context, p *catalog.Product) error {
	if err := c.ProductRepository.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

// SetListed toggles visibility and drops the stale cache entry.
func (c *ProductCache) SetListed(ctx context.Context, id string, listed bool) error {
	if err := c.ProductRepository.SetListed(ctx, id, listed); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// SoftDelete removes the product and its cache entry.
func (c *ProductCache) SoftDelete(ctx context.Context, id string) error {
	if err := c.ProductRepository.SoftDelete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// DecrementStock passes through and invalidates, so cached stock never
// overstates availability for long.
func (c *ProductCache) DecrementStock(ctx context.Context, id string, qty int) error {
	if err := c.ProductRepository.DecrementStock(ctx, id, qty); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// ApplyOffer stamps the discount and drops every touched entry.
func (c *ProductCache) ApplyOffer(ctx context.Context, ids []string, d catalog.Discount) (int, error) {
	n, err := c.ProductRepository.ApplyOffer(ctx, ids, d)
	if err != nil {
		return n, err
	}
	c.invalidate(ctx, ids...)
	return n, nil
}

func (c *ProductCache) cached(ctx context.Context, id string) (*catalog.Product, bool) {
	raw, err := c.client.Get(ctx, productKeyPrefix+id).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zctx.From(ctx).Debug("product cache read failed", zap.String("id", id), zap.Error(err))
		}
		return nil, false
	}
	var p catalog.Product
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		zctx.From(ctx).Warn("dropping corrupt product cache entry", zap.String("id", id), zap.Error(err))
		c.invalidate(ctx, id)
		return nil, false
	}
	return &p, true
}

func (c *ProductCache) store(ctx context.Context, p *catalog.Product) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, productKeyPrefix+p.ID, raw, c.ttl).Err(); err != nil {
		zctx.From(ctx).Debug("product cache write failed", zap.String("id", p.ID), zap.Error(err))
	}
}

func (c *ProductCache) invalidate(ctx context.Context, ids ...string) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = productKeyPrefix + id
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		zctx.From(ctx).Debug("product cache invalidation failed", zap.Error(err))
	}
}
