// Package cache keeps the admin lead list views in Redis. Lists are stored
// under a generation number; any mutation of a lead bumps the generation, so a
// list read before the mutation can never be served after it.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	tekio "github.com/tekio-be/leads"
)

const (
	keyPrefix     = "leads:list:"
	generationKey = keyPrefix + "gen"
)

// LeadCache caches lead list results per generation and status filter.
type LeadCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, filter tekio.LeadFilter) ([]tekio.Lead, bool, error)
	Set(ctx context.Context, gen int64, filter tekio.LeadFilter, leads []tekio.Lead) error
	Invalidate(ctx context.Context) error
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

// Generation returns the current list generation, 0 before the first invalidation.
func (c *Redis) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Redis) Get(ctx context.Context, gen int64, filter tekio.LeadFilter) ([]tekio.Lead, bool, error) {
	raw, err := c.client.Get(ctx, key(gen, filter)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var leads []tekio.Lead
	if err := json.Unmarshal(raw, &leads); err != nil {
		return nil, false, err
	}
	return leads, true, nil
}

// Set stores leads under gen. A gen that has since been invalidated is
// written to a key no reader looks at and expires with the TTL.
func (c *Redis) Set(ctx context.Context, gen int64, filter tekio.LeadFilter, leads []tekio.Lead) error {
	raw, err := json.Marshal(leads)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(gen, filter), raw, c.ttl).Err()
}

// Invalidate moves every reader to a new generation.
func (c *Redis) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func key(gen int64, filter tekio.LeadFilter) string {
	status := "all"
	if filter.Status != nil {
		status = string(*filter.Status)
	}
	return keyPrefix + strconv.FormatInt(gen, 10) + ":" + status
}

// Noop is used when no Redis address is configured.
type Noop struct{}

func (Noop) Generation(context.Context) (int64, error) { return 0, nil }

func (Noop) Get(context.Context, int64, tekio.LeadFilter) ([]tekio.Lead, bool, error) {
	return nil, false, nil
}

func (Noop) Set(context.Context, int64, tekio.LeadFilter, []tekio.Lead) error { return nil }

func (Noop) Invalidate(context.Context) error { return nil }
