package adapter

import (
	"context"

	"github.com/dgraph-io/ristretto"
	"github.com/m-mizutani/goerr/v2"
)

// CachedNarrator memoizes narrations by title so reopening a memory does not
// call the generation service again.
type CachedNarrator struct {
	next  Narrator
	cache *ristretto.Cache
}

// NewCachedNarrator wraps next with a cache holding up to maxEntries titles.
// Every entry costs 1 regardless of the narration length.
func NewCachedNarrator(next Narrator, maxEntries int64) (*CachedNarrator, error) {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxEntries * 10,
		MaxCost:            maxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create narration cache")
	}
	return &CachedNarrator{next: next, cache: cache}, nil
}

func (c *CachedNarrator) Narrate(ctx context.Context, title string) (string, error) {
	if v, ok := c.cache.Get(title); ok {
		if text, ok := v.(string); ok {
			return text, nil
		}
	}

	text, err := c.next.Narrate(ctx, title)
	if err != nil {
		return "", err
	}

	c.cache.Set(title, text, 1)
	c.cache.Wait()
	return text, nil
}

func (c *CachedNarrator) Close() {
	c.cache.Close()
}
