package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached fronts a classifier with an LRU of past verdicts keyed by content
// hash. The cache is owned here and injected where needed; nothing reads it
// through package state.
type Cached struct {
	inner Classifier
	cache *lru.Cache[string, Verdict]
}

func NewCached(inner Classifier, size int) (*Cached, error) {
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, Verdict](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Classify(ctx context.Context, text string) (Verdict, error) {
	key := contentKey(text)
	if verdict, ok := c.cache.Get(key); ok {
		return verdict, nil
	}
	verdict, err := c.inner.Classify(ctx, text)
	if err != nil {
		return Verdict{}, err
	}
	c.cache.Add(key, verdict)
	return verdict, nil
}

func contentKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
