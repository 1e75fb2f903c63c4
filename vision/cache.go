package vision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachedModel remembers successful replies for identical image and prompt pairs so
// re-uploads of the same photo do not hit the model again. Errors are never cached.
type CachedModel struct {
	next  Model
	cache *cache.Cache
}

func NewCachedModel(next Model, ttl time.Duration) *CachedModel {
	return &CachedModel{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

func (m *CachedModel) Describe(ctx context.Context, req Request) (string, error) {
	key := cacheKey(req)
	if v, ok := m.cache.Get(key); ok {
		slog.Info("VISION_CACHE: Hit", "key", key[:12])
		return v.(string), nil
	}

	raw, err := m.next.Describe(ctx, req)
	if err != nil {
		return "", err
	}
	m.cache.SetDefault(key, raw)
	return raw, nil
}

// Len returns the number of cached replies, including expired ones not yet evicted.
func (m *CachedModel) Len() int {
	return m.cache.ItemCount()
}

func cacheKey(req Request) string {
	h := sha256.New()
	h.Write([]byte(PromptVersion))
	h.Write([]byte(req.SystemPrompt))
	h.Write([]byte(req.Prompt))
	h.Write([]byte(req.Image.MediaType))
	h.Write(req.Image.Data)
	return hex.EncodeToString(h.Sum(nil))
}
