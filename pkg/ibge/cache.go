package ibge

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sells-group/locality/internal/cache"
)

// CachingClient wraps a Client with read-through caching. Identification
// lands in the basic-info namespace; each statistic kind has its own
// namespace with a TTL matched to how often IBGE republishes it.
type CachingClient struct {
	inner Client
	store cache.Store
}

// NewCaching wraps inner with the given cache store.
func NewCaching(inner Client, store cache.Store) *CachingClient {
	return &CachingClient{inner: inner, store: store}
}

// Name implements Client.
func (c *CachingClient) Name() string { return c.inner.Name() }

// Available implements Client.
func (c *CachingClient) Available() bool { return c.inner.Available() }

// Municipality implements Client.
func (c *CachingClient) Municipality(ctx context.Context, id string) (*Municipality, error) {
	if payload, ok := c.store.Get(ctx, cache.NamespaceBasicInfo, id, ""); ok {
		var cached Municipality
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		zap.L().Warn("ibge: corrupt cached municipality, refetching", zap.String("id", id))
	}

	m, err := c.inner.Municipality(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(m); err == nil {
		c.store.Set(ctx, cache.NamespaceBasicInfo, id, "", payload, 0)
	}
	return m, nil
}

// namespaceForKind maps a statistic kind to its cache namespace.
func namespaceForKind(kind StatisticKind) string {
	switch kind {
	case StatPopulation:
		return cache.NamespacePopulation
	case StatArea:
		return cache.NamespaceArea
	case StatDensity:
		return cache.NamespaceDensity
	default:
		return string(kind)
	}
}

// Statistic implements Client.
func (c *CachingClient) Statistic(ctx context.Context, id string, kind StatisticKind) (*Fact, error) {
	ns := namespaceForKind(kind)

	if payload, ok := c.store.Get(ctx, ns, id, ""); ok {
		var cached Fact
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
		zap.L().Warn("ibge: corrupt cached statistic, refetching",
			zap.String("id", id), zap.String("kind", string(kind)))
	}

	f, err := c.inner.Statistic(ctx, id, kind)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(f); err == nil {
		c.store.Set(ctx, ns, id, "", payload, 0)
	}
	return f, nil
}

// Municipalities implements Client. The full list is cached as one entry
// under the basic-info namespace.
func (c *CachingClient) Municipalities(ctx context.Context) ([]Municipality, error) {
	const listEntityID = "all"

	if payload, ok := c.store.Get(ctx, cache.NamespaceBasicInfo, listEntityID, "list"); ok {
		var cached []Municipality
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		zap.L().Warn("ibge: corrupt cached municipality list, refetching")
	}

	list, err := c.inner.Municipalities(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(list); err == nil {
		c.store.Set(ctx, cache.NamespaceBasicInfo, listEntityID, "list", payload, 0)
	}
	return list, nil
}
