// Package artifactcache provides an optional read-through cache for a
// fitted pipeline's PipelineArtifact, keyed by a hash of the inputs that
// determine it. Grounded on gibbonsjohnm-ovechbot_go's predictor/internal/
// cache.Reader: a thin JSON marshal/unmarshal wrapper around
// github.com/redis/go-redis/v9, generalized here from a read-only standings
// cache into a read-through get-or-compute cache.
package artifactcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhw/outrights-predict/pkg/outrights"
)

const keyPrefix = "outrights:artifact:"

// defaultTTL bounds how long a cached artifact is trusted without a refit;
// long enough to skip redundant refits within one prediction run across
// multiple seasons, short enough that a stale model doesn't linger for
// days.
const defaultTTL = 6 * time.Hour

// Cache is a read-through cache for PipelineArtifacts.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New returns a Cache backed by a Redis instance at redisURL (a
// redis://host:port/db URL, as accepted by redis.ParseURL).
func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &Cache{client: redis.NewClient(opts), ttl: defaultTTL}, nil
}

// Key derives a stable cache key from the training season IDs and the
// pipeline Config that together determine a fitted pipeline; any change to
// either invalidates the cache entry. The predicted season is not part of
// the key; callers caching per-season artifacts append it themselves.
func Key(trainingSeasons []string, cfg outrights.Config) string {
	sorted := append([]string(nil), trainingSeasons...)
	sort.Strings(sorted)

	h := sha256.New()
	for _, s := range sorted {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	fmt.Fprintf(h, "%d|%g|%g|%d|%s", cfg.NumTrials, cfg.RecencyDecayRate, cfg.CupWinnerBoost, cfg.RecentFormWindow, cfg.BracketPolicy)
	if cfg.Seed != nil {
		fmt.Fprintf(h, "|%d", *cfg.Seed)
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached artifact for key, or (nil, nil) on a cache miss.
func (c *Cache) Get(ctx context.Context, key string) (*outrights.PipelineArtifact, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached artifact: %w", err)
	}
	var artifact outrights.PipelineArtifact
	if err := json.Unmarshal(b, &artifact); err != nil {
		return nil, fmt.Errorf("unmarshalling cached artifact: %w", err)
	}
	return &artifact, nil
}

// Set stores artifact under key with the cache's configured TTL.
func (c *Cache) Set(ctx context.Context, key string, artifact *outrights.PipelineArtifact) error {
	b, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshalling artifact for cache: %w", err)
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("writing cached artifact: %w", err)
	}
	return nil
}

// Close releases the underlying Redis client's connections.
func (c *Cache) Close() error { return c.client.Close() }
