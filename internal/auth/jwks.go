// Copyright (C) 2025 TripStack. All rights reserved.
//
// travel-mcp is licensed under the Apache License Version 2.0.

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// errKeyNotFound reports that the JWKS document was fetched successfully
// but does not contain the requested kid.
var errKeyNotFound = errors.New("signing key not found in JWKS")

const (
	// jwksCacheMaxEntries bounds the number of cached signing keys.
	jwksCacheMaxEntries = 5

	// jwksCacheTTL is how long a cached key may be served.
	jwksCacheTTL = 10 * time.Minute

	// jwksFetchTimeout bounds a single JWKS document fetch.
	jwksFetchTimeout = 30 * time.Second
)

// keyCache is a bounded, lazily refreshed cache of JWKS signing keys keyed
// by kid. Reads dominate; a miss triggers a per-kid single-flight fetch of
// the whole JWKS document so concurrent requests for the same kid share one
// HTTP round trip. Fetches are additionally rate limited so a burst of
// unknown kids cannot hammer the identity provider.
type keyCache struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group

	mu      sync.RWMutex
	entries map[string]keyCacheEntry

	// now is swappable for tests.
	now func() time.Time
}

type keyCacheEntry struct {
	key       jwk.Key
	fetchedAt time.Time
}

func newKeyCache(url string) *keyCache {
	return &keyCache{
		url:        url,
		httpClient: &http.Client{Timeout: jwksFetchTimeout},
		// One fetch per second sustained, small burst for cold start.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		entries: make(map[string]keyCacheEntry),
		now:     time.Now,
	}
}

// Key returns the signing key for kid, fetching the JWKS document on a miss
// or when the cached entry is older than the TTL.
func (c *keyCache) Key(ctx context.Context, kid string) (jwk.Key, error) {
	if key, ok := c.lookup(kid); ok {
		return key, nil
	}

	v, err, _ := c.group.Do(kid, func() (interface{}, error) {
		// Re-check under the flight: another caller may have refreshed.
		if key, ok := c.lookup(kid); ok {
			return key, nil
		}
		return c.fetch(ctx, kid)
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Key), nil
}

// lookup returns a cached key if present and fresh.
func (c *keyCache) lookup(kid string) (jwk.Key, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[kid]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.fetchedAt) > jwksCacheTTL {
		return nil, false
	}
	return entry.key, true
}

// fetch retrieves the JWKS document and stores the requested key.
func (c *keyCache) fetch(ctx context.Context, kid string) (jwk.Key, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("jwks fetch rate limit: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, jwksFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build JWKS request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", c.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint %s returned status %d", c.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read JWKS response: %w", err)
	}

	set, err := jwk.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWKS document: %w", err)
	}

	key, ok := set.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("kid %q: %w", kid, errKeyNotFound)
	}

	c.store(kid, key)
	return key, nil
}

// store inserts a key, evicting the oldest entry when the cache is full.
func (c *keyCache) store(kid string, key jwk.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[kid]; !exists && len(c.entries) >= jwksCacheMaxEntries {
		oldestKid := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKid == "" || e.fetchedAt.Before(oldest) {
				oldestKid = k
				oldest = e.fetchedAt
			}
		}
		delete(c.entries, oldestKid)
	}

	c.entries[kid] = keyCacheEntry{key: key, fetchedAt: c.now()}
}

// size reports the number of cached entries. Test helper.
func (c *keyCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
