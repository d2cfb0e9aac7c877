// Package rates fetches live currency exchange rates from an external
// provider, with a Redis cache in front and a stale-cache fallback when
// the provider is unreachable. Rates are carried as exact decimals.
//
// The engine itself never calls this package: a rate is always passed into
// a calculation as plain input. This client exists to populate that input.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/finsizer/sizing-engine/internal/metrics"
	"github.com/finsizer/sizing-engine/internal/money"
)

// DefaultBaseURL is the public endpoint of exchangerate-api.com.
const DefaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

var (
	// ErrUnknownCurrency is returned for codes outside ISO 4217.
	ErrUnknownCurrency = errors.New("rates: unknown currency code")

	// ErrUnavailable is returned when the provider fails and no cached
	// rate, fresh or stale, exists for the pair.
	ErrUnavailable = errors.New("rates: rate unavailable")
)

// Cache stores serialized rates under string keys. Implemented by
// redisCache; a nil cache disables caching (every lookup hits the
// provider).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// redisCache adapts a redis client to the Cache interface.
type redisCache struct {
	rdb *redis.Client
}

func (c redisCache) Get(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

func (c redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Client fetches rates with a read-through cache.
type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	ttl     time.Duration
}

// NewClient creates a rate client backed by a redis cache. baseURL falls
// back to DefaultBaseURL when empty; pass a nil redis client to disable
// caching.
func NewClient(baseURL string, rdb *redis.Client, ttl time.Duration) *Client {
	var cache Cache
	if rdb != nil {
		cache = redisCache{rdb: rdb}
	}
	return NewClientWithCache(baseURL, cache, ttl)
}

// NewClientWithCache creates a rate client on any Cache implementation.
func NewClientWithCache(baseURL string, cache Cache, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		ttl:     ttl,
	}
}

type apiResponse struct {
	Rates map[string]json.Number `json:"rates"`
}

// GetRate returns the rate converting one unit of from into to. Equal
// codes short-circuit to exactly 1 without touching the network or cache.
// When the provider fails, a stale cached rate is returned instead: stale
// data beats no data, and the caller's calculation falls back rather than
// aborting.
func (c *Client) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if !money.ValidCode(from) || !money.ValidCode(to) {
		return decimal.Zero, fmt.Errorf("%w: %s->%s", ErrUnknownCurrency, from, to)
	}
	if from == to {
		return decimal.New(1, 0), nil
	}

	key := rateKey(from, to)

	if cached, ok := c.cachedRate(ctx, key); ok {
		metrics.RateLookupsTotal.WithLabelValues("cached").Inc()
		slog.Debug("rate cache hit", "from", from, "to", to, "rate", cached.String())
		return cached, nil
	}

	rate, err := c.fetch(ctx, from, to)
	if err != nil {
		if stale, ok := c.staleRate(ctx, key); ok {
			metrics.RateLookupsTotal.WithLabelValues("stale").Inc()
			slog.Warn("rate provider failed, using stale cached rate",
				"from", from, "to", to, "rate", stale.String(), "err", err)
			return stale, nil
		}
		metrics.RateLookupsTotal.WithLabelValues("error").Inc()
		return decimal.Zero, fmt.Errorf("%w: %s->%s: %v", ErrUnavailable, from, to, err)
	}

	c.cacheRate(ctx, key, rate)
	metrics.RateLookupsTotal.WithLabelValues("fresh").Inc()
	slog.Info("rate fetched", "from", from, "to", to, "rate", rate.String())
	return rate, nil
}

func (c *Client) fetch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}

	raw, ok := body.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("pair %s->%s not in response", from, to)
	}
	// json.Number carries the provider's decimal text verbatim; parsing
	// it directly avoids a float64 detour.
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed rate %q: %w", raw.String(), err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive rate %s", rate)
	}
	return rate, nil
}

// --- Cache, keyed fresh and stale separately ---

// The fresh key expires after ttl; the stale key lives ten times longer
// and serves as the fallback when the provider is down.
func (c *Client) cacheRate(ctx context.Context, key string, rate decimal.Decimal) {
	if c.cache == nil {
		return
	}
	s := rate.String()
	c.cache.Set(ctx, key, s, c.ttl)
	c.cache.Set(ctx, key+":stale", s, 10*c.ttl)
}

func (c *Client) cachedRate(ctx context.Context, key string) (decimal.Decimal, bool) {
	return c.lookup(ctx, key)
}

func (c *Client) staleRate(ctx context.Context, key string) (decimal.Decimal, bool) {
	return c.lookup(ctx, key+":stale")
}

func (c *Client) lookup(ctx context.Context, key string) (decimal.Decimal, bool) {
	if c.cache == nil {
		return decimal.Zero, false
	}
	s, err := c.cache.Get(ctx, key)
	if err != nil {
		return decimal.Zero, false
	}
	rate, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return rate, true
}

func rateKey(from, to string) string { return fmt.Sprintf("rate:%s:%s", from, to) }
