package oauthcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/getmockd/mockman/pkg/logging"
)

// defaultTTL is used when the token endpoint omits "expires_in".
const defaultTTL = 3300 * time.Second

// Config describes a client-credentials grant against a single token
// endpoint. It is also the cache key's source: entries are keyed by
// (TokenURL, ClientID).
type Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	GrantType    string
}

func (c Config) key() string {
	return c.TokenURL + "|" + c.ClientID
}

// entry is a cached access token.
type entry struct {
	accessToken string
	issuedAt    time.Time
	ttl         time.Duration
}

// fresh reports whether e still has at least the guard band of life left:
// refresh when remaining < max(60s, 5% of ttl).
func (e entry) fresh(now time.Time) bool {
	guard := e.ttl / 20
	if guard < 60*time.Second {
		guard = 60 * time.Second
	}
	remaining := e.ttl - now.Sub(e.issuedAt)
	return remaining > guard
}

// Cache acquires and caches OAuth2 client-credentials tokens. A single
// instance is safe for concurrent use; concurrent misses for the same key
// are coalesced onto one upstream call via singleflight.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	group  singleflight.Group
	client *http.Client
	log    *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for diagnostic messages.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHTTPClient overrides the client used to reach token endpoints.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		if client != nil {
			c.client = client
		}
	}
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		},
		log: logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetToken returns a cached access token for cfg if one is still fresh,
// otherwise acquires a new one via the client-credentials grant. Concurrent
// calls for the same (TokenURL, ClientID) share a single upstream request.
func (c *Cache) GetToken(ctx context.Context, cfg Config) (string, error) {
	key := cfg.key()

	if tok, ok := c.lookup(key); ok {
		return tok, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if tok, ok := c.lookup(key); ok {
			return tok, nil
		}
		tok, ttl, err := fetchToken(ctx, c.client, cfg)
		if err != nil {
			return "", err
		}
		c.store(key, entry{accessToken: tok, issuedAt: time.Now(), ttl: ttl})
		return tok, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Drop removes any cached entry for cfg.
func (c *Cache) Drop(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cfg.key())
}

// DropPrefix removes every cached entry whose key starts with tokenURL+"|",
// i.e. every client id ever cached against that token endpoint.
func (c *Cache) DropPrefix(tokenURL string) {
	prefix := tokenURL + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) lookup(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !e.fresh(time.Now()) {
		return "", false
	}
	return e.accessToken, true
}

func (c *Cache) store(key string, e entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// tokenResponse is the subset of a client-credentials token response this
// cache understands.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   *int   `json:"expires_in"`
}

func fetchToken(ctx context.Context, client *http.Client, cfg Config) (string, time.Duration, error) {
	grantType := cfg.GrantType
	if grantType == "" {
		grantType = "client_credentials"
	}

	form := url.Values{
		"grant_type":    {grantType},
		"client_id":     {cfg.ClientID},
		"client_secret": {cfg.ClientSecret},
	}
	if cfg.Scope != "" {
		form.Set("scope", cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("oauthcache: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("oauthcache: token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", 0, fmt.Errorf("oauthcache: reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", 0, fmt.Errorf("oauthcache: token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed tokenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", 0, fmt.Errorf("oauthcache: parsing token response: %w", err)
	}
	if parsed.AccessToken == "" {
		return "", 0, fmt.Errorf("oauthcache: token response missing access_token")
	}

	ttl := defaultTTL
	if parsed.ExpiresIn != nil {
		ttl = time.Duration(*parsed.ExpiresIn) * time.Second
	}

	return parsed.AccessToken, ttl, nil
}
