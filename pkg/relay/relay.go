package relay

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/getmockd/mockman/pkg/logging"
	"github.com/getmockd/mockman/pkg/oauthcache"
)

// hopByHop is the fixed set of headers stripped from both the forwarded
// request and the returned response. Deliberately narrower than a classic
// proxy's hop-by-hop list: this is the exact set named by the relay
// contract, not the full RFC 7230 list.
var hopByHop = map[string]bool{
	"Host":              true,
	"Connection":        true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Authorization":     true,
}

// Config is the relay configuration for an instance or an expectation-level
// override.
type Config struct {
	RemoteURL       string
	TokenURL        string
	ClientID        string
	ClientSecret    string
	Scope           string
	GrantType       string
	Headers         map[string]string
	IgnoreSSLErrors bool
}

// Result is an upstream response, returned verbatim to the dispatcher.
type Result struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Engine forwards requests upstream per Config, acquiring bearer tokens
// from a shared Cache when a token URL is configured.
type Engine struct {
	tokens *oauthcache.Cache
	client *http.Client
	insecureClient *http.Client
	log    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for diagnostic messages.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithTokenCache overrides the OAuth2 token cache used when a relay config
// names a token URL. Defaults to a fresh cache if not set.
func WithTokenCache(c *oauthcache.Cache) Option {
	return func(e *Engine) {
		if c != nil {
			e.tokens = c
		}
	}
}

// New creates an Engine with a shared, pooled HTTP client: a 30s per-attempt
// timeout and a 5s connect timeout, matching the rest of this module's
// outbound-call defaults.
func New(opts ...Option) *Engine {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	e := &Engine{
		tokens: oauthcache.New(),
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext:         dialer.DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: logging.Nop(),
	}
	e.insecureClient = &http.Client{
		Timeout: e.client.Timeout,
		Transport: &http.Transport{
			DialContext:         dialer.DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TokenCache returns the engine's OAuth2 token cache, so a lifecycle
// manager can drop cached tokens when an instance using this engine is
// deleted.
func (e *Engine) TokenCache() *oauthcache.Cache {
	return e.tokens
}

// Relay builds the absolute upstream URL as cfg.RemoteURL+pathAndQuery,
// forwards method/headers/body with hop-by-hop headers stripped, injects a
// bearer token when cfg.TokenURL is set, and returns the upstream response
// verbatim (hop-by-hop headers stripped from the response too).
func (e *Engine) Relay(ctx context.Context, cfg Config, method, pathAndQuery string, headers http.Header, body []byte) (*Result, error) {
	target := cfg.RemoteURL + pathAndQuery

	req, err := http.NewRequestWithContext(ctx, method, target, newBodyReader(body))
	if err != nil {
		return nil, fmt.Errorf("relay: building upstream request: %w", err)
	}

	copyFiltered(req.Header, headers)
	for name, value := range cfg.Headers {
		req.Header.Set(name, value)
	}

	if cfg.TokenURL != "" {
		token, err := e.tokens.GetToken(ctx, oauthcache.Config{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scope:        cfg.Scope,
			GrantType:    cfg.GrantType,
		})
		if err != nil {
			return nil, fmt.Errorf("relay: acquiring access token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := e.client
	if cfg.IgnoreSSLErrors {
		client = e.insecureClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: upstream request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("relay: reading upstream response: %w", err)
	}

	respHeaders := make(http.Header, len(resp.Header))
	copyFiltered(respHeaders, resp.Header)

	return &Result{
		StatusCode: resp.StatusCode,
		Headers:    respHeaders,
		Body:       respBody,
	}, nil
}

// copyFiltered copies every header from src into dst except the fixed
// hop-by-hop drop list, preserving multi-value semantics.
func copyFiltered(dst, src http.Header) {
	for name, values := range src {
		if hopByHop[name] {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
}

func newBodyReader(body []byte) io.Reader {
	if len(body) == 0 {
		return nil
	}
	return strings.NewReader(string(body))
}
