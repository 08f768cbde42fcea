// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package spellcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	cleanhttp "github.com/hashicorp/go-cleanhttp"
)

const (
	DefaultEndpoint = "https://api.cognitive.microsoft.com/bing/v7.0/spellcheck"
	DefaultTimeout  = 30 * time.Second

	subscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
)

// Mode selects the service's checking mode.
type Mode string

const (
	// ModeProof is the thorough, case-aware mode and the default.
	ModeProof Mode = "proof"
	// ModeSpell is the aggressive, search-query oriented mode.
	ModeSpell Mode = "spell"
)

// ParseMode maps a flag value to a Mode. An empty string is proof.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeProof:
		return ModeProof, nil
	case ModeSpell:
		return ModeSpell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Config is copied by New and not consulted again afterwards.
type Config struct {
	APIKey      string
	IgnoreWords []string
	// MinDelay is the minimum gap between remote calls. Zero means
	// DefaultMinDelay.
	MinDelay     time.Duration
	CacheEnabled bool
	Endpoint     string
	CacheName    string
	// Timeout bounds each remote call. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Doer is the HTTP transport the client needs. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Store loads and saves named blobs. Load reports false when the blob does
// not exist.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, bool, error)
	Save(ctx context.Context, name string, blob []byte) error
}

// Option customizes a Client.
type Option func(*Client)

func WithHTTPClient(d Doer) Option {
	return func(c *Client) { c.http = d }
}

// WithStore sets the backing store of the persistent cache. Required when
// Config.CacheEnabled is set.
func WithStore(s Store) Option {
	return func(c *Client) { c.store = s }
}

func WithLogger(l log.Interface) Option {
	return func(c *Client) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.throttle.now = now }
}

func WithSleeper(s Sleeper) Option {
	return func(c *Client) { c.throttle.sleep = s }
}

type memo struct {
	text   string
	issues []Issue
}

// Client talks to the spellcheck endpoint. All state is per instance and a
// call to Check holds the instance lock for its whole duration, throttle
// sleep included, so concurrent callers are serialized.
type Client struct {
	cfg    Config
	ignore *regexp.Regexp
	http   Doer
	store  Store
	log    log.Interface

	mu       sync.Mutex
	cache    *Cache
	last     *memo
	throttle throttle
	quotaHit bool
}

// New validates cfg and, when caching is enabled, loads the persistent cache
// from the store.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.MinDelay < 0 {
		return nil, ErrInvalidDelay
	}
	if cfg.MinDelay == 0 {
		cfg.MinDelay = DefaultMinDelay
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.CacheName == "" {
		cfg.CacheName = DefaultCacheName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.IgnoreWords = append([]string(nil), cfg.IgnoreWords...)

	c := &Client{
		cfg:    cfg,
		ignore: ignoreMatcher(cfg.IgnoreWords),
		log:    log.Log,
		throttle: throttle{
			minDelay: cfg.MinDelay,
			now:      time.Now,
			sleep:    sleepContext,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = cleanhttp.DefaultPooledClient()
	}

	if cfg.CacheEnabled {
		if c.store == nil {
			return nil, ErrNoStore
		}
		if err := c.loadCache(ctx); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Client) loadCache(ctx context.Context) error {
	cache, err := LoadCache(ctx, c.store, c.cfg.CacheName)
	if err != nil {
		return err
	}
	c.log.Debugf("loaded %d cached words from %s", cache.Len(), c.cfg.CacheName)
	c.cache = cache
	return nil
}

// Check returns the issues the service finds in text. See Normalize for what
// is stripped before sending. Text that normalizes to nothing has no issues
// and costs no call.
//
// When the cache is enabled and any word of the normalized text is already
// known to be misspelled, only that first word is reported, with type
// TypeCacheHit and no suggestions.
func (c *Client) Check(ctx context.Context, text string, mode Mode) ([]Issue, error) {
	if mode == "" {
		mode = ModeProof
	}
	if mode != ModeProof && mode != ModeSpell {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	normalized := c.Normalize(text)
	if normalized == "" {
		return []Issue{}, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last != nil && c.last.text == normalized {
		c.log.Debug("using previous response")
		return c.last.issues, nil
	}

	if c.cache != nil {
		for _, w := range strings.Fields(normalized) {
			if c.cache.Has(w) {
				c.log.Debugf("cache hit: %s", w)
				return []Issue{{Offset: 1, Token: w, Type: TypeCacheHit, Suggestions: []Suggestion{}}}, nil
			}
		}
	}

	if d, err := c.throttle.wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle wait interrupted: %w", err)
	} else if d > 0 {
		c.log.Debugf("throttled for %s", d)
	}

	issues, err := c.call(ctx, normalized, mode)
	if err != nil {
		return nil, err
	}

	c.last = &memo{text: normalized, issues: issues}
	if c.cache != nil {
		for _, i := range issues {
			c.cache.Add(i.Token)
		}
	}
	return issues, nil
}

func (c *Client) call(ctx context.Context, text string, mode Mode) ([]Issue, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", c.cfg.Endpoint, err)
	}
	q := u.Query()
	q.Set("mode", string(mode))
	u.RawQuery = q.Encode()

	body := url.Values{"Text": []string{text}}.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(subscriptionKeyHeader, c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.throttle.mark()

	var doc bytes.Buffer
	if _, err := io.Copy(&doc, resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rerr := newRemoteError(resp.StatusCode, doc.Bytes())
		if rerr.Quota() {
			c.quotaHit = true
		}
		c.log.WithFields(log.Fields{
			"status":  resp.StatusCode,
			"message": rerr.Message,
		}).Debug("spellcheck request rejected")
		return nil, rerr
	}

	var r response
	if err := json.Unmarshal(doc.Bytes(), &r); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if r.FlaggedTokens == nil {
		r.FlaggedTokens = []Issue{}
	}
	return r.FlaggedTokens, nil
}

// Issues is Check in proof mode that also logs the text and its issues
// whenever there are any.
func (c *Client) Issues(ctx context.Context, text string) ([]Issue, error) {
	issues, err := c.Check(ctx, text, ModeProof)
	if err != nil {
		return nil, err
	}
	if len(issues) > 0 {
		enc, _ := json.Marshal(issues)
		c.log.Infof("Checked text: %s Issues found: %s", text, enc)
	}
	return issues, nil
}

// HasIssues reports whether text has at least one spelling issue.
func (c *Client) HasIssues(ctx context.Context, text string) (bool, error) {
	issues, err := c.Issues(ctx, text)
	if err != nil {
		return false, err
	}
	return len(issues) > 0, nil
}

// SaveCache writes the persistent cache back to the store, replacing what
// is there. It does nothing when caching is disabled.
func (c *Client) SaveCache(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		return nil
	}
	if err := c.cache.Save(ctx, c.store, c.cfg.CacheName); err != nil {
		return err
	}
	c.log.Debugf("saved %d cached words to %s", c.cache.Len(), c.cfg.CacheName)
	return nil
}

// CachedWords lists the persistent cache in sorted order. It is nil when
// caching is disabled.
func (c *Client) CachedWords() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache == nil {
		return nil
	}
	return c.cache.Words()
}

// ResetCache forgets every cached word. The store is only updated by the
// next SaveCache.
func (c *Client) ResetCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache != nil {
		c.cache = NewCache()
	}
}

// CacheEnabled reports whether the persistent cache participates in checks.
func (c *Client) CacheEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache != nil
}

// QuotaHit reports whether the service has rejected a call for quota
// reasons. It does not stop further calls.
func (c *Client) QuotaHit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.quotaHit
}
