// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package spellcheck

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entazis/facebook-ads-bing-spell-check/internal/store"
)

const (
	adText      = "What goes into a great books text? How can you write a text that drives people to click through and convert?"
	adTextTypo  = "What goes into a great books text? Howcan you write a text that drives people to click through and convert?"
	howcanReply = `{"_type":"SpellCheck","flaggedTokens":[{"offset":35,"token":"Howcan","type":"UnknownToken","suggestions":[{"suggestion":"How can","score":0.92}]}]}`
	emptyReply  = `{"_type":"SpellCheck","flaggedTokens":[]}`
)

// stubService answers every request with status and body and counts calls.
type stubService struct {
	*httptest.Server
	calls atomic.Int32

	mu       sync.Mutex
	lastReq  *http.Request
	lastBody string
}

func (s *stubService) last() (*http.Request, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq, s.lastBody
}

func newStubService(t *testing.T, handler func(text string) (int, string)) *stubService {
	t.Helper()
	s := &stubService{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		raw, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.lastReq = r
		s.lastBody = string(raw)
		s.mu.Unlock()
		form, _ := url.ParseQuery(string(raw))
		status, body := handler(form.Get("Text"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func reply(status int, body string) func(string) (int, string) {
	return func(string) (int, string) { return status, body }
}

// fakeClock advances only when the client sleeps.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
	return nil
}

func newTestClient(t *testing.T, svc *stubService, cfg Config, opts ...Option) *Client {
	t.Helper()
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	cfg.Endpoint = svc.URL + "/bing/v7.0/spellcheck"
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	opts = append([]Option{WithClock(clock.Now), WithSleeper(clock.Sleep)}, opts...)
	c, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	return c
}

func memoryLogger() (*log.Logger, *memory.Handler) {
	h := memory.New()
	return &log.Logger{Handler: h, Level: log.DebugLevel}, h
}

func infoEntries(h *memory.Handler) []*log.Entry {
	var out []*log.Entry
	for _, e := range h.Entries {
		if e.Level == log.InfoLevel {
			out = append(out, e)
		}
	}
	return out
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New(ctx, Config{APIKey: "k", MinDelay: -time.Second})
	assert.ErrorIs(t, err, ErrInvalidDelay)

	_, err = New(ctx, Config{APIKey: "k", CacheEnabled: true})
	assert.ErrorIs(t, err, ErrNoStore)

	c, err := New(ctx, Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMinDelay, c.cfg.MinDelay)
	assert.Equal(t, DefaultEndpoint, c.cfg.Endpoint)
	assert.Equal(t, DefaultCacheName, c.cfg.CacheName)
	assert.False(t, c.CacheEnabled())
	assert.Nil(t, c.CachedWords())
}

func TestNew_CacheDisabledVersusEmpty(t *testing.T) {
	ctx := context.Background()

	disabled, err := New(ctx, Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Nil(t, disabled.cache)

	enabled, err := New(ctx, Config{APIKey: "k", CacheEnabled: true}, WithStore(store.NewMemory()))
	require.NoError(t, err)
	require.NotNil(t, enabled.cache)
	assert.Equal(t, 0, enabled.cache.Len())
	assert.Equal(t, []string{}, enabled.CachedWords())
}

func TestCheck_EmptyAfterNormalizeMakesNoCall(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, howcanReply))
	c := newTestClient(t, svc, Config{IgnoreWords: []string{"acme"}})

	for _, text := range []string{"", "   ", "{KeyWord} 42!", "ACME"} {
		issues, err := c.Check(context.Background(), text, ModeProof)
		require.NoError(t, err)
		assert.NotNil(t, issues)
		assert.Empty(t, issues)
	}
	assert.Equal(t, int32(0), svc.calls.Load())
}

func TestCheck_RequestShape(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	c := newTestClient(t, svc, Config{APIKey: "secret"})

	_, err := c.Check(context.Background(), "Hello, world!", ModeSpell)
	require.NoError(t, err)

	req, body := svc.last()
	require.NotNil(t, req)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/bing/v7.0/spellcheck", req.URL.Path)
	assert.Equal(t, "spell", req.URL.Query().Get("mode"))
	assert.Equal(t, "secret", req.Header.Get("Ocp-Apim-Subscription-Key"))
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Get("Content-Type"))
	assert.Equal(t, "Text=Hello+world", body)
}

func TestCheck_DefaultAndInvalidMode(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	c := newTestClient(t, svc, Config{})

	_, err := c.Check(context.Background(), "hello", "")
	require.NoError(t, err)
	req, _ := svc.last()
	assert.Equal(t, "proof", req.URL.Query().Get("mode"))

	_, err = c.Check(context.Background(), "hello", Mode("grammar"))
	assert.ErrorIs(t, err, ErrInvalidMode)
	assert.Equal(t, int32(1), svc.calls.Load())
}

func TestCheck_MemoReturnsSameResult(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, howcanReply))
	c := newTestClient(t, svc, Config{})
	ctx := context.Background()

	first, err := c.Check(ctx, adTextTypo, ModeProof)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Differs only in what normalization strips.
	second, err := c.Check(ctx, adTextTypo+"!!", ModeProof)
	require.NoError(t, err)

	assert.Same(t, &first[0], &second[0])
	assert.Equal(t, int32(1), svc.calls.Load())
}

func TestCheck_MemoIsSingleSlot(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	c := newTestClient(t, svc, Config{})
	ctx := context.Background()

	for _, text := range []string{"alpha", "beta", "alpha"} {
		_, err := c.Check(ctx, text, ModeProof)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), svc.calls.Load())
}

func TestCheck_CacheHitShortCircuits(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	mem := store.NewMemory()
	require.NoError(t, mem.Save(context.Background(), DefaultCacheName, []byte(`{"incorrect":{"speling":true,"erorr":true}}`)))

	c := newTestClient(t, svc, Config{CacheEnabled: true}, WithStore(mem))

	issues, err := c.Check(context.Background(), "this is a speling erorr", ModeProof)
	require.NoError(t, err)
	assert.Equal(t, []Issue{{Offset: 1, Token: "speling", Type: TypeCacheHit, Suggestions: []Suggestion{}}}, issues)
	assert.Equal(t, int32(0), svc.calls.Load())
}

func TestCheck_CacheHitDoesNotUpdateMemo(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	mem := store.NewMemory()
	require.NoError(t, mem.Save(context.Background(), DefaultCacheName, []byte(`{"incorrect":{"speling":true}}`)))
	c := newTestClient(t, svc, Config{CacheEnabled: true}, WithStore(mem))

	_, err := c.Check(context.Background(), "a speling", ModeProof)
	require.NoError(t, err)
	assert.Nil(t, c.last)
}

func TestCheck_RemoteTokensAreCached(t *testing.T) {
	svc := newStubService(t, func(text string) (int, string) {
		if text == "Howcan you" {
			return http.StatusOK, howcanReply
		}
		return http.StatusOK, emptyReply
	})
	c := newTestClient(t, svc, Config{CacheEnabled: true}, WithStore(store.NewMemory()))
	ctx := context.Background()

	issues, err := c.Check(ctx, "Howcan you", ModeProof)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "UnknownToken", issues[0].Type)
	assert.Equal(t, []string{"Howcan"}, c.CachedWords())

	issues, err = c.Check(ctx, "well Howcan we", ModeProof)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, TypeCacheHit, issues[0].Type)
	assert.Equal(t, "Howcan", issues[0].Token)
	assert.Equal(t, int32(1), svc.calls.Load())
}

func TestCheck_CacheDisabledRecordsNothing(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, howcanReply))
	c := newTestClient(t, svc, Config{})

	_, err := c.Check(context.Background(), "Howcan you", ModeProof)
	require.NoError(t, err)
	_, err = c.Check(context.Background(), "Howcan we", ModeProof)
	require.NoError(t, err)
	assert.Equal(t, int32(2), svc.calls.Load())
}

func TestCheck_ThrottleSpacesCalls(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, err := New(context.Background(), Config{
		APIKey:   "k",
		MinDelay: 100 * time.Millisecond,
		Endpoint: svc.URL,
	}, WithClock(clock.Now), WithSleeper(clock.Sleep))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Check(ctx, "one", ModeProof)
	require.NoError(t, err)
	assert.Empty(t, clock.sleeps, "first call never waits")

	_, err = c.Check(ctx, "two", ModeProof)
	require.NoError(t, err)

	clock.now = clock.now.Add(40 * time.Millisecond)
	_, err = c.Check(ctx, "three", ModeProof)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Second)
	_, err = c.Check(ctx, "four", ModeProof)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 60 * time.Millisecond}, clock.sleeps)
	assert.Equal(t, int32(4), svc.calls.Load())
}

func TestCheck_ThrottleRealClock(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	minDelay := 50 * time.Millisecond
	c, err := New(context.Background(), Config{APIKey: "k", MinDelay: minDelay, Endpoint: svc.URL})
	require.NoError(t, err)
	ctx := context.Background()

	start := time.Now()
	_, err = c.Check(ctx, "one", ModeProof)
	require.NoError(t, err)

	_, err = c.Check(ctx, "two", ModeProof)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), minDelay)
}

func TestCheck_ThrottleSkippedForMemoAndCache(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, howcanReply))
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, err := New(context.Background(), Config{
		APIKey:       "k",
		Endpoint:     svc.URL,
		CacheEnabled: true,
	}, WithStore(store.NewMemory()), WithClock(clock.Now), WithSleeper(clock.Sleep))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = c.Check(ctx, "Howcan you", ModeProof)
	require.NoError(t, err)
	_, err = c.Check(ctx, "Howcan you", ModeProof)
	require.NoError(t, err)
	_, err = c.Check(ctx, "so Howcan", ModeProof)
	require.NoError(t, err)

	assert.Empty(t, clock.sleeps)
}

func TestCheck_ThrottleHonoursContext(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	c, err := New(context.Background(), Config{APIKey: "k", MinDelay: time.Hour, Endpoint: svc.URL})
	require.NoError(t, err)

	_, err = c.Check(context.Background(), "one", ModeProof)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Check(ctx, "two", ModeProof)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), svc.calls.Load())
}

func TestCheck_QuotaExceeded(t *testing.T) {
	svc := newStubService(t, reply(http.StatusForbidden, `{"message":"out of calls"}`))
	c := newTestClient(t, svc, Config{})

	_, err := c.Check(context.Background(), "hello there", ModeProof)
	require.Error(t, err)

	var rerr *RemoteError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "out of calls", rerr.Message)
	assert.Equal(t, http.StatusForbidden, rerr.StatusCode)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.True(t, c.QuotaHit())
	assert.Nil(t, c.last, "failed calls are not memoized")

	// The flag does not block further calls.
	_, err = c.Check(context.Background(), "hello again", ModeProof)
	require.Error(t, err)
	assert.Equal(t, int32(2), svc.calls.Load())
}

func TestCheck_OtherRemoteErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "top level message",
			status:  http.StatusBadRequest,
			body:    `{"message":"bad text"}`,
			wantMsg: "bad text",
		},
		{
			name:    "error object",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"code":"401","message":"Access denied due to invalid subscription key."}}`,
			wantMsg: "Access denied due to invalid subscription key.",
		},
		{
			name:    "errors array",
			status:  http.StatusBadRequest,
			body:    `{"_type":"ErrorResponse","errors":[{"code":"InvalidRequest","message":"Required parameter is missing."}]}`,
			wantMsg: "Required parameter is missing.",
		},
		{
			name:    "not json",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantMsg: "Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newStubService(t, reply(tt.status, tt.body))
			c := newTestClient(t, svc, Config{})

			_, err := c.Check(context.Background(), "hello", ModeProof)
			var rerr *RemoteError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, tt.wantMsg, rerr.Message)
			assert.NotErrorIs(t, err, ErrQuotaExceeded)
			assert.False(t, c.QuotaHit())
		})
	}
}

func TestCheck_MalformedSuccessBody(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, `{"flaggedTokens":`))
	c := newTestClient(t, svc, Config{})

	_, err := c.Check(context.Background(), "hello", ModeProof)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestIssues_CleanAdTextLogsNothing(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	logger, h := memoryLogger()
	c := newTestClient(t, svc, Config{IgnoreWords: []string{}}, WithLogger(logger))

	issues, err := c.Issues(context.Background(), adText)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Empty(t, infoEntries(h))
}

func TestIssues_TypoAdTextLogsIssues(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, howcanReply))
	logger, h := memoryLogger()
	c := newTestClient(t, svc, Config{IgnoreWords: []string{}}, WithLogger(logger))

	issues, err := c.Issues(context.Background(), adTextTypo)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Howcan", issues[0].Token)
	first, ok := issues[0].FirstSuggestion()
	assert.True(t, ok)
	assert.Equal(t, "How can", first)

	entries := infoEntries(h)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, adTextTypo)
	assert.Contains(t, entries[0].Message, `"token":"Howcan"`)
}

func TestHasIssues(t *testing.T) {
	svc := newStubService(t, func(text string) (int, string) {
		if text == "Howcan you" {
			return http.StatusOK, howcanReply
		}
		return http.StatusOK, emptyReply
	})
	c := newTestClient(t, svc, Config{})

	got, err := c.HasIssues(context.Background(), "Howcan you")
	require.NoError(t, err)
	assert.True(t, got)

	got, err = c.HasIssues(context.Background(), "How can you")
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSaveCache_RoundTrip(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, howcanReply))
	mem := store.NewMemory()
	ctx := context.Background()

	c := newTestClient(t, svc, Config{CacheEnabled: true}, WithStore(mem))
	_, err := c.Check(ctx, "Howcan you", ModeProof)
	require.NoError(t, err)
	require.NoError(t, c.SaveCache(ctx))

	blob, ok, err := mem.Load(ctx, DefaultCacheName)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"incorrect":{"Howcan":true}}`, string(blob))

	again := newTestClient(t, svc, Config{CacheEnabled: true}, WithStore(mem))
	assert.Equal(t, c.CachedWords(), again.CachedWords())
}

func TestSaveCache_OverwritesAndUsesCacheName(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	mem := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, mem.Save(ctx, "ads.json", []byte(`{"incorrect":{"teh":true,"recieve":true}}`)))

	c := newTestClient(t, svc, Config{CacheEnabled: true, CacheName: "ads.json"}, WithStore(mem))
	assert.Equal(t, []string{"recieve", "teh"}, c.CachedWords())

	c.ResetCache()
	assert.Equal(t, []string{}, c.CachedWords())
	require.NoError(t, c.SaveCache(ctx))

	blob, _, err := mem.Load(ctx, "ads.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"incorrect":{}}`, string(blob))
}

func TestSaveCache_DisabledIsNoop(t *testing.T) {
	c, err := New(context.Background(), Config{APIKey: "k"})
	require.NoError(t, err)
	assert.NoError(t, c.SaveCache(context.Background()))
	c.ResetCache()
	assert.Nil(t, c.CachedWords())
}

type brokenStore struct {
	loadErr error
	saveErr error
	blob    []byte
}

func (b *brokenStore) Load(context.Context, string) ([]byte, bool, error) {
	if b.loadErr != nil {
		return nil, false, b.loadErr
	}
	return b.blob, b.blob != nil, nil
}

func (b *brokenStore) Save(context.Context, string, []byte) error {
	return b.saveErr
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")

	_, err := New(ctx, Config{APIKey: "k", CacheEnabled: true}, WithStore(&brokenStore{loadErr: boom}))
	var serr *StoreError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "load", serr.Op)
	assert.ErrorIs(t, err, boom)

	_, err = New(ctx, Config{APIKey: "k", CacheEnabled: true}, WithStore(&brokenStore{blob: []byte("not json")}))
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "load", serr.Op)

	c, err := New(ctx, Config{APIKey: "k", CacheEnabled: true}, WithStore(&brokenStore{saveErr: boom}))
	require.NoError(t, err)
	err = c.SaveCache(ctx)
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "save", serr.Op)
	assert.Equal(t, DefaultCacheName, serr.Name)
	assert.ErrorIs(t, err, boom)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeProof, m)

	m, err = ParseMode("SPELL")
	require.NoError(t, err)
	assert.Equal(t, ModeSpell, m)

	_, err = ParseMode("grammar")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestCheck_ConcurrentCallersAreSerialized(t *testing.T) {
	svc := newStubService(t, reply(http.StatusOK, emptyReply))
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c, err := New(context.Background(), Config{
		APIKey:       "k",
		Endpoint:     svc.URL,
		MinDelay:     time.Second,
		CacheEnabled: true,
	}, WithStore(store.NewMemory()), WithClock(clock.Now), WithSleeper(clock.Sleep))
	require.NoError(t, err)

	texts := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	var wg sync.WaitGroup
	for _, text := range texts {
		wg.Add(1)
		go func(text string) {
			defer wg.Done()
			_, err := c.Check(context.Background(), text, ModeProof)
			assert.NoError(t, err)
		}(text)
	}
	wg.Wait()

	assert.Equal(t, int32(len(texts)), svc.calls.Load())
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second, time.Second}, clock.sleeps)
}
