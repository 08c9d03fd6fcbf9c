// Package querycache is a keyed cache for server state. It de-duplicates
// concurrent fetches of one key, marks entries stale by key prefix, and
// moves its contents between processes as JSON snapshots.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Status is the outcome of the last fetch of an entry.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "pending"
	}
}

// QueryFunc loads the data for one key.
type QueryFunc[T any] func(ctx context.Context) (T, error)

// EntryState is a read-only view of a cache entry.
type EntryState struct {
	Status      Status
	HasData     bool
	UpdatedAt   time.Time
	Invalidated bool
	Fetching    bool
	Err         error
}

type entry struct {
	key         Key
	status      Status
	data        any
	raw         json.RawMessage // set by Hydrate until the first typed read
	hasData     bool
	err         error
	updatedAt   time.Time
	invalidated bool
	generation  uint64
	inFlight    int
}

// Client owns every cached entry. One Client is scoped to one session
// (a browser session, a terminal run or a single server request); it is
// safe for concurrent use.
type Client struct {
	mu        sync.Mutex
	entries   map[string]*entry
	flights   singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for cache events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStaleTime sets how long fetched data counts as fresh. Zero keeps data
// fresh until it is invalidated.
func WithStaleTime(d time.Duration) Option {
	return func(c *Client) { c.staleTime = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an empty Client.
func New(opts ...Option) *Client {
	c := &Client{
		entries: make(map[string]*entry),
		now:     time.Now,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch runs fn for key and stores the result. Concurrent calls for the
// same key share a single call of fn. A result whose entry was invalidated
// while fn ran is returned to its callers but not stored.
//
// fn runs detached from the cancellation of ctx since other callers may be
// waiting on it. A caller whose ctx ends first gets ctx.Err() and leaves
// the shared call running.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn QueryFunc[T]) (T, error) {
	var zero T

	hash := key.Hash()
	c.mu.Lock()
	e := c.entryLocked(key, hash)
	gen := e.generation
	e.inFlight++
	c.mu.Unlock()
	defer c.leave(hash)

	flightCtx := context.WithoutCancel(ctx)
	flightKey := hash + "#" + strconv.FormatUint(gen, 10)
	ch := c.flights.DoChan(flightKey, func() (any, error) {
		c.logger.Debug("fetching query", "key", hash, "generation", gen)
		data, err := fn(flightCtx)
		c.settle(hash, gen, data, err)
		return data, err
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	if res.Shared {
		c.logger.Debug("joined in-flight query", "key", hash)
	}
	if res.Err != nil {
		return zero, res.Err
	}
	data, ok := res.Val.(T)
	if !ok {
		return zero, fmt.Errorf("query %s returned %T", hash, res.Val)
	}
	return data, nil
}

// Prefetch fetches key and stores the result. Errors are logged, never
// returned: a consumer that finds no data fetches again.
func Prefetch[T any](ctx context.Context, c *Client, key Key, fn QueryFunc[T]) {
	if _, err := Fetch(ctx, c, key, fn); err != nil {
		c.logger.Warn("prefetch failed", "key", key.Hash(), "error", err)
	}
}

// EnsureData returns cached data for key when it is present and not stale,
// and fetches otherwise.
func EnsureData[T any](ctx context.Context, c *Client, key Key, fn QueryFunc[T]) (T, error) {
	if data, ok := GetQueryData[T](c, key); ok && !c.IsStale(key) {
		return data, nil
	}
	return Fetch(ctx, c, key, fn)
}

// GetQueryData returns the data cached for key, if any.
func GetQueryData[T any](c *Client, key Key) (T, bool) {
	var zero T

	c.mu.Lock()
	data, ok, err := getLocked[T](c, key.Hash())
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("dropping undecodable hydrated query", "key", key.Hash(), "error", err)
		return zero, false
	}
	return data, ok
}

func getLocked[T any](c *Client, hash string) (T, bool, error) {
	var zero T

	e, ok := c.entries[hash]
	if !ok || !e.hasData {
		return zero, false, nil
	}
	if data, ok := e.data.(T); ok {
		return data, true, nil
	}
	if e.raw == nil {
		return zero, false, nil
	}

	var data T
	if err := json.Unmarshal(e.raw, &data); err != nil {
		e.hasData = false
		e.raw = nil
		return zero, false, err
	}
	e.data = data
	e.raw = nil
	return data, true, nil
}

// SetQueryData stores data for key as if it had just been fetched.
func SetQueryData[T any](c *Client, key Key, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entryLocked(key, key.Hash())
	e.data = data
	e.raw = nil
	e.hasData = true
	e.status = StatusSuccess
	e.err = nil
	e.invalidated = false
	e.updatedAt = c.now()
}

// State returns the state of the entry for key. Unknown keys report
// StatusPending without data.
func (c *Client) State(key Key) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.Hash()]
	if !ok {
		return EntryState{Status: StatusPending}
	}
	return EntryState{
		Status:      e.status,
		HasData:     e.hasData,
		UpdatedAt:   e.updatedAt,
		Invalidated: e.invalidated,
		Fetching:    e.inFlight > 0,
		Err:         e.err,
	}
}

// IsStale reports whether key has to be fetched again before its data may
// be served as fresh.
func (c *Client) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.Hash()]
	if !ok || !e.hasData || e.invalidated {
		return true
	}
	if c.staleTime <= 0 {
		return false
	}
	return c.now().Sub(e.updatedAt) >= c.staleTime
}

// Invalidate marks every entry whose key starts with prefix as stale and
// supersedes fetches already in flight for them. It returns the number of
// entries touched.
func (c *Client) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		e.invalidated = true
		e.generation++
		n++
	}
	c.logger.Debug("invalidated queries", "prefix", prefix.Hash(), "count", n)
	return n
}

// Len returns the number of entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Client) entryLocked(key Key, hash string) *entry {
	e, ok := c.entries[hash]
	if !ok {
		e = &entry{key: append(Key(nil), key...)}
		c.entries[hash] = e
	}
	return e
}

func (c *Client) leave(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[hash]; ok && e.inFlight > 0 {
		e.inFlight--
	}
}

func (c *Client) settle(hash string, gen uint64, data any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[hash]
	if !ok {
		return
	}
	if e.generation != gen {
		c.logger.Debug("discarding superseded result", "key", hash, "generation", gen, "current", e.generation)
		return
	}
	if errors.Is(err, context.Canceled) {
		// The call was abandoned, not answered; the entry keeps its state.
		return
	}
	if err != nil {
		// Previously fetched data stays available next to the error.
		e.status = StatusError
		e.err = err
		return
	}
	e.status = StatusSuccess
	e.err = nil
	e.data = data
	e.raw = nil
	e.hasData = true
	e.invalidated = false
	e.updatedAt = c.now()
}
