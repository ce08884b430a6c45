// Package pagecache keeps an in-memory, append-growable view of a remote
// collection that is fetched page by page and mutated locally between fetches.
package pagecache

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

const DefaultPageSize = 20

// Record is anything with a stable identity inside its collection.
type Record interface {
	Key() string
}

// Page is one slice of a remote collection.
type Page[T any] struct {
	Items []T
	// Cursor marks the position after the last item. Empty when Items is empty.
	Cursor string
	// More reports whether records exist past Cursor.
	More bool
}

// Source fetches pages of a remote collection in its sort order.
type Source[T any] interface {
	FetchPage(ctx context.Context, cursor string, limit int) (Page[T], error)
}

// Status is the lifecycle state of a Cache.
type Status int

const (
	StatusEmpty Status = iota
	StatusLoading
	StatusLoaded
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	}

	return "unknown"
}

// State is a point-in-time copy of a cache.
type State[T any] struct {
	Items     []T
	Cursor    string
	HasMore   bool
	IsLoading bool
	Status    Status
}

type opKind int

const (
	opInsert opKind = iota
	opUpdate
	opDelete
)

type mutation[T Record] struct {
	kind opKind
	key  string
	rec  T
	fn   func(*T)
}

func (m mutation[T]) apply(items []T) []T {
	idx := slices.IndexFunc(items, func(it T) bool { return it.Key() == m.key })

	switch m.kind {
	case opInsert:
		if idx >= 0 {
			return items
		}

		return append([]T{m.rec}, items...)
	case opUpdate:
		if idx >= 0 {
			m.fn(&items[idx])
		}
	case opDelete:
		if idx >= 0 {
			return slices.Delete(items, idx, idx+1)
		}
	}

	return items
}

// Cache is safe for concurrent use.
//
// Local mutations made while a fetch is in flight are journaled and replayed
// onto the fetched page once it lands, so a reset never drops them.
type Cache[T Record] struct {
	src      Source[T]
	pageSize int

	mu      sync.Mutex
	items   []T
	cursor  string
	hasMore bool
	loading bool
	loaded  bool
	gen     uint64
	journal []mutation[T]
}

func New[T Record](src Source[T], pageSize int) *Cache[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Cache[T]{src: src, pageSize: pageSize, hasMore: true}
}

func (c *Cache[T]) PageSize() int {
	return c.pageSize
}

// Reset drops everything and loads the first page. It supersedes any fetch
// already in flight; the superseded result is discarded.
func (c *Cache[T]) Reset(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.items = nil
	c.cursor = ""
	c.hasMore = true
	c.loading = true
	c.loaded = false
	c.journal = nil
	c.mu.Unlock()

	page, err := c.src.FetchPage(ctx, "", c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return nil
	}

	c.loading = false
	journal := c.journal
	c.journal = nil

	if err != nil {
		return fmt.Errorf("fetching first page: %w", err)
	}

	items := slices.Clone(page.Items)
	for _, m := range journal {
		items = m.apply(items)
	}

	c.items = items
	c.cursor = page.Cursor
	c.hasMore = page.More
	c.loaded = true

	return nil
}

// LoadMore fetches the next page and appends it. It reports false without
// fetching when a fetch is already in flight or nothing more is available.
// Dropped calls are not queued.
func (c *Cache[T]) LoadMore(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.loading || !c.hasMore {
		c.mu.Unlock()
		return false, nil
	}

	c.loading = true
	gen := c.gen
	cursor := c.cursor
	c.journal = nil
	c.mu.Unlock()

	page, err := c.src.FetchPage(ctx, cursor, c.pageSize)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return true, nil
	}

	c.loading = false
	journal := c.journal
	c.journal = nil

	if err != nil {
		return true, fmt.Errorf("fetching page: %w", err)
	}

	fresh := make([]T, 0, len(page.Items))
	for _, it := range page.Items {
		if !c.containsLocked(it.Key()) {
			fresh = append(fresh, it)
		}
	}

	// Inserts were already prepended when they happened.
	for _, m := range journal {
		if m.kind != opInsert {
			fresh = m.apply(fresh)
		}
	}

	c.items = append(c.items, fresh...)
	if len(page.Items) > 0 {
		c.cursor = page.Cursor
	}

	c.hasMore = page.More
	c.loaded = true

	return true, nil
}

// Insert prepends rec. Cursor and hasMore are left alone.
func (c *Cache[T]) Insert(rec T) {
	c.mutate(mutation[T]{kind: opInsert, key: rec.Key(), rec: rec})
}

// Update runs fn on the cached record with the given key, in place. The order
// of items is not changed. It reports whether the record was cached.
func (c *Cache[T]) Update(key string, fn func(*T)) bool {
	return c.mutate(mutation[T]{kind: opUpdate, key: key, fn: fn})
}

// Delete removes the record with the given key and reports whether it was cached.
func (c *Cache[T]) Delete(key string) bool {
	return c.mutate(mutation[T]{kind: opDelete, key: key})
}

func (c *Cache[T]) mutate(m mutation[T]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	found := c.containsLocked(m.key)
	c.items = m.apply(c.items)

	if c.loading {
		c.journal = append(c.journal, m)
	}

	return found
}

func (c *Cache[T]) containsLocked(key string) bool {
	return slices.ContainsFunc(c.items, func(it T) bool { return it.Key() == key })
}

// Snapshot copies the current state.
func (c *Cache[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State[T]{
		Items:     slices.Clone(c.items),
		Cursor:    c.cursor,
		HasMore:   c.hasMore,
		IsLoading: c.loading,
		Status:    c.statusLocked(),
	}
}

func (c *Cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.items)
}

func (c *Cache[T]) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.hasMore
}

func (c *Cache[T]) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.loading
}

func (c *Cache[T]) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.statusLocked()
}

func (c *Cache[T]) statusLocked() Status {
	switch {
	case c.loading:
		return StatusLoading
	case c.loaded:
		return StatusLoaded
	}

	return StatusEmpty
}
