package pagecache

import (
	"context"
)

// Repository is a remote collection that can be paged and mutated.
type Repository[T Record, P any] interface {
	Source[T]
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, key string, patch P) (T, error)
	Delete(ctx context.Context, key string) error
}

// Collection pairs a Cache with the Repository it mirrors. Every mutation goes
// to the remote first and reaches the cache only when the remote accepts it.
type Collection[T Record, P any] struct {
	cache *Cache[T]
	repo  Repository[T, P]
}

func NewCollection[T Record, P any](repo Repository[T, P], pageSize int) *Collection[T, P] {
	return &Collection[T, P]{cache: New[T](repo, pageSize), repo: repo}
}

func (c *Collection[T, P]) Cache() *Cache[T] {
	return c.cache
}

func (c *Collection[T, P]) Reset(ctx context.Context) error {
	return c.cache.Reset(ctx)
}

func (c *Collection[T, P]) LoadMore(ctx context.Context) (bool, error) {
	return c.cache.LoadMore(ctx)
}

func (c *Collection[T, P]) Items() []T {
	return c.cache.Items()
}

func (c *Collection[T, P]) HasMore() bool {
	return c.cache.HasMore()
}

func (c *Collection[T, P]) IsLoading() bool {
	return c.cache.IsLoading()
}

func (c *Collection[T, P]) Snapshot() State[T] {
	return c.cache.Snapshot()
}

// Insert creates rec remotely and prepends the created record.
func (c *Collection[T, P]) Insert(ctx context.Context, rec T) (T, error) {
	created, err := c.repo.Create(ctx, rec)
	if err != nil {
		var zero T
		return zero, err
	}

	c.cache.Insert(created)

	return created, nil
}

// Update patches the record remotely and replaces the cached copy in place.
func (c *Collection[T, P]) Update(ctx context.Context, key string, patch P) (T, error) {
	updated, err := c.repo.Update(ctx, key, patch)
	if err != nil {
		var zero T
		return zero, err
	}

	c.cache.Update(key, func(t *T) { *t = updated })

	return updated, nil
}

// Remove deletes the record remotely and drops it from the cache.
func (c *Collection[T, P]) Remove(ctx context.Context, key string) error {
	if err := c.repo.Delete(ctx, key); err != nil {
		return err
	}

	c.cache.Delete(key)

	return nil
}
