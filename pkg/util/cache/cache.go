package cache

import (
	"sync"
	"time"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/dump"

	utilk8s "github.com/lburgazzoli/kpipe/pkg/util/k8s"
)

const (
	defaultTTL = 5 * time.Minute
)

// Interface is a key/value cache whose entries expire after a TTL.
type Interface[T any] interface {
	// Get returns the value stored for key, if present and not expired.
	Get(key string) (T, bool)

	// Set stores value for key, replacing any previous entry.
	Set(key string, value T)

	// Sync evicts expired entries.
	Sync()

	// Len returns the number of stored entries, expired or not.
	Len() int
}

type entry[T any] struct {
	value      T
	expiration time.Time
}

type ttlCache[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]
	ttl     time.Duration
	now     func() time.Time
}

// New creates an in-memory cache. A non-positive TTL falls back to five minutes.
func New[T any](opts ...Option) Interface[T] {
	options := Options{
		TTL: defaultTTL,
		Now: time.Now,
	}

	for _, opt := range opts {
		opt.ApplyTo(&options)
	}

	if options.TTL <= 0 {
		options.TTL = defaultTTL
	}
	if options.Now == nil {
		options.Now = time.Now
	}

	return &ttlCache[T]{
		entries: make(map[string]entry[T]),
		ttl:     options.TTL,
		now:     options.Now,
	}
}

func (c *ttlCache[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var zero T

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiration) {
		return zero, false
	}

	return e.value, true
}

func (c *ttlCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[T]{
		value:      value,
		expiration: c.now().Add(c.ttl),
	}
}

func (c *ttlCache[T]) Sync() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiration) {
			delete(c.entries, key)
		}
	}
}

func (c *ttlCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// cloningCache copies values on the way in and on the way out so callers
// can never mutate what is stored.
type cloningCache[T any] struct {
	delegate Interface[T]
	clone    func(T) T
}

// NewCloning wraps a new cache so that every Get and Set goes through clone.
func NewCloning[T any](clone func(T) T, opts ...Option) Interface[T] {
	return &cloningCache[T]{
		delegate: New[T](opts...),
		clone:    clone,
	}
}

// NewRenderCache creates a cache for renderer results with deep-cloned entries.
func NewRenderCache(opts ...Option) Interface[[]unstructured.Unstructured] {
	return NewCloning(utilk8s.DeepCloneUnstructuredSlice, opts...)
}

func (c *cloningCache[T]) Get(key string) (T, bool) {
	v, ok := c.delegate.Get(key)
	if !ok {
		return v, false
	}

	return c.clone(v), true
}

func (c *cloningCache[T]) Set(key string, value T) {
	c.delegate.Set(key, c.clone(value))
}

func (c *cloningCache[T]) Sync() {
	c.delegate.Sync()
}

func (c *cloningCache[T]) Len() int {
	return c.delegate.Len()
}

// Key builds a cache key from arbitrary, possibly nested, data. Map keys
// are sorted so equal inputs always produce the same key.
func Key(data any) string {
	return dump.ForHash(data)
}
