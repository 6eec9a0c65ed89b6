package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Tag identifies the memoized function a key belongs to.
type Tag string

// Key identifies a single memoized call: the function tag plus its argument tuple.
// Arguments are compared exactly; strings are not trimmed or case-folded.
type Key struct {
	Fn   Tag
	Args string
}

// NewKey builds a Key from a function tag and its arguments.
func NewKey(fn Tag, args ...any) Key {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%#v", a)
	}
	return Key{Fn: fn, Args: strings.Join(parts, ",")}
}

func (k Key) String() string {
	return string(k.Fn) + "(" + k.Args + ")"
}

// entry holds the memoized result of a call, error included.
type entry struct {
	value any
	err   error
}

// transient is implemented by errors that describe a local fast-fail rather
// than an upstream answer.
type transient interface {
	Transient() bool
}

func isTransient(err error) bool {
	var t transient
	return errors.As(err, &t) && t.Transient()
}

// Cache is a concurrency-safe memo of fetch results with a per-entry expiry.
// Concurrent misses on the same key are not deduplicated.
type Cache struct {
	items *gocache.Cache
}

// New creates an empty Cache. cleanupInterval controls how often expired
// entries are purged from memory; expired entries are never served either way.
func New(cleanupInterval time.Duration) *Cache {
	return &Cache{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Memoize returns the cached result for key if it has not expired, otherwise it
// calls compute, stores its result (successful or not) for ttl and returns it.
// A ttl <= 0 disables caching for the call. Results computed after ctx was
// cancelled, and transient errors, are returned but not stored.
func Memoize[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, compute func() (T, error)) (T, error) {
	k := key.String()

	if v, ok := c.items.Get(k); ok {
		if e, ok := v.(entry); ok {
			log.Printf("DEBUG: cache hit key=%s", k)
			val, _ := e.value.(T)
			return val, e.err
		}
	}

	val, err := compute()
	if ttl <= 0 || ctx.Err() != nil || isTransient(err) {
		return val, err
	}

	c.items.Set(k, entry{value: val, err: err}, ttl)
	return val, err
}

// Invalidate drops the entry for key, if any.
func (c *Cache) Invalidate(key Key) {
	c.items.Delete(key.String())
}

// ClearAll drops every entry unconditionally.
func (c *Cache) ClearAll() {
	c.items.Flush()
	log.Println("INFO: cache cleared")
}

// Len reports the number of stored entries, including expired ones not yet purged.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}
