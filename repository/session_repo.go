package repository

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// SessionRepo keeps live chat sessions in memory. Entries expire after ttl
// without access.
type SessionRepo[T any] interface {
	Save(id string, session T)
	Get(id string) (T, bool)
	Delete(id string)
	Count() int
	OnEvicted(fn func(id string, session T))
}

type sessionRepo[T any] struct {
	cache *cache.Cache
}

func NewSessionRepo[T any](ttl, cleanupInterval time.Duration) SessionRepo[T] {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &sessionRepo[T]{
		cache: cache.New(ttl, cleanupInterval),
	}
}

func (r *sessionRepo[T]) Save(id string, session T) {
	r.cache.Set(id, session, cache.DefaultExpiration)
}

// Get returns the session and extends its lifetime.
func (r *sessionRepo[T]) Get(id string) (T, bool) {
	var zero T
	v, ok := r.cache.Get(id)
	if !ok {
		return zero, false
	}
	session, ok := v.(T)
	if !ok {
		return zero, false
	}
	r.cache.Set(id, session, cache.DefaultExpiration)
	return session, true
}

func (r *sessionRepo[T]) Delete(id string) {
	r.cache.Delete(id)
}

func (r *sessionRepo[T]) Count() int {
	return r.cache.ItemCount()
}

func (r *sessionRepo[T]) OnEvicted(fn func(id string, session T)) {
	r.cache.OnEvicted(func(id string, v interface{}) {
		if session, ok := v.(T); ok {
			fn(id, session)
		}
	})
}
