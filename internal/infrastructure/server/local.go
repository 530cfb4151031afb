package server

import (
	"sync"

	"github.com/gin-gonic/gin"
)

// arenaKey is the gin context key holding the per-request arena.
const arenaKey = "ginsentry.arena"

// arena is the request-local storage shared by all Local slots of one request.
type arena struct {
	mu     sync.Mutex
	values map[interface{}]interface{}
}

// arenaOf returns the arena attached to c, attaching a new one if needed.
// The server attaches the arena before any fairing runs; lazy attachment
// covers fairings used as plain gin middleware.
func arenaOf(c *gin.Context) *arena {
	if v, ok := c.Get(arenaKey); ok {
		if a, ok := v.(*arena); ok {
			return a
		}
	}

	a := newArena()
	c.Set(arenaKey, a)
	return a
}

func newArena() *arena {
	return &arena{values: make(map[interface{}]interface{})}
}

// Local is a typed, request-scoped slot. Each request gets an independent
// value; a value stored while handling one request is never visible to another.
//
// Slots are identified by the *Local pointer, so two slots with the same name
// never collide.
type Local[T any] struct {
	name string
}

// NewLocal creates a slot. name is only used for diagnostics.
func NewLocal[T any](name string) *Local[T] {
	return &Local[T]{name: name}
}

// Name returns the diagnostic name of the slot.
func (l *Local[T]) Name() string {
	return l.name
}

// GetOrInit returns the value stored for this request, calling init to
// create it on first use. The first write wins: later calls return the same
// value and never call init again.
func (l *Local[T]) GetOrInit(c *gin.Context, init func() T) T {
	a := arenaOf(c)
	a.mu.Lock()
	defer a.mu.Unlock()

	if v, ok := a.values[l]; ok {
		return v.(T)
	}

	v := init()
	a.values[l] = v
	return v
}

// Get returns the value stored for this request, if any.
func (l *Local[T]) Get(c *gin.Context) (T, bool) {
	a := arenaOf(c)
	a.mu.Lock()
	defer a.mu.Unlock()

	v, ok := a.values[l]
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Take returns the value stored for this request and clears the slot, so a
// value is handed out at most once.
func (l *Local[T]) Take(c *gin.Context) (T, bool) {
	a := arenaOf(c)
	a.mu.Lock()
	defer a.mu.Unlock()

	v, ok := a.values[l]
	if !ok {
		var zero T
		return zero, false
	}
	delete(a.values, l)
	return v.(T), true
}
