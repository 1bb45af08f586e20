package session

import "sync"

// Observable is the read side of a session cell.
type Observable[T any] interface {
	Get() T
	Subscribe(fn func(T)) (unsubscribe func())
}

// Cell holds one piece of session state. Readers see the last write; writes are serialized
// and subscribers are called on the writer's goroutine, in subscription order. Subscribers
// must not write back into the session.
type Cell[T any] struct {
	writeMu sync.Mutex

	mu       sync.RWMutex
	value    T
	nextID   int
	subs     []subscriber[T]
	onChange func()
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

var _ Observable[bool] = (*Cell[bool])(nil)

func (c *Cell[T]) Get() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.value
}

// Subscribe registers fn for every future write.
func (c *Cell[T]) Subscribe(fn func(T)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.subs = append(c.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Cell[T]) set(v T) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.value = v
	subs := make([]subscriber[T], len(c.subs))
	copy(subs, c.subs)
	onChange := c.onChange
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
	if onChange != nil {
		onChange()
	}
}
