// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package playback

import "sync"

// Observers is a list of callbacks for one event type. The zero value
// is ready to use. Safe for concurrent use; callbacks run on the
// publishing goroutine, in subscription order, without any lock held.
type Observers[T any] struct {
	mu       sync.Mutex
	next     uint64
	handlers []handler[T]
}

type handler[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe adds fn and returns a function that removes it. Calling
// the returned function more than once is harmless.
func (o *Observers[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.next++
	id := o.next
	o.handlers = append(o.handlers, handler[T]{id: id, fn: fn})
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, h := range o.handlers {
			if h.id == id {
				// Copy on write: a Publish in progress keeps its slice.
				o.handlers = append(o.handlers[:i:i], o.handlers[i+1:]...)
				return
			}
		}
	}
}

// Publish calls every subscribed callback with event.
func (o *Observers[T]) Publish(event T) {
	o.mu.Lock()
	handlers := o.handlers
	o.mu.Unlock()
	for _, h := range handlers {
		h.fn(event)
	}
}

// Len returns the number of subscribed callbacks.
func (o *Observers[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.handlers)
}
