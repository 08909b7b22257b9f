package pubsub

import (
	"context"
)

// WaitFor blocks until an event on ch satisfies match, ctx is done, or ch
// closes. The boolean is false when no matching event arrived.
func WaitFor[T any](ctx context.Context, ch <-chan Event[T], match func(Event[T]) bool) (Event[T], bool) {
	for {
		select {
		case <-ctx.Done():
			return Event[T]{}, false
		case ev, ok := <-ch:
			if !ok {
				return Event[T]{}, false
			}
			if match == nil || match(ev) {
				return ev, true
			}
		}
	}
}
