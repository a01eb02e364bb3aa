package hook

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

type subscription[T any] struct {
	id       uuid.UUID
	priority int
	fn       func(T)
	removed  atomic.Bool
}

// List is an ordered set of observers. Observers run synchronously, higher
// priority first, then in subscription order. The zero value is ready to use.
type List[T any] struct {
	mu   sync.RWMutex
	subs []*subscription[T]
}

// Subscribe adds fn at priority 0.
func (l *List[T]) Subscribe(fn func(T)) Unsubscribe {
	return l.SubscribeAt(0, fn)
}

// SubscribeAt adds fn at the given priority.
// A nil fn is ignored and yields a no-op Unsubscribe.
func (l *List[T]) SubscribeAt(priority int, fn func(T)) Unsubscribe {
	if fn == nil {
		return func() {}
	}
	s := &subscription[T]{id: uuid.New(), priority: priority, fn: fn}

	l.mu.Lock()
	i := len(l.subs)
	for j, existing := range l.subs {
		if existing.priority < priority {
			i = j
			break
		}
	}
	l.subs = slices.Insert(l.subs, i, s)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(s) })
	}
}

// Notify calls every live observer with v.
// Observers removed during the pass are skipped.
func (l *List[T]) Notify(v T) {
	l.mu.RLock()
	subs := slices.Clone(l.subs)
	l.mu.RUnlock()

	for _, s := range subs {
		if s.removed.Load() {
			continue
		}
		s.fn(v)
	}
}

// Len returns the number of live observers.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs)
}

// IDs returns the subscription ids in notification order.
func (l *List[T]) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, len(l.subs))
	for i, s := range l.subs {
		ids[i] = s.id.String()
	}
	return ids
}

// Clear removes every observer.
func (l *List[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.subs {
		s.removed.Store(true)
	}
	l.subs = nil
}

func (l *List[T]) remove(s *subscription[T]) {
	s.removed.Store(true)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = slices.DeleteFunc(l.subs, func(x *subscription[T]) bool { return x == s })
}
