// Package watch implements the small subscription primitives the repository
// layer is built on: coalescing change signals and replay-latest values.
// Subscribers that fall behind always observe the most recent state, never a
// backlog of intermediate ones.
package watch

import (
	"context"
	"sync"
)

// SendLatest delivers v on a capacity-one channel, replacing any unread
// value so the reader only ever sees the newest one.
func SendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// Signal broadcasts edge-triggered change notifications. Notifications
// coalesce: a subscriber that missed several ticks wakes up once.
type Signal struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// NewSignal returns a Signal with no subscribers.
func NewSignal() *Signal {
	return &Signal{subs: make(map[chan struct{}]struct{})}
}

// Notify wakes every subscriber.
func (s *Signal) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe returns a channel that receives after every Notify. The
// subscription ends and the channel closes when ctx is done.
func (s *Signal) Subscribe(ctx context.Context) <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		s.mu.Unlock()
		close(ch)
	}()
	return ch
}

// Value holds a current value of type T and lets subscribers observe it and
// every subsequent update, latest-wins.
type Value[T any] struct {
	mu   sync.Mutex
	v    T
	set  bool
	subs map[chan T]struct{}
}

// NewValue returns an empty Value.
func NewValue[T any]() *Value[T] {
	return &Value[T]{subs: make(map[chan T]struct{})}
}

// Set stores v and pushes it to all subscribers.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.v = val
	v.set = true
	for ch := range v.subs {
		SendLatest(ch, val)
	}
}

// Get returns the current value and whether one has been set.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.v, v.set
}

// Watch returns a channel that replays the current value, if set, and then
// delivers every update until ctx is done, at which point it closes.
func (v *Value[T]) Watch(ctx context.Context) <-chan T {
	ch := make(chan T, 1)
	v.mu.Lock()
	if v.set {
		ch <- v.v
	}
	v.subs[ch] = struct{}{}
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subs, ch)
		v.mu.Unlock()
		close(ch)
	}()
	return ch
}
