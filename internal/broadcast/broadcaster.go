// Package broadcast fans room events out to any number of subscribers
// without ever blocking the publisher.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrLagged means the subscriber fell behind and events were overwritten;
	// it should resynchronise from a snapshot and keep receiving.
	ErrLagged = errors.New("broadcast: subscriber lagged")

	// ErrClosed means the bus was shut down and no more events will arrive
	ErrClosed = errors.New("broadcast: bus closed")
)

// Bus is a bounded ring of events. Each subscriber reads at its own cursor;
// once the ring wraps past a cursor the subscriber is told it lagged.
type Bus struct {
	mu     sync.Mutex
	ring   []Event
	next   uint64 // sequence number of the next published event
	wake   chan struct{}
	closed bool
	subs   int
}

// NewBus creates a bus holding up to capacity undelivered events
func NewBus(capacity int) *Bus {
	if capacity < 1 {
		capacity = 1
	}
	return &Bus{
		ring: make([]Event, capacity),
		wake: make(chan struct{}),
	}
}

// Publish appends ev and wakes waiting subscribers. It never blocks on them.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.ring[b.next%uint64(len(b.ring))] = ev
	b.next++
	close(b.wake)
	b.wake = make(chan struct{})
}

// Subscribe returns a subscription that sees events published from now on
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs++
	return &Subscription{bus: b, cursor: b.next}
}

// Subscribers returns the number of open subscriptions
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subs
}

// Close stops the bus. Subscribers drain what is buffered, then get ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.wake)
}

// Subscription is one reader's cursor into a Bus. It is not safe for
// concurrent use by multiple goroutines.
type Subscription struct {
	bus    *Bus
	cursor uint64
	once   sync.Once
}

// Recv blocks until the next event, a lag, bus closure, or ctx is done
func (s *Subscription) Recv(ctx context.Context) (Event, error) {
	b := s.bus
	for {
		b.mu.Lock()
		if s.cursor < b.next {
			var oldest uint64
			if size := uint64(len(b.ring)); b.next > size {
				oldest = b.next - size
			}
			if s.cursor < oldest {
				missed := oldest - s.cursor
				s.cursor = b.next
				b.mu.Unlock()
				return nil, fmt.Errorf("%w: missed %d events", ErrLagged, missed)
			}
			ev := b.ring[s.cursor%uint64(len(b.ring))]
			s.cursor++
			b.mu.Unlock()
			return ev, nil
		}
		if b.closed {
			b.mu.Unlock()
			return nil, ErrClosed
		}
		wake := b.wake
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

// Close releases the subscription
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		s.bus.subs--
		s.bus.mu.Unlock()
	})
}
