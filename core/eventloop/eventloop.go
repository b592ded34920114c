// Package eventloop is a small in-process publish/subscribe loop for
// system notifications such as radio and address events.
//
// Producers Post events; consumers Subscribe and wait on Next. Delivery is
// edge-triggered and lossless: events posted while no one is waiting are
// queued on each subscription until read.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned once a loop or subscription has been closed.
var ErrClosed = errors.New("event loop closed")

// Event is a single notification. Base groups related IDs, e.g. "WIFI_EVENT".
type Event struct {
	Base    string
	ID      int32
	Payload any
}

func (e Event) String() string {
	return fmt.Sprintf("%s/%d", e.Base, e.ID)
}

// Loop fans events out to every live subscription.
type Loop struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{subs: make(map[*Subscription]struct{})}
}

// Post delivers ev to all current subscribers. It never blocks.
func (l *Loop) Post(ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	for s := range l.subs {
		s.push(ev)
	}
	return nil
}

// Subscribe registers a new subscription. Events posted after this call
// returns are guaranteed to be observed by it.
func (l *Loop) Subscribe() (*Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}
	s := &Subscription{
		loop:   l,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	l.subs[s] = struct{}{}
	return s, nil
}

// Close detaches every subscription. Pending events already queued on a
// subscription can still be drained.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for s := range l.subs {
		s.mu.Lock()
		s.closeLocked()
		s.mu.Unlock()
		delete(l.subs, s)
	}
}

func (l *Loop) remove(s *Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.subs, s)
}

// Subscription is one consumer's ordered view of the loop.
type Subscription struct {
	loop *Loop

	mu     sync.Mutex
	queue  []Event
	closed bool

	// notify holds at most one token meaning "queue may be non-empty".
	notify chan struct{}
	done   chan struct{}
}

func (s *Subscription) push(ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return Event{}, false
	}
	ev := s.queue[0]
	s.queue[0] = Event{}
	s.queue = s.queue[1:]
	return ev, true
}

// Next returns the oldest undelivered event, waiting until one is posted,
// the subscription is closed, or ctx ends.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		if ev, ok := s.pop(); ok {
			return ev, nil
		}
		select {
		case <-s.notify:
		case <-s.done:
			if ev, ok := s.pop(); ok {
				return ev, nil
			}
			return Event{}, ErrClosed
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Close detaches the subscription from its loop.
func (s *Subscription) Close() {
	s.loop.remove(s)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

// closeLocked must be called with s.mu held.
func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
