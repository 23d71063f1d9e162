// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>


package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"
)

// ErrLagged ends a subscription whose channel was full when an event was
// dispatched. The subscriber has missed that event and the ones after it.
var ErrLagged = errors.New("events: subscriber lagged behind")

// Feed fans events out to subscribers. Emit only enqueues and the dispatcher
// never waits on a subscriber, so a slow subscriber stalls neither the ledger
// nor the other subscribers. A subscriber that cannot keep up is dropped with
// ErrLagged.
type Feed struct {
	mu    sync.Mutex
	subs  map[*feedSub]struct{}
	queue chan *Event
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

type feedSub struct {
	ch     chan<- *Event
	lagged chan struct{}
}

// NewFeed creates a feed with the given queue capacity and starts its dispatcher.
func NewFeed(queueSize int) *Feed {
	f := &Feed{
		subs:  make(map[*feedSub]struct{}),
		queue: make(chan *Event, queueSize),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go f.loop()
	return f
}

func (f *Feed) loop() {
	defer close(f.done)
	for {
		select {
		case ev := <-f.queue:
			f.dispatch(ev)
		case <-f.quit:
			return
		}
	}
}

func (f *Feed) dispatch(ev *Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for s := range f.subs {
		select {
		case s.ch <- ev:
		default:
			delete(f.subs, s)
			close(s.lagged)
			logger.Debug("subscriber lagged, dropped", "event", ev.Name, "seq", ev.Seq)
		}
	}
}

// Emit implements Sink. When the queue is full the event is dropped and every
// current subscriber ends with ErrLagged, since none of them will see it.
func (f *Feed) Emit(ev *Event) {
	select {
	case <-f.quit:
		return
	default:
	}
	select {
	case f.queue <- ev:
	default:
		logger.Warn("event feed queue full, dropped", "event", ev.Name, "seq", ev.Seq)
		f.dropAll()
	}
}

func (f *Feed) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for s := range f.subs {
		delete(f.subs, s)
		close(s.lagged)
	}
}

// Subscribe registers ch to receive events. The subscription fails with
// ErrLagged as soon as ch is full at dispatch time, and ends without error
// when the feed is closed.
func (f *Feed) Subscribe(ch chan<- *Event) event.Subscription {
	s := &feedSub{ch: ch, lagged: make(chan struct{})}
	f.mu.Lock()
	f.subs[s] = struct{}{}
	f.mu.Unlock()

	return event.NewSubscription(func(unsub <-chan struct{}) error {
		defer func() {
			f.mu.Lock()
			delete(f.subs, s)
			f.mu.Unlock()
		}()
		select {
		case <-unsub:
			return nil
		case <-s.lagged:
			return ErrLagged
		case <-f.quit:
			return nil
		}
	})
}

// Close stops the dispatcher.
func (f *Feed) Close() {
	f.once.Do(func() {
		close(f.quit)
		<-f.done
	})
}
