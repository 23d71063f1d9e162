// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"sync"

	"github.com/dealerhq/dealer/log"
)

var logger = log.WithContext("pkg", "events")

// Sink receives events after the transition that produced them is committed.
// Emit must not block for long and never reports failure to the caller.
type Sink interface {
	Emit(ev *Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev *Event)

// Emit implements Sink.
func (f SinkFunc) Emit(ev *Event) { f(ev) }

// Writer persists events.
type Writer interface {
	Write(ev *Event) error
}

// Store adapts a Writer to Sink. Write failures are logged and dropped.
func Store(w Writer) Sink {
	return SinkFunc(func(ev *Event) {
		if err := w.Write(ev); err != nil {
			logger.Error("failed to store event", "event", ev.Name, "seq", ev.Seq, "err", err)
		}
	})
}

type multi []Sink

func (m multi) Emit(ev *Event) {
	for _, s := range m {
		s.Emit(ev.Copy())
	}
}

// Multi returns a sink that delivers every event to all given sinks in order.
// Each sink gets its own copy.
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	return m
}

// Recorder keeps every emitted event in memory.
type Recorder struct {
	mu     sync.RWMutex
	events []*Event
}

// Emit implements Sink.
func (r *Recorder) Emit(ev *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.Copy())
}

// Events returns the recorded events in emission order.
func (r *Recorder) Events() []*Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the names of the recorded events in emission order.
func (r *Recorder) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		names = append(names, ev.Name)
	}
	return names
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Last returns the most recent event, or nil.
func (r *Recorder) Last() *Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}
