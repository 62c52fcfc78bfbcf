// Copyright 2026 Luke Dempsey.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jbd

import (
	"fmt"
	"time"

	"github.com/lukedempsey/jbd-ui-tool/internal/syncutil"
)

// Direction marks which way bytes travelled on the wire
type Direction string

const (
	// DirTX is host-to-device traffic
	DirTX Direction = "TX"
	// DirRX is device-to-host traffic
	DirRX Direction = "RX"
)

// TrafficEvent is one directional byte observation with its capture time
type TrafficEvent struct {
	Timestamp time.Time
	Direction Direction
	Data      []byte
}

// String formats an event for display
func (e TrafficEvent) String() string {
	arrow := ">"
	if e.Direction == DirRX {
		arrow = "<"
	}
	return fmt.Sprintf("[%s] %s %s", e.Timestamp.Format("15:04:05.000"), arrow, FormatHexBytes(e.Data))
}

// TrafficRecorder is a bounded, pausable FIFO of wire events. When full,
// the oldest entry is evicted. While paused, new events are dropped, not
// buffered. Subscribers receive each event at most once over a bounded
// channel; events are dropped for a subscriber whose buffer is full rather
// than blocking the wire path.
type TrafficRecorder struct {
	subs    map[int]chan TrafficEvent
	events  []TrafficEvent
	max     int
	nextSub int
	mu      syncutil.RWMutex
	paused  bool
}

// defaultRecorderCapacity bounds the in-memory event log
const defaultRecorderCapacity = 512

// NewTrafficRecorder creates a recorder holding at most capacity events.
// A non-positive capacity falls back to the default.
func NewTrafficRecorder(capacity int) *TrafficRecorder {
	if capacity <= 0 {
		capacity = defaultRecorderCapacity
	}
	return &TrafficRecorder{
		max:  capacity,
		subs: make(map[int]chan TrafficEvent),
	}
}

// Record captures one directional byte event. Data is copied, so callers
// may reuse their buffer.
func (r *TrafficRecorder) Record(dir Direction, data []byte) {
	r.mu.Lock()
	if r.paused {
		r.mu.Unlock()
		return
	}

	event := TrafficEvent{
		Timestamp: time.Now(),
		Direction: dir,
		Data:      append([]byte(nil), data...),
	}

	if len(r.events) >= r.max {
		copy(r.events, r.events[1:])
		r.events[len(r.events)-1] = event
	} else {
		r.events = append(r.events, event)
	}

	for _, ch := range r.subs {
		select {
		case ch <- event:
		default:
			// Subscriber buffer full: drop rather than stall the wire path
		}
	}
	r.mu.Unlock()
}

// Pause stops capturing. Events arriving while paused are lost.
func (r *TrafficRecorder) Pause() {
	r.mu.Lock()
	r.paused = true
	r.mu.Unlock()
}

// Resume restarts capturing
func (r *TrafficRecorder) Resume() {
	r.mu.Lock()
	r.paused = false
	r.mu.Unlock()
}

// Paused reports whether capturing is paused
func (r *TrafficRecorder) Paused() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paused
}

// Events returns a copy of the retained log, oldest first
func (r *TrafficRecorder) Events() []TrafficEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TrafficEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of retained events
func (r *TrafficRecorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Clear drops all retained events
func (r *TrafficRecorder) Clear() {
	r.mu.Lock()
	r.events = r.events[:0]
	r.mu.Unlock()
}

// Subscribe registers a live event listener with the given channel buffer.
// The returned cancel function unregisters the listener and closes its
// channel; it is safe to call more than once.
func (r *TrafficRecorder) Subscribe(buffer int) (<-chan TrafficEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan TrafficEvent, buffer)

	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}
