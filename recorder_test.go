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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCapturesBothDirections(t *testing.T) {
	t.Parallel()

	rec := NewTrafficRecorder(8)
	rec.Record(DirTX, []byte{0xDD, 0xA5})
	rec.Record(DirRX, []byte{0xDD, 0x03})

	events := rec.Events()
	require.Len(t, events, 2)
	assert.Equal(t, DirTX, events[0].Direction)
	assert.Equal(t, DirRX, events[1].Direction)
	assert.Equal(t, []byte{0xDD, 0xA5}, events[0].Data)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestRecorderCopiesData(t *testing.T) {
	t.Parallel()

	rec := NewTrafficRecorder(8)
	buf := []byte{0x01, 0x02}
	rec.Record(DirTX, buf)
	buf[0] = 0xFF

	assert.Equal(t, []byte{0x01, 0x02}, rec.Events()[0].Data)
}

func TestRecorderEvictsOldest(t *testing.T) {
	t.Parallel()

	rec := NewTrafficRecorder(3)
	for i := 0; i < 5; i++ {
		rec.Record(DirTX, []byte{byte(i)})
	}

	events := rec.Events()
	require.Len(t, events, 3)
	assert.Equal(t, []byte{2}, events[0].Data)
	assert.Equal(t, []byte{4}, events[2].Data)
	assert.Equal(t, 3, rec.Len())
}

func TestRecorderPauseDropsEvents(t *testing.T) {
	t.Parallel()

	rec := NewTrafficRecorder(8)
	rec.Record(DirTX, []byte{0x01})

	rec.Pause()
	assert.True(t, rec.Paused())
	rec.Record(DirTX, []byte{0x02})
	rec.Record(DirRX, []byte{0x03})

	rec.Resume()
	rec.Record(DirTX, []byte{0x04})

	events := rec.Events()
	require.Len(t, events, 2)
	// The paused window is a gap, not a backlog
	assert.Equal(t, []byte{0x01}, events[0].Data)
	assert.Equal(t, []byte{0x04}, events[1].Data)
}

func TestRecorderClear(t *testing.T) {
	t.Parallel()

	rec := NewTrafficRecorder(8)
	rec.Record(DirTX, []byte{0x01})
	rec.Clear()
	assert.Equal(t, 0, rec.Len())
}

func TestRecorderSubscribe(t *testing.T) {
	t.Parallel()

	rec := NewTrafficRecorder(8)
	events, cancel := rec.Subscribe(4)
	defer cancel()

	rec.Record(DirTX, []byte{0xDD})

	ev := <-events
	assert.Equal(t, DirTX, ev.Direction)
	assert.Equal(t, []byte{0xDD}, ev.Data)
}

func TestRecorderSubscriberOverflowDoesNotBlock(t *testing.T) {
	t.Parallel()

	rec := NewTrafficRecorder(16)
	events, cancel := rec.Subscribe(1)
	defer cancel()

	// Nobody draining: the second record must not block the wire path
	rec.Record(DirTX, []byte{0x01})
	rec.Record(DirTX, []byte{0x02})

	ev := <-events
	assert.Equal(t, []byte{0x01}, ev.Data)
	assert.Equal(t, 2, rec.Len())
}

func TestRecorderSubscribeCancel(t *testing.T) {
	t.Parallel()

	rec := NewTrafficRecorder(8)
	events, cancel := rec.Subscribe(4)

	cancel()
	cancel() // safe to call twice

	_, open := <-events
	assert.False(t, open)

	// Recording after cancel must not panic on the closed channel
	rec.Record(DirTX, []byte{0x01})
}

func TestTrafficEventString(t *testing.T) {
	t.Parallel()

	tx := TrafficEvent{Direction: DirTX, Data: []byte{0xDD, 0x77}}
	rx := TrafficEvent{Direction: DirRX, Data: []byte{0xDD}}

	assert.Contains(t, tx.String(), "> DD 77")
	assert.Contains(t, rx.String(), "< DD")
	assert.Contains(t, fmt.Sprint(tx), "DD 77")
}
