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
	"time"

	"github.com/lukedempsey/jbd-ui-tool/internal/syncutil"
)

// Transport is the byte-oriented serial abstraction the session and the
// prober run over. Platform-specific enumeration and open primitives live
// behind it; implementations exist for real UART ports and for tests.
//
// A Transport is an exclusively-owned resource: at most one session or one
// probe may hold it open at a time.
type Transport interface {
	// Open opens the endpoint at the given baud rate
	Open(baudRate int) error

	// Close closes the endpoint. Blocked reads must return after Close.
	Close() error

	// WriteBytes writes the full buffer to the endpoint
	WriteBytes(data []byte) error

	// ReadChunk reads whatever bytes are available, waiting at most a short
	// poll interval. Returns n == 0 with a nil error when nothing arrived.
	ReadChunk(buf []byte) (int, error)

	// Endpoint returns the platform identity of the endpoint (e.g. a port path)
	Endpoint() string
}

// MockTransport is an in-memory Transport for tests. A Responder function
// maps each written request to the byte stream the fake device answers
// with; every write is kept in an ordered wire log so tests can assert
// bracketing and command ordering.
type MockTransport struct {
	// Responder produces the device's answer to a written request.
	// A nil Responder or a nil return means the device stays silent.
	Responder func(request []byte) []byte

	openErr  error
	writeErr error
	readErr  error

	pending   []byte
	writes    [][]byte
	endpoint  string
	chunkSize int
	readDelay time.Duration

	mu     syncutil.Mutex
	opened bool
	closed int
}

// NewMockTransport creates a mock endpoint identified by name
func NewMockTransport(name string) *MockTransport {
	return &MockTransport{
		endpoint:  name,
		chunkSize: 16,
		readDelay: time.Millisecond,
	}
}

// Open implements Transport
func (m *MockTransport) Open(int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return m.openErr
	}
	m.opened = true
	return nil
}

// Close implements Transport
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	m.closed++
	return nil
}

// WriteBytes implements Transport
func (m *MockTransport) WriteBytes(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return ErrTransportClosed
	}
	if m.writeErr != nil {
		return m.writeErr
	}

	logged := make([]byte, len(data))
	copy(logged, data)
	m.writes = append(m.writes, logged)

	if m.Responder != nil {
		if resp := m.Responder(logged); resp != nil {
			m.pending = append(m.pending, resp...)
		}
	}
	return nil
}

// ReadChunk implements Transport. Pending response bytes are delivered in
// chunks of at most chunkSize to exercise reassembly in callers.
func (m *MockTransport) ReadChunk(buf []byte) (int, error) {
	m.mu.Lock()
	if !m.opened {
		m.mu.Unlock()
		return 0, ErrTransportClosed
	}
	if m.readErr != nil {
		err := m.readErr
		m.mu.Unlock()
		return 0, err
	}
	if len(m.pending) == 0 {
		delay := m.readDelay
		m.mu.Unlock()
		time.Sleep(delay)
		return 0, nil
	}

	n := len(m.pending)
	if n > m.chunkSize {
		n = m.chunkSize
	}
	if n > len(buf) {
		n = len(buf)
	}
	copy(buf, m.pending[:n])
	m.pending = m.pending[n:]
	m.mu.Unlock()
	return n, nil
}

// Endpoint implements Transport
func (m *MockTransport) Endpoint() string {
	return m.endpoint
}

// Test helper methods

// SetOpenError makes Open fail with err
func (m *MockTransport) SetOpenError(err error) {
	m.mu.Lock()
	m.openErr = err
	m.mu.Unlock()
}

// SetWriteError makes WriteBytes fail with err
func (m *MockTransport) SetWriteError(err error) {
	m.mu.Lock()
	m.writeErr = err
	m.mu.Unlock()
}

// SetReadError makes ReadChunk fail with err
func (m *MockTransport) SetReadError(err error) {
	m.mu.Lock()
	m.readErr = err
	m.mu.Unlock()
}

// SetChunkSize limits how many bytes a single ReadChunk delivers
func (m *MockTransport) SetChunkSize(n int) {
	m.mu.Lock()
	m.chunkSize = n
	m.mu.Unlock()
}

// QueueBytes appends raw bytes to the pending read stream, bypassing the
// Responder. Used to simulate noise and unsolicited traffic.
func (m *MockTransport) QueueBytes(data []byte) {
	m.mu.Lock()
	m.pending = append(m.pending, data...)
	m.mu.Unlock()
}

// Writes returns the ordered log of all written requests
func (m *MockTransport) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// IsOpen reports whether the endpoint is currently open
func (m *MockTransport) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opened
}

// CloseCount returns how many times Close was called
func (m *MockTransport) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// RegisterResponder builds a Responder that decodes each request and
// answers per-register with status 0 and the configured payload. Registers
// absent from the map stay silent.
func RegisterResponder(payloads map[byte][]byte) func([]byte) []byte {
	return func(request []byte) []byte {
		req, err := Decode(request)
		if err != nil || req.Kind != KindRequest {
			return nil
		}
		payload, ok := payloads[req.Register]
		if !ok {
			return nil
		}
		resp, err := EncodeResponse(req.Register, 0, payload)
		if err != nil {
			return nil
		}
		return resp
	}
}

var _ Transport = (*MockTransport)(nil)
