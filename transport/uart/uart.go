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

// Package uart provides the serial-port transport for JBD battery
// management systems, which expose their UART at 9600 8N1.
package uart

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"

	jbd "github.com/lukedempsey/jbd-ui-tool"
	"github.com/lukedempsey/jbd-ui-tool/internal/syncutil"
)

// readPollTimeout bounds a single blocking port read so the session's
// response deadline and cancellation stay responsive
const readPollTimeout = 50 * time.Millisecond

// Transport implements jbd.Transport over a serial port
type Transport struct {
	port serial.Port
	path string
	mu   syncutil.Mutex
}

// New creates a transport for the serial device at path (for example
// "/dev/ttyUSB0" or "COM3"). The port is not opened until Open.
func New(path string) *Transport {
	return &Transport{path: path}
}

// Open opens the serial port at the given baud rate with 8N1 framing
func (t *Transport) Open(baudRate int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port != nil {
		return jbd.ErrAlreadyConnected
	}

	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(t.path, mode)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", jbd.ErrTransportOpen, t.path, err)
	}
	if err := port.SetReadTimeout(readPollTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("%w: set read timeout on %s: %w", jbd.ErrTransportOpen, t.path, err)
	}

	t.port = port
	return nil
}

// Close closes the serial port. Closing an already closed transport is a
// no-op.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.port == nil {
		return nil
	}
	port := t.port
	t.port = nil
	if err := port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", t.path, err)
	}
	return nil
}

// WriteBytes writes the full buffer to the port
func (t *Transport) WriteBytes(data []byte) error {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()

	if port == nil {
		return jbd.ErrTransportClosed
	}
	n, err := port.Write(data)
	if err != nil {
		return mapPortError(err)
	}
	if n != len(data) {
		return fmt.Errorf("short write to %s: %d of %d bytes", t.path, n, len(data))
	}
	return nil
}

// ReadChunk reads whatever bytes are currently available, up to len(buf).
// It returns (0, nil) when the poll timeout elapses with no data.
func (t *Transport) ReadChunk(buf []byte) (int, error) {
	t.mu.Lock()
	port := t.port
	t.mu.Unlock()

	if port == nil {
		return 0, jbd.ErrTransportClosed
	}
	n, err := port.Read(buf)
	if err != nil {
		return n, mapPortError(err)
	}
	return n, nil
}

// Endpoint returns the serial device path
func (t *Transport) Endpoint() string {
	return t.path
}

// mapPortError normalizes library errors so the session can classify a
// concurrently closed port as fatal rather than retryable
func mapPortError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) && portErr.Code() == serial.PortClosed {
		return jbd.ErrTransportClosed
	}
	return err
}
