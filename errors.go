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
	"errors"
	"fmt"
	"io"
)

// Framing errors - retryable within a command
var (
	// ErrFrameTooShort indicates fewer bytes than a minimal frame
	ErrFrameTooShort = errors.New("frame too short")
	// ErrBadStart indicates no start marker was found in the input
	ErrBadStart = errors.New("missing frame start marker")
	// ErrBadEnd indicates the byte at the declared frame end is not the end marker
	ErrBadEnd = errors.New("bad frame end marker")
	// ErrLengthMismatch indicates the declared LEN exceeds the available bytes
	ErrLengthMismatch = errors.New("frame length mismatch")
	// ErrChecksumMismatch indicates the carried checksum does not match the computed one
	ErrChecksumMismatch = errors.New("frame checksum mismatch")
)

// Transport errors
var (
	// ErrTransportOpen indicates the endpoint could not be opened.
	// Surfaced immediately, never retried: the device is unreachable.
	ErrTransportOpen = errors.New("transport open failed")
	// ErrTransportRead indicates a read from the endpoint failed
	ErrTransportRead = errors.New("transport read failed")
	// ErrTransportWrite indicates a write to the endpoint failed
	ErrTransportWrite = errors.New("transport write failed")
	// ErrTransportClosed indicates the endpoint is closed or gone
	ErrTransportClosed = errors.New("transport is closed")
)

// Session errors
var (
	// ErrTimeout indicates no structurally valid frame addressed to the
	// requested register arrived within the attempt window
	ErrTimeout = errors.New("no valid response within timeout")
	// ErrNotConnected indicates a command was issued outside the Connected state
	ErrNotConnected = errors.New("session not connected")
	// ErrAlreadyConnected indicates Connect was called on a live session
	ErrAlreadyConnected = errors.New("session already connected")
	// ErrPayloadTooLarge indicates a payload exceeding the LEN field's range
	ErrPayloadTooLarge = errors.New("payload too large for frame")
	// ErrUnknownRegister indicates a register id absent from the semantics table
	ErrUnknownRegister = errors.New("unknown register")
)

// TransportError wraps an I/O-layer failure with the operation and endpoint
// it occurred on.
type TransportError struct {
	Err      error
	Op       string
	Endpoint string
}

func (e *TransportError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with consistent formatting
func NewTransportError(op, endpoint string, err error) *TransportError {
	return &TransportError{Op: op, Endpoint: endpoint, Err: err}
}

// DeviceError is a device-reported rejection: a structurally valid response
// carrying a nonzero status byte. Status codes other than 0 are not
// enumerated by the vendor; every nonzero value is treated as opaque.
type DeviceError struct {
	Register byte
	Status   byte
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device rejected register 0x%02X with status 0x%02X", e.Register, e.Status)
}

// ProtocolSequenceError reports a violated multi-step bracket: an EEPROM
// close without a matching open, or a nested open. Internal bracketing
// discipline makes these unreachable in practice; they are checked
// defensively.
type ProtocolSequenceError struct {
	Op string
}

func (e *ProtocolSequenceError) Error() string {
	return "protocol sequence violation: " + e.Op
}

// IsFramingError reports whether err is one of the structural decode failures
func IsFramingError(err error) bool {
	switch {
	case errors.Is(err, ErrFrameTooShort),
		errors.Is(err, ErrBadStart),
		errors.Is(err, ErrBadEnd),
		errors.Is(err, ErrLengthMismatch),
		errors.Is(err, ErrChecksumMismatch):
		return true
	default:
		return false
	}
}

// IsRetryable reports whether a command attempt that failed with err may be
// retried. Framing failures, timeouts and device rejections are transient
// per attempt; transport opens and closed endpoints are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return true
	}
	if IsFramingError(err) || errors.Is(err, ErrTimeout) {
		return true
	}
	return errors.Is(err, ErrTransportRead) || errors.Is(err, ErrTransportWrite)
}

// IsFatal reports whether err indicates the endpoint is gone and the session
// must leave the Connected state. Distinct from IsRetryable: a fatal error
// aborts the whole command, not just the attempt.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrTransportClosed),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrClosedPipe):
		return true
	default:
		return false
	}
}
