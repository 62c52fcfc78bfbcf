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

// Package jbd implements the UART protocol of JBD (Jiabaida) battery
// management systems: frame encode/decode, register semantics, a reliable
// transaction session over a byte transport, stream reassembly and port
// autodetection.
package jbd

import (
	"encoding/binary"
	"fmt"
)

// Wire framing constants
const (
	// FrameStart is the first byte of every frame
	FrameStart byte = 0xDD
	// FrameEnd is the last byte of every frame
	FrameEnd byte = 0x77

	// OpRead is the request opcode for reading a register
	OpRead byte = 0xA5
	// OpWrite is the request opcode for writing a register
	OpWrite byte = 0x5A

	// frameOverhead is the byte count of a frame with an empty payload:
	// START + op/reg + reg/status + LEN + CRC_HI + CRC_LO + END
	frameOverhead = 7

	// maxPayload is the largest payload the single LEN byte can declare
	maxPayload = 255
)

// FrameKind discriminates requests from responses in decoded traffic
type FrameKind int

const (
	// KindRequest is a host-to-device frame (opcode in byte 1)
	KindRequest FrameKind = iota
	// KindResponse is a device-to-host frame (status in byte 2)
	KindResponse
)

func (k FrameKind) String() string {
	if k == KindRequest {
		return "request"
	}
	return "response"
}

// Frame is one decoded protocol message.
//
// For requests, Opcode and Register are meaningful. For responses, Register
// and Status are meaningful. Payload aliases the input buffer of Decode;
// callers that retain a Frame past the life of the buffer must copy it.
type Frame struct {
	Payload  []byte
	Raw      []byte
	Checksum uint16
	Kind     FrameKind
	Opcode   byte
	Register byte
	Status   byte
}

// OK reports whether a response frame carries device status 0
func (f *Frame) OK() bool {
	return f.Kind == KindResponse && f.Status == 0
}

// Checksum computes the JBD frame checksum over the given bytes: a 16-bit
// accumulator starting at zero from which each input byte is subtracted
// (mod 2^16). For requests the input is [register, LEN, DATA...]; for
// responses it is [status, LEN, DATA...]. This is the additive checksum the
// device itself computes. It is deliberately not a polynomial CRC and must
// not be replaced with one.
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum -= uint16(b)
	}
	return sum
}

// EncodeRequest builds a request frame for the given opcode and register.
// For reads the payload must be empty. Fails only when the payload exceeds
// the range of the single-byte LEN field.
func EncodeRequest(opcode, register byte, payload []byte) ([]byte, error) {
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("encode register 0x%02X: %w (%d bytes)", register, ErrPayloadTooLarge, len(payload))
	}

	frame := make([]byte, 0, frameOverhead+len(payload))
	frame = append(frame, FrameStart, opcode, register, byte(len(payload)))
	frame = append(frame, payload...)

	// Checksum input starts at the register byte; START and opcode are excluded.
	sum := Checksum(frame[2 : 4+len(payload)])
	frame = binary.BigEndian.AppendUint16(frame, sum)
	frame = append(frame, FrameEnd)
	return frame, nil
}

// EncodeReadRequest builds a read request for a register. Reads carry no
// payload; LEN is always zero.
func EncodeReadRequest(register byte) ([]byte, error) {
	return EncodeRequest(OpRead, register, nil)
}

// EncodeWriteRequest builds a write request carrying payload for a register
func EncodeWriteRequest(register byte, payload []byte) ([]byte, error) {
	return EncodeRequest(OpWrite, register, payload)
}

// EncodeResponse builds a device-to-host response frame. It exists for the
// benefit of simulators and tests; the host never sends responses.
func EncodeResponse(register, status byte, payload []byte) ([]byte, error) {
	if len(payload) > maxPayload {
		return nil, fmt.Errorf("encode response 0x%02X: %w (%d bytes)", register, ErrPayloadTooLarge, len(payload))
	}

	frame := make([]byte, 0, frameOverhead+len(payload))
	frame = append(frame, FrameStart, register, status, byte(len(payload)))
	frame = append(frame, payload...)

	sum := Checksum(frame[2 : 4+len(payload)])
	frame = binary.BigEndian.AppendUint16(frame, sum)
	frame = append(frame, FrameEnd)
	return frame, nil
}

// Decode parses one frame out of data. It scans forward for the start
// marker, tolerating leading noise and partial-frame remnants, then
// validates structure and checksum. The returned Frame's Payload and Raw
// alias data.
//
// Failure modes map to the framing sentinels: ErrBadStart when no start
// marker exists, ErrFrameTooShort, ErrLengthMismatch when the declared LEN
// exceeds the available bytes, ErrBadEnd, and ErrChecksumMismatch.
func Decode(data []byte) (*Frame, error) {
	off := 0
	for off < len(data) && data[off] != FrameStart {
		off++
	}
	if off == len(data) {
		return nil, fmt.Errorf("decode: %w", ErrBadStart)
	}

	data = data[off:]
	if len(data) < frameOverhead {
		return nil, fmt.Errorf("decode: %w (%d bytes after start marker)", ErrFrameTooShort, len(data))
	}

	length := int(data[3])
	total := frameOverhead + length
	if len(data) < total {
		return nil, fmt.Errorf("decode: %w (declared %d bytes, %d available)",
			ErrLengthMismatch, total, len(data))
	}
	if data[total-1] != FrameEnd {
		return nil, fmt.Errorf("decode: %w (got 0x%02X)", ErrBadEnd, data[total-1])
	}

	want := binary.BigEndian.Uint16(data[4+length : 6+length])
	if got := Checksum(data[2 : 4+length]); got != want {
		return nil, fmt.Errorf("decode: %w (computed 0x%04X, frame carries 0x%04X)",
			ErrChecksumMismatch, got, want)
	}

	f := &Frame{
		Raw:      data[:total],
		Payload:  data[4 : 4+length],
		Checksum: want,
	}
	switch data[1] {
	case OpRead, OpWrite:
		f.Kind = KindRequest
		f.Opcode = data[1]
		f.Register = data[2]
	default:
		f.Kind = KindResponse
		f.Register = data[1]
		f.Status = data[2]
	}
	return f, nil
}
