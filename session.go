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
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/lukedempsey/jbd-ui-tool/internal/syncutil"
)

// SessionState is the connection state of a transaction session
type SessionState int

const (
	// StateDisconnected is the initial state; no transport is open
	StateDisconnected SessionState = iota
	// StateConnecting is transient while the transport opens
	StateConnecting
	// StateConnected accepts commands
	StateConnected
	// StateFaulted is entered after an unrecoverable I/O error; an explicit
	// Disconnect is required before reconnecting
	StateFaulted
)

func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// SessionConfig tunes the transaction session
type SessionConfig struct {
	// BaudRate used when opening the transport
	BaudRate int
	// Attempts per command before surfacing the first-seen error
	Attempts int
	// ResponseTimeout bounds each attempt's read window
	ResponseTimeout time.Duration
	// BackoffStep scales the linear inter-attempt backoff (attempt × step)
	BackoffStep time.Duration
	// InterReadDelay spaces the sequential reads of a full config snapshot
	// for device turnaround
	InterReadDelay time.Duration
}

// DefaultSessionConfig returns the device's proven timing defaults
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		BaudRate:        9600,
		Attempts:        3,
		ResponseTimeout: 2000 * time.Millisecond,
		BackoffStep:     100 * time.Millisecond,
		InterReadDelay:  30 * time.Millisecond,
	}
}

// SessionOption configures a Session at construction
type SessionOption func(*Session)

// WithSessionConfig replaces the default timing configuration
func WithSessionConfig(cfg SessionConfig) SessionOption {
	return func(s *Session) { s.cfg = cfg }
}

// WithLogger attaches a structured logger. The default is a no-op logger.
func WithLogger(log zerolog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithRecorder attaches a traffic recorder that passively observes all raw
// bytes the session sends and receives.
func WithRecorder(rec *TrafficRecorder) SessionOption {
	return func(s *Session) { s.recorder = rec }
}

// Session turns one bidirectional byte transport into a reliable
// request/response channel: commands are serialized through a strict FIFO
// single-flight gate, retried with linear backoff and a per-attempt
// timeout, and configuration access is bracketed by the device's EEPROM
// open/close gate.
//
// A Session exclusively owns its transport for its whole lifecycle. For
// several devices, construct several sessions over distinct transports.
type Session struct {
	transport Transport
	recorder  *TrafficRecorder
	log       zerolog.Logger
	cfg       SessionConfig

	// gate is the single-flight command lock. A capacity-1 channel is used
	// instead of a mutex for its deterministic FIFO wakeup of blocked
	// senders and for context-aware acquisition.
	gate chan struct{}

	// reasm and eepromOpen are only touched while holding the gate
	reasm      Reassembler
	eepromOpen bool

	stateMu syncutil.RWMutex
	state   SessionState
	runCtx  context.Context
	cancel  context.CancelFunc
}

// NewSession creates a session over the given (not yet opened) transport
func NewSession(transport Transport, opts ...SessionOption) *Session {
	s := &Session{
		transport: transport,
		cfg:       DefaultSessionConfig(),
		log:       zerolog.Nop(),
		gate:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current session state
func (s *Session) State() SessionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Transport returns the underlying transport
func (s *Session) Transport() Transport {
	return s.transport
}

// Recorder returns the attached traffic recorder, or nil
func (s *Session) Recorder() *TrafficRecorder {
	return s.recorder
}

// Connect opens the transport and enters the Connected state. An open
// failure is surfaced immediately and never retried: it means the device
// is unreachable altogether.
func (s *Session) Connect(_ context.Context) error {
	s.stateMu.Lock()
	if s.state != StateDisconnected {
		st := s.state
		s.stateMu.Unlock()
		return fmt.Errorf("connect in state %s: %w", st, ErrAlreadyConnected)
	}
	s.state = StateConnecting
	s.stateMu.Unlock()

	if err := s.transport.Open(s.cfg.BaudRate); err != nil {
		s.stateMu.Lock()
		s.state = StateDisconnected
		s.stateMu.Unlock()
		return NewTransportError("connect", s.transport.Endpoint(),
			fmt.Errorf("%w: %w", ErrTransportOpen, err))
	}

	s.stateMu.Lock()
	s.state = StateConnected
	s.runCtx, s.cancel = context.WithCancel(context.Background())
	s.stateMu.Unlock()

	s.log.Info().Str("endpoint", s.transport.Endpoint()).Int("baud", s.cfg.BaudRate).
		Msg("session connected")
	return nil
}

// Disconnect forcibly aborts any in-flight command, closes the transport
// and returns to Disconnected. Once disconnect begins, no further commands
// may be enqueued. Also the only way out of the Faulted state.
func (s *Session) Disconnect() error {
	s.stateMu.Lock()
	if s.state == StateDisconnected {
		s.stateMu.Unlock()
		return nil
	}
	s.state = StateDisconnected
	s.eepromOpen = false
	if s.cancel != nil {
		s.cancel()
	}
	s.stateMu.Unlock()

	err := s.transport.Close()
	s.log.Info().Str("endpoint", s.transport.Endpoint()).Msg("session disconnected")
	if err != nil {
		return NewTransportError("disconnect", s.transport.Endpoint(), err)
	}
	return nil
}

// fault records an unrecoverable I/O error and leaves Connected. The
// transport stays allocated until the caller's explicit Disconnect.
func (s *Session) fault(err error) {
	s.stateMu.Lock()
	if s.state == StateConnected {
		s.state = StateFaulted
		if s.cancel != nil {
			s.cancel()
		}
		s.log.Error().Err(err).Str("endpoint", s.transport.Endpoint()).
			Msg("session faulted on unrecoverable transport error")
	}
	s.stateMu.Unlock()
}

// begin acquires the FIFO command gate. Blocked callers are woken in
// enqueue order; disconnect releases them all with ErrNotConnected.
func (s *Session) begin(ctx context.Context) (runCtx context.Context, release func(), err error) {
	s.stateMu.RLock()
	st, runCtx := s.state, s.runCtx
	s.stateMu.RUnlock()
	if st != StateConnected {
		return nil, nil, fmt.Errorf("session state %s: %w", st, ErrNotConnected)
	}

	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-runCtx.Done():
		return nil, nil, ErrNotConnected
	}

	// Disconnect may have begun while we waited for the gate
	if s.State() != StateConnected {
		<-s.gate
		return nil, nil, ErrNotConnected
	}
	return runCtx, func() { <-s.gate }, nil
}

// Execute performs one framed transaction: the request is written and the
// stream is read until a structurally valid response addressed to register
// arrives, with retries per the session configuration. Most callers want
// the typed operations instead.
func (s *Session) Execute(ctx context.Context, opcode, register byte, payload []byte) (*Frame, error) {
	runCtx, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return s.command(ctx, runCtx, opcode, register, payload)
}

// command is the retrying executor. The caller must hold the gate.
// After exhausting all attempts the first observed error is surfaced, so
// callers can distinguish a device rejection from silence.
func (s *Session) command(
	ctx, runCtx context.Context, opcode, register byte, payload []byte,
) (*Frame, error) {
	var firstErr error
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * s.cfg.BackoffStep
			if err := sleepCtx(ctx, runCtx, backoff); err != nil {
				return nil, firstOf(firstErr, err)
			}
		}

		resp, err := s.transact(ctx, runCtx, opcode, register, payload)
		if err == nil {
			return resp, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		s.log.Debug().Err(err).Int("attempt", attempt).
			Uint8("register", register).Msg("command attempt failed")

		if IsFatal(err) {
			s.fault(err)
			return nil, firstErr
		}
		if ctx.Err() != nil || runCtx.Err() != nil {
			return nil, firstErr
		}
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, firstErr
}

// transact performs a single write-then-read-until-frame attempt
func (s *Session) transact(
	ctx, runCtx context.Context, opcode, register byte, payload []byte,
) (*Frame, error) {
	req, err := EncodeRequest(opcode, register, payload)
	if err != nil {
		return nil, err
	}

	// Drop any stale bytes left over from previous traffic
	s.reasm.Reset()

	s.record(DirTX, req)
	if err := s.transport.WriteBytes(req); err != nil {
		return nil, NewTransportError("write", s.transport.Endpoint(),
			fmt.Errorf("%w: %w", ErrTransportWrite, err))
	}

	deadline := time.Now().Add(s.cfg.ResponseTimeout)
	buf := make([]byte, 256)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-runCtx.Done():
			return nil, ErrNotConnected
		default:
		}

		n, err := s.transport.ReadChunk(buf)
		if err != nil {
			return nil, NewTransportError("read", s.transport.Endpoint(),
				fmt.Errorf("%w: %w", ErrTransportRead, err))
		}
		if n == 0 {
			continue
		}
		s.record(DirRX, buf[:n])

		for _, candidate := range s.reasm.Feed(buf[:n]) {
			frame, err := Decode(candidate)
			if err != nil {
				// Structural failure fails the whole attempt
				return nil, err
			}
			if frame.Kind != KindResponse || frame.Register != register {
				// Stale frame addressed elsewhere; keep reading
				continue
			}
			if frame.Status != 0 {
				return nil, &DeviceError{Register: register, Status: frame.Status}
			}
			return frame, nil
		}
	}
	return nil, fmt.Errorf("register 0x%02X: %w", register, ErrTimeout)
}

// openEEPROM unlocks the device's configuration EEPROM. The caller must
// hold the gate.
func (s *Session) openEEPROM(ctx, runCtx context.Context) error {
	if s.eepromOpen {
		return &ProtocolSequenceError{Op: "EEPROM open while already open"}
	}
	if _, err := s.command(ctx, runCtx, OpWrite, RegEEPROMOpen, EEPROMOpenPayload); err != nil {
		return fmt.Errorf("EEPROM open: %w", err)
	}
	s.eepromOpen = true
	return nil
}

// closeEEPROM commits and relocks the EEPROM. The gate is considered
// closed after one bounded attempt sequence either way; a close is never
// retried indefinitely.
func (s *Session) closeEEPROM(ctx, runCtx context.Context) error {
	if !s.eepromOpen {
		return &ProtocolSequenceError{Op: "EEPROM close without matching open"}
	}
	s.eepromOpen = false
	if _, err := s.command(ctx, runCtx, OpWrite, RegEEPROMClose, EEPROMClosePayload); err != nil {
		return fmt.Errorf("EEPROM close: %w", err)
	}
	return nil
}

// withEEPROM brackets fn with the EEPROM open/close writes. The close is
// issued even when fn fails, so the device is never left unlocked; a close
// failure is logged and swallowed so it cannot mask fn's outcome.
func (s *Session) withEEPROM(ctx, runCtx context.Context, fn func() error) error {
	if err := s.openEEPROM(ctx, runCtx); err != nil {
		return err
	}
	opErr := fn()
	if err := s.closeEEPROM(ctx, runCtx); err != nil {
		s.log.Warn().Err(err).Msg("EEPROM close failed after bracketed operation")
	}
	return opErr
}

// ReadHardwareInfo reads and decodes one telemetry snapshot (register 0x03)
func (s *Session) ReadHardwareInfo(ctx context.Context) (*HardwareInfo, error) {
	runCtx, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	frame, err := s.command(ctx, runCtx, OpRead, RegHardwareInfo, nil)
	if err != nil {
		return nil, err
	}
	return ParseHardwareInfo(frame.Payload)
}

// ReadCellVoltages reads the per-cell voltage list (register 0x04) in volts
func (s *Session) ReadCellVoltages(ctx context.Context) ([]float64, error) {
	runCtx, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	frame, err := s.command(ctx, runCtx, OpRead, RegCellVoltages, nil)
	if err != nil {
		return nil, err
	}
	return ParseCellVoltages(frame.Payload)
}

// ReadHardwareVersion reads the hardware version string (register 0x05)
func (s *Session) ReadHardwareVersion(ctx context.Context) (string, error) {
	runCtx, release, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	defer release()

	frame, err := s.command(ctx, runCtx, OpRead, RegHardwareVersion, nil)
	if err != nil {
		return "", err
	}
	return ParseHardwareVersion(frame.Payload), nil
}

// ReadConfig reads every configuration register inside one EEPROM bracket
// and returns an atomic snapshot. A mid-sequence failure still releases
// the bracket and surfaces the first failure; no partial snapshot is ever
// returned.
func (s *Session) ReadConfig(ctx context.Context) (*ConfigSnapshot, error) {
	runCtx, release, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	raw := make(map[byte][]byte)
	err = s.withEEPROM(ctx, runCtx, func() error {
		for i, id := range ConfigRegisters() {
			if i > 0 {
				// Give the device turnaround time between register reads
				if err := sleepCtx(ctx, runCtx, s.cfg.InterReadDelay); err != nil {
					return err
				}
			}
			frame, err := s.command(ctx, runCtx, OpRead, id, nil)
			if err != nil {
				return fmt.Errorf("config register 0x%02X: %w", id, err)
			}
			raw[id] = append([]byte(nil), frame.Payload...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newConfigSnapshot(raw)
}

// WriteRegister writes raw bytes to a configuration register inside an
// EEPROM bracket. Any previously read ConfigSnapshot is stale afterwards;
// re-read the full configuration instead of patching.
func (s *Session) WriteRegister(ctx context.Context, id byte, payload []byte) error {
	runCtx, release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.writeRegister(ctx, runCtx, id, payload)
}

// writeRegister is WriteRegister without gate acquisition
func (s *Session) writeRegister(ctx, runCtx context.Context, id byte, payload []byte) error {
	return s.withEEPROM(ctx, runCtx, func() error {
		_, err := s.command(ctx, runCtx, OpWrite, id, payload)
		return err
	})
}

// WriteTemperatureRegister writes a temperature threshold in degrees
// Celsius, encoding to the device's 0.1 K representation. Rounds to the
// nearest tenth of a degree.
func (s *Session) WriteTemperatureRegister(ctx context.Context, id byte, celsius float64) error {
	reg, err := LookupRegister(id)
	if err != nil {
		return err
	}
	if reg.Kind != KindTemperature {
		return fmt.Errorf("register %s (0x%02X) is not a temperature register", reg.Name, id)
	}

	runCtx, release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	payload := binary.BigEndian.AppendUint16(nil, EncodeScalar(KindTemperature, celsius))
	return s.writeRegister(ctx, runCtx, id, payload)
}

// SetMOSFET sets the charge and discharge FET disable bits. This is a
// direct control register, not a stored parameter, so no EEPROM bracket
// applies.
func (s *Session) SetMOSFET(ctx context.Context, chargeOff, dischargeOff bool) error {
	runCtx, release, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer release()

	_, err = s.command(ctx, runCtx, OpWrite, RegMOSFETControl, MOSFETPayload(chargeOff, dischargeOff))
	return err
}

func (s *Session) record(dir Direction, data []byte) {
	if s.recorder != nil {
		s.recorder.Record(dir, data)
	}
}

// sleepCtx sleeps for d unless the command or session context ends first
func sleepCtx(ctx, runCtx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-runCtx.Done():
		return ErrNotConnected
	}
}

func firstOf(first, fallback error) error {
	if first != nil {
		return first
	}
	return fallback
}
