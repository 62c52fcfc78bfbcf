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

// Package detection discovers serial ports with a responsive JBD battery
// management system behind them. Probing is forgiving on purpose: silent,
// busy or foreign endpoints are reported as unconfirmed, never as errors.
package detection

import (
	"context"
	"fmt"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	jbd "github.com/lukedempsey/jbd-ui-tool"
	"github.com/lukedempsey/jbd-ui-tool/transport/uart"
)

// Endpoint describes one candidate serial port and its probe result
type Endpoint struct {
	// Metadata carries descriptor details when the enumerator provides
	// them (for USB adapters: vid, pid, serial, product)
	Metadata map[string]string
	// Path is the connection path, e.g. "/dev/ttyUSB0" or "COM3"
	Path string
	// Name is a human-readable label for the port
	Name string
	// Probed is true once the endpoint was actively probed
	Probed bool
	// Confirmed is true when the endpoint answered the probe with a
	// well-formed telemetry response
	Confirmed bool
}

// String returns a human-readable representation of the endpoint
func (e Endpoint) String() string {
	switch {
	case !e.Probed:
		return fmt.Sprintf("%s (not probed)", e.Path)
	case e.Confirmed:
		return fmt.Sprintf("%s (confirmed BMS)", e.Path)
	default:
		return fmt.Sprintf("%s (no response)", e.Path)
	}
}

// Options configures enumeration and probing
type Options struct {
	// Factory builds the transport used to probe a path. Defaults to the
	// UART transport; tests substitute mocks here.
	Factory func(path string) jbd.Transport
	// Recorder, when set, observes the probe traffic
	Recorder *jbd.TrafficRecorder
	// BaudRate used for probing
	BaudRate int
	// ProbeTimeout bounds the whole probe of one endpoint, open included
	ProbeTimeout time.Duration
}

// DefaultOptions returns the standard probe parameters
func DefaultOptions() Options {
	return Options{
		BaudRate:     9600,
		ProbeTimeout: 1500 * time.Millisecond,
		Factory: func(path string) jbd.Transport {
			return uart.New(path)
		},
	}
}

// Enumerate lists candidate serial ports without touching any of them.
// USB descriptor metadata is included where the platform exposes it.
func Enumerate(_ context.Context) ([]Endpoint, error) {
	detailed, err := enumerator.GetDetailedPortsList()
	if err == nil {
		endpoints := make([]Endpoint, 0, len(detailed))
		for _, p := range detailed {
			ep := Endpoint{Path: p.Name, Name: p.Product}
			if ep.Name == "" {
				ep.Name = p.Name
			}
			if p.IsUSB {
				ep.Metadata = map[string]string{
					"vid":    p.VID,
					"pid":    p.PID,
					"serial": p.SerialNumber,
				}
			}
			endpoints = append(endpoints, ep)
		}
		return endpoints, nil
	}

	// Some platforms lack the detailed enumerator; fall back to bare paths
	paths, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	endpoints := make([]Endpoint, 0, len(paths))
	for _, path := range paths {
		endpoints = append(endpoints, Endpoint{Path: path, Name: path})
	}
	return endpoints, nil
}

// Probe actively checks whether a JBD BMS answers at the endpoint. It
// sends one telemetry read and waits for a well-formed response within the
// probe timeout. The port is always closed before returning, and probe
// failures of any kind yield an unconfirmed endpoint rather than an error:
// a silent port is an answer, not a fault.
func Probe(ctx context.Context, ep Endpoint, opts Options) Endpoint {
	if opts.Factory == nil {
		opts.Factory = DefaultOptions().Factory
	}
	if opts.BaudRate == 0 {
		opts.BaudRate = DefaultOptions().BaudRate
	}
	if opts.ProbeTimeout == 0 {
		opts.ProbeTimeout = DefaultOptions().ProbeTimeout
	}

	ep.Probed = true
	ep.Confirmed = false

	transport := opts.Factory(ep.Path)
	if err := transport.Open(opts.BaudRate); err != nil {
		return ep
	}
	defer func() { _ = transport.Close() }()

	ep.Confirmed = probeOpen(ctx, transport, opts)
	return ep
}

// probeOpen runs the probe exchange on an already opened transport
func probeOpen(ctx context.Context, transport jbd.Transport, opts Options) bool {
	req, err := jbd.EncodeReadRequest(jbd.RegHardwareInfo)
	if err != nil {
		return false
	}
	record(opts.Recorder, jbd.DirTX, req)
	if err := transport.WriteBytes(req); err != nil {
		return false
	}

	var reasm jbd.Reassembler
	deadline := time.Now().Add(opts.ProbeTimeout)
	buf := make([]byte, 256)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		n, err := transport.ReadChunk(buf)
		if err != nil {
			return false
		}
		if n == 0 {
			continue
		}
		record(opts.Recorder, jbd.DirRX, buf[:n])

		for _, candidate := range reasm.Feed(buf[:n]) {
			frame, err := jbd.Decode(candidate)
			if err != nil {
				continue
			}
			if frame.Kind == jbd.KindResponse && frame.Register == jbd.RegHardwareInfo {
				return true
			}
		}
	}
	return false
}

// ProbeAll probes each endpoint in sequence and returns the annotated
// list. Ports are probed one at a time; a BMS UART dislikes concurrent
// openers on shared adapters.
func ProbeAll(ctx context.Context, endpoints []Endpoint, opts Options) []Endpoint {
	probed := make([]Endpoint, len(endpoints))
	for i, ep := range endpoints {
		probed[i] = Probe(ctx, ep, opts)
	}
	return probed
}

// Detect enumerates and probes in one step, returning every endpoint with
// its probe verdict
func Detect(ctx context.Context, opts Options) ([]Endpoint, error) {
	endpoints, err := Enumerate(ctx)
	if err != nil {
		return nil, err
	}
	return ProbeAll(ctx, endpoints, opts), nil
}

func record(rec *jbd.TrafficRecorder, dir jbd.Direction, data []byte) {
	if rec != nil {
		rec.Record(dir, data)
	}
}
