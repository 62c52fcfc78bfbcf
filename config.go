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
	"encoding/binary"
	"fmt"
	"time"
)

// ConfigValue is one register's raw bytes paired with its semantics
type ConfigValue struct {
	Register Register
	Raw      []byte
}

// Scalar returns the physical value of a 16-bit register. Text registers
// and malformed payloads return 0.
func (v ConfigValue) Scalar() float64 {
	if v.Register.Kind == KindText || len(v.Raw) != 2 {
		return 0
	}
	return DecodeScalar(v.Register.Kind, binary.BigEndian.Uint16(v.Raw))
}

// Text returns the register payload as a string
func (v ConfigValue) Text() string {
	return string(v.Raw)
}

// Date returns the decoded date of a date-kind register
func (v ConfigValue) Date() Date {
	if len(v.Raw) != 2 {
		return Date{}
	}
	return UnpackDate(binary.BigEndian.Uint16(v.Raw))
}

// String renders the value in physical units for display
func (v ConfigValue) String() string {
	switch v.Register.Kind {
	case KindText:
		return v.Text()
	case KindDate:
		return v.Date().String()
	case KindRaw:
		return FormatHexBytes(v.Raw)
	default:
		return fmt.Sprintf("%g %s", v.Scalar(), v.Register.Kind.Unit())
	}
}

// ConfigSnapshot is the full set of device parameters, produced atomically
// by one bracketed multi-register read. A snapshot is immutable: writing
// any parameter invalidates it and a fresh ReadConfig is required. There is
// no partial patching.
type ConfigSnapshot struct {
	ReadAt           time.Time
	Values           map[byte]ConfigValue
	ManufacturerName string
	DeviceName       string
	Barcode          string
}

// Value looks up one register's value in the snapshot
func (c *ConfigSnapshot) Value(id byte) (ConfigValue, bool) {
	v, ok := c.Values[id]
	return v, ok
}

// Scalar is shorthand for Value(id).Scalar(); missing registers return 0
func (c *ConfigSnapshot) Scalar(id byte) float64 {
	v, ok := c.Values[id]
	if !ok {
		return 0
	}
	return v.Scalar()
}

// newConfigSnapshot assembles a snapshot from the raw per-register payloads
// of a completed read sequence. It is only called once every register in
// the sequence has been read successfully.
func newConfigSnapshot(raw map[byte][]byte) (*ConfigSnapshot, error) {
	snap := &ConfigSnapshot{
		ReadAt: time.Now(),
		Values: make(map[byte]ConfigValue, len(raw)),
	}
	for id, payload := range raw {
		reg, err := LookupRegister(id)
		if err != nil {
			return nil, err
		}
		snap.Values[id] = ConfigValue{Register: reg, Raw: payload}
	}
	if v, ok := snap.Values[0xA0]; ok {
		snap.ManufacturerName = v.Text()
	}
	if v, ok := snap.Values[0xA1]; ok {
		snap.DeviceName = v.Text()
	}
	if v, ok := snap.Values[0xA2]; ok {
		snap.Barcode = v.Text()
	}
	return snap, nil
}
