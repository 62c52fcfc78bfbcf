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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupRegister(t *testing.T) {
	t.Parallel()

	reg, err := LookupRegister(0x28)
	require.NoError(t, err)
	assert.Equal(t, "cell_overvoltage", reg.Name)
	assert.Equal(t, KindCellVoltage, reg.Kind)

	_, err = LookupRegister(0xF0)
	require.ErrorIs(t, err, ErrUnknownRegister)
}

func TestConfigRegistersOrder(t *testing.T) {
	t.Parallel()

	ids := ConfigRegisters()
	require.NotEmpty(t, ids)

	// Numeric registers ascend, text registers come last
	assert.Equal(t, byte(0x10), ids[0])
	assert.Equal(t, byte(0xA2), ids[len(ids)-1])
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i], "register order at index %d", i)
	}
}

func TestDecodeScalar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		kind RegisterKind
		raw  uint16
		want float64
	}{
		{name: "pack voltage 10mV units", kind: KindVoltage, raw: 2500, want: 25.00},
		{name: "cell voltage mV units", kind: KindCellVoltage, raw: 4250, want: 4.25},
		{name: "positive current", kind: KindCurrent, raw: 150, want: 1.5},
		{name: "negative current two's complement", kind: KindCurrent, raw: 0xFF38, want: -2.0},
		{name: "capacity 10mAh units", kind: KindCapacity, raw: 10000, want: 100.0},
		{name: "temperature zero celsius", kind: KindTemperature, raw: 2731, want: 0.0},
		{name: "temperature negative", kind: KindTemperature, raw: 2531, want: -20.0},
		{name: "raw passthrough", kind: KindRaw, raw: 0x1234, want: float64(0x1234)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, DecodeScalar(tt.kind, tt.raw), 1e-9)
		})
	}
}

func TestScalarRoundTrip(t *testing.T) {
	t.Parallel()

	kinds := []RegisterKind{KindVoltage, KindCellVoltage, KindCurrent, KindCapacity}
	for _, kind := range kinds {
		for _, raw := range []uint16{0, 1, 999, 4250, 30000} {
			got := EncodeScalar(kind, DecodeScalar(kind, raw))
			assert.Equal(t, raw, got, "kind %v raw %d", kind, raw)
		}
	}
}

func TestTemperatureEncodeRounding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		celsius float64
		want    uint16
	}{
		{name: "exact tenth", celsius: 45.0, want: 3181},
		{name: "rounds up", celsius: 45.07, want: 3182},
		{name: "rounds down", celsius: 45.04, want: 3181},
		{name: "below zero", celsius: -20.0, want: 2531},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := EncodeScalar(KindTemperature, tt.celsius)
			assert.Equal(t, tt.want, got)
			// The written value must decode within half a tenth of a degree
			assert.InDelta(t, tt.celsius, DecodeScalar(KindTemperature, got), 0.05)
		})
	}
}

func TestDatePacking(t *testing.T) {
	t.Parallel()

	d := Date{Year: 2023, Month: 7, Day: 15}
	raw := PackDate(d)
	assert.Equal(t, d, UnpackDate(raw))
	assert.Equal(t, "2023-07-15", d.String())

	// Field boundaries: day 31, month 12
	edge := Date{Year: 2063, Month: 12, Day: 31}
	assert.Equal(t, edge, UnpackDate(PackDate(edge)))
}
