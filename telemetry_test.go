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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildHardwareInfoPayload assembles a register 0x03 payload for a 4-cell
// pack with two NTC sensors
func buildHardwareInfoPayload() []byte {
	p := make([]byte, 0, hardwareInfoFixedLen+4)
	u16 := func(v uint16) { p = binary.BigEndian.AppendUint16(p, v) }

	u16(1640)   // 16.40 V
	u16(0xFF38) // -2.00 A
	u16(5000)   // 50.00 Ah remaining
	u16(10000)  // 100.00 Ah nominal
	u16(23)     // cycles
	u16(PackDate(Date{Year: 2023, Month: 7, Day: 15}))
	u16(0b0101)            // balancing cells 1 and 3
	u16(0)                 // balance high
	u16(0)                 // no protections
	p = append(p, 0x21)    // software version 2.1
	p = append(p, 50)      // RSOC %
	p = append(p, 0x03)    // both FETs enabled
	p = append(p, 4)       // cells
	p = append(p, 2)       // NTC count
	u16(2981)              // 25.0 C
	u16(2996)              // 26.5 C
	return p
}

func TestParseHardwareInfo(t *testing.T) {
	t.Parallel()

	info, err := ParseHardwareInfo(buildHardwareInfoPayload())
	require.NoError(t, err)

	assert.InDelta(t, 16.40, info.PackVoltage, 1e-9)
	assert.InDelta(t, -2.00, info.Current, 1e-9)
	assert.InDelta(t, 50.00, info.RemainingCapacity, 1e-9)
	assert.InDelta(t, 100.00, info.NominalCapacity, 1e-9)
	assert.Equal(t, 23, info.CycleCount)
	assert.Equal(t, Date{Year: 2023, Month: 7, Day: 15}, info.ManufactureDate)
	assert.Equal(t, byte(0x21), info.SoftwareVersion)
	assert.Equal(t, 50, info.RSOC)
	assert.Equal(t, 4, info.CellCount)
	assert.True(t, info.ChargeFETEnabled)
	assert.True(t, info.DischargeFETEnabled)
	assert.False(t, info.Protection.Any())

	require.Len(t, info.Temperatures, 2)
	assert.InDelta(t, 25.0, info.Temperatures[0], 1e-9)
	assert.InDelta(t, 26.5, info.Temperatures[1], 1e-9)

	assert.True(t, info.Balancing(0))
	assert.False(t, info.Balancing(1))
	assert.True(t, info.Balancing(2))
	assert.False(t, info.Balancing(17))
}

func TestParseHardwareInfoTruncated(t *testing.T) {
	t.Parallel()

	_, err := ParseHardwareInfo(make([]byte, 10))
	require.ErrorIs(t, err, ErrFrameTooShort)

	// Fixed part intact but NTC list cut off
	payload := buildHardwareInfoPayload()
	_, err = ParseHardwareInfo(payload[:len(payload)-2])
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestParseHardwareInfoProtectionBits(t *testing.T) {
	t.Parallel()

	payload := buildHardwareInfoPayload()
	binary.BigEndian.PutUint16(payload[16:],
		uint16(ProtCellOvervoltage|ProtDischargeOvercurrent))

	info, err := ParseHardwareInfo(payload)
	require.NoError(t, err)

	assert.True(t, info.Protection.Any())
	assert.Equal(t, []string{"cell overvoltage", "discharge overcurrent"},
		info.Protection.Active())
}

func TestParseCellVoltages(t *testing.T) {
	t.Parallel()

	payload := []byte{0x0C, 0xE4, 0x0C, 0xFD, 0x0D, 0x48}
	cells, err := ParseCellVoltages(payload)
	require.NoError(t, err)

	require.Len(t, cells, 3)
	assert.InDelta(t, 3.300, cells[0], 1e-9)
	assert.InDelta(t, 3.325, cells[1], 1e-9)
	assert.InDelta(t, 3.400, cells[2], 1e-9)

	_, err = ParseCellVoltages([]byte{0x0C})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestMOSFETPayload(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		want         []byte
		chargeOff    bool
		dischargeOff bool
	}{
		{name: "both enabled", want: []byte{0x00, 0x00}},
		{name: "charge off", chargeOff: true, want: []byte{0x00, 0x01}},
		{name: "discharge off", dischargeOff: true, want: []byte{0x00, 0x02}},
		{name: "both off", chargeOff: true, dischargeOff: true, want: []byte{0x00, 0x03}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MOSFETPayload(tt.chargeOff, tt.dischargeOff))
		})
	}
}
