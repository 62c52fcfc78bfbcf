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
)

// hardwareInfoFixedLen is the payload length before the variable-length
// temperature list: two-byte fields through FET status plus the three
// single-byte counters.
const hardwareInfoFixedLen = 23

// ProtectionState is the raw protection bitmask from the hardware-info
// response, with one bit per active protection.
type ProtectionState uint16

// Protection bit positions
const (
	ProtCellOvervoltage ProtectionState = 1 << iota
	ProtCellUndervoltage
	ProtPackOvervoltage
	ProtPackUndervoltage
	ProtChargeOvertemp
	ProtChargeUndertemp
	ProtDischargeOvertemp
	ProtDischargeUndertemp
	ProtChargeOvercurrent
	ProtDischargeOvercurrent
	ProtShortCircuit
	ProtFrontEndICError
	ProtFETSoftwareLock
)

var protectionNames = []struct {
	name string
	bit  ProtectionState
}{
	{"cell overvoltage", ProtCellOvervoltage},
	{"cell undervoltage", ProtCellUndervoltage},
	{"pack overvoltage", ProtPackOvervoltage},
	{"pack undervoltage", ProtPackUndervoltage},
	{"charge overtemperature", ProtChargeOvertemp},
	{"charge undertemperature", ProtChargeUndertemp},
	{"discharge overtemperature", ProtDischargeOvertemp},
	{"discharge undertemperature", ProtDischargeUndertemp},
	{"charge overcurrent", ProtChargeOvercurrent},
	{"discharge overcurrent", ProtDischargeOvercurrent},
	{"short circuit", ProtShortCircuit},
	{"front-end IC error", ProtFrontEndICError},
	{"FET software lock", ProtFETSoftwareLock},
}

// Active returns the names of all asserted protection flags
func (p ProtectionState) Active() []string {
	var active []string
	for _, entry := range protectionNames {
		if p&entry.bit != 0 {
			active = append(active, entry.name)
		}
	}
	return active
}

// Any reports whether any protection is active
func (p ProtectionState) Any() bool {
	return p != 0
}

// FET control status bits in the hardware-info response
const (
	fetChargeEnabled    = 1 << 0
	fetDischargeEnabled = 1 << 1
)

// HardwareInfo is one decoded telemetry snapshot. Every read produces a
// fresh, independent value; nothing is mutated incrementally.
type HardwareInfo struct {
	Temperatures        []float64
	PackVoltage         float64
	Current             float64
	RemainingCapacity   float64
	NominalCapacity     float64
	CycleCount          int
	RSOC                int
	CellCount           int
	NTCCount            int
	ManufactureDate     Date
	BalanceLow          uint16
	BalanceHigh         uint16
	Protection          ProtectionState
	SoftwareVersion     byte
	FETStatus           byte
	ChargeFETEnabled    bool
	DischargeFETEnabled bool
}

// Balancing reports whether the cell at index (0-based) is currently being
// balanced, per the two 16-cell balance bitmasks.
func (h *HardwareInfo) Balancing(cell int) bool {
	if cell < 0 || cell > 31 {
		return false
	}
	if cell < 16 {
		return h.BalanceLow&(1<<cell) != 0
	}
	return h.BalanceHigh&(1<<(cell-16)) != 0
}

// ParseHardwareInfo decodes a hardware-info (register 0x03) response payload
func ParseHardwareInfo(payload []byte) (*HardwareInfo, error) {
	if len(payload) < hardwareInfoFixedLen {
		return nil, fmt.Errorf("hardware info payload: %w (%d bytes, need %d)",
			ErrFrameTooShort, len(payload), hardwareInfoFixedLen)
	}

	u16 := func(off int) uint16 { return binary.BigEndian.Uint16(payload[off:]) }

	info := &HardwareInfo{
		PackVoltage:       DecodeScalar(KindVoltage, u16(0)),
		Current:           DecodeScalar(KindCurrent, u16(2)),
		RemainingCapacity: DecodeScalar(KindCapacity, u16(4)),
		NominalCapacity:   DecodeScalar(KindCapacity, u16(6)),
		CycleCount:        int(u16(8)),
		ManufactureDate:   UnpackDate(u16(10)),
		BalanceLow:        u16(12),
		BalanceHigh:       u16(14),
		Protection:        ProtectionState(u16(16)),
		SoftwareVersion:   payload[18],
		RSOC:              int(payload[19]),
		FETStatus:         payload[20],
		CellCount:         int(payload[21]),
		NTCCount:          int(payload[22]),
	}
	info.ChargeFETEnabled = info.FETStatus&fetChargeEnabled != 0
	info.DischargeFETEnabled = info.FETStatus&fetDischargeEnabled != 0

	if want := hardwareInfoFixedLen + 2*info.NTCCount; len(payload) < want {
		return nil, fmt.Errorf("hardware info payload: %w (%d bytes, %d NTC sensors declared)",
			ErrLengthMismatch, len(payload), info.NTCCount)
	}
	info.Temperatures = make([]float64, info.NTCCount)
	for i := 0; i < info.NTCCount; i++ {
		info.Temperatures[i] = DecodeScalar(KindTemperature, u16(hardwareInfoFixedLen+2*i))
	}
	return info, nil
}

// ParseCellVoltages decodes a cell-info (register 0x04) response payload
// into per-cell voltages in volts.
func ParseCellVoltages(payload []byte) ([]float64, error) {
	if len(payload)%2 != 0 {
		return nil, fmt.Errorf("cell voltage payload: %w (odd length %d)", ErrLengthMismatch, len(payload))
	}
	cells := make([]float64, len(payload)/2)
	for i := range cells {
		cells[i] = DecodeScalar(KindCellVoltage, binary.BigEndian.Uint16(payload[2*i:]))
	}
	return cells, nil
}

// ParseHardwareVersion decodes a hardware-version (register 0x05) response
// payload. The string has no internal length prefix; the frame LEN bounds it.
func ParseHardwareVersion(payload []byte) string {
	return string(payload)
}

// MOSFETPayload builds the 2-byte payload for the MOSFET control register:
// byte 0 reserved, byte 1 bit 0 = charge off, bit 1 = discharge off.
func MOSFETPayload(chargeOff, dischargeOff bool) []byte {
	var bits byte
	if chargeOff {
		bits |= 1 << 0
	}
	if dischargeOff {
		bits |= 1 << 1
	}
	return []byte{0x00, bits}
}
