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
	"fmt"
	"math"
)

// Command and control registers
const (
	// RegEEPROMOpen unlocks the configuration EEPROM (write payload 0x56 0x78)
	RegEEPROMOpen byte = 0x00
	// RegEEPROMClose commits and relocks the configuration EEPROM (write payload 0x00 0x00)
	RegEEPROMClose byte = 0x01
	// RegHardwareInfo reads the telemetry snapshot
	RegHardwareInfo byte = 0x03
	// RegCellVoltages reads the per-cell voltage list
	RegCellVoltages byte = 0x04
	// RegHardwareVersion reads the hardware version string
	RegHardwareVersion byte = 0x05
	// RegMOSFETControl sets the charge/discharge FET disable bits
	RegMOSFETControl byte = 0xE1
)

// EEPROMOpenPayload is the magic value that unlocks the EEPROM
var EEPROMOpenPayload = []byte{0x56, 0x78}

// EEPROMClosePayload commits pending writes and relocks the EEPROM
var EEPROMClosePayload = []byte{0x00, 0x00}

// RegisterKind is the physical interpretation of a register's raw value
type RegisterKind int

const (
	// KindRaw is an uninterpreted 16-bit value
	KindRaw RegisterKind = iota
	// KindVoltage is pack voltage in units of 10 mV
	KindVoltage
	// KindCellVoltage is a per-cell voltage in mV
	KindCellVoltage
	// KindCurrent is a signed current in units of 10 mA
	KindCurrent
	// KindCapacity is a charge capacity in units of 10 mAh
	KindCapacity
	// KindTemperature is a temperature in units of 0.1 K
	KindTemperature
	// KindResistance is a resistance in milliohms
	KindResistance
	// KindDuration is a time span in seconds
	KindDuration
	// KindPercent is a percentage
	KindPercent
	// KindDate is a packed calendar date
	KindDate
	// KindText is a raw byte string, length given by the frame LEN
	KindText
)

var kindNames = map[RegisterKind]string{
	KindRaw:         "raw",
	KindVoltage:     "voltage",
	KindCellVoltage: "cell-voltage",
	KindCurrent:     "current",
	KindCapacity:    "capacity",
	KindTemperature: "temperature",
	KindResistance:  "resistance",
	KindDuration:    "duration",
	KindPercent:     "percentage",
	KindDate:        "date",
	KindText:        "text",
}

func (k RegisterKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Unit returns the display unit for values of this kind
func (k RegisterKind) Unit() string {
	switch k {
	case KindVoltage, KindCellVoltage:
		return "V"
	case KindCurrent:
		return "A"
	case KindCapacity:
		return "Ah"
	case KindTemperature:
		return "°C"
	case KindResistance:
		return "mΩ"
	case KindDuration:
		return "s"
	case KindPercent:
		return "%"
	default:
		return ""
	}
}

// Register describes one addressable device parameter
type Register struct {
	Name string
	ID   byte
	Kind RegisterKind
}

// registerTable is the static id -> semantics map for the configuration
// range 0x10-0x47 and the text registers 0xA0-0xA2. Names follow the
// vendor's EEPROM map.
var registerTable = map[byte]Register{
	0x10: {ID: 0x10, Name: "design_capacity", Kind: KindCapacity},
	0x11: {ID: 0x11, Name: "cycle_capacity", Kind: KindCapacity},
	0x12: {ID: 0x12, Name: "cell_voltage_100", Kind: KindCellVoltage},
	0x13: {ID: 0x13, Name: "cell_voltage_80", Kind: KindCellVoltage},
	0x14: {ID: 0x14, Name: "cell_voltage_60", Kind: KindCellVoltage},
	0x15: {ID: 0x15, Name: "cell_voltage_40", Kind: KindCellVoltage},
	0x16: {ID: 0x16, Name: "cell_voltage_20", Kind: KindCellVoltage},
	0x17: {ID: 0x17, Name: "cell_voltage_0", Kind: KindCellVoltage},
	0x18: {ID: 0x18, Name: "self_discharge_rate", Kind: KindPercent},
	0x19: {ID: 0x19, Name: "manufacture_date", Kind: KindDate},
	0x1A: {ID: 0x1A, Name: "serial_number", Kind: KindRaw},
	0x1B: {ID: 0x1B, Name: "cycle_count", Kind: KindRaw},
	0x1C: {ID: 0x1C, Name: "charge_overtemp", Kind: KindTemperature},
	0x1D: {ID: 0x1D, Name: "charge_overtemp_release", Kind: KindTemperature},
	0x1E: {ID: 0x1E, Name: "charge_undertemp", Kind: KindTemperature},
	0x1F: {ID: 0x1F, Name: "charge_undertemp_release", Kind: KindTemperature},
	0x20: {ID: 0x20, Name: "discharge_overtemp", Kind: KindTemperature},
	0x21: {ID: 0x21, Name: "discharge_overtemp_release", Kind: KindTemperature},
	0x22: {ID: 0x22, Name: "discharge_undertemp", Kind: KindTemperature},
	0x23: {ID: 0x23, Name: "discharge_undertemp_release", Kind: KindTemperature},
	0x24: {ID: 0x24, Name: "pack_overvoltage", Kind: KindVoltage},
	0x25: {ID: 0x25, Name: "pack_overvoltage_release", Kind: KindVoltage},
	0x26: {ID: 0x26, Name: "pack_undervoltage", Kind: KindVoltage},
	0x27: {ID: 0x27, Name: "pack_undervoltage_release", Kind: KindVoltage},
	0x28: {ID: 0x28, Name: "cell_overvoltage", Kind: KindCellVoltage},
	0x29: {ID: 0x29, Name: "cell_overvoltage_release", Kind: KindCellVoltage},
	0x2A: {ID: 0x2A, Name: "cell_undervoltage", Kind: KindCellVoltage},
	0x2B: {ID: 0x2B, Name: "cell_undervoltage_release", Kind: KindCellVoltage},
	0x2C: {ID: 0x2C, Name: "charge_overcurrent", Kind: KindCurrent},
	0x2D: {ID: 0x2D, Name: "discharge_overcurrent", Kind: KindCurrent},
	0x2E: {ID: 0x2E, Name: "balance_start_voltage", Kind: KindCellVoltage},
	0x2F: {ID: 0x2F, Name: "balance_window", Kind: KindCellVoltage},
	0x30: {ID: 0x30, Name: "shunt_resistance", Kind: KindResistance},
	0x31: {ID: 0x31, Name: "function_config", Kind: KindRaw},
	0x32: {ID: 0x32, Name: "ntc_config", Kind: KindRaw},
	0x33: {ID: 0x33, Name: "cell_count", Kind: KindRaw},
	0x34: {ID: 0x34, Name: "fet_control_time", Kind: KindDuration},
	0x35: {ID: 0x35, Name: "led_timer", Kind: KindDuration},
	0x36: {ID: 0x36, Name: "cell_overvoltage_delays", Kind: KindRaw},
	0x37: {ID: 0x37, Name: "cell_undervoltage_delays", Kind: KindRaw},
	0x38: {ID: 0x38, Name: "short_circuit_config", Kind: KindRaw},
	0x39: {ID: 0x39, Name: "short_circuit_release", Kind: KindRaw},
	0x3A: {ID: 0x3A, Name: "charge_temp_delays", Kind: KindRaw},
	0x3B: {ID: 0x3B, Name: "discharge_temp_delays", Kind: KindRaw},
	0x3C: {ID: 0x3C, Name: "pack_voltage_delays", Kind: KindRaw},
	0x3D: {ID: 0x3D, Name: "cell_voltage_delays", Kind: KindRaw},
	0x3E: {ID: 0x3E, Name: "charge_overcurrent_delays", Kind: KindRaw},
	0x3F: {ID: 0x3F, Name: "discharge_overcurrent_delays", Kind: KindRaw},
	0x40: {ID: 0x40, Name: "gps_shutdown_voltage", Kind: KindCellVoltage},
	0x41: {ID: 0x41, Name: "gps_shutdown_delay", Kind: KindDuration},
	0x42: {ID: 0x42, Name: "cell_voltage_90", Kind: KindCellVoltage},
	0x43: {ID: 0x43, Name: "cell_voltage_70", Kind: KindCellVoltage},
	0x44: {ID: 0x44, Name: "cell_voltage_50", Kind: KindCellVoltage},
	0x45: {ID: 0x45, Name: "cell_voltage_30", Kind: KindCellVoltage},
	0x46: {ID: 0x46, Name: "cell_voltage_10", Kind: KindCellVoltage},
	0x47: {ID: 0x47, Name: "reserved_47", Kind: KindRaw},
	0xA0: {ID: 0xA0, Name: "manufacturer_name", Kind: KindText},
	0xA1: {ID: 0xA1, Name: "device_name", Kind: KindText},
	0xA2: {ID: 0xA2, Name: "barcode", Kind: KindText},
}

// LookupRegister returns the descriptor for a register id
func LookupRegister(id byte) (Register, error) {
	reg, ok := registerTable[id]
	if !ok {
		return Register{}, fmt.Errorf("register 0x%02X: %w", id, ErrUnknownRegister)
	}
	return reg, nil
}

// ConfigRegisters returns the ids of all configuration registers in
// ascending order, text registers last. This is the read order of a full
// config snapshot.
func ConfigRegisters() []byte {
	ids := make([]byte, 0, len(registerTable))
	for id := byte(0x10); id <= 0x47; id++ {
		if _, ok := registerTable[id]; ok {
			ids = append(ids, id)
		}
	}
	ids = append(ids, 0xA0, 0xA1, 0xA2)
	return ids
}

// DecodeScalar converts a raw 16-bit register value to physical units.
// KindCurrent is signed; all other kinds are unsigned.
func DecodeScalar(kind RegisterKind, raw uint16) float64 {
	switch kind {
	case KindVoltage:
		return float64(raw) / 100
	case KindCellVoltage:
		return float64(raw) / 1000
	case KindCurrent:
		return float64(int16(raw)) / 100
	case KindCapacity:
		return float64(raw) / 100
	case KindTemperature:
		return (float64(raw) - 2731) / 10
	default:
		return float64(raw)
	}
}

// EncodeScalar converts a physical value back to the raw 16-bit register
// representation. Exactly inverse to DecodeScalar for every kind except
// temperature, which rounds to the nearest tenth of a degree.
func EncodeScalar(kind RegisterKind, value float64) uint16 {
	switch kind {
	case KindVoltage:
		return uint16(math.Round(value * 100))
	case KindCellVoltage:
		return uint16(math.Round(value * 1000))
	case KindCurrent:
		return uint16(int16(math.Round(value * 100)))
	case KindCapacity:
		return uint16(math.Round(value * 100))
	case KindTemperature:
		return uint16(math.Round(value*10) + 2731)
	default:
		return uint16(value)
	}
}

// Date is a decoded manufacture date
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// UnpackDate decodes the device's packed date format:
// bits 15-9 = year - 2000, bits 8-5 = month, bits 4-0 = day.
func UnpackDate(raw uint16) Date {
	return Date{
		Year:  2000 + int(raw>>9),
		Month: int(raw>>5) & 0x0F,
		Day:   int(raw) & 0x1F,
	}
}

// PackDate encodes a Date back into the packed register format
func PackDate(d Date) uint16 {
	return uint16(d.Year-2000)<<9 | uint16(d.Month&0x0F)<<5 | uint16(d.Day&0x1F)
}
