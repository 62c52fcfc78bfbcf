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

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	jbd "github.com/lukedempsey/jbd-ui-tool"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <bytes>...",
	Short: "Decode captured protocol bytes offline",
	Long: `Split a captured byte stream into frames and decode each one. No device
is needed. Input is hexadecimal with optional separators, or
backslash-escaped bytes when it starts with a backslash:

  jbdtool decode "DD A5 03 00 FF FD 77"
  jbdtool decode dd:a5:03:00:ff:fd:77
  jbdtool decode '\xDD\xA5\x03\x00\xFF\xFD\x77'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(_ *cobra.Command, args []string) error {
	data, err := jbd.ParseUserInput(strings.Join(args, " "))
	if err != nil {
		return err
	}

	frames, trailing := jbd.SplitFrames(data)
	if len(frames) == 0 && len(trailing) == 0 {
		fmt.Println("No frame boundaries found")
		return nil
	}

	for i, raw := range frames {
		fmt.Printf("Frame %d: %s\n", i+1, jbd.FormatHexBytes(raw))
		frame, err := jbd.Decode(raw)
		if err != nil {
			fmt.Printf("  invalid: %v\n", err)
			continue
		}
		printFrame(frame)
	}
	if len(trailing) > 0 {
		fmt.Printf("Trailing fragment: %s\n", jbd.FormatHexBytes(trailing))
	}
	return nil
}

func printFrame(frame *jbd.Frame) {
	switch frame.Kind {
	case jbd.KindRequest:
		op := "read"
		if frame.Opcode == jbd.OpWrite {
			op = "write"
		}
		fmt.Printf("  request: %s register 0x%02X %s\n",
			op, frame.Register, registerName(frame.Register))
		if len(frame.Payload) > 0 {
			fmt.Printf("  payload: %s\n", jbd.FormatHexBytes(frame.Payload))
		}
	case jbd.KindResponse:
		status := "ok"
		if frame.Status != 0 {
			status = fmt.Sprintf("error 0x%02X", frame.Status)
		}
		fmt.Printf("  response: register 0x%02X %s, status %s\n",
			frame.Register, registerName(frame.Register), status)
		if len(frame.Payload) > 0 {
			fmt.Printf("  payload: %s\n", jbd.FormatHexBytes(frame.Payload))
		}
		describePayload(frame)
	}
}

// describePayload adds a decoded view for the well-known registers
func describePayload(frame *jbd.Frame) {
	switch frame.Register {
	case jbd.RegHardwareInfo:
		info, err := jbd.ParseHardwareInfo(frame.Payload)
		if err != nil {
			return
		}
		fmt.Printf("  telemetry: %.2f V, %+.2f A, %d%%, %d cells\n",
			info.PackVoltage, info.Current, info.RSOC, info.CellCount)
	case jbd.RegCellVoltages:
		cells, err := jbd.ParseCellVoltages(frame.Payload)
		if err != nil {
			return
		}
		parts := make([]string, len(cells))
		for i, v := range cells {
			parts[i] = fmt.Sprintf("%.3f", v)
		}
		fmt.Printf("  cells (V): %s\n", strings.Join(parts, " "))
	case jbd.RegHardwareVersion:
		fmt.Printf("  version: %s\n", jbd.ParseHardwareVersion(frame.Payload))
	}
}

func registerName(id byte) string {
	if reg, err := jbd.LookupRegister(id); err == nil {
		return "(" + reg.Name + ")"
	}
	switch id {
	case jbd.RegEEPROMOpen:
		return "(eeprom_open)"
	case jbd.RegEEPROMClose:
		return "(eeprom_close)"
	case jbd.RegHardwareInfo:
		return "(hardware_info)"
	case jbd.RegCellVoltages:
		return "(cell_voltages)"
	case jbd.RegHardwareVersion:
		return "(hardware_version)"
	case jbd.RegMOSFETControl:
		return "(mosfet_control)"
	}
	return ""
}
