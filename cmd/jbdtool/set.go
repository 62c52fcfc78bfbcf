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
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	jbd "github.com/lukedempsey/jbd-ui-tool"
)

var flagSetRaw string

var setCmd = &cobra.Command{
	Use:   "set <register> [value]",
	Short: "Write one configuration register",
	Long: `Write a configuration register inside an EEPROM open/close bracket.
The register may be given by name (e.g. cell_overvoltage) or hex id
(e.g. 0x28). The value is interpreted per the register's kind: volts,
amps, degrees Celsius, and so on. Use --raw to write exact payload bytes
instead.

Examples:
  jbdtool set cell_overvoltage 4.25
  jbdtool set charge_overtemp 45
  jbdtool set 0x2F 0.03
  jbdtool set function_config --raw "00 03"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSet,
}

func init() {
	setCmd.Flags().StringVar(&flagSetRaw, "raw", "", "Raw payload bytes as hex (overrides value decoding)")
	rootCmd.AddCommand(setCmd)
}

// resolveRegister accepts a register name or a hex/decimal id
func resolveRegister(arg string) (jbd.Register, error) {
	if id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(arg), "0x"), 16, 8); err == nil {
		if reg, lerr := jbd.LookupRegister(byte(id)); lerr == nil {
			return reg, nil
		}
	}
	lower := strings.ToLower(arg)
	for _, id := range jbd.ConfigRegisters() {
		reg, err := jbd.LookupRegister(id)
		if err != nil {
			continue
		}
		if reg.Name == lower {
			return reg, nil
		}
	}
	return jbd.Register{}, fmt.Errorf("unknown register %q", arg)
}

func runSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	reg, err := resolveRegister(args[0])
	if err != nil {
		return err
	}

	payload, err := buildSetPayload(reg, args)
	if err != nil {
		return err
	}

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if flagSetRaw == "" && reg.Kind == jbd.KindTemperature {
		celsius, _ := strconv.ParseFloat(args[1], 64)
		err = session.WriteTemperatureRegister(ctx, reg.ID, celsius)
	} else {
		err = session.WriteRegister(ctx, reg.ID, payload)
	}
	if err != nil {
		return err
	}

	log.Info().Str("register", reg.Name).Msg("write committed")
	fmt.Printf("Wrote %s (0x%02X); re-read the configuration to verify\n", reg.Name, reg.ID)
	return nil
}

// buildSetPayload turns the command arguments into register payload bytes
func buildSetPayload(reg jbd.Register, args []string) ([]byte, error) {
	if flagSetRaw != "" {
		payload, err := jbd.ParseHexInput(flagSetRaw)
		if err != nil {
			return nil, fmt.Errorf("raw payload: %w", err)
		}
		return payload, nil
	}

	if len(args) < 2 {
		return nil, fmt.Errorf("register %s needs a value (or --raw)", reg.Name)
	}
	switch reg.Kind {
	case jbd.KindText:
		return []byte(args[1]), nil
	case jbd.KindDate:
		var d jbd.Date
		if _, err := fmt.Sscanf(args[1], "%d-%d-%d", &d.Year, &d.Month, &d.Day); err != nil {
			return nil, fmt.Errorf("date value %q: want YYYY-MM-DD", args[1])
		}
		return binary.BigEndian.AppendUint16(nil, jbd.PackDate(d)), nil
	case jbd.KindRaw:
		return nil, fmt.Errorf("register %s has no scalar encoding; use --raw", reg.Name)
	default:
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", args[1], err)
		}
		return binary.BigEndian.AppendUint16(nil, jbd.EncodeScalar(reg.Kind, value)), nil
	}
}
