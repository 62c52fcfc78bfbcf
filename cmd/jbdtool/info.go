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

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Read a telemetry snapshot",
	Long: `Read the hardware-info register and print pack voltage, current,
capacity, temperatures, balancing and protection status.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	info, err := session.ReadHardwareInfo(ctx)
	if err != nil {
		return err
	}
	version, err := session.ReadHardwareVersion(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("hardware version read failed")
		version = "unknown"
	}

	printHardwareInfo(info, version)
	return nil
}

func printHardwareInfo(info *jbd.HardwareInfo, version string) {
	fmt.Printf("Hardware:      %s (software v%d.%d)\n",
		version, info.SoftwareVersion>>4, info.SoftwareVersion&0x0F)
	fmt.Printf("Pack voltage:  %.2f V\n", info.PackVoltage)
	fmt.Printf("Current:       %+.2f A\n", info.Current)
	fmt.Printf("Capacity:      %.2f / %.2f Ah (%d%%)\n",
		info.RemainingCapacity, info.NominalCapacity, info.RSOC)
	fmt.Printf("Cycles:        %d\n", info.CycleCount)
	fmt.Printf("Manufactured:  %s\n", info.ManufactureDate)
	fmt.Printf("Cells:         %d\n", info.CellCount)

	for i, temp := range info.Temperatures {
		fmt.Printf("NTC %d:         %.1f °C\n", i+1, temp)
	}

	fmt.Printf("Charge FET:    %s\n", onOff(info.ChargeFETEnabled))
	fmt.Printf("Discharge FET: %s\n", onOff(info.DischargeFETEnabled))

	if active := info.Protection.Active(); len(active) > 0 {
		fmt.Printf("PROTECTION:    %s\n", strings.Join(active, ", "))
	} else {
		fmt.Println("Protection:    none active")
	}

	var balancing []string
	for cell := 0; cell < info.CellCount; cell++ {
		if info.Balancing(cell) {
			balancing = append(balancing, fmt.Sprintf("%d", cell+1))
		}
	}
	if len(balancing) > 0 {
		fmt.Printf("Balancing:     cells %s\n", strings.Join(balancing, ", "))
	}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
