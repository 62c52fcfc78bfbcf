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

	"github.com/spf13/cobra"

	jbd "github.com/lukedempsey/jbd-ui-tool"
)

var flagParamsRaw bool

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Dump the full EEPROM configuration",
	Long: `Read every configuration register in one EEPROM-bracketed sequence and
print the decoded parameters. The read takes a few seconds; the device is
polled register by register with turnaround delays.`,
	RunE: runParams,
}

func init() {
	paramsCmd.Flags().BoolVar(&flagParamsRaw, "raw", false, "Print raw payload bytes next to decoded values")
	rootCmd.AddCommand(paramsCmd)
}

func runParams(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	snap, err := session.ReadConfig(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("# configuration read at %s\n", snap.ReadAt.Format("2006-01-02 15:04:05"))
	for _, id := range jbd.ConfigRegisters() {
		value, ok := snap.Value(id)
		if !ok {
			continue
		}
		if flagParamsRaw {
			fmt.Printf("0x%02X  %-28s  %-16s  [%s]\n",
				id, value.Register.Name, value.String(), jbd.FormatHexBytes(value.Raw))
		} else {
			fmt.Printf("0x%02X  %-28s  %s\n", id, value.Register.Name, value.String())
		}
	}
	return nil
}
