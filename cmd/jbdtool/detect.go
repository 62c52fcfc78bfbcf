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

	"github.com/lukedempsey/jbd-ui-tool/detection"
)

var flagDetectList bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Probe serial ports for a responsive BMS",
	Long: `Enumerate serial ports and probe each one with a telemetry read. Ports
that answer with a well-formed response are reported as confirmed. Probing
opens each port briefly; use --list to only enumerate without touching
any port.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().BoolVarP(&flagDetectList, "list", "l", false, "List ports without probing")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	endpoints, err := detection.Enumerate(ctx)
	if err != nil {
		return err
	}
	if len(endpoints) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	opts := detection.DefaultOptions()
	opts.BaudRate = resolveBaud()

	for _, ep := range endpoints {
		if !flagDetectList {
			ep = detection.Probe(ctx, ep, opts)
		}
		line := ep.String()
		if meta := ep.Metadata; meta != nil && meta["vid"] != "" {
			line += fmt.Sprintf(" [USB %s:%s]", meta["vid"], meta["pid"])
		}
		fmt.Println(line)
	}
	return nil
}
