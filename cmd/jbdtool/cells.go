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
)

var cellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "Read per-cell voltages",
	RunE:  runCells,
}

func init() {
	rootCmd.AddCommand(cellsCmd)
}

func runCells(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	voltages, err := session.ReadCellVoltages(ctx)
	if err != nil {
		return err
	}
	if len(voltages) == 0 {
		fmt.Println("No cells reported")
		return nil
	}

	min, max := voltages[0], voltages[0]
	var sum float64
	for i, v := range voltages {
		fmt.Printf("Cell %2d: %.3f V\n", i+1, v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	fmt.Printf("Min %.3f V  Max %.3f V  Delta %.0f mV  Avg %.3f V\n",
		min, max, (max-min)*1000, sum/float64(len(voltages)))
	return nil
}
