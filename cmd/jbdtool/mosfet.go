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

var (
	flagChargeOff    bool
	flagDischargeOff bool
)

var mosfetCmd = &cobra.Command{
	Use:   "mosfet",
	Short: "Enable or disable the charge/discharge MOSFETs",
	Long: `Set the MOSFET control register. Without flags both FETs are enabled;
--charge-off and --discharge-off disable the respective FET. The device
may still override the FETs when a protection is active.`,
	RunE: runMosfet,
}

func init() {
	mosfetCmd.Flags().BoolVar(&flagChargeOff, "charge-off", false, "Disable the charge FET")
	mosfetCmd.Flags().BoolVar(&flagDischargeOff, "discharge-off", false, "Disable the discharge FET")
	rootCmd.AddCommand(mosfetCmd)
}

func runMosfet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	session, cleanup, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := session.SetMOSFET(ctx, flagChargeOff, flagDischargeOff); err != nil {
		return err
	}
	fmt.Printf("Charge FET %s, discharge FET %s\n",
		onOff(!flagChargeOff), onOff(!flagDischargeOff))
	return nil
}
