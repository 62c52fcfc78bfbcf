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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jbd "github.com/lukedempsey/jbd-ui-tool"
)

func TestResolveRegister(t *testing.T) {
	t.Parallel()

	byName, err := resolveRegister("cell_overvoltage")
	require.NoError(t, err)
	assert.Equal(t, byte(0x28), byName.ID)

	byHex, err := resolveRegister("0x28")
	require.NoError(t, err)
	assert.Equal(t, byName, byHex)

	bare, err := resolveRegister("28")
	require.NoError(t, err)
	assert.Equal(t, byName, bare)

	_, err = resolveRegister("no_such_register")
	require.Error(t, err)
}

func TestBuildSetPayload(t *testing.T) {
	tests := []struct {
		name    string
		regArg  string
		value   string
		raw     string
		want    []byte
		wantErr bool
	}{
		{
			name:   "cell voltage scalar",
			regArg: "cell_overvoltage",
			value:  "4.25",
			want:   []byte{0x10, 0x9A},
		},
		{
			name:   "date",
			regArg: "manufacture_date",
			value:  "2023-07-15",
			want:   []byte{0x2E, 0xEF},
		},
		{
			name:   "text register",
			regArg: "device_name",
			value:  "SP04S034",
			want:   []byte("SP04S034"),
		},
		{
			name:   "raw payload hex",
			regArg: "function_config",
			raw:    "00 03",
			want:   []byte{0x00, 0x03},
		},
		{
			name:    "raw kind needs --raw",
			regArg:  "function_config",
			value:   "3",
			wantErr: true,
		},
		{
			name:    "missing value",
			regArg:  "cell_overvoltage",
			wantErr: true,
		},
		{
			name:    "unparseable scalar",
			regArg:  "cell_overvoltage",
			value:   "four volts",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagSetRaw = tt.raw
			defer func() { flagSetRaw = "" }()

			reg, err := resolveRegister(tt.regArg)
			require.NoError(t, err)

			args := []string{tt.regArg}
			if tt.value != "" {
				args = append(args, tt.value)
			}
			payload, err := buildSetPayload(reg, args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, payload)
		})
	}
}

func TestBuildSetPayloadTemperatureRoundTrip(t *testing.T) {
	reg, err := resolveRegister("charge_overtemp")
	require.NoError(t, err)
	require.Equal(t, jbd.KindTemperature, reg.Kind)

	payload, err := buildSetPayload(reg, []string{"charge_overtemp", "45"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0C, 0x6D}, payload)
}
