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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHexInput(t *testing.T) {
	t.Parallel()

	want := []byte{0xDD, 0xA5, 0x03, 0x00, 0xFF, 0xFD, 0x77}

	tests := []struct {
		name  string
		input string
	}{
		{name: "spaced uppercase", input: "DD A5 03 00 FF FD 77"},
		{name: "colon separated lowercase", input: "dd:a5:03:00:ff:fd:77"},
		{name: "0x prefixed comma separated", input: "0xDD,0xA5,0x03,0x00,0xFF,0xFD,0x77"},
		{name: "continuous digits", input: "DDA5030 0FFFD77"},
		{name: "multi line dump", input: "DD A5\n03 00\nFF FD 77"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseHexInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseHexInputErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseHexInput("DDA")
	require.Error(t, err)

	_, err = ParseHexInput("DD ZZ")
	require.Error(t, err)
}

func TestParseEscapedInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{
			name:  "hex escapes",
			input: `\xDD\xA5\x03\x00\xFF\xFD\x77`,
			want:  []byte{0xDD, 0xA5, 0x03, 0x00, 0xFF, 0xFD, 0x77},
		},
		{
			name:  "named escapes",
			input: `\0\n\r\t\\`,
			want:  []byte{0x00, '\n', '\r', '\t', '\\'},
		},
		{
			name:  "single digit hex escape",
			input: `\x5Q`,
			want:  []byte{0x05, 'Q'},
		},
		{
			name:  "unknown escape passes through",
			input: `\q`,
			want:  []byte{'q'},
		},
		{
			name:  "trailing lone backslash is literal",
			input: `ab\`,
			want:  []byte{'a', 'b', '\\'},
		},
		{
			name:  "mixed literal and escaped",
			input: `AB\x00CD`,
			want:  []byte{'A', 'B', 0x00, 'C', 'D'},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseEscapedInput(tt.input))
		})
	}
}

func TestParseUserInputDispatch(t *testing.T) {
	t.Parallel()

	// A backslash anywhere selects escaped parsing
	got, err := ParseUserInput(`\xDD\x77`)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDD, 0x77}, got)

	got, err = ParseUserInput("DD 77")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDD, 0x77}, got)
}

func TestFormatHexBytes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DD A5 03", FormatHexBytes([]byte{0xDD, 0xA5, 0x03}))
	assert.Equal(t, "(empty)", FormatHexBytes(nil))
}
