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
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseHexInput decodes hexadecimal text into bytes. Space, tab, newline,
// colon and comma delimiters and 0x prefixes are tolerated, so pasted dumps
// like "DD A5 03 00", "dd:a5:03:00" and "0xDD,0xA5" all parse.
func ParseHexInput(s string) ([]byte, error) {
	clean := strings.NewReplacer(
		" ", "", "\t", "", "\n", "", "\r", "",
		":", "", ",", "", "0x", "", "0X", "",
	).Replace(s)
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("hex input has odd digit count %d", len(clean))
	}
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

// ParseEscapedInput decodes C-style backslash-escaped byte literals:
// \xHH, \0, \n, \r, \t and \\. Any other byte, escaped or not, passes
// through as literal ASCII.
func ParseEscapedInput(s string) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			out = append(out, s[i])
			continue
		}
		i++
		switch s[i] {
		case 'x', 'X':
			if b, n, ok := parseHexEscape(s[i+1:]); ok {
				out = append(out, b)
				i += n
			} else {
				// \x with no digits: keep the x literal
				out = append(out, s[i])
			}
		case '0':
			out = append(out, 0x00)
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case '\\':
			out = append(out, '\\')
		default:
			out = append(out, s[i])
		}
	}
	return out
}

// parseHexEscape consumes up to two hex digits after \x
func parseHexEscape(s string) (value byte, consumed int, ok bool) {
	for consumed < 2 && consumed < len(s) {
		d, valid := hexDigit(s[consumed])
		if !valid {
			break
		}
		value = value<<4 | d
		consumed++
	}
	return value, consumed, consumed > 0
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// ParseUserInput accepts either of the two supported textual encodings for
// offline analysis. Input containing a backslash is treated as C-style
// escaped literals; anything else must be hexadecimal.
func ParseUserInput(s string) ([]byte, error) {
	if strings.Contains(s, `\`) {
		return ParseEscapedInput(s), nil
	}
	return ParseHexInput(s)
}

// FormatHexBytes renders bytes as space-separated uppercase hex for logs
// and offline analysis output.
func FormatHexBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	var sb strings.Builder
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
