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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.toml")
	content := "port = \"/dev/ttyUSB0\"\nbaud = 9600\npoll_interval_ms = 500\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", s.Port)
	assert.Equal(t, 9600, s.Baud)
	assert.Equal(t, 500*time.Millisecond, s.PollInterval())
}

func TestLoadSettingsMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := LoadSettings(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestSettingsPollIntervalDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, defaultPollInterval, Settings{}.PollInterval())
	assert.Equal(t, defaultPollInterval, Settings{PollIntervalMS: -5}.PollInterval())
}

func TestLoadSettingsMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("port = [broken"), 0o600))

	_, err := LoadSettings(path)
	require.Error(t, err)
}
