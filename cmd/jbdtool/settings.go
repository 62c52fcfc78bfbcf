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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Settings is the persisted tool configuration
type Settings struct {
	// Port is the default serial device path
	Port string `toml:"port"`
	// Baud is the default baud rate; 0 means the protocol default
	Baud int `toml:"baud"`
	// PollIntervalMS is the monitor refresh interval in milliseconds
	PollIntervalMS int `toml:"poll_interval_ms"`
}

const defaultPollInterval = 2 * time.Second

// PollInterval returns the monitor interval, falling back to the default
func (s Settings) PollInterval() time.Duration {
	if s.PollIntervalMS <= 0 {
		return defaultPollInterval
	}
	return time.Duration(s.PollIntervalMS) * time.Millisecond
}

// defaultSettingsPath returns the per-user settings location
func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "jbdtool", "settings.toml")
}

// LoadSettings reads the TOML settings file. With an empty path the
// per-user default location is tried; a missing file there is not an
// error, but an explicitly given path must exist.
func LoadSettings(path string) (Settings, error) {
	explicit := path != ""
	if !explicit {
		path = defaultSettingsPath()
		if path == "" {
			return Settings{}, nil
		}
	}

	var s Settings
	if _, err := toml.DecodeFile(path, &s); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("load settings %s: %w", path, err)
	}
	return s, nil
}
