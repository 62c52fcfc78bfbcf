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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	jbd "github.com/lukedempsey/jbd-ui-tool"
	"github.com/lukedempsey/jbd-ui-tool/detection"
	"github.com/lukedempsey/jbd-ui-tool/transport/uart"
)

var (
	flagPort     string
	flagBaud     int
	flagSettings string
	flagVerbose  bool

	settings Settings
	log      zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jbdtool",
	Short: "JBD/Xiaoxiang BMS UART tool",
	Long: `jbdtool talks to JBD (Xiaoxiang) battery management systems over their
UART port: detect connected packs, read telemetry and per-cell voltages,
dump and change EEPROM configuration, toggle the MOSFETs, and decode
captured traffic offline.

The serial port can be given with --port, set in the settings file, or
left empty to probe all serial ports and use the first confirmed BMS.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		level := zerolog.InfoLevel
		if flagVerbose {
			level = zerolog.DebugLevel
		}
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
			Level(level).With().Timestamp().Logger()

		var err error
		settings, err = LoadSettings(flagSettings)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagPort, "port", "p", "", "Serial port device (auto-detect if empty)")
	rootCmd.PersistentFlags().IntVarP(&flagBaud, "baud", "b", 0, "Baud rate (default 9600)")
	rootCmd.PersistentFlags().StringVarP(&flagSettings, "settings", "s", "", "Settings file (TOML)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// resolvePort picks the serial port: flag, then settings file, then the
// first probe-confirmed endpoint
func resolvePort(ctx context.Context) (string, error) {
	if flagPort != "" {
		return flagPort, nil
	}
	if settings.Port != "" {
		return settings.Port, nil
	}

	log.Info().Msg("no port given, probing serial ports")
	endpoints, err := detection.Detect(ctx, detection.DefaultOptions())
	if err != nil {
		return "", err
	}
	for _, ep := range endpoints {
		if ep.Confirmed {
			log.Info().Str("port", ep.Path).Msg("found BMS")
			return ep.Path, nil
		}
	}
	return "", errors.New("no responsive BMS found; specify --port")
}

func resolveBaud() int {
	if flagBaud != 0 {
		return flagBaud
	}
	if settings.Baud != 0 {
		return settings.Baud
	}
	return jbd.DefaultSessionConfig().BaudRate
}

// openSession connects a session to the resolved port. The returned
// cleanup disconnects it.
func openSession(ctx context.Context) (*jbd.Session, func(), error) {
	port, err := resolvePort(ctx)
	if err != nil {
		return nil, nil, err
	}

	cfg := jbd.DefaultSessionConfig()
	cfg.BaudRate = resolveBaud()

	session := jbd.NewSession(uart.New(port),
		jbd.WithSessionConfig(cfg),
		jbd.WithLogger(log),
	)
	if err := session.Connect(ctx); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := session.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("disconnect failed")
		}
	}
	return session, cleanup, nil
}
