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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	jbd "github.com/lukedempsey/jbd-ui-tool"
	"github.com/lukedempsey/jbd-ui-tool/transport/uart"
)

var (
	flagMonitorInterval time.Duration
	flagMonitorTrace    bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Continuously poll and print telemetry",
	Long: `Poll the hardware-info register at a fixed interval and print one
telemetry line per poll until interrupted. With --trace, every raw frame
on the wire is also printed as it happens.`,
	RunE: runMonitor,
}

func init() {
	monitorCmd.Flags().DurationVarP(&flagMonitorInterval, "interval", "i", 0,
		"Poll interval (default from settings, else 2s)")
	monitorCmd.Flags().BoolVar(&flagMonitorTrace, "trace", false, "Print raw wire traffic")
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := flagMonitorInterval
	if interval <= 0 {
		interval = settings.PollInterval()
	}

	port, err := resolvePort(ctx)
	if err != nil {
		return err
	}
	cfg := jbd.DefaultSessionConfig()
	cfg.BaudRate = resolveBaud()

	recorder := jbd.NewTrafficRecorder(0)
	session := jbd.NewSession(uart.New(port),
		jbd.WithSessionConfig(cfg),
		jbd.WithLogger(log),
		jbd.WithRecorder(recorder),
	)
	if err := session.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if err := session.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("disconnect failed")
		}
	}()

	if flagMonitorTrace {
		events, cancel := recorder.Subscribe(64)
		defer cancel()
		go func() {
			for ev := range events {
				fmt.Println(ev)
			}
		}()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("monitoring; Ctrl-C to stop")
	for {
		if err := pollOnce(ctx, session); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			log.Warn().Err(err).Msg("poll failed")
			if session.State() == jbd.StateFaulted {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func pollOnce(ctx context.Context, session *jbd.Session) error {
	info, err := session.ReadHardwareInfo(ctx)
	if err != nil {
		return err
	}

	line := fmt.Sprintf("%s  %.2f V  %+.2f A  %3d%%  cycles %d",
		time.Now().Format(time.TimeOnly), info.PackVoltage, info.Current,
		info.RSOC, info.CycleCount)
	for _, temp := range info.Temperatures {
		line += fmt.Sprintf("  %.1f°C", temp)
	}
	if active := info.Protection.Active(); len(active) > 0 {
		line += fmt.Sprintf("  PROTECTION: %v", active)
	}
	fmt.Println(line)
	return nil
}
