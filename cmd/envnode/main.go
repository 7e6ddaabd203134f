// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// envnode samples a DHT11 and a photocell and reports both every second on
// the console and, when a broker is configured, over MQTT.
//
// Configuration is read from the environment:
//
//	APP_ENV          dev (colored logs) or prod (JSON logs); default dev
//	LOG_LEVEL        debug, info, warn or error; default info
//	DHT_PIN          DHT11 data line; default GPIO4
//	LDR_PIN          IIO raw channel of the photocell divider; empty disables
//	LDR_BITS         ADC resolution; default 12
//	REPORT_INTERVAL  default 1s
//	PANEL_ADDR       listen address of the web panel, e.g. :8080; empty disables
//	MQTT_BROKER      empty disables telemetry
//	MQTT_PORT        default 1883
//	MQTT_CLIENT_ID   default envnode
//	STATION_ID       default envnode
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

var version = "dev"

const appName = "envnode"

func main() {
	cfg, err := loadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(os.Stderr, cfg, version)
	slog.SetDefault(logger)

	slog.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
