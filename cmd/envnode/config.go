// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// config is the runner configuration, read from the environment.
type config struct {
	AppEnv   string
	LogLevel slog.Level

	// DHTPin is the gpioreg name of the DHT11 data line.
	DHTPin string
	// LDRPath is the IIO raw channel of the photocell divider. Empty disables
	// light sampling.
	LDRPath string
	LDRBits int

	ReportInterval time.Duration
	// PanelAddr is the listen address of the web panel. Empty disables it.
	PanelAddr string

	// MQTTBroker empty disables telemetry.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	StationID    string
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func loadFromEnv() (config, error) {
	appEnv := env("APP_ENV", "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(env("LOG_LEVEL", "info"))
	if err != nil {
		return config{}, err
	}

	ldrBitsStr := env("LDR_BITS", "12")
	ldrBits, err := strconv.Atoi(ldrBitsStr)
	if err != nil || ldrBits <= 0 || ldrBits > 31 {
		return config{}, fmt.Errorf("invalid LDR_BITS %q (allowed: 1-31)", ldrBitsStr)
	}

	intervalStr := env("REPORT_INTERVAL", "1s")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return config{}, fmt.Errorf("invalid REPORT_INTERVAL %q: %w", intervalStr, err)
	}
	if interval <= 0 {
		return config{}, fmt.Errorf("REPORT_INTERVAL must be positive, got %v", interval)
	}

	portStr := env("MQTT_PORT", "1883")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return config{}, fmt.Errorf("invalid MQTT_PORT %q: %w", portStr, err)
	}
	if port <= 0 || port > 65535 {
		return config{}, fmt.Errorf("MQTT_PORT out of range: %d", port)
	}

	return config{
		AppEnv:         appEnv,
		LogLevel:       level,
		DHTPin:         env("DHT_PIN", "GPIO4"),
		LDRPath:        strings.TrimSpace(os.Getenv("LDR_PIN")),
		LDRBits:        ldrBits,
		ReportInterval: interval,
		PanelAddr:      strings.TrimSpace(os.Getenv("PANEL_ADDR")),
		MQTTBroker:     strings.TrimSpace(os.Getenv("MQTT_BROKER")),
		MQTTPort:       port,
		MQTTClientID:   env("MQTT_CLIENT_ID", "envnode"),
		StationID:      env("STATION_ID", "envnode"),
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
