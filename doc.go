// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package envnode is an environment sensing node built on periph.
//
// dht11 drives a DHT11 temperature/humidity sensor over its single-wire
// timing protocol, photocell estimates illuminance from an LDR divider, and
// both publish into a reading.Store. report renders the store to the console,
// a display or, through telemetry, an MQTT broker. cmd/envnode wires them
// together.
package envnode
