// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

const (
	// bitThreshold separates a 0 (26-28µs high) from a 1 (70µs high).
	bitThreshold = 40 * time.Microsecond
	// responseTimeout bounds each phase of the sensor's response: up to 40µs
	// before it pulls low, then 80µs low and 80µs high. Datasheet p.6.
	responseTimeout = 200 * time.Microsecond
	// bitTimeout bounds each half of a data bit: 50µs low, at most 70µs high.
	bitTimeout = 200 * time.Microsecond
)

// await spins until the line reads lvl or timeout elapses. It never yields;
// the caller holds the critical section. Returns false on timeout.
func (d *Dev) await(lvl gpio.Level, timeout time.Duration) bool {
	d.watch.reset()
	for d.line.read() != lvl {
		if d.watch.elapsed() > timeout {
			return false
		}
	}
	return true
}

// pulseWidth waits for the next high pulse and returns how long it stayed
// high. ok is false if either edge did not arrive within bitTimeout.
func (d *Dev) pulseWidth() (w time.Duration, ok bool) {
	if !d.await(gpio.High, bitTimeout) {
		return 0, false
	}
	d.watch.reset()
	for d.line.read() == gpio.High {
		if d.watch.elapsed() > bitTimeout {
			return 0, false
		}
	}
	return d.watch.elapsed(), true
}

// decodeBit classifies one data pulse by its width.
func decodeBit(w time.Duration) bool {
	return w > bitThreshold
}
