// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht11 controls an AOSONG DHT11 temperature/humidity sensor over a
// single GPIO line.
//
// The sensor has no bus controller. The host pulls the line low for 18ms,
// releases it, and the sensor answers with a fixed 80µs low/80µs high
// preamble followed by 40 bits. Each bit is a 50µs low followed by a high
// pulse whose width is the value: about 27µs for 0 and 70µs for 1. The driver
// samples the line in a tight loop and classifies each pulse against a 40µs
// threshold, so the transfer must not be interrupted; see Critical.
//
// The last byte is the modulo 256 sum of the first four. Frames that do not
// verify are never published.
//
// # Datasheet
//
// https://www.mouser.com/datasheet/2/758/DHT11-Technical-Data-Sheet-Translated-Version-1143054.pdf
package dht11
