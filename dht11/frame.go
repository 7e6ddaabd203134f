// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"fmt"

	"github.com/GermanBionicSystems/envnode/common"
)

// frameBits is the length of one transmission.
const frameBits = 40

// Frame is one complete transmission from the sensor:
//
//	{humidity int, humidity frac, temperature int, temperature frac, checksum}
//
// The DHT11 always sends 0 in both fractional bytes.
type Frame [5]byte

// Humidity returns the integral relative humidity in %.
func (f Frame) Humidity() int {
	return int(f[0])
}

// Temperature returns the integral temperature in °C.
func (f Frame) Temperature() int {
	return int(f[2])
}

// Verify checks the trailing checksum byte. The frame is accepted only when
// the checksum matches and is not zero: a line stuck low decodes as forty 0
// bits, which would otherwise pass.
func (f Frame) Verify() error {
	sum := common.Sum8(f[:4])
	if sum != f[4] {
		return &ChecksumError{Sum: sum, Want: f[4]}
	}
	if sum == 0 {
		return &ZeroFrameError{}
	}
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("dht11.Frame{% x}", f[:])
}

// set stores bit i, counted from the first bit on the wire. Bits arrive most
// significant first within each byte.
func (f *Frame) set(i int) {
	f[i/8] |= 1 << (7 - i%8)
}
