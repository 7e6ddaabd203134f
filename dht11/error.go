// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import "fmt"

// NoResponseError is returned when the sensor did not answer the start
// sequence in time.
type NoResponseError struct {
	// Phase is the part of the handshake that timed out.
	Phase string
}

func (e *NoResponseError) Error() string {
	return "dht11: no response from sensor (" + e.Phase + ")"
}

// TruncatedFrameError is returned when the sensor stopped sending before all
// 40 bits arrived.
type TruncatedFrameError struct {
	// Bit is the index of the bit that never completed.
	Bit int
}

func (e *TruncatedFrameError) Error() string {
	return fmt.Sprintf("dht11: frame truncated at bit %d", e.Bit)
}

// ChecksumError is returned when the trailing byte does not match the sum of
// the four data bytes.
type ChecksumError struct {
	Sum  byte
	Want byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("dht11: checksum mismatch, sum %#02x != %#02x", e.Sum, e.Want)
}

// ZeroFrameError is returned for an all-zero frame. Its checksum matches
// arithmetically but no DHT11 can produce it.
type ZeroFrameError struct{}

func (e *ZeroFrameError) Error() string {
	return "dht11: all-zero frame"
}
