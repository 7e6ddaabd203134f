// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the additive checksum trailing single-wire sensor frames.
package common

// Sum8 returns the modulo 256 sum of the byte slice parameter. It is the
// checksum used by the AOSONG DHTxx family, where the last byte of a frame is
// the truncated sum of the bytes before it.
func Sum8(bytes []byte) byte {
	var sum byte
	for _, val := range bytes {
		sum += val
	}
	return sum
}
