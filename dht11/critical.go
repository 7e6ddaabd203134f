// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"runtime"
	"runtime/debug"
)

// Critical enters a section in which the calling goroutine must not be
// descheduled and returns the function that leaves it.
//
// The bit-banged handshake and data phases are classified by pulse width
// alone. A pause of a few tens of µs in the middle silently turns a 0 into a
// 1 and only the checksum catches it afterwards.
type Critical func() (leave func())

// LockThread is the default Critical. It pins the goroutine to its OS thread
// and stops the garbage collector for the ~5ms of the transfer. It does not
// stop the kernel from preempting the thread; on a busy host run the process
// with a real-time priority or on an isolated core.
func LockThread() func() {
	runtime.LockOSThread()
	gc := debug.SetGCPercent(-1)
	return func() {
		debug.SetGCPercent(gc)
		runtime.UnlockOSThread()
	}
}
