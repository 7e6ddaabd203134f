// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// stopwatch measures elapsed time within one sub-millisecond window. It is
// reset at the start of every polled phase and every data pulse.
type stopwatch struct {
	clock clockwork.Clock
	start time.Time
}

func (s *stopwatch) reset() {
	s.start = s.clock.Now()
}

func (s *stopwatch) elapsed() time.Duration {
	return s.clock.Since(s.start)
}
