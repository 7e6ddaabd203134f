// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// segment is a stretch of time during which the sensor holds the line at lvl.
type segment struct {
	lvl gpio.Level
	d   time.Duration
}

// wire plays a DHT11 on the far side of a fake pin. Once the host releases
// the line, every Read returns the level the script has at the current time
// and advances the clock by 1µs. Past the end of the script the line idles
// high.
type wire struct {
	*gpiotest.Pin
	clock  clockwork.FakeClock
	script []segment

	mu        sync.Mutex
	listening bool
	t0        time.Time
	outs      []gpio.Level
	ins       int
}

func newWire(clock clockwork.FakeClock, script []segment) *wire {
	return &wire{Pin: &gpiotest.Pin{N: "GPIO4", Num: 4}, clock: clock, script: script}
}

func (w *wire) Out(l gpio.Level) error {
	w.mu.Lock()
	w.listening = false
	w.outs = append(w.outs, l)
	w.mu.Unlock()
	return w.Pin.Out(l)
}

func (w *wire) In(pull gpio.Pull, edge gpio.Edge) error {
	w.mu.Lock()
	w.listening = true
	w.t0 = w.clock.Now()
	w.ins++
	w.mu.Unlock()
	return w.Pin.In(pull, edge)
}

func (w *wire) Read() gpio.Level {
	w.mu.Lock()
	listening, t0 := w.listening, w.t0
	w.mu.Unlock()
	if !listening {
		return w.Pin.Read()
	}
	lvl := gpio.High
	at := w.clock.Since(t0)
	for _, s := range w.script {
		if at < s.d {
			lvl = s.lvl
			break
		}
		at -= s.d
	}
	w.clock.Advance(time.Microsecond)
	return lvl
}

func (w *wire) transactions() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ins
}

func (w *wire) levels() []gpio.Level {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]gpio.Level(nil), w.outs...)
}

// preamble is the sensor's answer to the start sequence, up to the low that
// opens the first bit.
func preamble() []segment {
	return []segment{
		{gpio.High, 20 * time.Microsecond},
		{gpio.Low, 80 * time.Microsecond},
		{gpio.High, 80 * time.Microsecond},
	}
}

// pulses scripts a full answer where bit i is a high pulse of widths[i].
func pulses(widths []time.Duration) []segment {
	s := preamble()
	for _, w := range widths {
		s = append(s, segment{gpio.Low, 50 * time.Microsecond}, segment{gpio.High, w})
	}
	return append(s, segment{gpio.Low, 50 * time.Microsecond})
}

// widthsFor encodes b MSB first using zero and one as the pulse widths.
func widthsFor(b []byte, zero, one time.Duration) []time.Duration {
	var w []time.Duration
	for _, v := range b {
		for i := 7; i >= 0; i-- {
			if v&(1<<i) != 0 {
				w = append(w, one)
			} else {
				w = append(w, zero)
			}
		}
	}
	return w
}

// transmit scripts a sensor sending b with datasheet timings.
func transmit(b ...byte) []segment {
	return pulses(widthsFor(b, 27*time.Microsecond, 70*time.Microsecond))
}
