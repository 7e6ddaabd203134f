// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

type direction uint8

const (
	input direction = iota
	output
)

func (d direction) String() string {
	if d == output {
		return "output"
	}
	return "input"
}

// line is the single data wire shared by the host and the sensor. It tracks
// which side is driving so that a read while driving, or a write while
// listening, is caught at the call site.
type line struct {
	p   gpio.PinIO
	dir direction
}

// drive switches the line to output at level l. periph applies the level
// together with the direction change, so the wire never swings to the
// opposite rail on the way.
func (l *line) drive(lvl gpio.Level) error {
	if err := l.p.Out(lvl); err != nil {
		return fmt.Errorf("dht11: drive %s %s: %w", l.p, lvl, err)
	}
	l.dir = output
	return nil
}

// release hands the line to the sensor. The pull-up keeps it high until the
// sensor pulls it down.
func (l *line) release() error {
	if err := l.p.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("dht11: release %s: %w", l.p, err)
	}
	l.dir = input
	return nil
}

// write changes the level while the host owns the line.
func (l *line) write(lvl gpio.Level) error {
	if l.dir != output {
		panic("dht11: write on a line in " + l.dir.String() + " mode")
	}
	return l.drive(lvl)
}

// read samples the line while the sensor owns it.
func (l *line) read() gpio.Level {
	if l.dir != input {
		panic("dht11: read on a line in " + l.dir.String() + " mode")
	}
	return l.p.Read()
}
