// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"bytes"
	"image/color"
	"io"
	"math"
	"sync"

	"github.com/GermanBionicSystems/envnode/reading"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// ConsoleOpts represents the options available for the console sink.
type ConsoleOpts struct {
	// W defaults to a colorable stdout.
	W io.Writer
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Full is the light level, in lux, rendered as a white swatch. 0 means
	// 1000.
	Full float64

	_ struct{}
}

// Console writes one report line per Report to a terminal, prefixed with a
// gray swatch showing the light level.
type Console struct {
	w       io.Writer
	palette *ansi256.Palette
	full    float64

	mu  sync.Mutex
	buf bytes.Buffer
}

// NewConsole returns a Console. The opts can be nil.
func NewConsole(opts *ConsoleOpts) *Console {
	if opts == nil {
		opts = &ConsoleOpts{}
	}
	c := &Console{w: opts.W, palette: opts.Palette, full: opts.Full}
	if c.w == nil {
		c.w = colorable.NewColorableStdout()
	}
	if c.palette == nil {
		c.palette = ansi256.Default
	}
	if c.full <= 0 {
		c.full = 1000
	}
	return c
}

func (c *Console) String() string {
	return "Console"
}

// Report implements Sink.
func (c *Console) Report(s reading.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Reuse the buffer so a report does not allocate.
	c.buf.Reset()
	_, _ = c.buf.WriteString("\r\033[0m")
	_, _ = io.WriteString(&c.buf, c.palette.Block(c.swatch(s.Lux)))
	_, _ = c.buf.WriteString("\033[0m ")
	_, _ = c.buf.WriteString(Format(s))
	_, _ = c.buf.WriteString("\r\n")
	_, err := c.buf.WriteTo(c.w)
	return err
}

// Halt implements conn.Resource. It resets the terminal colors.
func (c *Console) Halt() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.w.Write([]byte("\033[0m"))
	return err
}

func (c *Console) swatch(lux float64) color.NRGBA {
	if math.IsNaN(lux) || lux < 0 {
		lux = 0
	}
	g := uint8(255 * math.Min(lux/c.full, 1))
	return color.NRGBA{g, g, g, 255}
}

var _ Sink = &Console{}
