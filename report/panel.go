// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/GermanBionicSystems/envnode/reading"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/display"
)

// PanelOpts represents the options available for the panel sink.
type PanelOpts struct {
	// Foreground and Background default to white on black.
	Foreground color.Color
	Background color.Color
}

// Panel renders the report fields, one per row, on a display.
type Panel struct {
	d    display.Drawer
	fg   image.Image
	bg   image.Image
	face font.Face

	mu  sync.Mutex
	img *image.NRGBA
}

// NewPanel returns a Panel drawing on d. The opts can be nil.
//
// The display must be at least three 13 pixel rows high.
func NewPanel(d display.Drawer, opts *PanelOpts) (*Panel, error) {
	if d == nil {
		return nil, errors.New("report: nil display")
	}
	face := basicfont.Face7x13
	if d.Bounds().Dy() < 3*face.Height {
		return nil, errors.New("report: display too small")
	}
	if opts == nil {
		opts = &PanelOpts{}
	}
	p := &Panel{
		d:    d,
		fg:   image.White,
		bg:   image.Black,
		face: face,
		img:  image.NewNRGBA(d.Bounds()),
	}
	if opts.Foreground != nil {
		p.fg = &image.Uniform{opts.Foreground}
	}
	if opts.Background != nil {
		p.bg = &image.Uniform{opts.Background}
	}
	return p, nil
}

func (p *Panel) String() string {
	return "Panel{" + p.d.String() + "}"
}

// Report implements Sink.
func (p *Panel) Report(s reading.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.img.Bounds()
	draw.Draw(p.img, r, p.bg, image.Point{}, draw.Src)
	drawer := font.Drawer{
		Dst:  p.img,
		Src:  p.fg,
		Face: p.face,
	}
	h := p.face.Metrics().Height.Ceil()
	for i, f := range Fields(s) {
		drawer.Dot = fixed.P(r.Min.X, r.Min.Y+(i+1)*h-p.face.Metrics().Descent.Ceil())
		drawer.DrawString(f)
	}
	return p.d.Draw(r, p.img, r.Min)
}

// Halt implements conn.Resource. It halts the display.
func (p *Panel) Halt() error {
	return p.d.Halt()
}

var _ Sink = &Panel{}
