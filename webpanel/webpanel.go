// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package webpanel is a display.Drawer whose content is served over HTTP.
//
// A GET request receives a multipart/x-mixed-replace stream of PNG frames,
// the protocol IP cameras use for MJPEG, which browsers render in place. A
// new frame is sent after every Draw. "?once" returns a single PNG instead.
package webpanel

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/display"
)

// Opts holds the configuration options for the display.
type Opts struct {
	Width, Height int
}

// Display is a virtual display served by its ServeHTTP method.
type Display struct {
	enc png.Encoder

	mu      sync.Mutex
	img     *image.NRGBA
	frame   []byte        // PNG of img, nil when stale
	changed chan struct{} // closed on the next Draw
	done    chan struct{} // closed by Halt
}

// New returns a black Display of the given size.
func New(opts *Opts) (*Display, error) {
	if opts == nil || opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.New("webpanel: invalid size")
	}
	d := &Display{
		enc:     png.Encoder{CompressionLevel: png.BestSpeed},
		img:     image.NewNRGBA(image.Rect(0, 0, opts.Width, opts.Height)),
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
	draw.Draw(d.img, d.img.Bounds(), image.Black, image.Point{}, draw.Src)
	return d, nil
}

func (d *Display) String() string {
	r := d.img.Bounds()
	return fmt.Sprintf("WebPanel{%dx%d}", r.Dx(), r.Dy())
}

// Halt implements conn.Resource. It ends every open stream. The display
// keeps serving single frames.
func (d *Display) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-d.done:
	default:
		close(d.done)
	}
	return nil
}

// ColorModel implements display.Drawer.
func (d *Display) ColorModel() color.Model {
	return d.img.ColorModel()
}

// Bounds implements display.Drawer.
func (d *Display) Bounds() image.Rectangle {
	return d.img.Bounds()
}

// Draw implements display.Drawer.
func (d *Display) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Draw(d.img, r, src, sp, draw.Src)
	d.frame = nil
	close(d.changed)
	d.changed = make(chan struct{})
	return nil
}

// snapshot returns the current frame and a channel closed when it becomes
// stale. The frame must not be modified.
func (d *Display) snapshot() ([]byte, <-chan struct{}, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.frame == nil {
		var b bytes.Buffer
		if err := d.enc.Encode(&b, d.img); err != nil {
			return nil, nil, err
		}
		d.frame = b.Bytes()
	}
	return d.frame, d.changed, nil
}

// ServeHTTP implements http.Handler.
func (d *Display) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Query().Has("once") {
		frame, _, err := d.snapshot()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
		_, _ = w.Write(frame)
		return
	}

	boundary, err := newBoundary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	flusher, _ := w.(http.Flusher)
	first := true
	for {
		frame, changed, err := d.snapshot()
		if err != nil {
			return
		}
		if err := writePart(w, boundary, first, frame); err != nil {
			return
		}
		first = false
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case <-changed:
		case <-d.done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// writePart writes one PNG part followed by the next boundary, so that the
// client can display the part without waiting for the next one.
func writePart(w io.Writer, boundary string, first bool, body []byte) error {
	var b bytes.Buffer
	if first {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
	}
	fmt.Fprintf(&b, "Content-Type: image/png\r\nContent-Length: %d\r\n\r\n", len(body))
	b.Write(body)
	fmt.Fprintf(&b, "\r\n--%s\r\n", boundary)
	_, err := b.WriteTo(w)
	return err
}

func newBoundary() (string, error) {
	var buf [24]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		return "", fmt.Errorf("webpanel: boundary: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

var _ display.Drawer = &Display{}
var _ http.Handler = &Display{}
