// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package photocell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"periph.io/x/conn/v3/analog"
)

// IIOPin is an analog.PinADC backed by a Linux industrial I/O channel, e.g.
// /sys/bus/iio/devices/iio:device0/in_voltage0_raw.
type IIOPin struct {
	path string
	max  int32

	mu sync.Mutex
	f  io.ReadSeekCloser
}

// OpenIIO opens the raw channel file at path. bits is the converter
// resolution; 12 matches the usual on-board ADCs.
func OpenIIO(path string, bits int) (*IIOPin, error) {
	if bits <= 0 || bits > 31 {
		return nil, fmt.Errorf("photocell: invalid ADC resolution %d", bits)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("photocell: %w", err)
	}
	return &IIOPin{path: path, max: 1<<bits - 1, f: f}, nil
}

// Read implements analog.PinADC. Only Raw is set.
func (p *IIOPin) Read() (analog.Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f == nil {
		return analog.Sample{}, errors.New("photocell: iio channel closed")
	}
	if _, err := p.f.Seek(0, io.SeekStart); err != nil {
		return analog.Sample{}, err
	}
	var buf [24]byte
	n, err := p.f.Read(buf[:])
	if err != nil && !errors.Is(err, io.EOF) {
		return analog.Sample{}, err
	}
	i, err := strconv.ParseInt(strings.TrimSpace(string(buf[:n])), 10, 32)
	if err != nil {
		return analog.Sample{}, fmt.Errorf("photocell: %s: %w", p.path, err)
	}
	return analog.Sample{Raw: int32(i)}, nil
}

// Range implements analog.PinADC.
func (p *IIOPin) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{}, analog.Sample{Raw: p.max}
}

// Halt implements conn.Resource. It closes the channel file.
func (p *IIOPin) Halt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.f == nil {
		return nil
	}
	err := p.f.Close()
	p.f = nil
	return err
}

// Name implements pin.Pin.
func (p *IIOPin) Name() string {
	return filepath.Base(filepath.Dir(p.path)) + "/" + filepath.Base(p.path)
}

// Number implements pin.Pin. IIO channels have no GPIO number.
func (p *IIOPin) Number() int {
	return -1
}

// Function implements pin.Pin.
func (p *IIOPin) Function() string {
	return "ADC"
}

func (p *IIOPin) String() string {
	return p.Name()
}

var _ analog.PinADC = &IIOPin{}
