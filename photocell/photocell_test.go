// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package photocell

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/GermanBionicSystems/envnode/reading"
	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3/analog"
)

// adc is a fake analog.PinADC returning scripted raw values; the last one
// repeats.
type adc struct {
	analog.PinADC
	mu   sync.Mutex
	raws []int32
	max  int32
	err  error
	n    int
}

func (a *adc) String() string { return "ADC0" }

func (a *adc) Range() (analog.Sample, analog.Sample) {
	return analog.Sample{}, analog.Sample{Raw: a.max}
}

func (a *adc) Read() (analog.Sample, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.n++
	if a.err != nil {
		return analog.Sample{}, a.err
	}
	r := a.raws[0]
	if len(a.raws) > 1 {
		a.raws = a.raws[1:]
	}
	return analog.Sample{Raw: r}, nil
}

func (a *adc) reads() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestNew(t *testing.T) {
	if _, err := New(nil, nil); err == nil {
		t.Error("New() accepted a nil pin")
	}
	if _, err := New(&adc{}, &Opts{Series: -1}); err == nil {
		t.Error("New() accepted a negative resistor")
	}
	d, err := New(&adc{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.max != 4095 {
		t.Errorf("max = %v; want 4095 when the pin reports no range", d.max)
	}
	if s := d.String(); s != "Photocell{ADC0}" {
		t.Errorf("String() = %q", s)
	}
	if err := d.Halt(); err != nil {
		t.Error(err)
	}
}

func TestSense(t *testing.T) {
	for _, tc := range []struct {
		name string
		raw  int32
		max  int32
		opts *Opts
		want float64
	}{
		{"midpoint", 2048, 0, nil, 50.02442598925257},
		{"dim", 1000, 0, nil, 16.15508885298869},
		{"bright", 3000, 0, nil, 136.986301369863},
		{"10 bit range", 512, 1023, nil, 50.09784735812134},
		{"explicit max", 512, 4095, &Opts{Max: 1023}, 50.09784735812134},
		{"gamma", 2048, 0, &Opts{Gamma: 1000}, 2 * 50.02442598925257},
	} {
		t.Run(tc.name, func(t *testing.T) {
			d, err := New(&adc{raws: []int32{tc.raw}, max: tc.max}, tc.opts)
			if err != nil {
				t.Fatal(err)
			}
			got, err := d.Sense()
			if err != nil {
				t.Fatal(err)
			}
			if !near(got, tc.want) {
				t.Errorf("Sense() = %v; want %v", got, tc.want)
			}
		})
	}
}

func TestSense_errors(t *testing.T) {
	d, _ := New(&adc{raws: []int32{0}}, nil)
	if _, err := d.Sense(); !errors.Is(err, ErrDark) {
		t.Errorf("Sense() error = %v; want ErrDark", err)
	}
	d, _ = New(&adc{raws: []int32{4095}}, nil)
	if _, err := d.Sense(); !errors.Is(err, ErrSaturated) {
		t.Errorf("Sense() error = %v; want ErrSaturated", err)
	}
	bad := errors.New("bus fault")
	d, _ = New(&adc{err: bad}, nil)
	if _, err := d.Sense(); !errors.Is(err, bad) {
		t.Errorf("Sense() error = %v; want wrapped %v", err, bad)
	}
}

func TestRun(t *testing.T) {
	fc := clockwork.NewFakeClock()
	a := &adc{raws: []int32{2048, 0, 3000}}
	d, err := New(a, &Opts{Clock: fc})
	if err != nil {
		t.Fatal(err)
	}
	var s reading.Store
	var mu sync.Mutex
	var errs []error
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- d.Run(ctx, &s, 0, func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		})
	}()

	fc.BlockUntil(1)
	if lux, ok := s.Light(); !ok || !near(lux, 50.02442598925257) {
		t.Errorf("Light() = %v, %t", lux, ok)
	}
	// A dark sample keeps the previous estimate.
	fc.Advance(DefaultInterval)
	fc.BlockUntil(1)
	if lux, _ := s.Light(); !near(lux, 50.02442598925257) {
		t.Errorf("Light() = %v after a failed sample", lux)
	}
	fc.Advance(DefaultInterval)
	fc.BlockUntil(1)
	if lux, _ := s.Light(); !near(lux, 136.986301369863) {
		t.Errorf("Light() = %v", lux)
	}
	if n := a.reads(); n != 3 {
		t.Errorf("reads = %d; want 3", n)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || !errors.Is(errs[0], ErrDark) {
		t.Errorf("errors = %v; want [ErrDark]", errs)
	}
}
