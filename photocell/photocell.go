// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package photocell estimates illuminance from a light dependent resistor
// read through an ADC.
//
// The LDR is the upper half of a voltage divider with a fixed series
// resistor to ground; the ADC samples the midpoint.
package photocell

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/envnode/reading"
	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/analog"
)

// DefaultInterval is the sampling period Run uses when given none.
const DefaultInterval = time.Second

// ErrDark is returned when the divider reads 0V, which maps to no finite
// resistance.
var ErrDark = errors.New("photocell: no voltage across the series resistor")

// ErrSaturated is returned when the divider reads Vref or more, which maps to
// an LDR of 0Ω.
var ErrSaturated = errors.New("photocell: divider saturated")

// Opts holds the configuration options for the device.
type Opts struct {
	// Vref is the ADC reference voltage in volts.
	Vref float64
	// Series is the fixed divider resistor in ohms.
	Series float64
	// Gamma is the lux at 1kΩ of LDR resistance.
	Gamma float64
	// Max is the raw value at Vref. 0 uses the pin's Range, falling back to
	// 4095.
	Max int32
	// Clock paces Run. nil uses the wall clock.
	Clock clockwork.Clock
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Vref:   3.3,
	Series: 10000,
	Gamma:  500,
}

// Dev is a handle to a photocell divider.
type Dev struct {
	p     analog.PinADC
	vref  float64
	rs    float64
	gamma float64
	max   float64
	clock clockwork.Clock
}

// New returns a Dev reading p. The Opts can be nil.
func New(p analog.PinADC, opts *Opts) (*Dev, error) {
	if p == nil {
		return nil, errors.New("photocell: nil pin")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Vref == 0 {
		o.Vref = DefaultOpts.Vref
	}
	if o.Series == 0 {
		o.Series = DefaultOpts.Series
	}
	if o.Gamma == 0 {
		o.Gamma = DefaultOpts.Gamma
	}
	if o.Vref < 0 || o.Series < 0 || o.Gamma < 0 || o.Max < 0 {
		return nil, errors.New("photocell: negative option")
	}
	full := o.Max
	if full == 0 {
		if _, hi := p.Range(); hi.Raw > 0 {
			full = hi.Raw
		} else {
			full = 4095
		}
	}
	clock := o.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dev{p: p, vref: o.Vref, rs: o.Series, gamma: o.Gamma, max: float64(full), clock: clock}, nil
}

// Sense reads one sample and returns the estimated illuminance in lux.
func (d *Dev) Sense() (float64, error) {
	s, err := d.p.Read()
	if err != nil {
		return 0, fmt.Errorf("photocell: read %s: %w", d.p, err)
	}
	return d.lux(s.Raw)
}

func (d *Dev) lux(raw int32) (float64, error) {
	v := float64(raw) * d.vref / d.max
	if v <= 0 {
		return 0, ErrDark
	}
	if v >= d.vref {
		return 0, ErrSaturated
	}
	r := d.rs * (d.vref - v) / v
	return d.gamma / (r / 1000), nil
}

// Run samples every interval until ctx is done and publishes each estimate
// into s. A zero interval uses DefaultInterval. Failed samples are passed to
// onError, which may be nil.
//
// Run always returns ctx.Err().
func (d *Dev) Run(ctx context.Context, s *reading.Store, interval time.Duration, onError func(error)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	for {
		if lux, err := d.Sense(); err != nil {
			if onError != nil {
				onError(err)
			}
		} else {
			s.PublishLight(lux)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(interval):
		}
	}
}

// Halt implements conn.Resource. It is a noop.
func (d *Dev) Halt() error {
	return nil
}

func (d *Dev) String() string {
	return "Photocell{" + d.p.String() + "}"
}

var _ conn.Resource = &Dev{}
