// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package report periodically renders the shared reading store to one or
// more sinks.
//
// The canonical rendering is a single line:
//
//	LDR: 50.02 Lux | Temp: 24 C | Hum: 50 %
//
// Before the first accepted frame temperature and humidity print as 0, and
// before the first light sample the light level prints as 0.00.
package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/GermanBionicSystems/envnode/reading"
	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the reporting period used when Reporter.Interval is 0.
const DefaultInterval = time.Second

// Fields returns the light, temperature and humidity fields of the report
// line, in that order.
func Fields(s reading.Snapshot) []string {
	lux := s.Lux
	if math.IsNaN(lux) {
		lux = 0
	}
	return []string{
		fmt.Sprintf("LDR: %.2f Lux", lux),
		fmt.Sprintf("Temp: %d C", s.Temperature),
		fmt.Sprintf("Hum: %d %%", s.Humidity),
	}
}

// Format returns the report line for s, without line terminator.
func Format(s reading.Snapshot) string {
	return strings.Join(Fields(s), " | ")
}

// Sink receives every report.
type Sink interface {
	Report(s reading.Snapshot) error
}

// Reporter renders Store to every Sink each Interval.
type Reporter struct {
	Store *reading.Store
	Sinks []Sink
	// Interval is the reporting period. 0 means DefaultInterval.
	Interval time.Duration
	// Clock paces Run. nil uses the wall clock.
	Clock clockwork.Clock
	// OnError is called with every failed Report. It may be nil.
	OnError func(Sink, error)
}

// Report takes one snapshot and hands it to every sink. A failing sink does
// not prevent the others from receiving it.
func (r *Reporter) Report() {
	s := r.Store.Snapshot()
	for _, k := range r.Sinks {
		if err := k.Report(s); err != nil && r.OnError != nil {
			r.OnError(k, err)
		}
	}
}

// Run reports immediately and then every Interval until ctx is done.
//
// Run always returns ctx.Err().
func (r *Reporter) Run(ctx context.Context) error {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Report()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(interval):
		}
	}
}
