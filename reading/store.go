// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package reading holds the most recent accepted environment sample.
//
// A Store has exactly one writer, the sensor driver, and any number of
// readers. Readers always observe a temperature and humidity that were
// published together.
package reading

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Reading is the last accepted temperature/humidity pair.
type Reading struct {
	// Temperature in whole °C.
	Temperature int
	// Humidity in whole %RH.
	Humidity int
	// Valid is false until the first accepted frame.
	Valid bool
	// Updated is when the pair was published.
	Updated time.Time
}

// Env converts the reading to periph units. Pressure is always 0.
func (r Reading) Env() physic.Env {
	return physic.Env{
		Temperature: physic.ZeroCelsius + physic.Temperature(r.Temperature)*physic.Celsius,
		Humidity:    physic.RelativeHumidity(r.Humidity) * physic.PercentRH,
	}
}

func (r Reading) String() string {
	if !r.Valid {
		return "reading{invalid}"
	}
	return fmt.Sprintf("reading{%d°C, %d%%rH}", r.Temperature, r.Humidity)
}

// Snapshot is a consistent copy of everything a Store holds.
type Snapshot struct {
	Reading
	// Lux is the last light estimate, NaN if none was published.
	Lux float64
	// Accepted counts published readings.
	Accepted uint64
	// Failed counts cycles that ended without a publish.
	Failed uint64
	// Consecutive counts failures since the last publish.
	Consecutive uint64
}

// Store is the shared reading store. The zero value is ready to use.
type Store struct {
	mu          sync.RWMutex
	r           Reading
	accepted    uint64
	failed      uint64
	consecutive uint64

	// The light estimate has its own writer so it does not share the lock.
	lux     atomic.Uint64
	haveLux atomic.Bool

	now func() time.Time
}

// Publish records an accepted reading. Only the sensor driver calls it.
func (s *Store) Publish(temperature, humidity int) {
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	t := now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r = Reading{Temperature: temperature, Humidity: humidity, Valid: true, Updated: t}
	s.accepted++
	s.consecutive = 0
}

// Fail records a cycle that did not publish. The previous reading is kept.
func (s *Store) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.consecutive++
}

// Read returns the last published temperature and humidity, both 0 before
// the first publish.
func (s *Store) Read() (temperature, humidity int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r.Temperature, s.r.Humidity
}

// Reading returns the last published reading.
func (s *Store) Reading() Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.r
}

// PublishLight records a light estimate in lux.
func (s *Store) PublishLight(lux float64) {
	s.lux.Store(math.Float64bits(lux))
	s.haveLux.Store(true)
}

// Light returns the last light estimate and whether one was published.
func (s *Store) Light() (float64, bool) {
	if !s.haveLux.Load() {
		return math.NaN(), false
	}
	return math.Float64frombits(s.lux.Load()), true
}

// Snapshot returns a consistent copy of the store.
func (s *Store) Snapshot() Snapshot {
	lux, _ := s.Light()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Reading:     s.r,
		Lux:         lux,
		Accepted:    s.accepted,
		Failed:      s.failed,
		Consecutive: s.consecutive,
	}
}
