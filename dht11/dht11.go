// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GermanBionicSystems/envnode/reading"
	"github.com/jonboulle/clockwork"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3/cpu"
)

const (
	// startLow is how long the host holds the line low to wake the sensor.
	// Datasheet p.5: at least 18ms.
	startLow = 18 * time.Millisecond
	// startHigh is how long the host drives the line high before releasing
	// it. Datasheet p.5: 20-40µs.
	startHigh = 30 * time.Microsecond

	// Cooldown is the minimum time between two transactions. The sensor does
	// not answer reliably when sampled more often than every 2 seconds.
	Cooldown = 2 * time.Second
)

// Opts holds the configuration options for the device.
type Opts struct {
	// Clock times the pulses and the cooldown. nil uses the wall clock.
	Clock clockwork.Clock
	// Critical guards the timing sensitive part of a transaction. nil uses
	// LockThread.
	Critical Critical
	// OnError is called by Run with every failed transaction. It must not
	// block. May be nil.
	OnError func(error)
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Critical: LockThread,
}

// Dev is a handle to a DHT11 sensor on a single GPIO line.
//
// The Dev owns the pin: nothing else may read or drive it while the Dev is in
// use.
type Dev struct {
	mu       sync.Mutex
	line     line
	watch    stopwatch
	clock    clockwork.Clock
	critical Critical
	onError  func(error)
	last     time.Time // end of the previous transaction

	smu  sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a driver for a DHT11 connected to p. The Opts can be nil.
//
// The line is driven high so that the sensor sees an idle bus until the first
// transaction.
func New(p gpio.PinIO, opts *Opts) (*Dev, error) {
	if p == nil {
		return nil, errors.New("dht11: nil pin")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	critical := opts.Critical
	if critical == nil {
		critical = LockThread
	}
	d := &Dev{
		line:     line{p: p},
		watch:    stopwatch{clock: clock},
		clock:    clock,
		critical: critical,
		onError:  opts.OnError,
	}
	if err := d.line.drive(gpio.High); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadFrame performs one transaction and returns the decoded frame.
//
// It does not wait for the cooldown; callers sampling in a loop should use
// Run, Sense or SenseContinuous instead. When the checksum does not verify,
// the decoded frame is returned along with the error.
func (d *Dev) ReadFrame() (Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transact()
}

// Sense implements physic.SenseEnv. It blocks until Cooldown has elapsed
// since the previous transaction. Pressure is always 0.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.last.IsZero() {
		if w := Cooldown - d.clock.Since(d.last); w > 0 {
			sleep(w)
		}
	}
	f, err := d.transact()
	if err != nil {
		return err
	}
	e.Temperature = physic.ZeroCelsius + physic.Temperature(f.Temperature())*physic.Celsius
	e.Humidity = physic.RelativeHumidity(f.Humidity()) * physic.PercentRH
	e.Pressure = 0
	return nil
}

// SenseContinuous implements physic.SenseEnv. Failed transactions are
// skipped. The minimum interval is Cooldown. Call Halt to stop.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < Cooldown {
		return nil, fmt.Errorf("dht11: invalid duration %s, minimum %s", interval, Cooldown)
	}
	d.smu.Lock()
	defer d.smu.Unlock()
	if d.stop != nil {
		return nil, errors.New("dht11: sense continuous already running")
	}
	stop := make(chan struct{})
	d.stop = stop
	ch := make(chan physic.Env)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		t := d.clock.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.Chan():
				var e physic.Env
				if err := d.Sense(&e); err != nil {
					d.report(err)
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Run samples the sensor until ctx is done, publishing every accepted frame
// into s. Failed transactions leave s untouched apart from its failure
// counters. Every transaction, successful or not, is followed by Cooldown.
//
// Run always returns ctx.Err().
func (d *Dev) Run(ctx context.Context, s *reading.Store) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := d.ReadFrame()
		if err != nil {
			s.Fail()
			d.report(err)
		} else {
			s.Publish(f.Temperature(), f.Humidity())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(Cooldown):
		}
	}
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Celsius
	e.Pressure = 0
	e.Humidity = physic.PercentRH
}

// Halt implements conn.Resource. It stops SenseContinuous and releases the
// line.
func (d *Dev) Halt() error {
	d.smu.Lock()
	if d.stop != nil {
		close(d.stop)
		d.wg.Wait()
		d.stop = nil
	}
	d.smu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.line.release()
}

func (d *Dev) String() string {
	return "DHT11{" + d.line.p.String() + "}"
}

// transact runs one start/response/data exchange. d.mu must be held.
func (d *Dev) transact() (f Frame, err error) {
	defer func() { d.last = d.clock.Now() }()

	if err = d.line.drive(gpio.Low); err != nil {
		return f, err
	}
	sleep(startLow)

	leave := d.critical()
	f, err = d.receive()
	leave()

	// Park the line high until the next start pulse. A failure here does not
	// invalidate the frame already received.
	if perr := d.line.drive(gpio.High); err == nil && perr != nil {
		return Frame{}, perr
	}
	if err != nil {
		return Frame{}, err
	}
	return f, f.Verify()
}

// receive finishes the start sequence and decodes the 40 data bits. It must
// run inside the critical section.
func (d *Dev) receive() (Frame, error) {
	if err := d.line.write(gpio.High); err != nil {
		return Frame{}, err
	}
	spin(startHigh)
	if err := d.line.release(); err != nil {
		return Frame{}, err
	}

	// The sensor answers with 80µs low then 80µs high, then starts the first
	// bit with a low.
	if !d.await(gpio.Low, responseTimeout) {
		return Frame{}, &NoResponseError{Phase: "response low"}
	}
	if !d.await(gpio.High, responseTimeout) {
		return Frame{}, &NoResponseError{Phase: "response high"}
	}
	if !d.await(gpio.Low, responseTimeout) {
		return Frame{}, &NoResponseError{Phase: "data start"}
	}

	var f Frame
	for i := 0; i < frameBits; i++ {
		w, ok := d.pulseWidth()
		if !ok {
			return Frame{}, &TruncatedFrameError{Bit: i}
		}
		if decodeBit(w) {
			f.set(i)
		}
	}
	return f, nil
}

func (d *Dev) report(err error) {
	if d.onError != nil {
		d.onError(err)
	}
}

var (
	sleep = time.Sleep
	spin  = cpu.Nanospin
)

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
