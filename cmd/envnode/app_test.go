// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/GermanBionicSystems/envnode/dht11"
	"github.com/GermanBionicSystems/envnode/reading"
	"github.com/GermanBionicSystems/envnode/report"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

type sink struct {
	mu   sync.Mutex
	last reading.Snapshot
	n    int
}

func (s *sink) Report(snap reading.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = snap
	s.n++
	return nil
}

func (s *sink) get() (reading.Snapshot, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.n
}

func TestNode_run(t *testing.T) {
	// A pulled-up line that never answers: every transaction fails.
	p := &gpiotest.Pin{N: "GPIO4", Num: 4}
	sensor, err := dht11.New(p, &dht11.Opts{Critical: func() func() { return func() {} }})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "in_voltage0_raw")
	if err := os.WriteFile(path, []byte("2048\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	light, adc, err := openLight(config{LDRPath: path, LDRBits: 12})
	if err != nil {
		t.Fatal(err)
	}

	panel, web, err := newWebPanel("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	var s reading.Store
	k := &sink{}
	n := &node{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:  &s,
		sensor: sensor,
		light:  light,
		reporter: &report.Reporter{
			Store:    &s,
			Sinks:    []report.Sink{k, panel},
			Interval: 5 * time.Millisecond,
		},
		web:  web,
		halt: []conn.Resource{sensor, adc, panel},
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, _ := k.get()
		if snap.Failed > 0 && !snap.Valid && snap.Lux > 50 && snap.Lux < 50.1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("last report %+v", snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}
	if _, err := adc.Read(); err == nil {
		t.Error("adc not halted")
	}
}

func TestNewWebPanel(t *testing.T) {
	panel, web, err := newWebPanel("127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := httptest.NewServer(web.Handler)
	defer s.Close()

	snap := reading.Snapshot{Reading: reading.Reading{Temperature: 24, Humidity: 50, Valid: true}, Lux: 50}
	if err := panel.Report(snap); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Get(s.URL + "/panel?once")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got := img.Bounds().Size(); got != (image.Point{128, 48}) {
		t.Errorf("panel size %v", got)
	}

	resp, err = http.Get(s.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status %d", resp.StatusCode)
	}
}
