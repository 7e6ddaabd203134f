// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/GermanBionicSystems/envnode/dht11"
	"github.com/GermanBionicSystems/envnode/photocell"
	"github.com/GermanBionicSystems/envnode/reading"
	"github.com/GermanBionicSystems/envnode/report"
	"github.com/GermanBionicSystems/envnode/telemetry"
	"github.com/GermanBionicSystems/envnode/webpanel"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

const (
	dialTimeout     = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

// node is the set of periodic tasks sharing one store.
type node struct {
	logger   *slog.Logger
	store    *reading.Store
	sensor   *dht11.Dev
	light    *photocell.Dev // nil when no photocell is configured
	reporter *report.Reporter
	web      *http.Server // nil when the web panel is disabled
	// halt is called in order on shutdown.
	halt []conn.Resource
}

// run starts every task and blocks until ctx is done or one of them fails.
func (n *node) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.sensor.Run(ctx, n.store) })
	if n.light != nil {
		g.Go(func() error {
			return n.light.Run(ctx, n.store, photocell.DefaultInterval, func(err error) {
				n.logger.Debug("light sample failed", "err", err)
			})
		})
	}
	g.Go(func() error { return n.reporter.Run(ctx) })
	if n.web != nil {
		g.Go(func() error { return n.serve(ctx) })
	}
	err := g.Wait()
	for _, r := range n.halt {
		if herr := r.Halt(); herr != nil {
			n.logger.Warn("halt failed", "resource", r, "err", herr)
		}
	}
	return err
}

// serve runs the web panel server until ctx is done.
func (n *node) serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		n.logger.Info("http listening", "addr", n.web.Addr)
		errCh <- n.web.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := n.web.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}

// run wires the hardware described by cfg and runs until ctx is done.
func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("periph init: %w", err)
	}
	p := gpioreg.ByName(cfg.DHTPin)
	if p == nil {
		return fmt.Errorf("unknown DHT_PIN %q", cfg.DHTPin)
	}
	sensor, err := dht11.New(p, &dht11.Opts{
		Critical: dht11.LockThread,
		OnError: func(err error) {
			logger.Warn("dht11 transaction failed", "err", err)
		},
	})
	if err != nil {
		return err
	}
	logger.Info("dht11 ready", "pin", sensor.String())

	n := &node{
		logger: logger,
		store:  &reading.Store{},
		sensor: sensor,
		halt:   []conn.Resource{sensor},
	}

	if cfg.LDRPath != "" {
		if light, adc, err := openLight(cfg); err != nil {
			logger.Warn("photocell unavailable; continuing without light sampling", "path", cfg.LDRPath, "err", err)
		} else {
			n.light = light
			n.halt = append(n.halt, adc)
			logger.Info("photocell ready", "adc", adc.String())
		}
	}

	console := report.NewConsole(nil)
	sinks := []report.Sink{console}
	n.halt = append(n.halt, console)
	if cfg.MQTTBroker != "" {
		dctx, cancel := context.WithTimeout(ctx, dialTimeout)
		pub, err := telemetry.Dial(dctx, telemetry.Config{
			Broker:    cfg.MQTTBroker,
			Port:      cfg.MQTTPort,
			ClientID:  cfg.MQTTClientID,
			StationID: cfg.StationID,
		})
		cancel()
		switch {
		case errors.Is(err, context.Canceled):
			return err
		case err != nil:
			logger.Warn("mqtt unavailable; continuing without telemetry",
				"broker", cfg.MQTTBroker,
				"port", cfg.MQTTPort,
				"err", err,
			)
		default:
			sinks = append(sinks, pub)
			n.halt = append(n.halt, pub)
			logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort, "topic", pub.Topic())
		}
	}

	if cfg.PanelAddr != "" {
		panel, web, err := newWebPanel(cfg.PanelAddr)
		if err != nil {
			return err
		}
		sinks = append(sinks, panel)
		n.halt = append(n.halt, panel)
		n.web = web
	}

	n.reporter = &report.Reporter{
		Store:    n.store,
		Sinks:    sinks,
		Interval: cfg.ReportInterval,
		OnError: func(s report.Sink, err error) {
			logger.Warn("report failed", "sink", s, "err", err)
		},
	}
	return n.run(ctx)
}

func openLight(cfg config) (*photocell.Dev, *photocell.IIOPin, error) {
	adc, err := photocell.OpenIIO(cfg.LDRPath, cfg.LDRBits)
	if err != nil {
		return nil, nil, err
	}
	light, err := photocell.New(adc, nil)
	if err != nil {
		_ = adc.Halt()
		return nil, nil, err
	}
	return light, adc, nil
}

// newWebPanel returns a panel sink rendering on a web display and the server
// exposing it.
func newWebPanel(addr string) (*report.Panel, *http.Server, error) {
	d, err := webpanel.New(&webpanel.Opts{Width: 128, Height: 48})
	if err != nil {
		return nil, nil, err
	}
	panel, err := report.NewPanel(d, nil)
	if err != nil {
		return nil, nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/panel", d)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	web := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	// Streams only end on Halt, which Shutdown would otherwise wait for.
	web.RegisterOnShutdown(func() { _ = d.Halt() })
	return panel, web, nil
}
