// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package telemetry publishes store snapshots as JSON over MQTT.
//
// Each report goes to stations/<station id>/telemetry at QoS 1.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/envnode/reading"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Telemetry is the published message. Measurements are omitted until one is
// available.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Light       *float64  `json:"light_lux,omitempty"`
	Sequence    uint64    `json:"sequence"`
	Failures    uint64    `json:"failures"`
}

// Config describes the broker connection.
type Config struct {
	Broker    string
	Port      int
	ClientID  string
	StationID string
}

const (
	qos            = 1
	publishTimeout = 5 * time.Second
)

// Publisher is a report.Sink publishing to an MQTT broker.
type Publisher struct {
	client  mqtt.Client
	station string
	topic   string
	now     func() time.Time

	mu  sync.Mutex
	seq uint64
}

// New returns a Publisher using an already configured client.
func New(client mqtt.Client, stationID string) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("telemetry: nil client")
	}
	if stationID == "" {
		return nil, errors.New("telemetry: empty station id")
	}
	return &Publisher{
		client:  client,
		station: stationID,
		topic:   fmt.Sprintf("stations/%s/telemetry", stationID),
		now:     time.Now,
	}, nil
}

// Dial connects to the broker described by cfg and returns a Publisher on
// it. The client reconnects on its own once connected. Dial gives up when
// ctx is done.
func Dial(ctx context.Context, cfg Config) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	c := mqtt.NewClient(opts)
	if err := connect(ctx, c); err != nil {
		return nil, err
	}
	return New(c, cfg.StationID)
}

func connect(ctx context.Context, c mqtt.Client) error {
	t := c.Connect()
	const poll = 200 * time.Millisecond
	for {
		if t.WaitTimeout(poll) {
			if err := t.Error(); err != nil {
				return fmt.Errorf("telemetry: connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			c.Disconnect(0)
			return ctx.Err()
		default:
		}
	}
}

// Topic returns the topic messages are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// Message converts s to the published message, without assigning a
// sequence number.
func (p *Publisher) Message(s reading.Snapshot) Telemetry {
	m := Telemetry{
		StationID: p.station,
		Timestamp: p.now().UTC(),
		Failures:  s.Failed,
	}
	if s.Valid {
		t, h := float64(s.Temperature), float64(s.Humidity)
		m.Temperature = &t
		m.Humidity = &h
	}
	if !math.IsNaN(s.Lux) {
		l := s.Lux
		m.Light = &l
	}
	return m
}

// Report implements report.Sink. It fails fast while the client is
// disconnected.
func (p *Publisher) Report(s reading.Snapshot) error {
	if !p.client.IsConnected() {
		return errors.New("telemetry: not connected")
	}
	m := p.Message(s)
	p.mu.Lock()
	p.seq++
	m.Sequence = p.seq
	p.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("telemetry: marshal: %w", err)
	}
	t := p.client.Publish(p.topic, qos, false, data)
	if !t.WaitTimeout(publishTimeout) {
		return fmt.Errorf("telemetry: publish timeout for topic %s", p.topic)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("telemetry: publish: %w", err)
	}
	return nil
}

func (p *Publisher) String() string {
	return "MQTT{" + p.topic + "}"
}

// Halt implements conn.Resource. It disconnects from the broker.
func (p *Publisher) Halt() error {
	p.client.Disconnect(250)
	return nil
}
