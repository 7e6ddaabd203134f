// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht11_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/envnode/dht11"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// The data line of the sensor, with a 10kΩ pull-up to 3.3V.
	p := gpioreg.ByName("GPIO4")
	if p == nil {
		log.Fatal("failed to find GPIO4")
	}

	d, err := dht11.New(p, nil) // nil for default options or &dht11.DefaultOpts
	if err != nil {
		log.Fatalf("failed to initialize DHT11: %v", err)
	}
	defer d.Halt()

	e := physic.Env{}
	if err := d.Sense(&e); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%8s %9s\n", e.Temperature, e.Humidity)
}

func ExampleFrame() {
	f := dht11.Frame{0x23, 0x00, 0x15, 0x00, 0x38}
	if err := f.Verify(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%d°C %d%%rH\n", f.Temperature(), f.Humidity())
	// Output: 21°C 35%rH
}
