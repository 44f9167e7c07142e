// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads and validates the YAML card description in fname.
func Load(fname string) (Card, error) {
	f, err := os.Open(fname)
	if err != nil {
		return Card{}, fmt.Errorf("config: could not open %q: %w", fname, err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return cfg, fmt.Errorf("config: could not load %q: %w", fname, err)
	}
	return cfg, nil
}

// Decode reads and validates a YAML card description from r.
//
//	name: PiFi40
//	codecs:
//	  - {bus: 1, addr: 0x1a}
//	  - {bus: 1, addr: 0x1b}
//	pdn: {chip: gpiochip0, offset: 4, active-low: true}
func Decode(r io.Reader) (Card, error) {
	var cfg Card
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	err := dec.Decode(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("config: could not decode YAML card description: %w", err)
	}

	cfg.SetDefaults()
	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}
