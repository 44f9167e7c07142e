// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config describes the hardware resources of a two-amplifier
// sound card and loads that description from YAML files or from a
// flattened device tree.
package config // import "github.com/go-lpc/pifi/config"

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned for missing or inconsistent descriptions.
var ErrInvalid = errors.New("config: invalid card description")

const (
	DefaultName   = "PiFi40"
	DefaultModel  = "tas5713"
	DefaultGPIO   = "gpiochip0"
	Compatible    = "pifi,pifi-40"
	NumCodecs     = 2
	maxI2CAddress = 0x7f
)

// Codec locates one amplifier on an I2C bus.
type Codec struct {
	Bus   int    `yaml:"bus"   json:"bus"`
	Addr  uint16 `yaml:"addr"  json:"addr"`
	Model string `yaml:"model" json:"model,omitempty"`
}

func (c Codec) String() string {
	return fmt.Sprintf("%s.%d-%04x", c.Model, c.Bus, c.Addr)
}

// Line locates the power-down GPIO line shared by both amplifiers.
type Line struct {
	Chip      string `yaml:"chip"       json:"chip"`
	Offset    int    `yaml:"offset"     json:"offset"`
	ActiveLow bool   `yaml:"active-low" json:"active_low"`
}

func (l Line) String() string {
	return fmt.Sprintf("%s:%d", l.Chip, l.Offset)
}

// Card is the description of a sound card.
type Card struct {
	Name   string  `yaml:"name"   json:"name"`
	Codecs []Codec `yaml:"codecs" json:"codecs"`
	PDN    *Line   `yaml:"pdn"    json:"pdn,omitempty"`
}

// Validate checks the card holds exactly two distinct codecs and a
// usable power-down line, if any.
func (cfg Card) Validate() error {
	if len(cfg.Codecs) != NumCodecs {
		return fmt.Errorf(
			"%w: card %q needs %d audio codecs (got=%d)",
			ErrInvalid, cfg.Name, NumCodecs, len(cfg.Codecs),
		)
	}
	for i, c := range cfg.Codecs {
		if c.Bus < 0 {
			return fmt.Errorf("%w: codec[%d]: invalid I2C bus %d", ErrInvalid, i, c.Bus)
		}
		if c.Addr == 0 || c.Addr > maxI2CAddress {
			return fmt.Errorf("%w: codec[%d]: invalid I2C address 0x%x", ErrInvalid, i, c.Addr)
		}
	}
	if a, b := cfg.Codecs[0], cfg.Codecs[1]; a.Bus == b.Bus && a.Addr == b.Addr {
		return fmt.Errorf("%w: codecs share I2C address %d-%04x", ErrInvalid, a.Bus, a.Addr)
	}
	if cfg.PDN != nil {
		if cfg.PDN.Chip == "" {
			return fmt.Errorf("%w: pdn line without GPIO chip", ErrInvalid)
		}
		if cfg.PDN.Offset < 0 {
			return fmt.Errorf("%w: pdn line with invalid offset %d", ErrInvalid, cfg.PDN.Offset)
		}
	}
	return nil
}

// SetDefaults fills the name and codec models left empty.
func (cfg *Card) SetDefaults() {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	for i := range cfg.Codecs {
		if cfg.Codecs[i].Model == "" {
			cfg.Codecs[i].Model = DefaultModel
		}
	}
}
