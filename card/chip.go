// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"fmt"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/pifi/config"
	"github.com/go-lpc/pifi/mixer"
	"github.com/go-lpc/pifi/tas571x"
)

// Side identifies one of the two amplifiers of a card.
type Side int

const (
	Left Side = iota
	Right
)

var sides = [...]Side{Left, Right}

func (s Side) String() string {
	switch s {
	case Left:
		return "Left"
	case Right:
		return "Right"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Codec is the register channel to one amplifier.
type Codec interface {
	WriteReg(reg uint8, v uint32) error
	// Controls returns the per-chip mixer controls, with unprefixed names.
	Controls() []*mixer.Control
	Close() error
}

// Pair holds the two amplifiers of a card.
type Pair struct {
	left  Codec
	right Codec
}

func (p *Pair) set(side Side, codec Codec) {
	switch side {
	case Left:
		p.left = codec
	case Right:
		p.right = codec
	default:
		panic(fmt.Errorf("card: invalid side %v", side))
	}
}

// Codec returns the amplifier on the given side.
func (p *Pair) Codec(side Side) Codec {
	switch side {
	case Left:
		return p.left
	case Right:
		return p.right
	default:
		panic(fmt.Errorf("card: invalid side %v", side))
	}
}

// Write writes v to the register reg of the amplifier on the given side.
func (p *Pair) Write(side Side, reg uint8, v uint32) error {
	err := p.Codec(side).WriteReg(reg, v)
	if err != nil {
		return fmt.Errorf(
			"%w: could not write %s register 0x%02x=0x%x: %w",
			ErrHardware, side, reg, v, err,
		)
	}
	return nil
}

func (p *Pair) close(msg log.MsgStream) {
	for _, side := range sides {
		codec := p.Codec(side)
		if codec == nil {
			continue
		}
		err := codec.Close()
		if err != nil {
			msg.Warnf("could not close %s codec: %+v", side, err)
		}
		p.set(side, nil)
	}
}

// openTAS571x opens a TAS571x with single-byte volume registers.
// The tas5717 and tas5719 use 16-bit volume registers and are rejected.
func openTAS571x(c config.Codec) (Codec, error) {
	switch c.Model {
	case "tas5711", "tas5713":
	default:
		return nil, fmt.Errorf("unsupported codec model %q", c.Model)
	}

	dev, err := tas571x.Open(c.Bus, uint8(c.Addr))
	if err != nil {
		return nil, err
	}
	return dev, nil
}
