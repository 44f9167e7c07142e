// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package card brings up and controls a sound card made of two TAS571x
// amplifiers driven in bridge-tied-load mode, sharing one power-down line.
package card // import "github.com/go-lpc/pifi/card"

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/pifi/config"
	"github.com/go-lpc/pifi/mixer"
)

var (
	ErrConfig   = errors.New("card: configuration error")
	ErrHardware = errors.New("card: hardware error")
	ErrResource = errors.New("card: resource unavailable")
)

// BCLKRatio is the bit-clock to sample-rate ratio of the I2S link.
const BCLKRatio = 64

// State is the lifecycle state of a card.
type State int

const (
	Unattached State = iota
	PoweredUp
	Initialized
	Registered
	Detached
)

func (st State) String() string {
	switch st {
	case Unattached:
		return "unattached"
	case PoweredUp:
		return "powered-up"
	case Initialized:
		return "initialized"
	case Registered:
		return "registered"
	case Detached:
		return "detached"
	default:
		return fmt.Sprintf("State(%d)", int(st))
	}
}

// Card is a sound card built from a pair of amplifiers.
type Card struct {
	msg log.MsgStream
	cfg config.Card

	openCodec   func(c config.Codec) (Codec, error)
	requestLine func(l config.Line) (Line, error)
	sleep       func(d time.Duration)

	mu    sync.Mutex // serializes Attach and Detach
	state State
	chips *Pair
	pdn   Line
	ctls  *mixer.Registry
	vol   *Volume

	vol0 int // initial volume
}

// New creates a card described by cfg.
// The hardware is not touched until Attach is called.
func New(cfg config.Card, opts ...Option) *Card {
	c := &Card{
		msg:         log.NewMsgStream("card", log.LvlInfo, os.Stdout),
		cfg:         cfg,
		openCodec:   openTAS571x,
		requestLine: requestGPIOLine,
		sleep:       time.Sleep,
		ctls:        mixer.NewRegistry(),
		vol0:        DefaultVolume,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the name of the card.
func (c *Card) Name() string { return c.cfg.Name }

// State returns the current lifecycle state.
func (c *Card) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Controls returns the controls the card currently exposes.
// The registry is empty unless the card is registered.
func (c *Card) Controls() *mixer.Registry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctls
}

// Volume returns the shared volume control, or nil if the card is not
// registered.
func (c *Card) Volume() *Volume {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Registered {
		return nil
	}
	return c.vol
}

// Attach resolves the amplifiers and the power-down line, powers the
// amplifiers up, configures them and registers the card's controls.
//
// On failure, all acquired resources are released, the power-down line is
// left asserted and the card is left unattached.
func (c *Card) Attach() (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Unattached:
	case Registered:
		return fmt.Errorf("card: %q already attached", c.cfg.Name)
	default:
		return fmt.Errorf("card: could not attach %q in state %v", c.cfg.Name, c.state)
	}

	err = c.cfg.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}

	defer func() {
		if err != nil {
			c.msg.Errorf("could not attach %q: %+v", c.cfg.Name, err)
			c.release()
			c.state = Unattached
		}
	}()

	err = c.resolve()
	if err != nil {
		return err
	}

	err = c.resetAndPowerUp()
	if err != nil {
		return err
	}
	c.state = PoweredUp

	err = c.initialize()
	if err != nil {
		return err
	}
	c.state = Initialized

	vol := newVolume(c.msg, c.chips, c.vol0)
	ctls, err := c.register(vol)
	if err != nil {
		return err
	}
	c.prune(ctls)

	c.vol = vol
	c.ctls = ctls
	c.state = Registered
	c.msg.Infof("card %q registered (%d controls)", c.cfg.Name, ctls.Len())

	return nil
}

// Detach powers the amplifiers down and releases the card.
// Detach is best-effort: errors are logged and Detach may be called
// multiple times.
func (c *Card) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.release()
	if c.state != Detached {
		c.msg.Infof("card %q detached", c.cfg.Name)
	}
	c.state = Detached
}

func (c *Card) resolve() error {
	var chips Pair
	for i, side := range sides {
		desc := c.cfg.Codecs[i]
		codec, err := c.openCodec(desc)
		if err != nil {
			chips.close(c.msg)
			return fmt.Errorf("%w: could not resolve %s codec %v: %w", ErrConfig, side, desc, err)
		}
		chips.set(side, codec)
	}
	c.chips = &chips

	if c.cfg.PDN == nil {
		c.msg.Debugf("card %q has no power-down line", c.cfg.Name)
		return nil
	}

	pdn, err := c.requestLine(*c.cfg.PDN)
	if err != nil {
		return fmt.Errorf("%w: could not request pdn line %v: %w", ErrResource, c.cfg.PDN, err)
	}
	c.pdn = pdn

	return nil
}

// release unregisters the controls, asserts the power-down line and
// frees the line and the amplifiers.
func (c *Card) release() {
	if c.vol != nil {
		c.vol.detach()
		c.vol = nil
	}
	c.ctls = mixer.NewRegistry()

	c.powerDown()
	if c.pdn != nil {
		err := c.pdn.Close()
		if err != nil {
			c.msg.Warnf("could not release pdn line: %+v", err)
		}
		c.pdn = nil
	}

	if c.chips != nil {
		c.chips.close(c.msg)
		c.chips = nil
	}
}
