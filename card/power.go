// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"fmt"
	"time"

	"github.com/go-lpc/pifi/config"
	"github.com/warthog618/go-gpiocdev"
)

// Line is the power-down line shared by both amplifiers.
// A value of 1 asserts power-down.
type Line interface {
	SetValue(v int) error
	Close() error
}

func requestGPIOLine(l config.Line) (Line, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("pifi-pdn"),
		gpiocdev.AsOutput(0),
	}
	if l.ActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}

	line, err := gpiocdev.RequestLine(l.Chip, l.Offset, opts...)
	if err != nil {
		return nil, err
	}
	return line, nil
}

// span is a sleep range; the lower bound is always honoured.
type span struct {
	min time.Duration
	max time.Duration
}

var (
	pdnHold   = span{1 * time.Millisecond, 10 * time.Millisecond}
	pdnSettle = span{20 * time.Millisecond, 30 * time.Millisecond}
	oscSettle = span{60 * time.Millisecond, 80 * time.Millisecond}
)

func (c *Card) wait(s span) {
	c.sleep(s.min)
}

// resetAndPowerUp pulses the power-down line. No register may be
// accessed before it returns.
func (c *Card) resetAndPowerUp() error {
	err := c.setPDN(true)
	if err != nil {
		return err
	}
	c.wait(pdnHold)

	err = c.setPDN(false)
	if err != nil {
		return err
	}
	c.wait(pdnSettle)

	return nil
}

// powerDown asserts the power-down line, if any.
func (c *Card) powerDown() {
	err := c.setPDN(true)
	if err != nil {
		c.msg.Warnf("could not power down %q: %+v", c.cfg.Name, err)
	}
}

func (c *Card) setPDN(asserted bool) error {
	if c.pdn == nil {
		return nil
	}

	v := 0
	if asserted {
		v = 1
	}
	err := c.pdn.SetValue(v)
	if err != nil {
		return fmt.Errorf("%w: could not set pdn line to %d: %w", ErrHardware, v, err)
	}
	return nil
}
