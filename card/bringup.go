// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"github.com/go-lpc/pifi/tas571x"
)

// bringUpVolume is the master volume register value programmed at
// bring-up (-10dB).
const bringUpVolume = 0x44

type regWrite struct {
	reg uint8
	v   uint32
}

// commonSetup is applied identically to both amplifiers.
var commonSetup = []regWrite{
	{tas571x.RegClockCtrl, tas571x.Clock48kHz64FS},
	{tas571x.RegOutGroup, tas571x.OutGroupPBTL},
	{tas571x.RegPWMMux, tas571x.PWMMuxPBTL},
	{tas571x.RegMasterVol, bringUpVolume},
}

// routing feeds the left input first to the left amplifier and the right
// input first to the right one.
var routing = [...]regWrite{
	Left:  {tas571x.RegInputMux, tas571x.InputMuxLeft},
	Right: {tas571x.RegInputMux, tas571x.InputMuxRight},
}

// initialize runs the bring-up sequence on both amplifiers.
// It must run after resetAndPowerUp and stops at the first failing write.
func (c *Card) initialize() error {
	// restart the oscillator trim and let the clock recovery lock.
	for _, side := range sides {
		err := c.chips.Write(side, tas571x.RegOscTrim, tas571x.OscTrimStart)
		if err != nil {
			return err
		}
	}
	c.wait(oscSettle)

	for _, side := range sides {
		for _, w := range commonSetup {
			err := c.chips.Write(side, w.reg, w.v)
			if err != nil {
				return err
			}
		}
	}

	for _, side := range sides {
		w := routing[side]
		err := c.chips.Write(side, w.reg, w.v)
		if err != nil {
			return err
		}
	}

	c.msg.Debugf("card %q: amplifiers configured", c.cfg.Name)
	return nil
}
