// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tas571x provides register access to TAS571x digital audio
// power amplifiers sitting on an I2C bus.
package tas571x // import "github.com/go-lpc/pifi/tas571x"

import (
	"errors"
	"fmt"
)

// Registers.
const (
	RegClockCtrl  = 0x00
	RegDeviceID   = 0x01
	RegErrStatus  = 0x02
	RegSysCtrl1   = 0x03
	RegSysCtrl2   = 0x05
	RegSoftMute   = 0x06
	RegMasterVol  = 0x07
	RegCh1Vol     = 0x08
	RegCh2Vol     = 0x09
	RegOutGroup   = 0x19 // PWM output shutdown group
	RegOscTrim    = 0x1b
	RegInputMux   = 0x20 // 4 bytes
	RegCh4Source  = 0x21 // 4 bytes
	RegPWMMux     = 0x25 // 4 bytes
	lastMultiByte = 0x25
)

// Register values used to bring a chip up in parallel bridge-tied-load mode.
const (
	Clock48kHz64FS = 0x60 // fs=44.1/48kHz, MCLK=64fs

	OutGroupPBTL = 0x3a
	PWMMuxPBTL   = 0x01103245

	// InputMuxLeft feeds SDIN-L first, InputMuxRight feeds SDIN-R first.
	InputMuxLeft  = 0x00017772
	InputMuxRight = 0x00107772

	OscTrimStart = 0x00
)

var (
	ErrRegister = errors.New("tas571x: invalid register")
	ErrValue    = errors.New("tas571x: value does not fit register")
)

// Width returns the size in bytes of the register reg.
func Width(reg uint8) (int, error) {
	switch {
	case reg < RegInputMux:
		return 1, nil
	case reg <= lastMultiByte:
		return 4, nil
	default:
		return 0, fmt.Errorf("tas571x: register 0x%02x: %w", reg, ErrRegister)
	}
}

// RegisterReadWriter reads and writes chip registers.
type RegisterReadWriter interface {
	ReadReg(reg uint8) (uint32, error)
	WriteReg(reg uint8, v uint32) error
}
