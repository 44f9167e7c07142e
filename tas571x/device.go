// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tas571x

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/BertoldVdb/go-misc/linux-pio/i2c"
	"github.com/go-daq/smbus"
)

type smbusConn interface {
	ReadReg(addr, reg uint8) (uint8, error)
	WriteReg(addr, reg, v uint8) error
	Close() error
}

// rawConn performs plain I2C transfers with one slave.
type rawConn interface {
	Transfer(w, r []byte) error
}

var (
	smbusOpen = smbusOpenImpl
	rawOpen   = rawOpenImpl
)

func smbusOpenImpl(bus int, addr uint8) (smbusConn, error) {
	conn, err := smbus.Open(bus, addr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// i2c buses cannot be closed: each one is opened once and shared by
// all devices sitting on it.
var buses = struct {
	sync.Mutex
	m map[int]*i2c.Bus
}{m: make(map[int]*i2c.Bus)}

func rawOpenImpl(bus int, addr uint8) (rawConn, error) {
	buses.Lock()
	defer buses.Unlock()

	b, ok := buses.m[bus]
	if !ok {
		var err error
		b, err = i2c.OpenBus(bus)
		if err != nil {
			return nil, err
		}
		buses.m[bus] = b
	}
	return b.GetDevice(uint16(addr)), nil
}

// Device is a TAS571x amplifier on an I2C bus.
//
// Single-byte registers go through SMBus byte-data transactions,
// multi-byte registers are sent as a raw I2C write of the register
// address followed by the big-endian value.
type Device struct {
	bus  int
	addr uint8

	mu  sync.Mutex
	smb smbusConn
	raw rawConn
}

// Open opens the amplifier at address addr on I2C bus bus.
func Open(bus int, addr uint8) (*Device, error) {
	smb, err := smbusOpen(bus, addr)
	if err != nil {
		return nil, fmt.Errorf("tas571x: could not open SMBus %d-%04x: %w", bus, addr, err)
	}

	raw, err := rawOpen(bus, addr)
	if err != nil {
		_ = smb.Close()
		return nil, fmt.Errorf("tas571x: could not open I2C %d-%04x: %w", bus, addr, err)
	}

	return &Device{bus: bus, addr: addr, smb: smb, raw: raw}, nil
}

func (dev *Device) String() string {
	return fmt.Sprintf("tas571x.%d-%04x", dev.bus, dev.addr)
}

// WriteReg writes v to the register reg.
func (dev *Device) WriteReg(reg uint8, v uint32) error {
	n, err := Width(reg)
	if err != nil {
		return err
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	switch n {
	case 1:
		if v > 0xff {
			return fmt.Errorf("tas571x: %v: register 0x%02x=0x%x: %w", dev, reg, v, ErrValue)
		}
		err = dev.smb.WriteReg(dev.addr, reg, uint8(v))
	default:
		p := make([]byte, 1+n)
		p[0] = reg
		binary.BigEndian.PutUint32(p[1:], v)
		err = dev.raw.Transfer(p, nil)
	}
	if err != nil {
		return fmt.Errorf("tas571x: %v: could not write register 0x%02x=0x%x: %w", dev, reg, v, err)
	}
	return nil
}

// ReadReg reads the single-byte register reg.
func (dev *Device) ReadReg(reg uint8) (uint32, error) {
	n, err := Width(reg)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, fmt.Errorf("tas571x: %v: reading multi-byte register 0x%02x: %w", dev, reg, ErrRegister)
	}

	dev.mu.Lock()
	defer dev.mu.Unlock()

	v, err := dev.smb.ReadReg(dev.addr, reg)
	if err != nil {
		return 0, fmt.Errorf("tas571x: %v: could not read register 0x%02x: %w", dev, reg, err)
	}
	return uint32(v), nil
}

// Close releases the SMBus handle.
// The shared I2C bus stays open.
func (dev *Device) Close() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()

	err := dev.smb.Close()
	if err != nil {
		return fmt.Errorf("tas571x: %v: could not close SMBus: %w", dev, err)
	}
	return nil
}
