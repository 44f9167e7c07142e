// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"fmt"
	"sync"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/pifi/mixer"
	"github.com/go-lpc/pifi/tas571x"
)

const (
	// MasterVolume is the name of the card-level volume control.
	MasterVolume = "Master Volume"

	// DefaultVolume is the volume reported before the first Set.
	DefaultVolume = 0x30

	VolumeMin = 0
	VolumeMax = 0xff
)

// VolumeScale is the decibel scale of the card-level volume: 0 is muted,
// each step is 0.5dB and the scale tops at 0dB.
var VolumeScale = mixer.DBScale{Min: -10350, Step: 50, Max: 0, Mute: true}

// Volume drives the master volume register of both amplifiers with a
// single value.
//
// Get never observes a value written to one amplifier only.
type Volume struct {
	msg   log.MsgStream
	chips *Pair

	mu       sync.RWMutex
	v        int
	detached bool
}

func newVolume(msg log.MsgStream, chips *Pair, v int) *Volume {
	return &Volume{
		msg:   msg,
		chips: chips,
		v:     clampVolume(v),
	}
}

// Get returns the last volume successfully set, for both channels.
func (vol *Volume) Get() (left, right int) {
	vol.mu.RLock()
	defer vol.mu.RUnlock()
	return vol.v, vol.v
}

// Set writes v to both amplifiers and reports whether the volume changed.
// v is clamped to [VolumeMin, VolumeMax].
//
// Both amplifiers are written even if the first write fails. On failure
// the cached volume is left untouched and ErrHardware is returned.
// Set fails once the card has been detached.
func (vol *Volume) Set(v int) (bool, error) {
	v = clampVolume(v)
	reg := uint32(VolumeMax - v)

	vol.mu.Lock()
	defer vol.mu.Unlock()

	if vol.detached {
		return false, fmt.Errorf("%w: could not set volume to %d: card detached", ErrHardware, v)
	}

	var err error
	for _, side := range sides {
		e := vol.chips.Write(side, tas571x.RegMasterVol, reg)
		if e != nil {
			vol.msg.Errorf("could not set volume to %d: %+v", v, e)
			if err == nil {
				err = e
			}
		}
	}
	if err != nil {
		return false, err
	}

	changed := vol.v != v
	vol.v = v
	return changed, nil
}

// detach cuts the volume from the amplifiers.
// It waits for an in-flight Set to complete.
func (vol *Volume) detach() {
	vol.mu.Lock()
	defer vol.mu.Unlock()
	vol.detached = true
}

// control exposes the volume as a stereo mixer control.
// Only the first channel of a put is applied.
func (vol *Volume) control() *mixer.Control {
	scale := VolumeScale
	return &mixer.Control{
		Name:   MasterVolume,
		Access: mixer.AccessReadWrite,
		Type:   mixer.TypeInteger,
		Count:  2,
		Min:    VolumeMin,
		Max:    VolumeMax,
		Invert: true,
		Scale:  &scale,
		Get: func() ([]int, error) {
			l, r := vol.Get()
			return []int{l, r}, nil
		},
		Put: func(vs []int) (bool, error) {
			return vol.Set(vs[0])
		},
	}
}

func clampVolume(v int) int {
	switch {
	case v < VolumeMin:
		return VolumeMin
	case v > VolumeMax:
		return VolumeMax
	}
	return v
}
