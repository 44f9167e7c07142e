// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tas571x

import (
	"github.com/go-lpc/pifi/mixer"
)

// Names of the controls each chip publishes.
const (
	CtlMasterVolume  = "Master Volume"
	CtlSpeakerVolume = "Speaker Volume"
	CtlSpeakerSwitch = "Speaker Switch"
)

// VolumeScale is the decibel scale of the volume registers:
// 0xff is muted, each step is 0.5dB, 0x00 is +24dB.
var VolumeScale = mixer.DBScale{Min: -10350, Step: 50, Max: 2400, Mute: true}

const volMax = 0xff

// Controls returns the mixer controls of the chip behind rw.
func Controls(rw RegisterReadWriter) []*mixer.Control {
	scale := VolumeScale
	return []*mixer.Control{
		{
			Name:   CtlMasterVolume,
			Access: mixer.AccessReadWrite,
			Type:   mixer.TypeInteger,
			Count:  1,
			Max:    volMax,
			Invert: true,
			Scale:  &scale,
			Get:    volumeGet(rw, RegMasterVol),
			Put:    volumePut(rw, RegMasterVol),
		},
		{
			Name:   CtlSpeakerVolume,
			Access: mixer.AccessReadWrite,
			Type:   mixer.TypeInteger,
			Count:  2,
			Max:    volMax,
			Invert: true,
			Scale:  &scale,
			Get:    volumeGet(rw, RegCh1Vol, RegCh2Vol),
			Put:    volumePut(rw, RegCh1Vol, RegCh2Vol),
		},
		{
			Name:   CtlSpeakerSwitch,
			Access: mixer.AccessReadWrite,
			Type:   mixer.TypeBoolean,
			Count:  2,
			Max:    1,
			Invert: true,
			Get:    switchGet(rw),
			Put:    switchPut(rw),
		},
	}
}

// Controls returns the mixer controls of the device.
func (dev *Device) Controls() []*mixer.Control {
	return Controls(dev)
}

func volumeGet(rw RegisterReadWriter, regs ...uint8) func() ([]int, error) {
	return func() ([]int, error) {
		vs := make([]int, len(regs))
		for i, reg := range regs {
			v, err := rw.ReadReg(reg)
			if err != nil {
				return nil, err
			}
			vs[i] = volMax - int(v)
		}
		return vs, nil
	}
}

func volumePut(rw RegisterReadWriter, regs ...uint8) func([]int) (bool, error) {
	return func(vs []int) (bool, error) {
		changed := false
		for i, reg := range regs {
			old, err := rw.ReadReg(reg)
			if err != nil {
				return changed, err
			}
			v := uint32(volMax - vs[i])
			if v == old {
				continue
			}
			err = rw.WriteReg(reg, v)
			if err != nil {
				return changed, err
			}
			changed = true
		}
		return changed, nil
	}
}

// soft-mute bits: bit0 is channel 1, bit1 is channel 2.
// a set bit mutes the channel, i.e. switches the speaker off.

func switchGet(rw RegisterReadWriter) func() ([]int, error) {
	return func() ([]int, error) {
		v, err := rw.ReadReg(RegSoftMute)
		if err != nil {
			return nil, err
		}
		return []int{
			int(^v & 1),
			int((^v >> 1) & 1),
		}, nil
	}
}

func switchPut(rw RegisterReadWriter) func([]int) (bool, error) {
	return func(vs []int) (bool, error) {
		old, err := rw.ReadReg(RegSoftMute)
		if err != nil {
			return false, err
		}
		v := old &^ 0x3
		for i, on := range vs {
			if on == 0 {
				v |= 1 << i
			}
		}
		if v == old {
			return false, nil
		}
		err = rw.WriteReg(RegSoftMute, v)
		if err != nil {
			return false, err
		}
		return true, nil
	}
}
