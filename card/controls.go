// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"fmt"

	"github.com/go-lpc/pifi/mixer"
	"github.com/go-lpc/pifi/tas571x"
)

// redundant lists the per-chip controls superseded by MasterVolume.
var redundant = []string{
	tas571x.CtlMasterVolume,
	tas571x.CtlSpeakerVolume,
	tas571x.CtlSpeakerSwitch,
}

func ctlName(side Side, kind string) string {
	return side.String() + " " + kind
}

// register builds the card's registry: the shared volume first, then the
// controls of each amplifier, prefixed with the amplifier side.
func (c *Card) register(vol *Volume) (*mixer.Registry, error) {
	ctls := mixer.NewRegistry()

	err := ctls.Register(vol.control())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}

	for _, side := range sides {
		for _, ctl := range c.chips.Codec(side).Controls() {
			ctl.Name = ctlName(side, ctl.Name)
			err = ctls.Register(ctl)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrConfig, err)
			}
		}
	}

	return ctls, nil
}

// prune removes the redundant per-chip controls from ctls.
// Missing controls are logged and skipped.
func (c *Card) prune(ctls *mixer.Registry) {
	for _, side := range sides {
		for _, kind := range redundant {
			name := ctlName(side, kind)
			ctl, ok := ctls.Lookup(name)
			if !ok {
				c.msg.Infof("control %q not found", name)
				continue
			}
			ctl.Access = mixer.AccessReadWrite
			err := ctls.Remove(ctl)
			if err != nil {
				c.msg.Warnf("could not remove control %q: %+v", name, err)
			}
		}
	}
}
