// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"testing"

	"github.com/go-lpc/pifi/config"
	"github.com/warthog618/go-gpiosim"
)

func TestRequestGPIOLine(t *testing.T) {
	sim, err := gpiosim.NewSimpleton(8)
	if err != nil {
		t.Skipf("gpio-sim not available: %+v", err)
	}
	defer sim.Close()

	for _, tc := range []struct {
		name      string
		activeLow bool
		asserted  int // physical level of an asserted line
	}{
		{"active-high", false, 1},
		{"active-low", true, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			line, err := requestGPIOLine(config.Line{
				Chip:      sim.ChipName(),
				Offset:    4,
				ActiveLow: tc.activeLow,
			})
			if err != nil {
				t.Fatalf("could not request line: %+v", err)
			}
			defer line.Close()

			for _, v := range []int{1, 0, 1} {
				err = line.SetValue(v)
				if err != nil {
					t.Fatalf("could not set line to %d: %+v", v, err)
				}
				lvl, err := sim.Level(4)
				if err != nil {
					t.Fatalf("could not read line level: %+v", err)
				}
				want := tc.asserted
				if v == 0 {
					want = 1 - tc.asserted
				}
				if lvl != want {
					t.Fatalf("invalid level for value %d: got=%d, want=%d", v, lvl, want)
				}
			}
		})
	}
}

func TestOpenTAS571xModel(t *testing.T) {
	for _, model := range []string{"wm8960", "tas5717", "tas5719", ""} {
		_, err := openTAS571x(config.Codec{Bus: 1, Addr: 0x1a, Model: model})
		if err == nil {
			t.Fatalf("expected an error for unsupported model %q", model)
		}
	}
}
