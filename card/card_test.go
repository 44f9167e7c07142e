// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/pifi/config"
	"github.com/go-lpc/pifi/mixer"
	"github.com/go-lpc/pifi/tas571x"
)

// trace records, in order, every hardware event of a test card.
type trace struct {
	mu   sync.Mutex
	evts []string
}

func (tr *trace) add(format string, args ...interface{}) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.evts = append(tr.evts, fmt.Sprintf(format, args...))
}

func (tr *trace) events() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.evts...)
}

func (tr *trace) reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.evts = nil
}

type fakeCodec struct {
	tr   *trace
	name string

	mu   sync.Mutex
	regs map[uint8]uint32
	fail map[uint8]error
	ctls func(c *fakeCodec) []*mixer.Control
}

func (c *fakeCodec) WriteReg(reg uint8, v uint32) error {
	c.tr.add("%s 0x%02x=0x%x", c.name, reg, v)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.fail[reg]; err != nil {
		return err
	}
	c.regs[reg] = v
	return nil
}

func (c *fakeCodec) ReadReg(reg uint8) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[reg], nil
}

func (c *fakeCodec) reg(reg uint8) uint32 {
	v, _ := c.ReadReg(reg)
	return v
}

func (c *fakeCodec) failOn(reg uint8, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[reg] = err
}

func (c *fakeCodec) Controls() []*mixer.Control {
	if c.ctls != nil {
		return c.ctls(c)
	}
	return tas571x.Controls(c)
}

func (c *fakeCodec) Close() error {
	c.tr.add("%s close", c.name)
	return nil
}

type fakeLine struct {
	tr  *trace
	err error
}

func (l *fakeLine) SetValue(v int) error {
	l.tr.add("pdn=%d", v)
	return l.err
}

func (l *fakeLine) Close() error {
	l.tr.add("pdn close")
	return nil
}

// bench wires a card to fake amplifiers, a fake pdn line and a fake clock.
type bench struct {
	tr    *trace
	log   bytes.Buffer
	chips map[uint16]*fakeCodec
	line  *fakeLine

	openErr map[uint16]error
	lineErr error
}

func newBench() *bench {
	tr := new(trace)
	return &bench{
		tr: tr,
		chips: map[uint16]*fakeCodec{
			0x1a: {tr: tr, name: "L", regs: make(map[uint8]uint32), fail: make(map[uint8]error)},
			0x1b: {tr: tr, name: "R", regs: make(map[uint8]uint32), fail: make(map[uint8]error)},
		},
		line:    &fakeLine{tr: tr},
		openErr: make(map[uint16]error),
	}
}

func (b *bench) card(cfg config.Card, opts ...Option) *Card {
	opts = append([]Option{
		WithMsgStream(log.NewMsgStream("card", log.LvlInfo, &b.log)),
		WithCodecOpener(func(c config.Codec) (Codec, error) {
			if err := b.openErr[c.Addr]; err != nil {
				return nil, err
			}
			chip, ok := b.chips[c.Addr]
			if !ok {
				return nil, fmt.Errorf("no device at 0x%02x", c.Addr)
			}
			return chip, nil
		}),
		WithLineRequester(func(config.Line) (Line, error) {
			if b.lineErr != nil {
				return nil, b.lineErr
			}
			return b.line, nil
		}),
		WithSleep(func(d time.Duration) {
			b.tr.add("sleep %v", d)
		}),
	}, opts...)
	return New(cfg, opts...)
}

func testConfig() config.Card {
	return config.Card{
		Name: "PiFi40",
		Codecs: []config.Codec{
			{Bus: 1, Addr: 0x1a, Model: "tas5713"},
			{Bus: 1, Addr: 0x1b, Model: "tas5713"},
		},
		PDN: &config.Line{Chip: "gpiochip0", Offset: 4, ActiveLow: true},
	}
}

var bringUp = []string{
	"L 0x1b=0x0",
	"R 0x1b=0x0",
	"sleep 60ms",
	"L 0x00=0x60",
	"L 0x19=0x3a",
	"L 0x25=0x1103245",
	"L 0x07=0x44",
	"R 0x00=0x60",
	"R 0x19=0x3a",
	"R 0x25=0x1103245",
	"R 0x07=0x44",
	"L 0x20=0x17772",
	"R 0x20=0x107772",
}

func TestAttachDetach(t *testing.T) {
	b := newBench()
	c := b.card(testConfig())

	if got, want := c.State(), Unattached; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}
	if c.Volume() != nil {
		t.Fatalf("unattached card exposes a volume")
	}

	err := c.Attach()
	if err != nil {
		t.Fatalf("could not attach card: %+v", err)
	}

	want := append([]string{
		"pdn=1",
		"sleep 1ms",
		"pdn=0",
		"sleep 20ms",
	}, bringUp...)
	if got := b.tr.events(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid attach sequence:\ngot= %q\nwant=%q", got, want)
	}

	if got, want := c.State(), Registered; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}

	var names []string
	for _, ctl := range c.Controls().Controls() {
		names = append(names, ctl.Name)
	}
	if got, want := names, []string{MasterVolume}; !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid controls: got=%q, want=%q", got, want)
	}

	l, r := c.Volume().Get()
	if l != DefaultVolume || r != DefaultVolume {
		t.Fatalf("invalid default volume: got=(%d, %d)", l, r)
	}

	err = c.Attach()
	if err == nil {
		t.Fatalf("expected an error attaching twice")
	}

	b.tr.reset()
	c.Detach()
	want = []string{"pdn=1", "pdn close", "L close", "R close"}
	if got := b.tr.events(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid detach sequence:\ngot= %q\nwant=%q", got, want)
	}
	if got, want := c.State(), Detached; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}
	if got := c.Controls().Len(); got != 0 {
		t.Fatalf("detached card still exposes %d controls", got)
	}
	if c.Volume() != nil {
		t.Fatalf("detached card exposes a volume")
	}

	b.tr.reset()
	c.Detach()
	if got := b.tr.events(); len(got) != 0 {
		t.Fatalf("second detach touched the hardware: %q", got)
	}
}

func TestAttachNoPDN(t *testing.T) {
	b := newBench()
	cfg := testConfig()
	cfg.PDN = nil
	c := b.card(cfg)

	err := c.Attach()
	if err != nil {
		t.Fatalf("could not attach card: %+v", err)
	}

	want := append([]string{"sleep 1ms", "sleep 20ms"}, bringUp...)
	if got := b.tr.events(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid attach sequence:\ngot= %q\nwant=%q", got, want)
	}

	b.tr.reset()
	c.Detach()
	want = []string{"L close", "R close"}
	if got := b.tr.events(); !reflect.DeepEqual(got, want) {
		t.Fatalf("invalid detach sequence:\ngot= %q\nwant=%q", got, want)
	}
}

func TestAttachErrors(t *testing.T) {
	errBus := errors.New("i2c: remote I/O error")

	for _, tc := range []struct {
		name  string
		setup func(b *bench, cfg *config.Card)
		err   error
		want  []string
	}{
		{
			name: "missing-codec",
			setup: func(b *bench, cfg *config.Card) {
				cfg.Codecs = cfg.Codecs[:1]
			},
			err: ErrConfig,
		},
		{
			name: "same-codec-twice",
			setup: func(b *bench, cfg *config.Card) {
				cfg.Codecs[1] = cfg.Codecs[0]
			},
			err: ErrConfig,
		},
		{
			name: "unopenable-right-codec",
			setup: func(b *bench, cfg *config.Card) {
				b.openErr[0x1b] = errBus
			},
			err:  ErrConfig,
			want: []string{"L close"},
		},
		{
			name: "pdn-unavailable",
			setup: func(b *bench, cfg *config.Card) {
				b.lineErr = errors.New("gpio: line busy")
			},
			err:  ErrResource,
			want: []string{"L close", "R close"},
		},
		{
			name: "pdn-set-failure",
			setup: func(b *bench, cfg *config.Card) {
				b.line.err = errBus
			},
			err:  ErrHardware,
			want: []string{"pdn=1", "pdn=1", "pdn close", "L close", "R close"},
		},
		{
			name: "osc-trim-failure",
			setup: func(b *bench, cfg *config.Card) {
				b.chips[0x1b].failOn(tas571x.RegOscTrim, errBus)
			},
			err: ErrHardware,
			want: []string{
				"pdn=1", "sleep 1ms", "pdn=0", "sleep 20ms",
				"L 0x1b=0x0",
				"R 0x1b=0x0",
				"pdn=1", "pdn close", "L close", "R close",
			},
		},
		{
			name: "output-group-failure",
			setup: func(b *bench, cfg *config.Card) {
				b.chips[0x1a].failOn(tas571x.RegOutGroup, errBus)
			},
			err: ErrHardware,
			want: []string{
				"pdn=1", "sleep 1ms", "pdn=0", "sleep 20ms",
				"L 0x1b=0x0",
				"R 0x1b=0x0",
				"sleep 60ms",
				"L 0x00=0x60",
				"L 0x19=0x3a",
				"pdn=1", "pdn close", "L close", "R close",
			},
		},
		{
			name: "routing-failure",
			setup: func(b *bench, cfg *config.Card) {
				b.chips[0x1b].failOn(tas571x.RegInputMux, errBus)
			},
			err: ErrHardware,
			want: append(
				append([]string{"pdn=1", "sleep 1ms", "pdn=0", "sleep 20ms"}, bringUp...),
				"pdn=1", "pdn close", "L close", "R close",
			),
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := newBench()
			cfg := testConfig()
			tc.setup(b, &cfg)
			c := b.card(cfg)

			err := c.Attach()
			if !errors.Is(err, tc.err) {
				t.Fatalf("invalid error: got=%+v, want=%v", err, tc.err)
			}

			if got := b.tr.events(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid sequence:\ngot= %q\nwant=%q", got, tc.want)
			}

			if got, want := c.State(), Unattached; got != want {
				t.Fatalf("invalid state: got=%v, want=%v", got, want)
			}
			if got := c.Controls().Len(); got != 0 {
				t.Fatalf("failed card exposes %d controls", got)
			}
		})
	}
}

func TestPruneMissingControls(t *testing.T) {
	b := newBench()
	for _, chip := range b.chips {
		chip.ctls = func(c *fakeCodec) []*mixer.Control {
			ctls := tas571x.Controls(c)
			// drop the speaker switch, and write-protect the master volume.
			ctls[0].Access = mixer.AccessRead
			return ctls[:2]
		}
	}
	c := b.card(testConfig())

	err := c.Attach()
	if err != nil {
		t.Fatalf("could not attach card: %+v", err)
	}
	defer c.Detach()

	if got, want := c.Controls().Len(), 1; got != want {
		t.Fatalf("invalid number of controls: got=%d, want=%d", got, want)
	}

	for _, name := range []string{"Left Speaker Switch", "Right Speaker Switch"} {
		if !strings.Contains(b.log.String(), fmt.Sprintf("control %q not found", name)) {
			t.Fatalf("missing log message for %q:\n%s", name, b.log.String())
		}
	}
}

func TestPruneExtraControls(t *testing.T) {
	b := newBench()
	for _, chip := range b.chips {
		chip.ctls = func(c *fakeCodec) []*mixer.Control {
			return append(tas571x.Controls(c), &mixer.Control{
				Name:   "DRC Switch",
				Access: mixer.AccessReadWrite,
				Type:   mixer.TypeBoolean,
				Count:  1,
				Max:    1,
			})
		}
	}
	c := b.card(testConfig())

	err := c.Attach()
	if err != nil {
		t.Fatalf("could not attach card: %+v", err)
	}
	defer c.Detach()

	var names []string
	for _, ctl := range c.Controls().Controls() {
		names = append(names, ctl.Name)
	}
	want := []string{MasterVolume, "Left DRC Switch", "Right DRC Switch"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("invalid controls:\ngot= %q\nwant=%q", names, want)
	}
}

func TestCtlName(t *testing.T) {
	for _, tc := range []struct {
		side Side
		kind string
		want string
	}{
		{Left, tas571x.CtlMasterVolume, "Left Master Volume"},
		{Right, tas571x.CtlSpeakerSwitch, "Right Speaker Switch"},
	} {
		if got := ctlName(tc.side, tc.kind); got != tc.want {
			t.Fatalf("invalid name: got=%q, want=%q", got, tc.want)
		}
	}
}

func TestStateString(t *testing.T) {
	for _, tc := range []struct {
		st   State
		want string
	}{
		{Unattached, "unattached"},
		{PoweredUp, "powered-up"},
		{Initialized, "initialized"},
		{Registered, "registered"},
		{Detached, "detached"},
		{State(42), "State(42)"},
	} {
		if got := tc.st.String(); got != tc.want {
			t.Fatalf("invalid state name: got=%q, want=%q", got, tc.want)
		}
	}
}

func TestDetachUnattached(t *testing.T) {
	b := newBench()
	c := b.card(testConfig(), WithMsgStream(log.NewMsgStream("card", log.LvlInfo, io.Discard)))
	c.Detach()
	if got := b.tr.events(); len(got) != 0 {
		t.Fatalf("detach touched the hardware: %q", got)
	}
	if got, want := c.State(), Detached; got != want {
		t.Fatalf("invalid state: got=%v, want=%v", got, want)
	}
	err := c.Attach()
	if err == nil {
		t.Fatalf("expected an error attaching a detached card")
	}
}
