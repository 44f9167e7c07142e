// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-daq/tdaq"
	"github.com/go-lpc/pifi/config"
)

// RunControl drives a card from the TDAQ run-control state machine.
//
//   - /config loads the card description,
//   - /init attaches the card,
//   - /reset detaches it and prepares a fresh card,
//   - /quit detaches it.
//
// Volume frames, one u32 each, can be sent to the /volume input.
type RunControl struct {
	load func() (config.Card, error)
	opts []Option

	mu   sync.Mutex
	card *Card
}

// NewRunControl returns a run control loading its card description
// with load.
func NewRunControl(load func() (config.Card, error), opts ...Option) *RunControl {
	return &RunControl{load: load, opts: opts}
}

// Card returns the card currently driven, if any.
func (rc *RunControl) Card() *Card {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.card
}

func (rc *RunControl) newCard(ctx tdaq.Context, cfg config.Card) *Card {
	opts := append([]Option{WithMsgStream(ctx.Msg)}, rc.opts...)
	return New(cfg, opts...)
}

func (rc *RunControl) OnConfig(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /config command...")

	cfg, err := rc.load()
	if err != nil {
		ctx.Msg.Errorf("could not load card description: %+v", err)
		return fmt.Errorf("could not load card description: %w", err)
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.card != nil {
		rc.card.Detach()
	}
	rc.card = rc.newCard(ctx, cfg)
	ctx.Msg.Infof("configured card %q", cfg.Name)

	return nil
}

func (rc *RunControl) OnInit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /init command...")

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.card == nil {
		return fmt.Errorf("could not initialize: no card configured")
	}

	err := rc.card.Attach()
	if err != nil {
		return fmt.Errorf("could not attach card %q: %w", rc.card.Name(), err)
	}
	return nil
}

func (rc *RunControl) OnReset(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /reset command...")

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.card == nil {
		return nil
	}
	rc.card.Detach()
	rc.card = rc.newCard(ctx, rc.card.cfg)
	return nil
}

func (rc *RunControl) OnStart(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /start command...")
	rc.logVolume(ctx)
	return nil
}

func (rc *RunControl) OnStop(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /stop command...")
	rc.logVolume(ctx)
	return nil
}

func (rc *RunControl) OnQuit(ctx tdaq.Context, resp *tdaq.Frame, req tdaq.Frame) error {
	ctx.Msg.Debugf("received /quit command...")

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.card != nil {
		rc.card.Detach()
	}
	return nil
}

// OnVolume sets the card volume from a u32 frame.
// Values above VolumeMax are clamped to VolumeMax.
func (rc *RunControl) OnVolume(ctx tdaq.Context, src tdaq.Frame) error {
	dec := tdaq.NewDecoder(bytes.NewReader(src.Body))
	v := dec.ReadU32()
	if err := dec.Err(); err != nil {
		return fmt.Errorf("could not decode volume frame: %w", err)
	}

	card := rc.Card()
	if card == nil {
		return fmt.Errorf("could not set volume: no card configured")
	}
	vol := card.Volume()
	if vol == nil {
		return fmt.Errorf("could not set volume: card %q is %v", card.Name(), card.State())
	}

	if v > VolumeMax {
		v = VolumeMax
	}
	changed, err := vol.Set(int(v))
	if err != nil {
		return fmt.Errorf("could not set volume of card %q: %w", card.Name(), err)
	}
	if changed {
		ctx.Msg.Infof("volume of card %q set to %d", card.Name(), v)
	}
	return nil
}

func (rc *RunControl) logVolume(ctx tdaq.Context) {
	card := rc.Card()
	if card == nil {
		return
	}
	vol := card.Volume()
	if vol == nil {
		ctx.Msg.Infof("card %q is %v", card.Name(), card.State())
		return
	}
	l, r := vol.Get()
	ctx.Msg.Infof("card %q: volume=(%d, %d)", card.Name(), l, r)
}
