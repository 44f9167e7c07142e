// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"time"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/pifi/config"
)

// Option configures a Card.
type Option func(*Card)

// WithMsgStream sets the message stream used for logging.
func WithMsgStream(msg log.MsgStream) Option {
	return func(c *Card) {
		c.msg = msg
	}
}

// WithCodecOpener sets how amplifiers are opened from their description.
func WithCodecOpener(open func(config.Codec) (Codec, error)) Option {
	return func(c *Card) {
		c.openCodec = open
	}
}

// WithLineRequester sets how the power-down line is requested.
func WithLineRequester(req func(config.Line) (Line, error)) Option {
	return func(c *Card) {
		c.requestLine = req
	}
}

// WithSleep sets the function used to wait during power-up and bring-up.
func WithSleep(sleep func(time.Duration)) Option {
	return func(c *Card) {
		c.sleep = sleep
	}
}

// WithVolume sets the volume reported before the first Set.
func WithVolume(v int) Option {
	return func(c *Card) {
		c.vol0 = clampVolume(v)
	}
}
