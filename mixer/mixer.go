// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package mixer holds the mixer controls exposed by a sound card and the
// registry that owns them.
package mixer // import "github.com/go-lpc/pifi/mixer"

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("mixer: control not found")
	ErrExists   = errors.New("mixer: control already registered")
	ErrAccess   = errors.New("mixer: access denied")
	ErrRange    = errors.New("mixer: value out of range")
)

// Access describes what a mixer client may do with a control.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite

	AccessReadWrite = AccessRead | AccessWrite
)

func (acc Access) String() string {
	switch acc {
	case AccessRead:
		return "r"
	case AccessWrite:
		return "w"
	case AccessReadWrite:
		return "rw"
	default:
		return "-"
	}
}

// Type is the value type of a control element.
type Type uint8

const (
	TypeInteger Type = iota
	TypeBoolean
)

func (typ Type) String() string {
	switch typ {
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("Type(%d)", uint8(typ))
	}
}

// DBScale maps raw control values onto a linear decibel scale,
// in 1/100 dB units.
type DBScale struct {
	Min  int  // value of the first step
	Step int  // increment per raw unit
	Max  int  // values above Max are clamped
	Mute bool // lowest step means muted
}

// DB returns the scale value for the raw value v.
func (s DBScale) DB(v int) int {
	db := s.Min + s.Step*v
	switch {
	case db < s.Min:
		return s.Min
	case db > s.Max:
		return s.Max
	}
	return db
}

// Table returns the n first entries of the scale.
func (s DBScale) Table(n int) []int {
	tbl := make([]int, n)
	for i := range tbl {
		tbl[i] = s.DB(i)
	}
	return tbl
}

// Control is a named, addressable mixer element.
type Control struct {
	Name   string
	Access Access
	Type   Type
	Count  int // number of channels
	Min    int
	Max    int
	Invert bool
	Scale  *DBScale

	// Get returns the current value of each channel.
	Get func() ([]int, error)
	// Put applies one value per channel and reports whether
	// the control changed.
	Put func(vs []int) (bool, error)
}

// Info describes a control, without its callbacks.
type Info struct {
	Name   string `json:"name"`
	Access string `json:"access"`
	Type   string `json:"type"`
	Count  int    `json:"count"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
	Invert bool   `json:"invert,omitempty"`
	DBMin  *int   `json:"db_min,omitempty"`
	DBMax  *int   `json:"db_max,omitempty"`
}

func (ctl *Control) Info() Info {
	info := Info{
		Name:   ctl.Name,
		Access: ctl.Access.String(),
		Type:   ctl.Type.String(),
		Count:  ctl.Count,
		Min:    ctl.Min,
		Max:    ctl.Max,
		Invert: ctl.Invert,
	}
	if ctl.Scale != nil {
		lo := ctl.Scale.DB(ctl.Min)
		hi := ctl.Scale.DB(ctl.Max)
		info.DBMin = &lo
		info.DBMax = &hi
	}
	return info
}

func (ctl *Control) readable() bool { return ctl.Access&AccessRead != 0 && ctl.Get != nil }
func (ctl *Control) writable() bool { return ctl.Access&AccessWrite != 0 && ctl.Put != nil }

func (ctl *Control) check(vs []int) error {
	if len(vs) != ctl.Count {
		return fmt.Errorf(
			"mixer: control %q takes %d values (got=%d): %w",
			ctl.Name, ctl.Count, len(vs), ErrRange,
		)
	}
	for i, v := range vs {
		if v < ctl.Min || ctl.Max < v {
			return fmt.Errorf(
				"mixer: control %q value[%d]=%d not in [%d, %d]: %w",
				ctl.Name, i, v, ctl.Min, ctl.Max, ErrRange,
			)
		}
	}
	return nil
}
