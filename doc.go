// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pifi brings up and controls PiFi-40 style sound cards: two
// TAS571x amplifiers bridged into one mono-per-chip stereo card, behind a
// shared power-down line.
//
// The card description comes from a YAML file, a flattened device tree
// or the condition database (see packages config and conddb). Package card
// drives the hardware and exposes the card's mixer controls.
package pifi // import "github.com/go-lpc/pifi"

import (
	"fmt"
	"runtime/debug"
)

const modulePath = "github.com/go-lpc/pifi"

// Version returns the version of pifi and its checksum.
// The returned values are only valid in binaries built with module support.
func Version() (version, sum string) {
	b, ok := debug.ReadBuildInfo()
	if !ok {
		return "", ""
	}
	return versionOf(b)
}

func versionOf(b *debug.BuildInfo) (version, sum string) {
	if b == nil {
		return "", ""
	}

	if b.Main.Path == modulePath {
		return moduleVersion(&b.Main)
	}

	for _, m := range b.Deps {
		if m.Path == modulePath {
			return moduleVersion(m)
		}
	}
	return "", ""
}

func moduleVersion(m *debug.Module) (version, sum string) {
	r := m.Replace
	switch {
	case r == nil:
		return m.Version, m.Sum
	case r.Version != "" && r.Path != "":
		return fmt.Sprintf("%s %s", r.Path, r.Version), r.Sum
	case r.Version != "":
		return r.Version, r.Sum
	case r.Path != "":
		return r.Path, r.Sum
	default:
		return m.Version + "*", ""
	}
}
