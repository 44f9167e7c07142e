// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pifi

import (
	"runtime/debug"
	"testing"
)

func TestVersionOf(t *testing.T) {
	for _, tc := range []struct {
		name string
		b    *debug.BuildInfo
		vers string
		sum  string
	}{
		{
			name: "nil",
		},
		{
			name: "main",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: modulePath, Version: "(devel)"},
			},
			vers: "(devel)",
		},
		{
			name: "dep",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/app"},
				Deps: []*debug.Module{
					{Path: "github.com/go-daq/tdaq", Version: "v0.14.2"},
					{Path: modulePath, Version: "v0.3.0", Sum: "h1:abc"},
				},
			},
			vers: "v0.3.0",
			sum:  "h1:abc",
		},
		{
			name: "replaced-path",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{
					{
						Path: modulePath, Version: "v0.3.0",
						Replace: &debug.Module{Path: "../pifi"},
					},
				},
			},
			vers: "../pifi",
		},
		{
			name: "replaced-version",
			b: &debug.BuildInfo{
				Deps: []*debug.Module{
					{
						Path: modulePath, Version: "v0.3.0",
						Replace: &debug.Module{Path: "example.org/fork", Version: "v0.3.1", Sum: "h1:def"},
					},
				},
			},
			vers: "example.org/fork v0.3.1",
			sum:  "h1:def",
		},
		{
			name: "missing",
			b: &debug.BuildInfo{
				Main: debug.Module{Path: "example.org/app"},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			vers, sum := versionOf(tc.b)
			if vers != tc.vers || sum != tc.sum {
				t.Fatalf("invalid version: got=(%q, %q), want=(%q, %q)", vers, sum, tc.vers, tc.sum)
			}
		})
	}
}
