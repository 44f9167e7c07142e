// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	for _, tc := range []struct {
		name string
		yaml string
		want Card
		err  error
	}{
		{
			name: "full",
			yaml: `
name: PiFi40
codecs:
  - {bus: 1, addr: 0x1a}
  - {bus: 1, addr: 0x1b, model: tas5711}
pdn: {chip: gpiochip0, offset: 4, active-low: true}
`,
			want: Card{
				Name: "PiFi40",
				Codecs: []Codec{
					{Bus: 1, Addr: 0x1a, Model: "tas5713"},
					{Bus: 1, Addr: 0x1b, Model: "tas5711"},
				},
				PDN: &Line{Chip: "gpiochip0", Offset: 4, ActiveLow: true},
			},
		},
		{
			name: "no-pdn",
			yaml: `
codecs:
  - {bus: 0, addr: 0x1a}
  - {bus: 1, addr: 0x1a}
`,
			want: Card{
				Name: DefaultName,
				Codecs: []Codec{
					{Bus: 0, Addr: 0x1a, Model: "tas5713"},
					{Bus: 1, Addr: 0x1a, Model: "tas5713"},
				},
			},
		},
		{
			name: "one-codec",
			yaml: `
codecs:
  - {bus: 1, addr: 0x1a}
`,
			err: ErrInvalid,
		},
		{
			name: "three-codecs",
			yaml: `
codecs:
  - {bus: 1, addr: 0x1a}
  - {bus: 1, addr: 0x1b}
  - {bus: 1, addr: 0x1c}
`,
			err: ErrInvalid,
		},
		{
			name: "same-address",
			yaml: `
codecs:
  - {bus: 1, addr: 0x1a}
  - {bus: 1, addr: 0x1a}
`,
			err: ErrInvalid,
		},
		{
			name: "invalid-address",
			yaml: `
codecs:
  - {bus: 1, addr: 0x1a}
  - {bus: 1, addr: 0x80}
`,
			err: ErrInvalid,
		},
		{
			name: "pdn-without-chip",
			yaml: `
codecs:
  - {bus: 1, addr: 0x1a}
  - {bus: 1, addr: 0x1b}
pdn: {offset: 4}
`,
			err: ErrInvalid,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(strings.NewReader(tc.yaml))
			switch {
			case tc.err != nil:
				if !errors.Is(err, tc.err) {
					t.Fatalf("invalid error: got=%+v, want=%v", err, tc.err)
				}
				return
			case err != nil:
				t.Fatalf("could not decode: %+v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("invalid card:\ngot= %+v\nwant=%+v", got, tc.want)
			}
		})
	}
}

func TestDecodeUnknownField(t *testing.T) {
	_, err := Decode(strings.NewReader("codecz: []\n"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}

func TestLoad(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "card.yaml")
	err := os.WriteFile(fname, []byte(`
codecs:
  - {bus: 1, addr: 0x1a}
  - {bus: 1, addr: 0x1b}
pdn: {chip: gpiochip2, offset: 17}
`), 0644)
	if err != nil {
		t.Fatalf("could not create config file: %+v", err)
	}

	cfg, err := Load(fname)
	if err != nil {
		t.Fatalf("could not load config: %+v", err)
	}
	if got, want := cfg.PDN.String(), "gpiochip2:17"; got != want {
		t.Fatalf("invalid pdn line: got=%q, want=%q", got, want)
	}
	if got, want := cfg.Codecs[1].String(), "tas5713.1-001b"; got != want {
		t.Fatalf("invalid codec: got=%q, want=%q", got, want)
	}

	_, err = Load(filepath.Join(t.TempDir(), "not-there.yaml"))
	if err == nil {
		t.Fatalf("expected an error")
	}
}
