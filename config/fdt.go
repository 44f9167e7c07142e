// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/platinasystems/fdt"
)

const (
	fdtMagic      = 0xd00dfeed
	fdtHeaderSize = 40

	gpioActiveLow = 1 << 0
)

// LoadFDT reads the card description from the device tree blob in fname.
func LoadFDT(fname string) (Card, error) {
	blob, err := os.ReadFile(fname)
	if err != nil {
		return Card{}, fmt.Errorf("config: could not read device tree %q: %w", fname, err)
	}
	return FromFDT(blob)
}

type dtNode struct {
	path   string
	parent string
	node   *fdt.Node
}

type dtIndex struct {
	tree    *fdt.Tree
	nodes   []dtNode
	phandle map[uint32]dtNode
	aliases map[string]string // node path -> alias
}

// FromFDT extracts the description of the first card compatible with
// Compatible from a flattened device tree blob.
//
// The card node lists its two amplifiers in the "audio-codec" phandle list
// and its optional power-down line in "pdn-gpios". The I2C bus number of an
// amplifier is taken from the "i2cN" alias of its parent node.
func FromFDT(blob []byte) (cfg Card, err error) {
	if len(blob) < fdtHeaderSize || binary.BigEndian.Uint32(blob) != fdtMagic {
		return cfg, fmt.Errorf("%w: not a flattened device tree", ErrInvalid)
	}

	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("%w: corrupted device tree: %v", ErrInvalid, e)
		}
	}()

	tree := &fdt.Tree{Debug: false, IsLittleEndian: false}
	err = tree.Parse(blob)
	if err != nil {
		return cfg, fmt.Errorf("config: could not parse device tree: %w", err)
	}
	if tree.RootNode == nil {
		return cfg, fmt.Errorf("%w: device tree without root node", ErrInvalid)
	}

	idx := newIndex(tree)

	card, ok := idx.compatible(Compatible)
	if !ok {
		return cfg, fmt.Errorf("%w: no node compatible with %q", ErrInvalid, Compatible)
	}

	cfg.Name = DefaultName
	if v, ok := card.node.Properties["label"]; ok {
		cfg.Name = idx.str(v)
	}

	raw, ok := card.node.Properties["audio-codec"]
	if !ok {
		return cfg, fmt.Errorf("%w: %s: property 'audio-codec' missing", ErrInvalid, card.path)
	}
	for i, ph := range tree.PropUint32Slice(raw) {
		codec, err := idx.codec(ph)
		if err != nil {
			return cfg, fmt.Errorf("%s: audio-codec[%d]: %w", card.path, i, err)
		}
		cfg.Codecs = append(cfg.Codecs, codec)
	}

	if raw, ok := card.node.Properties["pdn-gpios"]; ok {
		line, err := idx.line(tree.PropUint32Slice(raw))
		if err != nil {
			return cfg, fmt.Errorf("%s: pdn-gpios: %w", card.path, err)
		}
		cfg.PDN = &line
	}

	cfg.SetDefaults()
	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

func newIndex(tree *fdt.Tree) *dtIndex {
	idx := &dtIndex{
		tree:    tree,
		phandle: make(map[uint32]dtNode),
		aliases: make(map[string]string),
	}

	var walk func(n *fdt.Node, path, parent string)
	walk = func(n *fdt.Node, path, parent string) {
		dn := dtNode{path: path, parent: parent, node: n}
		idx.nodes = append(idx.nodes, dn)
		for _, key := range []string{"phandle", "linux,phandle"} {
			if v, ok := n.Properties[key]; ok && len(v) == 4 {
				idx.phandle[tree.PropUint32(v)] = dn
			}
		}
		for _, c := range n.Children {
			walk(c, childPath(path, c.Name), path)
		}
	}
	walk(tree.RootNode, "/", "")

	if aliases, ok := tree.RootNode.Children["aliases"]; ok {
		for name, v := range aliases.Properties {
			idx.aliases[idx.str(v)] = name
		}
	}

	return idx
}

func childPath(parent, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

func (idx *dtIndex) str(v []byte) string {
	for _, s := range idx.tree.PropStringSlice(v) {
		if s != "" {
			return s
		}
	}
	return ""
}

func (idx *dtIndex) compatible(name string) (dtNode, bool) {
	for _, dn := range idx.nodes {
		v, ok := dn.node.Properties["compatible"]
		if !ok {
			continue
		}
		for _, c := range idx.tree.PropStringSlice(v) {
			if c == name {
				return dn, true
			}
		}
	}
	return dtNode{}, false
}

func (idx *dtIndex) codec(ph uint32) (Codec, error) {
	var codec Codec
	dn, ok := idx.phandle[ph]
	if !ok {
		return codec, fmt.Errorf("%w: unknown phandle 0x%x", ErrInvalid, ph)
	}

	reg, ok := dn.node.Properties["reg"]
	if !ok || len(reg) < 4 {
		return codec, fmt.Errorf("%w: %s: property 'reg' missing", ErrInvalid, dn.path)
	}
	codec.Addr = uint16(idx.tree.PropUint32(reg))

	alias, ok := idx.aliases[dn.parent]
	if !ok || !strings.HasPrefix(alias, "i2c") {
		return codec, fmt.Errorf("%w: %s: no i2c alias for bus %q", ErrInvalid, dn.path, dn.parent)
	}
	bus, err := strconv.Atoi(strings.TrimPrefix(alias, "i2c"))
	if err != nil {
		return codec, fmt.Errorf("%w: %s: invalid i2c alias %q", ErrInvalid, dn.path, alias)
	}
	codec.Bus = bus

	if v, ok := dn.node.Properties["compatible"]; ok {
		model := idx.str(v)
		if i := strings.Index(model, ","); i >= 0 {
			model = model[i+1:]
		}
		codec.Model = model
	}

	return codec, nil
}

func (idx *dtIndex) line(cells []uint32) (Line, error) {
	var line Line
	if len(cells) != 3 {
		return line, fmt.Errorf("%w: want <phandle offset flags> (got %d cells)", ErrInvalid, len(cells))
	}

	dn, ok := idx.phandle[cells[0]]
	if !ok {
		return line, fmt.Errorf("%w: unknown GPIO controller phandle 0x%x", ErrInvalid, cells[0])
	}

	line.Chip = DefaultGPIO
	if alias, ok := idx.aliases[dn.path]; ok && strings.HasPrefix(alias, "gpio") {
		// a bare "gpio" alias carries no chip index.
		if n, err := strconv.ParseUint(strings.TrimPrefix(alias, "gpio"), 10, 32); err == nil {
			line.Chip = "gpiochip" + strconv.FormatUint(n, 10)
		}
	}
	line.Offset = int(cells[1])
	line.ActiveLow = cells[2]&gpioActiveLow != 0

	return line, nil
}
