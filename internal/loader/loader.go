// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package loader picks the source of a card description for the pifi
// commands.
package loader // import "github.com/go-lpc/pifi/internal/loader"

import (
	"context"
	"fmt"

	"github.com/go-lpc/pifi/conddb"
	"github.com/go-lpc/pifi/config"
)

// LiveFDT is the device tree the kernel booted with.
const LiveFDT = "/sys/firmware/fdt"

// Source locates a card description.
// At most one of YAML, FDT and DB may be set; with none, LiveFDT is read.
type Source struct {
	YAML string // path to a YAML description
	FDT  string // path to a flattened device tree blob
	DB   string // name of the condition database
	Card string // card name in DB; the last registered card if empty
}

var openDB = conddb.Open

// Load reads the card description from src.
func Load(ctx context.Context, src Source) (config.Card, error) {
	n := 0
	for _, v := range []string{src.YAML, src.FDT, src.DB} {
		if v != "" {
			n++
		}
	}
	if n > 1 {
		return config.Card{}, fmt.Errorf("loader: more than one card description source")
	}

	switch {
	case src.YAML != "":
		return config.Load(src.YAML)
	case src.DB != "":
		return fromDB(ctx, src.DB, src.Card)
	case src.FDT != "":
		return config.LoadFDT(src.FDT)
	default:
		return config.LoadFDT(LiveFDT)
	}
}

func fromDB(ctx context.Context, dbname, name string) (config.Card, error) {
	db, err := openDB(dbname)
	if err != nil {
		return config.Card{}, fmt.Errorf("loader: could not open condition db: %w", err)
	}
	defer db.Close()

	if name == "" {
		name, err = db.LastCard(ctx)
		if err != nil {
			return config.Card{}, fmt.Errorf("loader: could not find last card: %w", err)
		}
	}

	cfg, err := db.Card(ctx, name)
	if err != nil {
		return cfg, fmt.Errorf("loader: could not retrieve card %q: %w", name, err)
	}
	return cfg, nil
}
