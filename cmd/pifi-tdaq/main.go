// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pifi-tdaq starts a TDAQ run-control node driving a PiFi-40
// sound card.
//
// The card is attached on /init and detached on /reset and /quit.
// Volume updates are read as u32 frames from the /volume input.
//
// The card description is read from the file named by $PIFI_CFG (YAML),
// from the device tree named by $PIFI_DTB, or from the condition database
// named by $PIFI_DB (card $PIFI_CARD). The live device tree is used when
// none is set.
package main // import "github.com/go-lpc/pifi/cmd/pifi-tdaq"

import (
	"context"
	"log"
	"os"

	"github.com/go-daq/tdaq"
	"github.com/go-daq/tdaq/flags"
	"github.com/go-lpc/pifi/card"
	"github.com/go-lpc/pifi/config"
	"github.com/go-lpc/pifi/internal/loader"
)

func main() {
	cmd := flags.New()

	src := loader.Source{
		YAML: os.Getenv("PIFI_CFG"),
		FDT:  os.Getenv("PIFI_DTB"),
		DB:   os.Getenv("PIFI_DB"),
		Card: os.Getenv("PIFI_CARD"),
	}

	rc := card.NewRunControl(func() (config.Card, error) {
		return loader.Load(context.Background(), src)
	})

	srv := tdaq.New(cmd, os.Stdout)
	srv.CmdHandle("/config", rc.OnConfig)
	srv.CmdHandle("/init", rc.OnInit)
	srv.CmdHandle("/reset", rc.OnReset)
	srv.CmdHandle("/start", rc.OnStart)
	srv.CmdHandle("/stop", rc.OnStop)
	srv.CmdHandle("/quit", rc.OnQuit)

	srv.InputHandle("/volume", rc.OnVolume)

	err := srv.Run(context.Background())
	if err != nil {
		log.Panicf("error: %+v", err)
	}
}
