// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pifi-srv attaches a PiFi-40 sound card and serves its mixer
// controls over a JSON/TCP control socket.
//
// Usage: pifi-srv [OPTIONS]
//
// Example:
//
//	$> pifi-srv -addr=:8877 -cfg=./pifi.yaml
//	$> pifi-srv -db=pifi -name=Salon -pmon=/var/log/pifi
package main // import "github.com/go-lpc/pifi/cmd/pifi-srv"

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tlog "github.com/go-daq/tdaq/log"
	"github.com/go-lpc/pifi"
	"github.com/go-lpc/pifi/card"
	"github.com/go-lpc/pifi/internal/loader"
	"github.com/sbinet/pmon"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetPrefix("pifi-srv: ")
	log.SetFlags(0)

	var (
		addr = flag.String("addr", ":8877", "[ip]:port to listen on")
		fcfg = flag.String("cfg", "", "path to a YAML card description")
		fdtb = flag.String("dtb", "", "path to a flattened device tree blob (default: "+loader.LiveFDT+")")
		db   = flag.String("db", "", "name of the condition database holding the card description")
		name = flag.String("name", "", "card name in the condition database (default: last registered card)")
		vol  = flag.Int("volume", card.DefaultVolume, "initial volume [0-255]")
		verb = flag.Bool("v", false, "enable verbose mode")
		vers = flag.Bool("version", false, "print version and exit")

		mdir = flag.String("pmon", "", "directory where to store pmon monitoring data (disabled if empty)")
		freq = flag.Duration("freq", 1*time.Second, "pmon frequency")
	)

	flag.Parse()

	if *vers {
		v, sum := pifi.Version()
		fmt.Printf("pifi-srv %s %s\n", v, sum)
		return
	}

	cfg, err := loader.Load(context.Background(), loader.Source{
		YAML: *fcfg,
		FDT:  *fdtb,
		DB:   *db,
		Card: *name,
	})
	if err != nil {
		log.Fatalf("could not load card description: %+v", err)
	}

	lvl := tlog.LvlInfo
	if *verb {
		lvl = tlog.LvlDebug
	}

	c := card.New(
		cfg,
		card.WithMsgStream(tlog.NewMsgStream("pifi-srv", lvl, os.Stdout)),
		card.WithVolume(*vol),
	)

	if *mdir != "" {
		stop, err := monitor(*mdir, *freq)
		if err != nil {
			log.Fatalf("could not start monitoring: %+v", err)
		}
		defer stop()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	defer signal.Stop(stop)

	err = run(c, *addr, stop)
	if err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(c *card.Card, addr string, stop chan os.Signal) error {
	err := c.Attach()
	if err != nil {
		alertMail(c.Name(), err)
		return fmt.Errorf("could not attach card %q: %w", c.Name(), err)
	}
	defer c.Detach()

	srv, err := card.NewServer(addr, c)
	if err != nil {
		return fmt.Errorf("could not create control server: %w", err)
	}
	log.Printf("serving card %q on %q...", c.Name(), srv.Addr())

	grp, ctx := errgroup.WithContext(context.Background())
	grp.Go(srv.Serve)
	grp.Go(func() error {
		select {
		case <-stop:
			log.Printf("shutting down...")
		case <-ctx.Done():
		}
		return srv.Close()
	})

	err = grp.Wait()
	if err != nil {
		return fmt.Errorf("could not serve card %q: %w", c.Name(), err)
	}
	return nil
}

func monitor(dir string, freq time.Duration) (func(), error) {
	p, err := pmon.Monitor(os.Getpid())
	if err != nil {
		return nil, fmt.Errorf("could not monitor pifi-srv: %w", err)
	}

	f, err := os.Create(filepath.Join(dir, "pifi-srv-pmon.log"))
	if err != nil {
		return nil, fmt.Errorf("could not create pmon log file: %w", err)
	}
	p.W = f
	p.Freq = freq

	go func() {
		err := p.Run()
		if err != nil {
			log.Printf("could not run pmon: %+v", err)
		}
	}()

	return func() {
		err := p.Kill()
		if err != nil {
			log.Printf("could not stop monitoring: %+v", err)
		}
		_ = f.Close()
	}, nil
}
