// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command pifi-ctl is an interactive shell driving a pifi-srv server.
//
// Usage: pifi-ctl [OPTIONS]
//
// Example:
//
//	$> pifi-ctl -addr=raspberrypi:8877
//	pifi> info
//	pifi> list
//	pifi> set Master Volume 100
//	pifi> get Master Volume
//	pifi> quit
package main // import "github.com/go-lpc/pifi/cmd/pifi-ctl"

import (
	"errors"
	"flag"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
)

func main() {
	log.SetPrefix("pifi-ctl: ")
	log.SetFlags(0)

	var (
		addr = flag.String("addr", "localhost:8877", "[ip]:port of the pifi-srv server")
		hist = flag.String("history", filepath.Join(os.TempDir(), ".pifi-ctl.history"), "path to the history file")
	)

	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		log.Fatalf("could not dial %q: %+v", *addr, err)
	}
	defer conn.Close()

	term := liner.NewLiner()
	defer term.Close()
	term.SetCtrlCAborts(true)
	term.SetCompleter(complete)

	if f, err := os.Open(*hist); err == nil {
		_, _ = term.ReadHistory(f)
		f.Close()
	}
	defer func() {
		f, err := os.Create(*hist)
		if err != nil {
			log.Printf("could not save history: %+v", err)
			return
		}
		defer f.Close()
		_, _ = term.WriteHistory(f)
	}()

	cli := newClient(conn, os.Stdout)
	for {
		line, err := term.Prompt("pifi> ")
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				log.Printf("could not read command: %+v", err)
			}
			_ = cli.run("quit")
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term.AppendHistory(line)

		err = cli.run(line)
		if err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			log.Printf("%+v", err)
		}
	}
}

func complete(line string) []string {
	var out []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, strings.ToLower(line)) {
			out = append(out, cmd)
		}
	}
	return out
}
