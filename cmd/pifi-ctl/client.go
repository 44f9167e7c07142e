// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errQuit = errors.New("pifi-ctl: quit")

var commands = []string{
	"attach", "detach", "info", "list", "get", "set", "vol", "quit",
}

type request struct {
	Name string      `json:"name"`
	Args interface{} `json:"args,omitempty"`
}

type ctlValues struct {
	Name   string `json:"name"`
	Values []int  `json:"values"`
}

// parse turns a shell line into a request.
//
//	get <control name>
//	set <control name> <v0> [v1...]
//	vol <v>
func parse(line string) (request, error) {
	toks := strings.Fields(line)
	if len(toks) == 0 {
		return request{}, fmt.Errorf("empty command")
	}

	cmd := strings.ToLower(toks[0])
	args := toks[1:]
	switch cmd {
	case "attach", "detach", "info", "list", "quit":
		if len(args) != 0 {
			return request{}, fmt.Errorf("%s takes no argument", cmd)
		}
		return request{Name: cmd}, nil

	case "get":
		if len(args) == 0 {
			return request{}, fmt.Errorf("get needs a control name")
		}
		return request{Name: cmd, Args: strings.Join(args, " ")}, nil

	case "set":
		i := len(args)
		for i > 0 {
			if _, err := strconv.Atoi(args[i-1]); err != nil {
				break
			}
			i--
		}
		if i == 0 || i == len(args) {
			return request{}, fmt.Errorf("set needs a control name and values")
		}
		vs := make([]int, 0, len(args)-i)
		for _, arg := range args[i:] {
			v, _ := strconv.Atoi(arg)
			vs = append(vs, v)
		}
		return request{
			Name: cmd,
			Args: ctlValues{Name: strings.Join(args[:i], " "), Values: vs},
		}, nil

	case "vol":
		if len(args) != 1 {
			return request{}, fmt.Errorf("vol needs one value")
		}
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return request{}, fmt.Errorf("could not parse volume %q: %w", args[0], err)
		}
		return request{
			Name: "set",
			Args: ctlValues{Name: "Master Volume", Values: []int{v, v}},
		}, nil
	}

	return request{}, fmt.Errorf("unknown command %q", toks[0])
}

type client struct {
	enc *json.Encoder
	dec *json.Decoder
	out io.Writer
}

func newClient(rw io.ReadWriter, out io.Writer) *client {
	return &client{
		enc: json.NewEncoder(rw),
		dec: json.NewDecoder(rw),
		out: out,
	}
}

// run sends the command line to the server and prints its reply.
func (cli *client) run(line string) error {
	req, err := parse(line)
	if err != nil {
		return err
	}

	err = cli.enc.Encode(req)
	if err != nil {
		return fmt.Errorf("could not send %q: %w", req.Name, err)
	}

	var rep struct {
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	err = cli.dec.Decode(&rep)
	if err != nil {
		return fmt.Errorf("could not read %q reply: %w", req.Name, err)
	}
	if rep.Msg != "ok" {
		return fmt.Errorf("%s: %s", req.Name, rep.Msg)
	}

	if len(rep.Data) > 0 {
		fmt.Fprintf(cli.out, "%s\n", rep.Data)
	}
	if req.Name == "quit" {
		return errQuit
	}
	return nil
}
