// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package card

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/go-lpc/pifi/mixer"
)

// Server exposes a card over a line-oriented JSON protocol.
//
// Each request is a JSON object {"name": cmd, "args": payload}; each reply
// is {"msg": "ok"|error, "data": payload}.
type Server struct {
	ctl  net.Listener
	card *Card
}

// Serve listens on addr and serves requests for c until the listener fails.
func Serve(addr string, c *Card) error {
	srv, err := NewServer(addr, c)
	if err != nil {
		return err
	}
	return srv.Serve()
}

// NewServer creates a control server for c, listening on addr.
func NewServer(addr string, c *Card) (*Server, error) {
	ctl, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("card: could not create control server on %q: %w", addr, err)
	}
	return &Server{ctl: ctl, card: c}, nil
}

// Addr returns the address the server listens on.
func (srv *Server) Addr() net.Addr { return srv.ctl.Addr() }

// Close stops the server. The card is left as is.
func (srv *Server) Close() error {
	return srv.ctl.Close()
}

// Serve accepts and serves connections, one at a time, until Close is
// called.
func (srv *Server) Serve() error {
	defer srv.ctl.Close()

	for {
		conn, err := srv.ctl.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("card: could not accept connection: %w", err)
		}

		srv.handle(conn)
	}
}

type request struct {
	Name string           `json:"name"`
	Args *json.RawMessage `json:"args"`
}

type reply struct {
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

// Info describes the card served by a Server.
type Info struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Controls  int    `json:"controls"`
	BCLKRatio int    `json:"bclk_ratio"`
}

type ctlValues struct {
	Name   string `json:"name"`
	Values []int  `json:"values"`
}

func (srv *Server) handle(conn net.Conn) {
	defer conn.Close()
	msg := srv.card.msg
	msg.Infof("serving %v...", conn.RemoteAddr())
	defer msg.Infof("serving %v... [done]", conn.RemoteAddr())

	var (
		dec = json.NewDecoder(conn)
		enc = json.NewEncoder(conn)
	)

	for {
		var req request
		err := dec.Decode(&req)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			msg.Errorf("could not decode command request: %+v", err)
			srv.reply(enc, nil, err)
			return
		}
		msg.Debugf("received request: name=%q", req.Name)

		if strings.ToLower(req.Name) == "quit" {
			srv.reply(enc, nil, nil)
			return
		}

		data, err := srv.dispatch(req)
		if err != nil {
			msg.Errorf("could not run %q: %+v", req.Name, err)
		}
		srv.reply(enc, data, err)
	}
}

func (srv *Server) dispatch(req request) (interface{}, error) {
	c := srv.card

	switch strings.ToLower(req.Name) {
	case "attach":
		return nil, c.Attach()

	case "detach":
		c.Detach()
		return nil, nil

	case "info":
		return Info{
			Name:      c.Name(),
			State:     c.State().String(),
			Controls:  c.Controls().Len(),
			BCLKRatio: BCLKRatio,
		}, nil

	case "list":
		ctls := c.Controls().Controls()
		infos := make([]mixer.Info, len(ctls))
		for i, ctl := range ctls {
			infos[i] = ctl.Info()
		}
		return infos, nil

	case "get":
		var name string
		err := decodeArgs(req, &name)
		if err != nil {
			return nil, err
		}
		vs, err := c.Controls().Get(name)
		if err != nil {
			return nil, err
		}
		return ctlValues{Name: name, Values: vs}, nil

	case "set":
		var args ctlValues
		err := decodeArgs(req, &args)
		if err != nil {
			return nil, err
		}
		changed, err := c.Controls().Put(args.Name, args.Values)
		if err != nil {
			return nil, err
		}
		return changed, nil

	default:
		return nil, fmt.Errorf("unknown command %q", req.Name)
	}
}

func decodeArgs(req request, v interface{}) error {
	if req.Args == nil {
		return fmt.Errorf("missing %q payload", req.Name)
	}
	err := json.Unmarshal(*req.Args, v)
	if err != nil {
		return fmt.Errorf("could not decode %q payload: %w", req.Name, err)
	}
	return nil
}

func (srv *Server) reply(enc *json.Encoder, data interface{}, err error) {
	rep := reply{Msg: "ok", Data: data}
	if err != nil {
		rep = reply{Msg: fmt.Sprintf("%+v", err)}
	}

	_ = enc.Encode(rep)
}
