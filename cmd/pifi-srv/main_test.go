// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io"
	"os"
	"reflect"
	"testing"
	"time"

	tlog "github.com/go-daq/tdaq/log"
	"github.com/go-lpc/pifi/card"
	"github.com/go-lpc/pifi/config"
	"github.com/go-lpc/pifi/mixer"
	mail "gopkg.in/gomail.v2"
)

type nopCodec struct{ err error }

func (c nopCodec) WriteReg(reg uint8, v uint32) error { return c.err }
func (nopCodec) Controls() []*mixer.Control         { return nil }
func (nopCodec) Close() error                       { return nil }

func newTestCard(err error) *card.Card {
	return card.New(
		config.Card{
			Name: "Salon",
			Codecs: []config.Codec{
				{Bus: 1, Addr: 0x1a, Model: "tas5713"},
				{Bus: 1, Addr: 0x1b, Model: "tas5713"},
			},
		},
		card.WithMsgStream(tlog.NewMsgStream("pifi-srv", tlog.LvlInfo, io.Discard)),
		card.WithCodecOpener(func(config.Codec) (card.Codec, error) {
			return nopCodec{err}, nil
		}),
		card.WithSleep(func(time.Duration) {}),
	)
}

func TestRun(t *testing.T) {
	c := newTestCard(nil)
	stop := make(chan os.Signal, 1)
	stop <- os.Interrupt

	err := run(c, "localhost:0", stop)
	if err != nil {
		t.Fatalf("could not run server: %+v", err)
	}
	if got, want := c.State(), card.Detached; got != want {
		t.Fatalf("invalid card state: got=%v, want=%v", got, want)
	}
}

func TestRunAttachFailure(t *testing.T) {
	var sent []string
	defer func(usr, pwd, srv string, port int, tgts []string) {
		alertMailUsr, alertMailPwd, alertMailSrv = usr, pwd, srv
		alertMailPort, alertMailTgts = port, tgts
		sendMail = func(d *mail.Dialer, msg *mail.Message) error { return d.DialAndSend(msg) }
	}(alertMailUsr, alertMailPwd, alertMailSrv, alertMailPort, alertMailTgts)

	alertMailUsr = "pifi@example.org"
	alertMailPwd = "s3cr3t"
	alertMailSrv = "smtp.example.org"
	alertMailPort = 587
	alertMailTgts = []string{"ops@example.org"}
	sendMail = func(d *mail.Dialer, msg *mail.Message) error {
		sent = append(sent, msg.GetHeader("Subject")...)
		return nil
	}

	c := newTestCard(errors.New("i2c: remote I/O error"))
	err := run(c, "localhost:0", make(chan os.Signal))
	if !errors.Is(err, card.ErrHardware) {
		t.Fatalf("invalid error: got=%+v, want=%v", err, card.ErrHardware)
	}

	want := []string{`[pifi-srv] card alert: "Salon"`}
	if !reflect.DeepEqual(sent, want) {
		t.Fatalf("invalid alerts: got=%q, want=%q", sent, want)
	}
}

func TestSplit(t *testing.T) {
	for _, tc := range []struct {
		s    string
		want []string
	}{
		{"", nil},
		{"a@example.org", []string{"a@example.org"}},
		{"a@example.org, b@example.org,", []string{"a@example.org", "b@example.org"}},
	} {
		if got := split(tc.s); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("split(%q): got=%q, want=%q", tc.s, got, tc.want)
		}
	}
}
