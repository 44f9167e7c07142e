// Copyright 2024 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package conddb retrieves sound card descriptions from the condition
// database.
package conddb // import "github.com/go-lpc/pifi/conddb"

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-lpc/pifi/config"
	"github.com/go-sql-driver/mysql"
)

var (
	host = "localhost"
	usr  = "username"
	pwd  = "s3cr3t"

	drvName = "mysql"
)

// ErrNotFound is returned when a card is not described in the database.
var ErrNotFound = errors.New("conddb: card not found")

const timeout = 5 * time.Second

// DB exposes convenience methods to retrieve card descriptions from the
// condition database.
type DB struct {
	db   *sql.DB
	name string
}

// Open opens a connection to the condition database dbname.
func Open(dbname string) (*DB, error) {
	db, err := sql.Open(drvName, dsn(dbname))
	if err != nil {
		return nil, fmt.Errorf("conddb: could not open %q db: %w", dbname, err)
	}

	err = ping(db, dbname)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &DB{db: db, name: dbname}, nil
}

func dsn(db string) string {
	cfg := mysql.NewConfig()
	cfg.User = usr
	cfg.Passwd = pwd
	cfg.Net = "tcp"
	cfg.Addr = host
	cfg.DBName = db
	return cfg.FormatDSN()
}

func ping(db *sql.DB, dbname string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("conddb: could not ping %q db: %w", dbname, err)
	}

	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// LastCard returns the name of the most recently registered card.
func (db *DB) LastCard(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	name := ""
	rows, err := db.db.QueryContext(
		ctx,
		"SELECT name FROM cards ORDER BY datetime DESC LIMIT 1",
	)
	if err != nil {
		return name, fmt.Errorf("conddb: could not query last card: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		err = rows.Scan(&name)
		if err != nil {
			return name, fmt.Errorf("conddb: could not get last card name: %w", err)
		}
	}

	if err := rows.Err(); err != nil {
		return name, fmt.Errorf("conddb: could not scan db for last card: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return name, fmt.Errorf("conddb: context error while retrieving last card: %w", err)
	}

	if name == "" {
		return name, ErrNotFound
	}

	return name, nil
}

const queryCard = `
SELECT cards.name, codecs.bus, codecs.addr, codecs.model,
       cards.pdn_chip, cards.pdn_offset, cards.pdn_active_low
FROM cards
JOIN codecs ON codecs.card=cards.identifier
WHERE cards.name=?
ORDER BY codecs.slot
`

// Card returns the description of the named card, one codec per row.
// The power-down line is optional: a NULL pdn_chip means none.
func (db *DB) Card(ctx context.Context, name string) (config.Card, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cfg config.Card
	rows, err := db.db.QueryContext(ctx, queryCard, name)
	if err != nil {
		return cfg, fmt.Errorf("conddb: could not run card %q query: %w", name, err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var (
			codec config.Codec
			model sql.NullString
			chip  sql.NullString
			off   sql.NullInt64
			low   sql.NullBool
		)
		err = rows.Scan(
			&cfg.Name, &codec.Bus, &codec.Addr, &model,
			&chip, &off, &low,
		)
		if err != nil {
			return cfg, fmt.Errorf("conddb: could not scan row %d for card %q: %w", i, name, err)
		}
		i++

		codec.Model = model.String
		cfg.Codecs = append(cfg.Codecs, codec)

		if chip.Valid && cfg.PDN == nil {
			cfg.PDN = &config.Line{
				Chip:      chip.String,
				Offset:    int(off.Int64),
				ActiveLow: low.Bool,
			}
		}
	}

	if err := rows.Err(); err != nil {
		return cfg, fmt.Errorf("conddb: could not scan db for card %q: %w", name, err)
	}

	if err := ctx.Err(); err != nil {
		return cfg, fmt.Errorf("conddb: context error while retrieving card %q: %w", name, err)
	}

	if i == 0 {
		return cfg, fmt.Errorf("conddb: no codec for card %q: %w", name, ErrNotFound)
	}

	cfg.SetDefaults()
	err = cfg.Validate()
	if err != nil {
		return cfg, fmt.Errorf("conddb: invalid card %q: %w", name, err)
	}

	return cfg, nil
}
