// Copyright 2022 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package store keeps the history of match runs in SQLite or Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/someonegg/foodmatch"
	"github.com/someonegg/foodmatch/simulation"
)

var ErrNotFound = errors.New("run not found")

// fixed width so that text order is time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	settings TEXT NOT NULL,
	summary TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS matches (
	run_id TEXT NOT NULL REFERENCES runs(id),
	seq INTEGER NOT NULL,
	food TEXT NOT NULL,
	kind INTEGER NOT NULL,
	donor INTEGER NOT NULL,
	volunteer INTEGER,
	receiver INTEGER,
	PRIMARY KEY (run_id, seq)
)`

// Run is one stored run without its matches.
type Run struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Settings  json.RawMessage
	Summary   simulation.Summary
}

type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to a postgres:// DSN, or treats dsn as a SQLite file path.
func Open(ctx context.Context, dsn string) (*Store, error) {
	driver := "sqlite"
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		driver = "pgx"
	} else if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	s := &Store{db: db, driver: driver}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders for drivers that number them.
func (s *Store) rebind(query string) string {
	if s.driver != "pgx" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// SaveRun stores the summary and matches of res under id. settings is
// stored as JSON.
func (s *Store) SaveRun(ctx context.Context, id uuid.UUID, settings any, res *simulation.Result) (retErr error) {
	if id == uuid.Nil {
		return errors.New("missing run id")
	}
	rawSettings, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	rawSummary, err := json.Marshal(res.Summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO runs(id, created_at, settings, summary) VALUES(?, ?, ?, ?)`),
		id.String(), time.Now().UTC().Format(timeLayout), string(rawSettings), string(rawSummary)); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO matches(run_id, seq, food, kind, donor, volunteer, receiver) VALUES(?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	seq := 0
	for _, out := range []foodmatch.Outcome{res.Perishable, res.NonPerishable} {
		for _, m := range out.Matches {
			var volunteer, receiver sql.NullInt64
			if m.HasVolunteer() {
				volunteer = sql.NullInt64{Int64: int64(m.Volunteer), Valid: true}
			}
			if m.HasReceiver() {
				receiver = sql.NullInt64{Int64: int64(m.Receiver), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, id.String(), seq, out.Food.String(), int(m.Kind),
				m.Donor, volunteer, receiver); err != nil {
				return fmt.Errorf("insert match %v: %w", m, err)
			}
			seq++
		}
	}

	return tx.Commit()
}

// Latest returns the most recent run.
func (s *Store) Latest(ctx context.Context) (Run, error) {
	runs, err := s.Runs(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNotFound
	}
	return runs[0], nil
}

// Runs lists up to limit runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, created_at, settings, summary FROM runs ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var id, created, settings, summary string
		if err := rows.Scan(&id, &created, &settings, &summary); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		run := Run{Settings: json.RawMessage(settings)}
		if run.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		if run.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
			return nil, fmt.Errorf("decode summary of %s: %w", id, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadMatches returns the matches of a run in their original order.
func (s *Store) LoadMatches(ctx context.Context, id uuid.UUID) ([]foodmatch.Match, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind(`SELECT COUNT(*) FROM runs WHERE id = ?`), id.String()).Scan(&n); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT kind, donor, volunteer, receiver FROM matches WHERE run_id = ? ORDER BY seq`), id.String())
	if err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var matches []foodmatch.Match
	for rows.Next() {
		var (
			kind, donor         int
			volunteer, receiver sql.NullInt64
		)
		if err := rows.Scan(&kind, &donor, &volunteer, &receiver); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		m := foodmatch.Match{Kind: foodmatch.MatchKind(kind), Donor: donor}
		if volunteer.Valid {
			m.Volunteer = int(volunteer.Int64)
		}
		if receiver.Valid {
			m.Receiver = int(receiver.Int64)
		}
		if m.Tuple() == nil {
			return nil, fmt.Errorf("run %s: match of unknown kind %d", id, kind)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
