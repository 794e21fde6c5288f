// Copyright 2019 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package persist stores synchronized messages, labels and history
// watermarks in SQLite.  The store subscribes to the engine's two
// completion notifications; the engine itself never touches it.
package persist

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/matta/gmirror/internal/message"

	"github.com/pkg/errors"
)

var createTableSQL = []string{
	// One row per synchronized message per user.  Rows are
	// replaced wholesale on re-synchronization; the newest record
	// for a message id wins.
	`
CREATE TABLE IF NOT EXISTS messages (
user_id TEXT NOT NULL,
message_id TEXT NOT NULL,
thread_id TEXT NOT NULL,
history_id INTEGER NOT NULL,
recipient TEXT NOT NULL,
sender TEXT NOT NULL,
sent_at TIMESTAMP,
subject TEXT NOT NULL,
snippet TEXT NOT NULL,
PRIMARY KEY (user_id, message_id)
);`,
	// One row per (user, label display name).  The display name
	// is the label's identity within a user's set.
	`
CREATE TABLE IF NOT EXISTS labels (
user_id TEXT NOT NULL,
domain TEXT NOT NULL,
name TEXT NOT NULL,
PRIMARY KEY (user_id, name)
);`,
	`
CREATE TABLE IF NOT EXISTS message_labels (
user_id TEXT NOT NULL,
message_id TEXT NOT NULL,
label_name TEXT NOT NULL,
PRIMARY KEY (user_id, message_id, label_name)
);`,
	// The per-user high-water history marker.  history_id values
	// are stored order-shifted into the signed domain so that
	// SQLite's signed INTEGER comparison sorts the full uint64
	// range correctly.
	`
CREATE TABLE IF NOT EXISTS history (
user_id TEXT NOT NULL PRIMARY KEY,
history_id INTEGER NOT NULL
);`,
}

// Store is a SQLite-backed subscriber for sync notifications.
type Store struct {
	db *sql.DB
}

func dsnFromPath(path string, addValues url.Values) (string, error) {
	var u *url.URL
	if !strings.HasPrefix(path, "file:") {
		u = &url.URL{Scheme: "file", Path: path}
	} else {
		var err error
		u, err = url.Parse(path)
		if err != nil {
			return "", err
		}
	}
	values := u.Query()
	for k, v := range addValues {
		for _, item := range v {
			values.Add(k, item)
		}
	}
	u.RawQuery = values.Encode()
	return u.String(), nil
}

// Open opens (creating if necessary) the store at the given path.
func Open(ctx context.Context, path string) (*Store, error) {
	// The _busy_timeout is a SQLite extension that controls how
	// long SQLite will poll before giving up.  The default of 5
	// seconds is too short in practice; go with 5 minutes.
	var busyTimeout = int(5*time.Minute) / int(time.Millisecond)

	dsn, err := dsnFromPath(path, url.Values{
		"_busy_timeout": {fmt.Sprintf("%d", busyTimeout)}})
	if err != nil {
		return nil, errors.Wrapf(err,
			"Open(%q) failed: could not form a DB DSN from the given path", path)
	}
	log.Printf("opening database at %q\n", dsn)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrapf(err,
			"Open(%q) failed: could not open database at %q", path, dsn)
	}

	if err = initSchema(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrapf(err,
			"Open(%q) failed: could not initialize the database schema", path)
	}

	return &Store{db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	for _, q := range createTableSQL {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return errors.Wrapf(err, "while executing %q", q)
		}
	}
	return nil
}

// SyncFinished stores the run's message and label collections in one
// transaction.
func (s *Store) SyncFinished(ctx context.Context, userID string, msgs []*message.Message, labels []*message.Label) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction failed")
	}
	defer tx.Rollback()

	if err := insertLabels(ctx, tx, labels); err != nil {
		return err
	}
	if err := insertMessages(ctx, tx, msgs); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "commit failed")
}

func insertLabels(ctx context.Context, tx *sql.Tx, labels []*message.Label) error {
	const q = `INSERT OR REPLACE INTO labels (user_id, domain, name) VALUES ($1, $2, $3)`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return errors.Wrap(err, "db prepare statement failed for labels upsert")
	}
	defer stmt.Close()

	for _, l := range labels {
		if _, err := stmt.ExecContext(ctx, l.UserID, l.Domain, l.Name); err != nil {
			return errors.Wrapf(err, "db upsert failed for label %q", l.Name)
		}
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, msgs []*message.Message) error {
	const q = `INSERT OR REPLACE INTO messages
		(user_id, message_id, thread_id, history_id, recipient, sender, sent_at, subject, snippet)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	upsert, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return errors.Wrap(err, "db prepare statement failed for messages upsert")
	}
	defer upsert.Close()

	unlabel, err := tx.PrepareContext(ctx,
		`DELETE FROM message_labels WHERE user_id = $1 AND message_id = $2`)
	if err != nil {
		return errors.Wrap(err, "db prepare statement failed for unlabel")
	}
	defer unlabel.Close()

	label, err := tx.PrepareContext(ctx,
		`INSERT INTO message_labels (user_id, message_id, label_name) VALUES ($1, $2, $3)`)
	if err != nil {
		return errors.Wrap(err, "db prepare statement failed for label")
	}
	defer label.Close()

	for _, m := range msgs {
		_, err := upsert.ExecContext(ctx, m.UserID, m.ID, m.ThreadID,
			orderedToSigned(m.HistoryID), m.To, m.From, m.SentAt, m.Subject, m.Snippet)
		if err != nil {
			return errors.Wrapf(err, "db upsert failed for message %v", m.ID)
		}
		if _, err := unlabel.ExecContext(ctx, m.UserID, m.ID); err != nil {
			return errors.Wrapf(err, "db unlabel failed for message %v", m.ID)
		}
		for _, l := range m.Labels {
			if _, err := label.ExecContext(ctx, m.UserID, m.ID, l.Name); err != nil {
				return errors.Wrapf(err, "db label failed for message %v", m.ID)
			}
		}
	}
	return nil
}

// HistoryAdvanced merges the fresh watermark with the persisted one:
// a non-advancing watermark is ignored, never an error.
func (s *Store) HistoryAdvanced(ctx context.Context, hist *message.History) error {
	latest, err := s.LatestHistoryID(ctx, hist.UserID)
	if err != nil {
		return err
	}
	if hist.HistoryID <= latest {
		return nil
	}

	const q = `INSERT OR REPLACE INTO history (user_id, history_id) VALUES ($1, $2)`
	if _, err := s.db.ExecContext(ctx, q, hist.UserID, orderedToSigned(hist.HistoryID)); err != nil {
		return errors.Wrapf(err, "db insert failed for watermark of %v", hist.UserID)
	}
	return nil
}

// LatestHistoryID returns the persisted watermark for a user, or zero
// when the user has never completed a run.
func (s *Store) LatestHistoryID(ctx context.Context, userID string) (uint64, error) {
	const q = `SELECT history_id FROM history WHERE user_id = $1`
	row := s.db.QueryRowContext(ctx, q, userID)
	var id int64
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			err = nil // a non-error
		}
		return 0, err
	}
	return orderedToUnsigned(id), nil
}

func orderedToSigned(u uint64) int64 {
	return int64(u - -math.MinInt64) // Imagine 0..255 -> -128..127
}

func orderedToUnsigned(s int64) uint64 {
	return uint64(s) + -math.MinInt64 // Imagine -128..127 -> 0..255
}
