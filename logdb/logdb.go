// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package logdb keeps the history of dealer events in sqlite.
package logdb

import (
	"context"
	"database/sql"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/events"
)

const insertEventQuery = "INSERT OR IGNORE INTO event(seq, time, name, topic0, topic1, topic2, topic3, data) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"

type LogDB struct {
	path          string
	db            *sql.DB
	insertStmt    *sql.Stmt
	driverVersion string
}

// New create or open log db at given path.
func New(path string) (logDB *LogDB, err error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if logDB == nil {
			db.Close()
		}
	}()
	if strings.Contains(path, ":memory:") {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(eventTableSchema); err != nil {
		return nil, err
	}

	insertStmt, err := db.Prepare(insertEventQuery)
	if err != nil {
		return nil, errors.Wrap(err, "prepare insert")
	}

	driverVer, _, _ := sqlite3.Version()
	return &LogDB{
		path:          path,
		db:            db,
		insertStmt:    insertStmt,
		driverVersion: driverVer,
	}, nil
}

// NewMem create a log db in ram.
func NewMem() (*LogDB, error) {
	return New(":memory:")
}

// Close close the log db.
func (db *LogDB) Close() error {
	db.insertStmt.Close()
	return db.db.Close()
}

func (db *LogDB) Path() string {
	return db.path
}

// DriverVersion returns the sqlite library version.
func (db *LogDB) DriverVersion() string {
	return db.driverVersion
}

// Write stores an event. Writing a sequence number that already exists is a no-op.
func (db *LogDB) Write(ev *events.Event) error {
	l, err := ev.Log()
	if err != nil {
		return errors.Wrapf(err, "encode event %s#%d", ev.Name, ev.Seq)
	}
	var topics [4][]byte
	for i := 0; i < len(l.Topics) && i < len(topics); i++ {
		topics[i] = l.Topics[i].Bytes()
	}

	_, err = db.insertStmt.Exec(ev.Seq, ev.Timestamp, ev.Name, topics[0], topics[1], topics[2], topics[3], l.Data)
	return err
}

// LastSeq returns the highest stored sequence number, 0 if empty.
func (db *LogDB) LastSeq(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	if err := db.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM event").Scan(&seq); err != nil {
		return 0, err
	}
	return uint64(seq.Int64), nil
}

// FilterEvents queries events matching the filter.
func (db *LogDB) FilterEvents(ctx context.Context, filter *EventFilter) ([]*events.Event, error) {
	const query = "SELECT seq, time, topic0, topic1, topic2, topic3, data FROM event"
	if filter == nil {
		return db.queryEvents(ctx, query+" ORDER BY seq ASC")
	}
	metricsHandleEventsFilter(filter)

	var (
		args []any
		cond []string
	)
	if len(filter.Names) > 0 {
		marks := make([]string, 0, len(filter.Names))
		for _, name := range filter.Names {
			marks = append(marks, "?")
			args = append(args, name)
		}
		cond = append(cond, "name IN ("+strings.Join(marks, ",")+")")
	}
	if filter.Topic1 != nil {
		cond = append(cond, "topic1 = ?")
		args = append(args, filter.Topic1.Bytes())
	}
	if r := filter.Range; r != nil {
		column := "seq"
		if r.Unit == Time {
			column = "time"
		}
		cond = append(cond, column+" >= ?")
		args = append(args, r.From)
		if r.To >= r.From {
			cond = append(cond, column+" <= ?")
			args = append(args, r.To)
		}
	}

	stmt := query
	if len(cond) > 0 {
		stmt += " WHERE " + strings.Join(cond, " AND ")
	}
	if filter.Order == DESC {
		stmt += " ORDER BY seq DESC"
	} else {
		stmt += " ORDER BY seq ASC"
	}
	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, filter.Options.Offset, filter.Options.Limit)
	}
	return db.queryEvents(ctx, stmt, args...)
}

func (db *LogDB) queryEvents(ctx context.Context, query string, args ...any) ([]*events.Event, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*events.Event
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		var (
			seq    uint64
			time   uint64
			topics [4][]byte
			data   []byte
		)
		if err := rows.Scan(&seq, &time, &topics[0], &topics[1], &topics[2], &topics[3], &data); err != nil {
			return nil, err
		}
		l := &events.Log{Data: data}
		for _, topic := range topics {
			if len(topic) > 0 {
				l.Topics = append(l.Topics, dealer.BytesToBytes32(topic))
			}
		}
		ev, err := events.Decode(seq, time, l)
		if err != nil {
			return nil, errors.WithMessagef(err, "decode event #%d", seq)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
