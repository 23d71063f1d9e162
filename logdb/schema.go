// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package logdb

const eventTableSchema = `CREATE TABLE IF NOT EXISTS event (
	seq INTEGER PRIMARY KEY,
	time INTEGER NOT NULL,
	name TEXT NOT NULL,
	topic0 BLOB,
	topic1 BLOB,
	topic2 BLOB,
	topic3 BLOB,
	data BLOB
);

CREATE INDEX IF NOT EXISTS event_i_name ON event(name);
CREATE INDEX IF NOT EXISTS event_i_time ON event(time);
CREATE INDEX IF NOT EXISTS event_i_topic1 ON event(topic1);
`
