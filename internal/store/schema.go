//  Copyright 2015 by Leipzig University Library, http://ub.uni-leipzig.de
//                    The Finc Authors, http://finc.info
//                    Martin Czygan, <martin.czygan@uni-leipzig.de>
//
// This file is part of some open source application.
//
// Some open source application is free software: you can redistribute
// it and/or modify it under the terms of the GNU General Public
// License as published by the Free Software Foundation, either
// version 3 of the License, or (at your option) any later version.
//
// Some open source application is distributed in the hope that it will
// be useful, but WITHOUT ANY WARRANTY; without even the implied warranty
// of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Foobar.  If not, see <http://www.gnu.org/licenses/>.
//
// @license GPL-3.0+ <http://spdx.org/licenses/GPL-3.0+>
//
package store

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
    endpoint TEXT NOT NULL,
    prefix TEXT NOT NULL,
    identifier TEXT NOT NULL,
    datestamp TEXT,
    status TEXT,
    sets TEXT,
    raw TEXT,
    harvested_at TEXT,
    PRIMARY KEY (endpoint, prefix, identifier)
);

CREATE INDEX IF NOT EXISTS idx_records_datestamp ON records(endpoint, prefix, datestamp);
`

const createCheckpointsTable = `
CREATE TABLE IF NOT EXISTS cursors (
    endpoint TEXT NOT NULL,
    prefix TEXT NOT NULL,
    set_spec TEXT NOT NULL,
    from_date TEXT NOT NULL,
    until_date TEXT NOT NULL,
    token TEXT NOT NULL,
    cursor INTEGER,
    complete_list_size INTEGER,
    expires TEXT,
    updated_at TEXT,
    PRIMARY KEY (endpoint, prefix, set_spec, from_date, until_date)
);
`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    endpoint TEXT NOT NULL,
    prefix TEXT NOT NULL,
    set_spec TEXT NOT NULL,
    started_at TEXT,
    finished_at TEXT,
    records INTEGER DEFAULT 0,
    err TEXT
);
`

const insertRecord = `
INSERT OR REPLACE INTO records (
    endpoint, prefix, identifier, datestamp, status, sets, raw, harvested_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const selectRecordCount = `
SELECT COUNT(*) FROM records WHERE endpoint = ? AND prefix = ?
`

const insertCheckpoint = `
INSERT OR REPLACE INTO cursors (
    endpoint, prefix, set_spec, from_date, until_date, token, cursor, complete_list_size, expires, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectCheckpoint = `
SELECT token, cursor, complete_list_size, COALESCE(expires, '')
FROM cursors
WHERE endpoint = ? AND prefix = ? AND set_spec = ? AND from_date = ? AND until_date = ?
`

const deleteCheckpoint = `
DELETE FROM cursors
WHERE endpoint = ? AND prefix = ? AND set_spec = ? AND from_date = ? AND until_date = ?
`

const insertRun = `
INSERT INTO runs (id, endpoint, prefix, set_spec, started_at) VALUES (?, ?, ?, ?, ?)
`

const updateRun = `
UPDATE runs SET finished_at = ?, records = ?, err = ? WHERE id = ?
`

const selectRun = `
SELECT id, endpoint, prefix, set_spec, COALESCE(started_at, ''), COALESCE(finished_at, ''),
    records, COALESCE(err, '')
FROM runs WHERE id = ?
`
