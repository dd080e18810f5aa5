package sqldb

import (
	"context"
	"database/sql"

	"github.com/wansing/docflow/eventlog"
)

// EventDB implements eventlog.EventDB.
type EventDB struct {
	*DB
	cutoff *sql.Stmt
	insert *sql.Stmt
	prune  *sql.Stmt
	recent *sql.Stmt
}

func NewEventDB(db *DB) *EventDB {

	mustCreate(db,
		`CREATE TABLE IF NOT EXISTS event (
			id varchar(36) NOT NULL PRIMARY KEY,
			seq BIGINT NOT NULL,
			ts BIGINT NOT NULL,
			username varchar(128) NOT NULL,
			class varchar(64) NOT NULL,
			method varchar(64) NOT NULL,
			args mediumtext NOT NULL,
			result mediumtext NOT NULL,
			path varchar(512) NOT NULL,
			error varchar(1024) NOT NULL DEFAULT ''
		)`)

	return prepareEventDB(db)
}

func prepareEventDB(db *DB) *EventDB {
	var eventDB = &EventDB{}
	eventDB.DB = db
	eventDB.cutoff = mustPrepare(db, "SELECT seq FROM event ORDER BY seq DESC LIMIT 1 OFFSET ?")
	eventDB.insert = mustPrepare(db, "INSERT INTO event (id, seq, ts, username, class, method, args, result, path, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	eventDB.prune = mustPrepare(db, "DELETE FROM event WHERE seq <= ?")
	eventDB.recent = mustPrepare(db, "SELECT id, seq, ts, username, class, method, args, result, path, error FROM event ORDER BY seq DESC LIMIT ?")
	return eventDB
}

func (db *EventDB) AppendEvent(ctx context.Context, e *eventlog.Entry) error {
	_, err := db.insert.ExecContext(ctx, e.ID, e.Seq, nanos(e.Time), e.User, e.Class, e.Method, e.Args, e.Result, e.Path, e.Error)
	return err
}

// PruneEvents finds the newest entry which exceeds the bound and deletes it along with everything older.
func (db *EventDB) PruneEvents(ctx context.Context, keep int) (int64, error) {

	var cutoff int64
	switch err := db.cutoff.QueryRowContext(ctx, keep).Scan(&cutoff); err {
	case nil:
	case sql.ErrNoRows:
		return 0, nil // bound not exceeded
	default:
		return 0, err
	}

	res, err := db.prune.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (db *EventDB) RecentEvents(ctx context.Context, limit int) ([]*eventlog.Entry, error) {

	rows, err := db.recent.QueryContext(ctx, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries = []*eventlog.Entry{}
	for rows.Next() {
		var e = &eventlog.Entry{}
		var ts int64
		if err := rows.Scan(&e.ID, &e.Seq, &ts, &e.User, &e.Class, &e.Method, &e.Args, &e.Result, &e.Path, &e.Error); err != nil {
			return nil, err
		}
		e.Time = fromNanos(ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
