package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wansing/docflow/core"
)

const handleColumns = "id, path, doctype, discriminators, summary, original_path, revision, ts_created"
const variantColumns = "id, handle_id, state, holder, availability, content, properties, creator, ts_created, modifier, ts_modified"
const requestColumns = "id, handle_id, type, ts_scheduled, reason, username, ts_created"
const snapshotColumns = "id, handle_id, variant_id, state, name, labels, content, properties, ts_created"

// DocumentDB implements core.Store.
type DocumentDB struct {
	*DB
	deleteHandle          *sql.Stmt
	deleteHandleRequests  *sql.Stmt
	deleteHandleSnapshots *sql.Stmt
	deleteHandleVariants  *sql.Stmt
	deleteRequest         *sql.Stmt
	deleteVariant         *sql.Stmt
	getDueRequests        *sql.Stmt
	getHandle             *sql.Stmt
	getHandleByPath       *sql.Stmt
	getHandlesBelow       *sql.Stmt
	getRequest            *sql.Stmt
	getRequests           *sql.Stmt
	getSnapshots          *sql.Stmt
	getVariant            *sql.Stmt
	getVariants           *sql.Stmt
	insertHandle          *sql.Stmt
	insertRequest         *sql.Stmt
	insertSnapshot        *sql.Stmt
	insertVariant         *sql.Stmt
	lastSnapshot          *sql.Stmt
	updateHandle          *sql.Stmt
	updateRequest         *sql.Stmt
	updateVariant         *sql.Stmt
}

func NewDocumentDB(db *DB) *DocumentDB {

	mustCreate(db,
		`CREATE TABLE IF NOT EXISTS handle (
			id varchar(36) NOT NULL PRIMARY KEY,
			path varchar(512) NOT NULL,
			doctype varchar(64) NOT NULL,
			discriminators varchar(1024) NOT NULL DEFAULT '',
			summary varchar(16) NOT NULL,
			original_path varchar(512) NOT NULL DEFAULT '',
			revision BIGINT NOT NULL DEFAULT 0,
			ts_created BIGINT NOT NULL,
			UNIQUE (path)
		)`,
		`CREATE TABLE IF NOT EXISTS variant (
			id varchar(36) NOT NULL PRIMARY KEY,
			handle_id varchar(36) NOT NULL,
			state varchar(16) NOT NULL,
			holder varchar(128) NOT NULL DEFAULT '',
			availability varchar(255) NOT NULL DEFAULT '',
			content mediumtext NOT NULL,
			properties mediumtext NOT NULL,
			creator varchar(128) NOT NULL,
			ts_created BIGINT NOT NULL,
			modifier varchar(128) NOT NULL,
			ts_modified BIGINT NOT NULL,
			UNIQUE (handle_id, state)
		)`,
		`CREATE TABLE IF NOT EXISTS request (
			id varchar(36) NOT NULL PRIMARY KEY,
			handle_id varchar(36) NOT NULL,
			type varchar(16) NOT NULL,
			ts_scheduled BIGINT NOT NULL DEFAULT 0,
			reason varchar(1024) NOT NULL DEFAULT '',
			username varchar(128) NOT NULL,
			ts_created BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot (
			id varchar(36) NOT NULL PRIMARY KEY,
			handle_id varchar(36) NOT NULL,
			variant_id varchar(36) NOT NULL,
			state varchar(16) NOT NULL,
			name varchar(32) NOT NULL,
			labels varchar(1024) NOT NULL DEFAULT '',
			content mediumtext NOT NULL,
			properties mediumtext NOT NULL,
			ts_created BIGINT NOT NULL,
			UNIQUE (handle_id, ts_created)
		)`,
	)

	var documentDB = &DocumentDB{}
	documentDB.DB = db
	documentDB.deleteHandle = mustPrepare(db, "DELETE FROM handle WHERE id = ?")
	documentDB.deleteHandleRequests = mustPrepare(db, "DELETE FROM request WHERE handle_id = ?")
	documentDB.deleteHandleSnapshots = mustPrepare(db, "DELETE FROM snapshot WHERE handle_id = ?")
	documentDB.deleteHandleVariants = mustPrepare(db, "DELETE FROM variant WHERE handle_id = ?")
	documentDB.deleteRequest = mustPrepare(db, "DELETE FROM request WHERE id = ?")
	documentDB.deleteVariant = mustPrepare(db, "DELETE FROM variant WHERE id = ?")
	documentDB.getDueRequests = mustPrepare(db, "SELECT "+requestColumns+" FROM request WHERE type != ? AND ts_scheduled > 0 AND ts_scheduled <= ? ORDER BY ts_scheduled")
	documentDB.getHandle = mustPrepare(db, "SELECT "+handleColumns+" FROM handle WHERE id = ? LIMIT 1")
	documentDB.getHandleByPath = mustPrepare(db, "SELECT "+handleColumns+" FROM handle WHERE path = ? LIMIT 1")
	documentDB.getHandlesBelow = mustPrepare(db, "SELECT "+handleColumns+" FROM handle WHERE path LIKE ? ORDER BY path")
	documentDB.getRequest = mustPrepare(db, "SELECT "+requestColumns+" FROM request WHERE id = ? LIMIT 1")
	documentDB.getRequests = mustPrepare(db, "SELECT "+requestColumns+" FROM request WHERE handle_id = ? ORDER BY ts_created")
	documentDB.getSnapshots = mustPrepare(db, "SELECT "+snapshotColumns+" FROM snapshot WHERE handle_id = ? ORDER BY ts_created")
	documentDB.getVariant = mustPrepare(db, "SELECT "+variantColumns+" FROM variant WHERE id = ? LIMIT 1")
	documentDB.getVariants = mustPrepare(db, "SELECT "+variantColumns+" FROM variant WHERE handle_id = ?")
	documentDB.insertHandle = mustPrepare(db, "INSERT INTO handle ("+handleColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	documentDB.insertRequest = mustPrepare(db, "INSERT INTO request ("+requestColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)")
	documentDB.insertSnapshot = mustPrepare(db, "INSERT INTO snapshot ("+snapshotColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	documentDB.insertVariant = mustPrepare(db, "INSERT INTO variant ("+variantColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	documentDB.lastSnapshot = mustPrepare(db, "SELECT COALESCE(MAX(ts_created), 0), COUNT(1) FROM snapshot WHERE handle_id = ?")
	documentDB.updateHandle = mustPrepare(db, "UPDATE handle SET path = ?, doctype = ?, discriminators = ?, summary = ?, original_path = ?, revision = revision + 1 WHERE id = ? AND revision = ?")
	documentDB.updateRequest = mustPrepare(db, "UPDATE request SET type = ?, ts_scheduled = ?, reason = ? WHERE id = ?")
	documentDB.updateVariant = mustPrepare(db, "UPDATE variant SET state = ?, holder = ?, availability = ?, content = ?, properties = ?, modifier = ?, ts_modified = ? WHERE id = ?")
	return documentDB
}

func (db *DocumentDB) Begin(ctx context.Context) (core.Tx, error) {
	tx, err := db.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &documentTx{
		db: db,
		tx: tx,
	}, nil
}

// documentTx implements core.Tx.
type documentTx struct {
	db *DocumentDB
	tx *sql.Tx
}

func (t *documentTx) Commit() error {
	return t.tx.Commit()
}

func (t *documentTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *documentTx) stmt(ctx context.Context, stmt *sql.Stmt) *sql.Stmt {
	return t.tx.StmtContext(ctx, stmt)
}

func notFound(what, key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, key, core.ErrNotFound)
	}
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// handles

func scanHandle(row scanner) (*core.Handle, error) {
	var h = &core.Handle{}
	var discriminators, summary string
	var created int64
	if err := row.Scan(&h.ID, &h.Path, &h.DocType, &discriminators, &summary, &h.OriginalPath, &h.Revision, &created); err != nil {
		return nil, err
	}
	var err error
	if h.Discriminators, err = decodeList(discriminators); err != nil {
		return nil, err
	}
	h.Summary = core.Summary(summary)
	h.Created = fromNanos(created)
	return h, nil
}

func (t *documentTx) GetHandle(ctx context.Context, id string) (*core.Handle, error) {
	h, err := scanHandle(t.stmt(ctx, t.db.getHandle).QueryRowContext(ctx, id))
	if err != nil {
		return nil, notFound("handle", id, err)
	}
	return h, nil
}

func (t *documentTx) GetHandleByPath(ctx context.Context, path string) (*core.Handle, error) {
	h, err := scanHandle(t.stmt(ctx, t.db.getHandleByPath).QueryRowContext(ctx, path))
	if err != nil {
		return nil, notFound("handle", path, err)
	}
	return h, nil
}

func (t *documentTx) GetHandlesIn(ctx context.Context, folder string) ([]*core.Handle, error) {

	var prefix = strings.TrimSuffix(folder, "/") + "/"

	rows, err := t.stmt(ctx, t.db.getHandlesBelow).QueryContext(ctx, prefix+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var handles = []*core.Handle{}
	for rows.Next() {
		h, err := scanHandle(rows)
		if err != nil {
			return nil, err
		}
		if strings.Contains(strings.TrimPrefix(h.Path, prefix), "/") {
			continue // deeper
		}
		handles = append(handles, h)
	}
	return handles, rows.Err()
}

func (t *documentTx) InsertHandle(ctx context.Context, h *core.Handle) error {
	_, err := t.stmt(ctx, t.db.insertHandle).ExecContext(ctx, h.ID, h.Path, h.DocType, encodeList(h.Discriminators), string(h.Summary), h.OriginalPath, h.Revision, nanos(h.Created))
	return err
}

func (t *documentTx) UpdateHandle(ctx context.Context, h *core.Handle) error {
	res, err := t.stmt(ctx, t.db.updateHandle).ExecContext(ctx, h.Path, h.DocType, encodeList(h.Discriminators), string(h.Summary), h.OriginalPath, h.ID, h.Revision)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("handle %s at revision %d: %w", h.ID, h.Revision, core.ErrConflict)
	}
	h.Revision++
	return nil
}

func (t *documentTx) DeleteHandle(ctx context.Context, id string) error {
	for _, stmt := range []*sql.Stmt{t.db.deleteHandleVariants, t.db.deleteHandleRequests, t.db.deleteHandleSnapshots, t.db.deleteHandle} {
		if _, err := t.stmt(ctx, stmt).ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// variants

func scanVariant(row scanner) (*core.Variant, error) {
	var v = &core.Variant{}
	var state, availability, properties string
	var created, modified int64
	if err := row.Scan(&v.ID, &v.HandleID, &state, &v.Holder, &availability, &v.Content, &properties, &v.Creator, &created, &v.Modifier, &modified); err != nil {
		return nil, err
	}
	var err error
	if v.Properties, err = decodeMap(properties); err != nil {
		return nil, err
	}
	if v.Availability, err = decodeList(availability); err != nil {
		return nil, err
	}
	v.State = core.State(state)
	v.Created = fromNanos(created)
	v.Modified = fromNanos(modified)
	return v, nil
}

func (t *documentTx) GetVariants(ctx context.Context, handleID string) ([]*core.Variant, error) {
	rows, err := t.stmt(ctx, t.db.getVariants).QueryContext(ctx, handleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var variants = []*core.Variant{}
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}
	return variants, rows.Err()
}

func (t *documentTx) GetVariant(ctx context.Context, id string) (*core.Variant, error) {
	v, err := scanVariant(t.stmt(ctx, t.db.getVariant).QueryRowContext(ctx, id))
	if err != nil {
		return nil, notFound("variant", id, err)
	}
	return v, nil
}

func (t *documentTx) InsertVariant(ctx context.Context, v *core.Variant) error {
	if !v.State.Valid() {
		return fmt.Errorf("invalid state %q", v.State)
	}
	_, err := t.stmt(ctx, t.db.insertVariant).ExecContext(ctx, v.ID, v.HandleID, string(v.State), v.Holder, encodeList(v.Availability), v.Content, encodeMap(v.Properties), v.Creator, nanos(v.Created), v.Modifier, nanos(v.Modified))
	return err
}

func (t *documentTx) UpdateVariant(ctx context.Context, v *core.Variant) error {
	if !v.State.Valid() {
		return fmt.Errorf("invalid state %q", v.State)
	}
	_, err := t.stmt(ctx, t.db.updateVariant).ExecContext(ctx, string(v.State), v.Holder, encodeList(v.Availability), v.Content, encodeMap(v.Properties), v.Modifier, nanos(v.Modified), v.ID)
	return err
}

func (t *documentTx) DeleteVariant(ctx context.Context, id string) error {
	_, err := t.stmt(ctx, t.db.deleteVariant).ExecContext(ctx, id)
	return err
}

// requests

func scanRequest(row scanner) (*core.Request, error) {
	var r = &core.Request{}
	var typ string
	var scheduled, created int64
	if err := row.Scan(&r.ID, &r.HandleID, &typ, &scheduled, &r.Reason, &r.Username, &created); err != nil {
		return nil, err
	}
	r.Type = core.RequestType(typ)
	r.Scheduled = fromNanos(scheduled)
	r.Created = fromNanos(created)
	return r, nil
}

func (t *documentTx) queryRequests(ctx context.Context, stmt *sql.Stmt, args ...interface{}) ([]*core.Request, error) {
	rows, err := t.stmt(ctx, stmt).QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests = []*core.Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (t *documentTx) GetRequests(ctx context.Context, handleID string) ([]*core.Request, error) {
	return t.queryRequests(ctx, t.db.getRequests, handleID)
}

func (t *documentTx) GetDueRequests(ctx context.Context, now time.Time) ([]*core.Request, error) {
	return t.queryRequests(ctx, t.db.getDueRequests, string(core.RequestRejected), now.UnixNano())
}

func (t *documentTx) GetRequest(ctx context.Context, id string) (*core.Request, error) {
	r, err := scanRequest(t.stmt(ctx, t.db.getRequest).QueryRowContext(ctx, id))
	if err != nil {
		return nil, notFound("request", id, err)
	}
	return r, nil
}

func (t *documentTx) InsertRequest(ctx context.Context, r *core.Request) error {
	if !r.Type.Valid() {
		return fmt.Errorf("invalid request type %q", r.Type)
	}
	_, err := t.stmt(ctx, t.db.insertRequest).ExecContext(ctx, r.ID, r.HandleID, string(r.Type), nanos(r.Scheduled), r.Reason, r.Username, nanos(r.Created))
	return err
}

func (t *documentTx) UpdateRequest(ctx context.Context, r *core.Request) error {
	if !r.Type.Valid() {
		return fmt.Errorf("invalid request type %q", r.Type)
	}
	_, err := t.stmt(ctx, t.db.updateRequest).ExecContext(ctx, string(r.Type), nanos(r.Scheduled), r.Reason, r.ID)
	return err
}

func (t *documentTx) DeleteRequest(ctx context.Context, id string) error {
	_, err := t.stmt(ctx, t.db.deleteRequest).ExecContext(ctx, id)
	return err
}

// snapshots

func scanSnapshot(row scanner) (*core.Snapshot, error) {
	var s = &core.Snapshot{}
	var state, labels, properties string
	var created int64
	if err := row.Scan(&s.ID, &s.HandleID, &s.VariantID, &state, &s.Name, &labels, &s.Content, &properties, &created); err != nil {
		return nil, err
	}
	var err error
	if s.Properties, err = decodeMap(properties); err != nil {
		return nil, err
	}
	if s.Labels, err = decodeList(labels); err != nil {
		return nil, err
	}
	s.State = core.State(state)
	s.Created = fromNanos(created)
	return s, nil
}

func (t *documentTx) GetSnapshots(ctx context.Context, handleID string) ([]*core.Snapshot, error) {
	rows, err := t.stmt(ctx, t.db.getSnapshots).QueryContext(ctx, handleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots = []*core.Snapshot{}
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}

// InsertSnapshot names the snapshot "1.<n>" and makes its creation time unique within the handle.
func (t *documentTx) InsertSnapshot(ctx context.Context, s *core.Snapshot) error {

	var last int64
	var count int
	if err := t.stmt(ctx, t.db.lastSnapshot).QueryRowContext(ctx, s.HandleID).Scan(&last, &count); err != nil {
		return err
	}

	if s.Created.IsZero() {
		s.Created = time.Now()
	}
	if s.Created.UnixNano() <= last {
		s.Created = time.Unix(0, last+1)
	}
	s.Name = fmt.Sprintf("1.%d", count)

	var labels = append([]string{s.Name}, s.Labels...)
	_, err := t.stmt(ctx, t.db.insertSnapshot).ExecContext(ctx, s.ID, s.HandleID, s.VariantID, string(s.State), s.Name, encodeList(labels), s.Content, encodeMap(s.Properties), s.Created.UnixNano())
	if err != nil {
		return err
	}
	s.Labels = labels
	return nil
}
