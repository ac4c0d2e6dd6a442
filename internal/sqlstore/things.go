package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/infobase/internal/codec"
	"github.com/roach88/infobase/internal/ir"
	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/querysql"
	"github.com/roach88/infobase/internal/store"
	"github.com/roach88/infobase/internal/thing"
)

// thingColumns selects everything needed to rebuild a Thing from a
// versions row joined with its things row.
const thingColumns = "v.key, v.data, v.revision, v.author, v.created, t.latest_revision, t.created"

var thingsTable = querysql.Table{
	Select: thingColumns,
	From:   "things t JOIN versions v ON v.thing_id = t.id AND v.revision = t.latest_revision",
	Columns: map[string]string{
		query.FieldType: "t.type = ?",
		query.FieldKey:  "t.key = ?",
	},
	Property: "EXISTS (SELECT 1 FROM thing_props p WHERE p.thing_id = t.id AND p.name = ? AND p.value = ?)",
	OrderBy:  "t.written DESC",
}

var versionsTable = querysql.Table{
	Select: "key, revision, author, ip, comment, kind, change_id, created",
	From:   "versions",
	Columns: map[string]string{
		query.FieldKey:    "key = ?",
		query.FieldAuthor: "author = ?",
	},
	OrderBy: "id DESC",
}

type thingRow struct {
	key, data       string
	revision        int
	author, created string
	latest          int
	firstCreated    string
}

func scanThingRow(sc interface{ Scan(...any) error }) (thingRow, error) {
	var r thingRow
	err := sc.Scan(&r.key, &r.data, &r.revision, &r.author, &r.created, &r.latest, &r.firstCreated)
	return r, err
}

// decode rebuilds the Thing of r, bound to s.
func (s *Store) decode(r thingRow) (*thing.Thing, error) {
	t, err := codec.Unmarshal(s, r.key, []byte(r.data))
	if err != nil {
		return nil, fmt.Errorf("decode %s@%d: %w", r.key, r.revision, err)
	}
	created, err := parseTime(r.firstCreated)
	if err != nil {
		return nil, err
	}
	modified, err := parseTime(r.created)
	if err != nil {
		return nil, err
	}
	t.Metadata = thing.Metadata{
		Revision:       r.revision,
		LatestRevision: r.latest,
		Created:        created,
		LastModified:   modified,
		LastAuthor:     r.author,
	}
	return t, nil
}

// Get returns the latest revision of key.
func (s *Store) Get(ctx context.Context, key string) (*thing.Thing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+thingColumns+`
		FROM things t
		JOIN versions v ON v.thing_id = t.id AND v.revision = t.latest_revision
		WHERE t.key = ?
	`, key)
	r, err := scanThingRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return s.decode(r)
}

// GetRevision returns revision rev of key.
func (s *Store) GetRevision(ctx context.Context, key string, rev int) (*thing.Thing, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+thingColumns+`
		FROM versions v
		JOIN things t ON t.id = v.thing_id
		WHERE v.key = ? AND v.revision = ?
	`, key, rev)
	r, err := scanThingRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s@%d: %w", key, rev, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s@%d: %w", key, rev, err)
	}
	return s.decode(r)
}

// GetMany returns the existing Things among keys, in input order.
func (s *Store) GetMany(ctx context.Context, keys []string) ([]*thing.Thing, error) {
	return store.GetMany(ctx, s, keys)
}

// ThingRecords lists matching Things, most recently written first.
func (s *Store) ThingRecords(ctx context.Context, q query.Query) ([]*thing.Thing, error) {
	if err := q.Restrict(query.FieldType, query.FieldKey, query.AnyProperty); err != nil {
		return nil, fmt.Errorf("things: %w", err)
	}
	sqlText, params, err := querysql.NewSQLCompiler(thingsTable).Compile(q)
	if err != nil {
		return nil, fmt.Errorf("things: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query things: %w", err)
	}
	defer rows.Close()

	var found []thingRow
	for rows.Next() {
		r, err := scanThingRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thing: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate things: %w", err)
	}

	things := make([]*thing.Thing, 0, len(found))
	for _, r := range found {
		t, err := s.decode(r)
		if err != nil {
			return nil, err
		}
		things = append(things, t)
	}
	return things, nil
}

// Things lists the keys of matching Things.
func (s *Store) Things(ctx context.Context, q query.Query) ([]string, error) {
	things, err := s.ThingRecords(ctx, q)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(things))
	for i, t := range things {
		keys[i] = t.Key
	}
	return keys, nil
}

// Versions lists revisions, most recent first.
func (s *Store) Versions(ctx context.Context, q query.Query) ([]store.Version, error) {
	if err := q.Restrict(query.FieldKey, query.FieldAuthor); err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}
	sqlText, params, err := querysql.NewSQLCompiler(versionsTable).Compile(q)
	if err != nil {
		return nil, fmt.Errorf("versions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	versions := []store.Version{}
	for rows.Next() {
		var v store.Version
		var created string
		if err := rows.Scan(&v.Key, &v.Revision, &v.Author, &v.IP, &v.Comment, &v.Kind, &v.ChangeID, &created); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		if v.Created, err = parseTime(created); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return versions, nil
}

// Write commits req in one transaction.
func (s *Store) Write(ctx context.Context, req store.WriteRequest) (*store.Change, error) {
	data, err := store.NormalizeData(req.Data)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	dataJSON, err := ir.MarshalCanonical(data)
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("write: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	refs, err := store.PlanWrite(req, func(key string) (int, error) {
		var latest int
		err := tx.QueryRowContext(ctx, `SELECT latest_revision FROM things WHERE key = ?`, key).Scan(&latest)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return latest, err
	})
	if err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	contents := make([]*thing.Thing, len(req.Mutations))
	encoded := make([][]byte, len(req.Mutations))
	for i, m := range req.Mutations {
		contents[i] = m.Content(s)
		if encoded[i], err = codec.Marshal(contents[i]); err != nil {
			return nil, fmt.Errorf("write %s: %w", m.Key, err)
		}
	}

	now := s.clock.Now()
	change := &store.Change{
		ID:        store.NewChangeID(now),
		Kind:      store.ChangeKind(req),
		Author:    req.Author,
		IP:        req.IP,
		Timestamp: now,
		Comment:   req.Comment,
		Changes:   refs,
		Data:      data,
	}
	ts := formatTime(now)

	res, err := tx.ExecContext(ctx, `
		INSERT INTO changes (id, kind, author, ip, timestamp, comment, data)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, change.ID, change.Kind, change.Author, change.IP, ts, change.Comment, string(dataJSON))
	if err != nil {
		return nil, fmt.Errorf("write: insert change: %w", err)
	}
	changeSeq, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("write: change seq: %w", err)
	}

	for i, ref := range refs {
		if err := s.writeRevision(ctx, tx, change, changeSeq, i, ref, contents[i], encoded[i], ts); err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("write %s: %w", ref.Key, store.ErrWriteConflict)
			}
			return nil, fmt.Errorf("write %s: %w", ref.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("write: commit: %w", err)
	}

	s.logger.DebugContext(ctx, "write committed",
		"change", change.ID,
		"kind", change.Kind,
		"keys", len(refs),
	)
	return change, nil
}

// writeRevision stores one revision, moves the key to the front of the
// write order and rebuilds its property index.
func (s *Store) writeRevision(ctx context.Context, tx *sql.Tx, change *store.Change, changeSeq int64, pos int, ref store.ChangeRef, content *thing.Thing, encoded []byte, ts string) error {
	var thingID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO things (key, type, latest_revision, created, written)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(written), 0) + 1 FROM things))
		ON CONFLICT(key) DO UPDATE SET
			type = excluded.type,
			latest_revision = excluded.latest_revision,
			written = excluded.written
		WHERE things.latest_revision = excluded.latest_revision - 1
		RETURNING id
	`, ref.Key, content.TypeKey(), ref.Revision, ts).Scan(&thingID)
	if errors.Is(err, sql.ErrNoRows) {
		// The guard rejected the update: someone else moved the key.
		return fmt.Errorf("revision %d: %w", ref.Revision, store.ErrWriteConflict)
	}
	if err != nil {
		return fmt.Errorf("upsert thing: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO versions (thing_id, key, revision, data, author, ip, comment, kind, change_id, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, thingID, ref.Key, ref.Revision, string(encoded), change.Author, change.IP, change.Comment, change.Kind, change.ID, ts); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM thing_props WHERE thing_id = ?`, thingID); err != nil {
		return fmt.Errorf("clear props: %w", err)
	}
	for _, p := range store.IndexPairs(store.ThingIndex(content)) {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO thing_props (thing_id, name, value) VALUES (?, ?, ?)
		`, thingID, p[0], p[1]); err != nil {
			return fmt.Errorf("insert prop: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO change_keys (change_seq, position, key, revision) VALUES (?, ?, ?, ?)
	`, changeSeq, pos, ref.Key, ref.Revision); err != nil {
		return fmt.Errorf("insert change key: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
