package sqlstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/querysql"
	"github.com/roach88/infobase/internal/store"
)

const changeColumns = "c.seq, c.id, c.kind, c.author, c.ip, c.timestamp, c.comment, c.data"

var changesTable = querysql.Table{
	Select: changeColumns,
	From:   "changes c",
	Columns: map[string]string{
		query.FieldKey:    "EXISTS (SELECT 1 FROM change_keys ck WHERE ck.change_seq = c.seq AND ck.key = ?)",
		query.FieldAuthor: "c.author = ?",
		query.FieldKind:   "c.kind = ?",
	},
	OrderBy: "c.seq DESC",
}

type changeRow struct {
	seq    int64
	change *store.Change
}

func scanChange(sc interface{ Scan(...any) error }) (changeRow, error) {
	var (
		r        changeRow
		c        store.Change
		ts, data string
	)
	if err := sc.Scan(&r.seq, &c.ID, &c.Kind, &c.Author, &c.IP, &ts, &c.Comment, &data); err != nil {
		return r, err
	}
	var err error
	if c.Timestamp, err = parseTime(ts); err != nil {
		return r, err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	if err := dec.Decode(&c.Data); err != nil {
		return r, fmt.Errorf("decode change data: %w", err)
	}
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	r.change = &c
	return r, nil
}

// RecentChanges lists changes, most recent first.
func (s *Store) RecentChanges(ctx context.Context, cq store.ChangeQuery) ([]*store.Change, error) {
	sqlText, params, err := querysql.NewSQLCompiler(changesTable).Compile(cq.Query())
	if err != nil {
		return nil, fmt.Errorf("recent changes: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var found []changeRow
	for rows.Next() {
		r, err := scanChange(rows)
		if err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	rows.Close()

	changes := make([]*store.Change, 0, len(found))
	for _, r := range found {
		if err := s.loadChangeKeys(ctx, r); err != nil {
			return nil, err
		}
		changes = append(changes, r.change)
	}
	return changes, nil
}

// GetChange returns the change with the given id.
func (s *Store) GetChange(ctx context.Context, id string) (*store.Change, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+changeColumns+` FROM changes c WHERE c.id = ?`, id)
	r, err := scanChange(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get change %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get change %s: %w", id, err)
	}
	if err := s.loadChangeKeys(ctx, r); err != nil {
		return nil, err
	}
	return r.change, nil
}

// loadChangeKeys fills r.change.Changes in write order. It must not run
// while another result set is open: the pool has one connection.
func (s *Store) loadChangeKeys(ctx context.Context, r changeRow) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, revision FROM change_keys
		WHERE change_seq = ?
		ORDER BY position ASC
	`, r.seq)
	if err != nil {
		return fmt.Errorf("query change keys: %w", err)
	}
	defer rows.Close()

	r.change.Changes = []store.ChangeRef{}
	for rows.Next() {
		var ref store.ChangeRef
		if err := rows.Scan(&ref.Key, &ref.Revision); err != nil {
			return fmt.Errorf("scan change key: %w", err)
		}
		r.change.Changes = append(r.change.Changes, ref)
	}
	return rows.Err()
}
