package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/infobase/internal/query"
	"github.com/roach88/infobase/internal/querysql"
	"github.com/roach88/infobase/internal/store"
)

// The type filter has no column of its own: it compiles to the property
// fragment, matching the document's top-level "type" field.
var docsTable = querysql.Table{
	Select: "d.key, d.value",
	From:   "docs d",
	Columns: map[string]string{
		query.FieldKey: "d.key = ?",
	},
	Property: "EXISTS (SELECT 1 FROM doc_props p WHERE p.doc_key = d.key AND p.name = ? AND p.value = ?)",
	OrderBy:  "d.written DESC",
}

// Put stores doc under key, making it the most recent document.
func (s *Store) Put(ctx context.Context, key string, doc []byte) error {
	if err := store.CheckDoc(key, doc); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put %s: begin tx: %w", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO docs (key, value, written)
		VALUES (?, ?, (SELECT COALESCE(MAX(written), 0) + 1 FROM docs))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, written = excluded.written
	`, key, doc); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM doc_props WHERE doc_key = ?`, key); err != nil {
		return fmt.Errorf("put %s: clear props: %w", key, err)
	}
	for _, p := range store.IndexPairs(store.DocIndex(doc)) {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO doc_props (doc_key, name, value) VALUES (?, ?, ?)
		`, key, p[0], p[1]); err != nil {
			return fmt.Errorf("put %s: insert prop: %w", key, err)
		}
	}
	return tx.Commit()
}

// GetDoc returns the document stored under key.
func (s *Store) GetDoc(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM docs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get doc %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get doc %s: %w", key, err)
	}
	return v, nil
}

// Delete removes key and its index rows.
func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM docs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("delete doc %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete doc %s: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("delete doc %s: %w", key, store.ErrNotFound)
	}
	return nil
}

// Has reports whether key holds a document.
func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM docs WHERE key = ?)`, key).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("has doc %s: %w", key, err)
	}
	return ok, nil
}

// Items lists matching documents, most recently put first.
func (s *Store) Items(ctx context.Context, q query.Query) ([]store.Document, error) {
	if err := q.Restrict(query.FieldType, query.FieldKey, query.AnyProperty); err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}
	sqlText, params, err := querysql.NewSQLCompiler(docsTable).Compile(q)
	if err != nil {
		return nil, fmt.Errorf("items: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query docs: %w", err)
	}
	defer rows.Close()

	items := []store.Document{}
	for rows.Next() {
		var d store.Document
		var v []byte
		if err := rows.Scan(&d.Key, &v); err != nil {
			return nil, fmt.Errorf("scan doc: %w", err)
		}
		d.Value = v
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate docs: %w", err)
	}
	return items, nil
}

// Keys lists the keys of matching documents.
func (s *Store) Keys(ctx context.Context, q query.Query) ([]string, error) {
	items, err := s.Items(ctx, q)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys, nil
}

// Values lists the payloads of matching documents.
func (s *Store) Values(ctx context.Context, q query.Query) ([][]byte, error) {
	items, err := s.Items(ctx, q)
	if err != nil {
		return nil, err
	}
	values := make([][]byte, len(items))
	for i, it := range items {
		values[i] = it.Value
	}
	return values, nil
}

// Clear removes every document.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clear docs: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM doc_props`); err != nil {
		return fmt.Errorf("clear docs: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM docs`); err != nil {
		return fmt.Errorf("clear docs: %w", err)
	}
	return tx.Commit()
}
