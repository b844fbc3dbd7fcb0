package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/starford/vouch/internal/apperr"
	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/models"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ListID implements backend.TaxonomySource.
func (s *Store) ListID(ctx context.Context, name string) (string, error) {
	return s.listID(ctx, s.conn, name)
}

func (s *Store) listID(ctx context.Context, q queryer, name string) (string, error) {
	query, args, err := s.sq.Select("id").From("lists").Where(squirrel.Eq{"name": name}).ToSql()
	if err != nil {
		return "", fmt.Errorf("sqlstore: build list query: %w", err)
	}
	var id string
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("sqlstore: list %q: %w", name, apperr.ErrNotFound)
		}
		return "", fmt.Errorf("sqlstore: list %q: %w", name, err)
	}
	return id, nil
}

// ListItems implements backend.TaxonomySource. Items without a sort order come
// after ordered ones on every dialect.
func (s *Store) ListItems(ctx context.Context, iq backend.ItemQuery) ([]models.HierarchyItem, error) {
	b := s.sq.Select("id", "name", "code_name", "parent_id", "list_id", "sort_order", "metadata").
		From("list_items").
		Where(squirrel.Eq{"list_id": iq.ListID}).
		OrderBy("CASE WHEN sort_order IS NULL THEN 1 ELSE 0 END", "sort_order", "name", "id")

	switch iq.Parent {
	case backend.NoParent:
		b = b.Where(squirrel.Eq{"parent_id": nil})
	case backend.ParentEquals:
		b = b.Where(squirrel.Eq{"parent_id": iq.ParentID})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: build items query: %w", err)
	}
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list items: %w", err)
	}
	defer rows.Close()

	var out []models.HierarchyItem
	for rows.Next() {
		var (
			it       models.HierarchyItem
			codeName sql.NullString
			parentID sql.NullString
			order    sql.NullInt64
			meta     string
		)
		if err := rows.Scan(&it.ID, &it.Name, &codeName, &parentID, &it.ListID, &order, &meta); err != nil {
			return nil, fmt.Errorf("sqlstore: scan item: %w", err)
		}
		if codeName.Valid {
			it.CodeName = &codeName.String
		}
		if parentID.Valid && parentID.String != "" {
			it.ParentID = &parentID.String
		}
		if order.Valid {
			it.SortOrder = models.IntPtr(int(order.Int64))
		}
		it.Metadata = decodeMetadata(meta)
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetOrCreateArea implements backend.ItemCreator.
func (s *Store) GetOrCreateArea(ctx context.Context, name string) (string, error) {
	return s.getOrCreate(ctx, models.KindArea, name)
}

// GetOrCreateSubcategory implements backend.ItemCreator.
func (s *Store) GetOrCreateSubcategory(ctx context.Context, name string) (string, error) {
	return s.getOrCreate(ctx, models.KindSubcategory, name)
}

// getOrCreate returns the oldest item in list whose name matches ignoring case,
// inserting a user generated top-level item when none does.
func (s *Store) getOrCreate(ctx context.Context, list, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("sqlstore: get or create %s: empty name", list)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("sqlstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	listID, err := s.listID(ctx, tx, list)
	if err != nil {
		return "", err
	}
	if query, args, ok := s.nameLock(listID, name); ok {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return "", fmt.Errorf("sqlstore: lock %s %q: %w", list, name, err)
		}
	}

	query, args, err := s.sq.Select("id").From("list_items").
		Where(squirrel.Eq{"list_id": listID}).
		Where(squirrel.Expr("lower(name) = lower(?)", name)).
		OrderBy("created_at", "id").
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("sqlstore: build lookup: %w", err)
	}
	var id string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case err == nil:
		return id, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("sqlstore: lookup %s %q: %w", list, name, err)
	}

	id = uuid.NewString()
	meta, _ := json.Marshal(map[string]any{models.MetaUserGenerated: true})
	query, args, err = s.sq.Insert("list_items").
		Columns("id", "list_id", "name", "metadata", "created_at").
		Values(id, listID, name, string(meta), s.timestamp()).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("sqlstore: build insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("sqlstore: insert %s %q: %w", list, name, err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("sqlstore: commit: %w", err)
	}
	return id, nil
}

// nameLock returns the statement that serialises get-or-create of one name
// across connections. Postgres takes a transaction scoped advisory lock keyed
// on the list and the lowercased name. SQLite needs none: its transactions
// start IMMEDIATE, so writers already run one at a time.
func (s *Store) nameLock(listID, name string) (string, []any, bool) {
	if s.dialect != backend.DriverPostgres {
		return "", nil, false
	}
	query, args, err := s.sq.Select().
		Column(squirrel.Expr("pg_advisory_xact_lock(hashtext(?))", listID+":"+strings.ToLower(name))).
		ToSql()
	if err != nil {
		return "", nil, false
	}
	return query, args, true
}

func decodeMetadata(raw string) map[string]any {
	if raw == "" || raw == "{}" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}
