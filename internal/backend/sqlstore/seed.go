package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/starford/vouch/internal/apperr"
	"github.com/starford/vouch/internal/backend"
	"github.com/starford/vouch/internal/models"
)

const seedChecksumKey = "seed_checksum"

// SeedChecksum returns the checksum of the last applied seed, or "" if none.
func (s *Store) SeedChecksum(ctx context.Context) (string, error) {
	query, args, err := s.sq.Select("value").From("vouch_meta").Where(squirrel.Eq{"key": seedChecksumKey}).ToSql()
	if err != nil {
		return "", fmt.Errorf("sqlstore: build meta query: %w", err)
	}
	var v string
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("sqlstore: seed checksum: %w", err)
	}
	return v, nil
}

// ApplySeed upserts every list and item in one transaction and records
// checksum. Rows absent from lists are left untouched. Items must be ordered so
// a parent precedes its children.
func (s *Store) ApplySeed(ctx context.Context, lists []backend.SeedList, checksum string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	for _, l := range lists {
		listID, err := s.ensureList(ctx, tx, l.Name)
		if err != nil {
			return err
		}
		for _, it := range l.Items {
			if err := s.upsertItem(ctx, tx, listID, it); err != nil {
				return fmt.Errorf("sqlstore: seed %s/%s: %w", l.Name, it.Name, err)
			}
		}
	}

	query, args, err := s.sq.Insert("vouch_meta").
		Columns("key", "value").
		Values(seedChecksumKey, checksum).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("sqlstore: build meta upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlstore: store seed checksum: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ensureList(ctx context.Context, tx *sql.Tx, name string) (string, error) {
	id, err := s.listID(ctx, tx, name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	id = uuid.NewString()
	query, args, err := s.sq.Insert("lists").Columns("id", "name").Values(id, name).ToSql()
	if err != nil {
		return "", fmt.Errorf("sqlstore: build list insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("sqlstore: insert list %q: %w", name, err)
	}
	return id, nil
}

func (s *Store) upsertItem(ctx context.Context, tx *sql.Tx, listID string, it backend.SeedItem) error {
	query, args, err := s.sq.Insert("list_items").
		Columns("id", "list_id", "name", "code_name", "parent_id", "sort_order", "created_at").
		Values(it.ID, listID, it.Name, models.StringPtr(it.CodeName), models.StringPtr(it.ParentID),
			it.SortOrder, s.timestamp()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			list_id    = excluded.list_id,
			name       = excluded.name,
			code_name  = excluded.code_name,
			parent_id  = excluded.parent_id,
			sort_order = excluded.sort_order`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}
