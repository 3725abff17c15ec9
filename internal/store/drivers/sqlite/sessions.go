package sqlite

import (
	"context"
	"time"

	"github.com/fedora-infra/openidclient/internal/store"
)

const getSessionQuery = `
SELECT username, base_url, session_id, created_at, updated_at
FROM sessions
WHERE username = ? AND base_url = ?
`

func (s *Store) Get(ctx context.Context, username, baseURL string) (store.Record, error) {
	var rec store.Record

	row := s.db.QueryRowContext(ctx, getSessionQuery, username, baseURL)
	err := row.Scan(&rec.Username, &rec.BaseURL, &rec.Token, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return store.Record{}, mapNotFound(err)
	}

	return rec, nil
}

const upsertSessionQuery = `
INSERT INTO sessions (username, base_url, session_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (username, base_url)
DO UPDATE SET session_id = excluded.session_id, updated_at = excluded.updated_at
`

func (s *Store) Upsert(ctx context.Context, rec store.Record) error {
	now := time.Now().UTC()
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}

	_, err := s.db.ExecContext(ctx, upsertSessionQuery,
		rec.Username, rec.BaseURL, rec.Token, createdAt, updatedAt)
	return err
}

const deleteSessionQuery = `
DELETE FROM sessions
WHERE username = ? AND base_url = ?
`

func (s *Store) Delete(ctx context.Context, username, baseURL string) error {
	_, err := s.db.ExecContext(ctx, deleteSessionQuery, username, baseURL)
	return err
}
