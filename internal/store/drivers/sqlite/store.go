package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fedora-infra/openidclient/internal/store"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	dsn string
}

// DSN builds the connection string for a database file. The pragmas ride in
// the DSN so every pooled connection gets them, which plain PRAGMA execs
// would not guarantee.
func DSN(path string) string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// NewStore opens the session database. The file is touched immediately so an
// unreadable or corrupt file fails here, where the caller can decide to fall
// back to memory-only operation, rather than on the first query.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One session record changes at a time; a single connection avoids
	// SQLITE_BUSY races between the pool's writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:  db,
		dsn: dsn,
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
