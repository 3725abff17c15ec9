package openidauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fedora-infra/openidclient/internal/store"
	"github.com/fedora-infra/openidclient/internal/store/drivers/sqlite"
)

// Kind separates the two tokens a logged-in client holds: the session with
// the service itself and the session with the identity provider.
type Kind int

const (
	// KindService keys the token for the service the client talks to.
	KindService Kind = iota

	// KindProvider keys the token for the identity provider. One provider
	// session unlocks every service that trusts that provider.
	KindProvider
)

// SessionKey identifies one token slot in the session cache.
type SessionKey struct {
	BaseURL  string
	Username string
	Kind     Kind
}

// resolveKey maps a token slot onto its cache key. Service tokens key off
// the service being talked to, so baseURLOverride lets a call aimed at a
// sibling service use its own slot. Provider tokens always key off the
// configured provider, whatever service triggered the lookup.
func resolveKey(cfg Config, username, baseURLOverride string, kind Kind) SessionKey {
	key := SessionKey{Username: username, Kind: kind}
	if kind == KindProvider {
		key.BaseURL = cfg.ProviderBaseURL
		return key
	}
	if baseURLOverride != "" {
		key.BaseURL = baseURLOverride
		return key
	}
	key.BaseURL = cfg.BaseURL
	return key
}

// sessionCache layers an in-memory token map over the on-disk store. Memory
// answers first; the disk is consulted at most once per key until
// invalidate resets that marker. Methods are single-goroutine, like the
// Client that owns the cache.
type sessionCache struct {
	logger *slog.Logger
	disk   store.Store // nil when persistence is off

	tokens  map[SessionKey]string
	checked map[SessionKey]bool
}

// newSessionCache builds the cache, opening the on-disk store when
// configured. Storage trouble is not fatal: it logs one warning and leaves
// the cache memory-only.
func newSessionCache(cfg Config) *sessionCache {
	cache := &sessionCache{
		logger:  cfg.Logger,
		tokens:  make(map[SessionKey]string),
		checked: make(map[SessionKey]bool),
	}
	if cfg.DisableCache {
		return cache
	}

	disk, err := openSessionStore(cfg.CachePath)
	if err != nil {
		cache.logger.Warn("session cache degraded to memory only",
			"path", cfg.CachePath, "error", err)
		return cache
	}
	cache.disk = disk
	return cache
}

// openSessionStore opens the sqlite session cache, creating the directory
// and schema on first use. The directory is private: session tokens are
// credentials.
func openSessionStore(path string) (store.Store, error) {
	if path == "" {
		return nil, errors.New("no cache path (home directory unavailable)")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	db, err := sqlite.NewStore(sqlite.DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prepare cache schema: %w", err)
	}
	return db, nil
}

// get answers from memory, falling back to one disk read per key. Anonymous
// keys never reach the disk: without a username there is nothing stable to
// file the token under.
func (s *sessionCache) get(ctx context.Context, key SessionKey) (string, bool) {
	if token, ok := s.tokens[key]; ok {
		return token, true
	}
	if s.disk == nil || key.Username == "" || s.checked[key] {
		return "", false
	}
	s.checked[key] = true

	rec, err := s.disk.Get(ctx, key.Username, key.BaseURL)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("session cache read failed", "base_url", key.BaseURL, "error", err)
		}
		return "", false
	}
	s.tokens[key] = rec.Token
	return rec.Token, true
}

// set records a token in memory and, for named users, on disk. A failed
// disk write keeps the token usable in-process instead of failing the login
// that produced it.
func (s *sessionCache) set(ctx context.Context, key SessionKey, token string) {
	s.tokens[key] = token
	s.checked[key] = true
	if s.disk == nil || key.Username == "" {
		return
	}

	rec := store.Record{Username: key.Username, BaseURL: key.BaseURL, Token: token}
	if err := s.disk.Upsert(ctx, rec); err != nil {
		s.logger.Warn("session cache write failed", "base_url", key.BaseURL, "error", err)
	}
}

// delete removes a token from memory and disk. Deleting an absent token is
// a no-op.
func (s *sessionCache) delete(ctx context.Context, key SessionKey) error {
	delete(s.tokens, key)
	s.checked[key] = true
	if s.disk == nil || key.Username == "" {
		return nil
	}
	if err := s.disk.Delete(ctx, key.Username, key.BaseURL); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// invalidate clears the in-memory copy alone and forces the next get to
// consult the disk again.
func (s *sessionCache) invalidate(key SessionKey) {
	delete(s.tokens, key)
	delete(s.checked, key)
}

func (s *sessionCache) close() error {
	if s.disk == nil {
		return nil
	}
	return s.disk.Close()
}
