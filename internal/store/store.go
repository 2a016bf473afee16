// Package store implements the durable local store: named collections of
// JSON records keyed by string id, backed by SQLite. It is the source of
// truth for everything the UI renders; remote sync only ever catches up to
// or overwrites what is here.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/MKhiriev/go-organizer/internal/config"
	"github.com/MKhiriev/go-organizer/internal/logger"
	"github.com/MKhiriev/go-organizer/migrations"
)

var sb = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// Store is the shared local store. All repositories hold the same *Store
// and operate on disjoint collections, so no cross-repository locking is
// needed beyond SQLite's own serialization.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open opens (creating if necessary) the SQLite database at cfg.Path and
// runs any pending schema migrations. Every failure is wrapped in
// [ErrStorageFatal]: the caller must treat it as fatal for durable
// operation and fall back to [OpenInMemory].
func Open(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Store, error) {
	if cfg.Path == ":memory:" {
		return OpenInMemory(ctx, log)
	}

	if err := createLocalDBFileIfNotExists(cfg.Path); err != nil {
		log.Err(err).Str("func", "store.Open").Msg("error creating database file")
		return nil, fmt.Errorf("%w: create database file: %w", ErrStorageFatal, err)
	}

	return open(ctx, cfg.Path, log)
}

// OpenInMemory opens a transient store that vanishes with the process. Used
// as the degraded mode when the durable store cannot be opened, and by
// tests.
func OpenInMemory(ctx context.Context, log *logger.Logger) (*Store, error) {
	return open(ctx, ":memory:", log)
}

func open(ctx context.Context, dsn string, log *logger.Logger) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Err(err).Str("func", "store.open").Msg("error connecting database")
		return nil, fmt.Errorf("%w: open connection: %w", ErrStorageFatal, err)
	}

	// One connection: sqlite is single-writer, and the pool must not fan an
	// in-memory database out over several private connections.
	conn.SetMaxOpenConns(1)

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		log.Err(err).Str("func", "store.open").Msg("error connecting database (ping)")
		return nil, fmt.Errorf("%w: ping: %w", ErrStorageFatal, err)
	}

	if err = migrations.Migrate(conn); err != nil {
		conn.Close()
		log.Err(err).Str("func", "store.open").Msg("error migrating database")
		return nil, fmt.Errorf("%w: migrate: %w", ErrStorageFatal, err)
	}
	log.Debug().Str("func", "store.open").Msg("local store opened")

	return &Store{db: conn, logger: log}, nil
}

func createLocalDBFileIfNotExists(dbFile string) error {
	if _, err := os.Stat(dbFile); os.IsNotExist(err) {
		if dir := filepath.Dir(dbFile); dir != "." {
			if err = os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("error creating DB directory: %w", err)
			}
		}
		f, err := os.Create(dbFile)
		if err != nil {
			return fmt.Errorf("error creating DB file: %w", err)
		}
		f.Close()
	}

	return nil
}

// Get returns the record payload, or [ErrNotFound].
func (s *Store) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	query, args, err := sb.Select("payload").
		From("records").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get query: %w", err)
	}

	var payload []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.logger.Err(err).
			Str("func", "Store.Get").
			Str("collection", collection).
			Str("id", id).
			Msg("failed to query record")
		return nil, fmt.Errorf("get record %s/%s: %w", collection, id, err)
	}

	return payload, nil
}

// GetAll returns every payload in the collection. Order is not guaranteed;
// callers sort by a domain comparator.
func (s *Store) GetAll(ctx context.Context, collection string) ([]json.RawMessage, error) {
	query, args, err := sb.Select("payload").
		From("records").
		Where(sq.Eq{"collection": collection}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get-all query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).
			Str("func", "Store.GetAll").
			Str("collection", collection).
			Msg("failed to query records")
		return nil, fmt.Errorf("get all records %s: %w", collection, err)
	}
	defer rows.Close()

	var payloads []json.RawMessage
	for rows.Next() {
		var payload []byte
		if err = rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		payloads = append(payloads, payload)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}

	return payloads, nil
}

// Dump returns every record in the collection keyed by id. Used by the
// migration and snapshot paths, which need ids without parsing payloads.
func (s *Store) Dump(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	query, args, err := sb.Select("id", "payload").
		From("records").
		Where(sq.Eq{"collection": collection}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build dump query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Err(err).
			Str("func", "Store.Dump").
			Str("collection", collection).
			Msg("failed to query records")
		return nil, fmt.Errorf("dump records %s: %w", collection, err)
	}
	defer rows.Close()

	records := make(map[string]json.RawMessage)
	for rows.Next() {
		var id string
		var payload []byte
		if err = rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("scan record row: %w", err)
		}
		records[id] = payload
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record rows: %w", err)
	}

	return records, nil
}

// Put upserts the record payload under (collection, id). Idempotent.
func (s *Store) Put(ctx context.Context, collection, id string, payload json.RawMessage) error {
	query, args, err := putQuery(collection, id, payload)
	if err != nil {
		return fmt.Errorf("build put query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).
			Str("func", "Store.Put").
			Str("collection", collection).
			Str("id", id).
			Msg("failed to upsert record")
		return fmt.Errorf("put record %s/%s: %w", collection, id, err)
	}

	return nil
}

// Delete removes the record if present. Deleting a missing id is not an
// error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	query, args, err := sb.Delete("records").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).
			Str("func", "Store.Delete").
			Str("collection", collection).
			Str("id", id).
			Msg("failed to delete record")
		return fmt.Errorf("delete record %s/%s: %w", collection, id, err)
	}

	return nil
}

// Clear removes every record in the collection. Used only when a remote
// snapshot replaces the collection wholesale.
func (s *Store) Clear(ctx context.Context, collection string) error {
	query, args, err := sb.Delete("records").
		Where(sq.Eq{"collection": collection}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Err(err).
			Str("func", "Store.Clear").
			Str("collection", collection).
			Msg("failed to clear collection")
		return fmt.Errorf("clear collection %s: %w", collection, err)
	}

	return nil
}

// ReplaceAll atomically replaces the whole collection with records. After
// it returns the collection holds exactly the given records, whatever was
// there before.
func (s *Store) ReplaceAll(ctx context.Context, collection string, records map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace transaction: %w", err)
	}
	defer tx.Rollback()

	query, args, err := sb.Delete("records").
		Where(sq.Eq{"collection": collection}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear query: %w", err)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("clear collection %s in transaction: %w", collection, err)
	}

	for id, payload := range records {
		query, args, err = putQuery(collection, id, payload)
		if err != nil {
			return fmt.Errorf("build put query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("put record %s/%s in transaction: %w", collection, id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		s.logger.Err(err).
			Str("func", "Store.ReplaceAll").
			Str("collection", collection).
			Msg("failed to commit snapshot replace")
		return fmt.Errorf("commit replace of %s: %w", collection, err)
	}

	return nil
}

// Collections lists the collection names known to this store version.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	query, _, err := sb.Select("name").From("collections").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build collections query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection row: %w", err)
		}
		names = append(names, name)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection rows: %w", err)
	}

	return names, nil
}

// Version reports the store's schema version.
func (s *Store) Version() (int64, error) {
	return migrations.Version(s.db)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func putQuery(collection, id string, payload json.RawMessage) (string, []any, error) {
	return sb.Insert("records").
		Columns("collection", "id", "payload", "updated_at").
		Values(collection, id, string(payload), time.Now().UTC()).
		Suffix("ON CONFLICT (collection, id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at").
		ToSql()
}
