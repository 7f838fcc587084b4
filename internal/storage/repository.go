// Package storage keeps a local SQLite copy of the record collections so
// the dashboard can be served without reaching the primary record store.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"renohub/internal/log"
	"renohub/internal/records"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
	now    func() time.Time
}

var (
	_ records.Store  = (*SQLiteRepository)(nil)
	_ records.Writer = (*SQLiteRepository)(nil)
)

// SyncRun describes the last copy of a collection.
type SyncRun struct {
	Collection  string
	RecordCount int
	SyncedAt    time.Time
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
		now:    time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Replace swaps the stored copy of a collection in one transaction and
// records the sync time.
func (r *SQLiteRepository) Replace(ctx context.Context, collectionID string, recs []records.Record) error {
	if collectionID == "" {
		return errors.New("collection id is required")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE collection = ?`, collectionID); err != nil {
		return fmt.Errorf("clear collection %s: %w", collectionID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (collection, id, url, position, properties) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, id) DO UPDATE SET url = excluded.url, position = excluded.position, properties = excluded.properties`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range recs {
		props, err := json.Marshal(rec.Properties)
		if err != nil {
			return fmt.Errorf("encode record %s: %w", rec.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collectionID, rec.ID, rec.URL, i, string(props)); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sync_runs (collection, record_count, synced_at) VALUES (?, ?, ?)
		 ON CONFLICT (collection) DO UPDATE SET record_count = excluded.record_count, synced_at = excluded.synced_at`,
		collectionID, len(recs), r.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	r.logger.InfoContext(ctx, "Collection mirrored",
		log.FieldCollection, collectionID, log.FieldRecordCount, len(recs))
	return nil
}

// FetchAll returns the stored copy in source order with the query applied.
// A collection that was never mirrored yields ErrCollectionNotFound.
func (r *SQLiteRepository) FetchAll(ctx context.Context, collectionID string, q records.Query) ([]records.Record, error) {
	if _, err := r.LastSync(ctx, collectionID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, url, properties FROM records WHERE collection = ? ORDER BY position`, collectionID)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collectionID, err)
	}
	defer rows.Close()

	out := []records.Record{}
	for rows.Next() {
		var rec records.Record
		var props string
		if err := rows.Scan(&rec.ID, &rec.URL, &props); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &rec.Properties); err != nil {
			r.logger.WarnContext(ctx, "Skipping undecodable record",
				log.FieldCollection, collectionID, "id", rec.ID, log.FieldError, err)
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records.Apply(out, q), nil
}

// LastSync returns the most recent copy of a collection.
func (r *SQLiteRepository) LastSync(ctx context.Context, collectionID string) (SyncRun, error) {
	run := SyncRun{Collection: collectionID}
	var syncedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT record_count, synced_at FROM sync_runs WHERE collection = ?`, collectionID).
		Scan(&run.RecordCount, &syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return run, fmt.Errorf("%w: %s", records.ErrCollectionNotFound, collectionID)
	}
	if err != nil {
		return run, fmt.Errorf("read sync run: %w", err)
	}
	run.SyncedAt, _ = time.Parse(time.RFC3339, syncedAt)
	return run, nil
}
