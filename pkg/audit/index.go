package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// indexSchemaVersion is bumped on any incompatible schema change.
const indexSchemaVersion = 1

const indexSchema = `
CREATE TABLE IF NOT EXISTS audit_index (
	batch_id         TEXT PRIMARY KEY,
	sealed_at        TIMESTAMP NOT NULL,
	files_processed  INTEGER NOT NULL,
	duration_seconds REAL NOT NULL,
	error_count      INTEGER NOT NULL,
	warning_count    INTEGER NOT NULL,
	aborted          INTEGER NOT NULL,
	path             TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_sealed_at ON audit_index(sealed_at);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// IndexConfig contains configuration for the sqlite audit index.
type IndexConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultIndexConfig returns the default index configuration.
func DefaultIndexConfig() *IndexConfig {
	return &IndexConfig{
		Path:        "data/audit-index.db",
		BusyTimeout: 5 * time.Second,
	}
}

// Entry is one indexed audit record.
type Entry struct {
	BatchID         string
	SealedAt        time.Time
	FilesProcessed  int
	DurationSeconds float64
	ErrorCount      int
	WarningCount    int
	Aborted         bool
	Path            string
}

// Index is a queryable view over the sealed audit files. It is derived state:
// the JSON files remain canonical and the index can always be rebuilt from
// the audit directory.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenIndex opens (creating if needed) the audit index database.
func OpenIndex(config *IndexConfig) (*Index, error) {
	if config == nil {
		config = DefaultIndexConfig()
	}

	logger := slog.Default().With("component", "audit.index")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, NewIndexError("open", err)
	}

	idx := &Index{db: db, logger: logger}
	if err := idx.initialize(config); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("audit index opened", "path", config.Path)
	return idx, nil
}

func (i *Index) initialize(config *IndexConfig) error {
	if _, err := i.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return NewIndexError("enable_wal", err)
	}
	if _, err := i.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", config.BusyTimeout.Milliseconds())); err != nil {
		return NewIndexError("set_busy_timeout", err)
	}
	if _, err := i.db.Exec(indexSchema); err != nil {
		return NewIndexError("create_schema", err)
	}
	if _, err := i.db.Exec("INSERT OR IGNORE INTO schema_version (version) VALUES (?)", indexSchemaVersion); err != nil {
		return NewIndexError("insert_schema_version", err)
	}

	var version int
	err := i.db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewIndexError("get_schema_version", err)
	}
	if version != indexSchemaVersion {
		return NewIndexError("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", indexSchemaVersion, version))
	}
	return nil
}

// Insert records a sealed audit file in the index. Re-indexing the same batch
// replaces the prior row, so rebuilds are idempotent.
func (i *Index) Insert(ctx context.Context, s *Sealed, path string) error {
	_, err := i.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO audit_index (
			batch_id, sealed_at, files_processed, duration_seconds,
			error_count, warning_count, aborted, path
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.BatchID, s.Timestamp, s.FilesProcessed, s.DurationSeconds,
		s.ErrorCount, s.WarningCount, s.Aborted, path,
	)
	if err != nil {
		return NewIndexError("insert", err)
	}
	return nil
}

// List returns indexed records sealed at or after since, newest first.
// limit <= 0 means no limit.
func (i *Index) List(ctx context.Context, since time.Time, limit int) ([]*Entry, error) {
	query := `
		SELECT batch_id, sealed_at, files_processed, duration_seconds,
		       error_count, warning_count, aborted, path
		FROM audit_index
		WHERE sealed_at >= ?
		ORDER BY sealed_at DESC`
	args := []any{since}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewIndexError("list", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.BatchID, &e.SealedAt, &e.FilesProcessed, &e.DurationSeconds,
			&e.ErrorCount, &e.WarningCount, &e.Aborted, &e.Path,
		); err != nil {
			return nil, NewIndexError("scan", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, NewIndexError("list", err)
	}
	return entries, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error {
	if err := i.db.Close(); err != nil {
		return NewIndexError("close", err)
	}
	return nil
}
