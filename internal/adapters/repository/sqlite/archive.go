// Package sqlite provides a SQLite-backed archive store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flowtrace/flowtrace/internal/core/archive"
	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/pkg/serialization"
)

// ArchiveSaver implements archive.Saver for SQLite. Graph payloads go
// through the serialization pipeline; metadata is stored as JSON for
// queryability.
type ArchiveSaver struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
}

// NewArchiveSaver creates a SQLite archive saver.
func NewArchiveSaver(db *sql.DB, serializer *serialization.Serializer) *ArchiveSaver {
	if serializer == nil {
		serializer = serialization.Default()
	}
	return &ArchiveSaver{db: db, serializer: serializer, tableName: "archives"}
}

// WithTableName overrides the default table name. Only alphanumeric and
// underscore are permitted, preventing SQL injection via identifiers.
func (s *ArchiveSaver) WithTableName(name string) *ArchiveSaver {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Init creates the archive table if it does not exist.
func (s *ArchiveSaver) Init(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			graph BLOB NOT NULL,
			metadata TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			version TEXT NOT NULL
		)
	`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating archive table: %w", err)
	}
	return nil
}

// Save stores an archive.
func (s *ArchiveSaver) Save(ctx context.Context, a *archive.Archive) error {
	if a == nil {
		return archive.ErrInvalidArchiveID
	}
	if err := a.Validate(); err != nil {
		return err
	}
	data, err := s.serializer.Serialize(a.Graph)
	if err != nil {
		return fmt.Errorf("failed to serialize graph: %w", err)
	}
	metadataJSON, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (id, session_id, graph, metadata, created_at, version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tableName)
	_, err = s.db.ExecContext(ctx, query,
		a.ID, a.SessionID, data, string(metadataJSON), a.CreatedAt.Unix(), a.Version)
	if err != nil {
		return fmt.Errorf("failed to save archive: %w", err)
	}
	return nil
}

// Load retrieves an archive by ID.
func (s *ArchiveSaver) Load(ctx context.Context, id string) (*archive.Archive, error) {
	if id == "" {
		return nil, archive.ErrInvalidArchiveID
	}
	query := fmt.Sprintf(`
		SELECT id, session_id, graph, metadata, created_at, version
		FROM %s WHERE id = ?
	`, s.tableName)
	a, err := s.scanArchive(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return a, nil
}

// List returns archives matching the filter, newest first.
func (s *ArchiveSaver) List(ctx context.Context, filter archive.Filter) ([]*archive.Archive, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
		SELECT id, session_id, graph, metadata, created_at, version
		FROM %s WHERE 1=1
	`, s.tableName)
	var args []any
	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.Unix())
	}
	if filter.Before != nil {
		query += " AND created_at < ?"
		args = append(args, filter.Before.Unix())
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	defer rows.Close()

	var archives []*archive.Archive
	for rows.Next() {
		a, err := s.scanArchive(rows)
		if err != nil {
			return nil, err
		}
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

// Delete removes an archive by ID.
func (s *ArchiveSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return archive.ErrInvalidArchiveID
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.tableName)
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete archive: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return archive.ErrArchiveNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *ArchiveSaver) scanArchive(row rowScanner) (*archive.Archive, error) {
	var (
		a            archive.Archive
		data         []byte
		metadataJSON string
		createdAt    int64
	)
	err := row.Scan(&a.ID, &a.SessionID, &data, &metadataJSON, &createdAt, &a.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, archive.ErrArchiveNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan archive: %w", err)
	}
	var graph flow.Graph
	if err := s.serializer.Deserialize(data, &graph); err != nil {
		return nil, fmt.Errorf("failed to deserialize graph: %w", err)
	}
	a.Graph = &graph
	if err := json.Unmarshal([]byte(metadataJSON), &a.Metadata); err != nil {
		return nil, fmt.Errorf("failed to deserialize metadata: %w", err)
	}
	a.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &a, nil
}
