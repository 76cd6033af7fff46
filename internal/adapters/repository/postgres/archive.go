// Package postgres provides a PostgreSQL-backed archive store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowtrace/flowtrace/internal/core/archive"
	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/pkg/serialization"
)

// ArchiveSaver implements archive.Saver for PostgreSQL. Graph payloads go
// through the serialization pipeline into a BYTEA column; metadata lands in
// JSONB so it stays queryable.
type ArchiveSaver struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
	tableName  string
}

// NewArchiveSaver creates a PostgreSQL archive saver.
func NewArchiveSaver(pool *pgxpool.Pool, serializer *serialization.Serializer) *ArchiveSaver {
	if serializer == nil {
		serializer = serialization.Default()
	}
	return &ArchiveSaver{
		pool:       pool,
		serializer: serializer,
		tableName:  "archives",
	}
}

// CreateTables creates the archive table and its indexes.
func (s *ArchiveSaver) CreateTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			graph BYTEA NOT NULL,
			metadata JSONB,
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			version VARCHAR(50) NOT NULL DEFAULT '1.0'
		);

		CREATE INDEX IF NOT EXISTS idx_%s_session_id ON %s (session_id);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at);
	`, s.tableName, s.tableName, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// Save stores an archive, replacing any existing row with the same ID.
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
		INSERT INTO %s (id, session_id, graph, metadata, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			graph = EXCLUDED.graph,
			metadata = EXCLUDED.metadata,
			created_at = EXCLUDED.created_at
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		a.ID, a.SessionID, data, metadataJSON, a.CreatedAt, a.Version)
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
		FROM %s
		WHERE id = $1
	`, s.tableName)

	var (
		a            archive.Archive
		data         []byte
		metadataJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.SessionID, &data, &metadataJSON, &a.CreatedAt, &a.Version,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, archive.ErrArchiveNotFound
		}
		return nil, fmt.Errorf("failed to load archive: %w", err)
	}

	if err := s.decodeRow(&a, data, metadataJSON); err != nil {
		return nil, err
	}
	return &a, nil
}

// List retrieves archives matching the filter, newest first.
func (s *ArchiveSaver) List(ctx context.Context, filter archive.Filter) ([]*archive.Archive, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query, args := s.buildListQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	defer rows.Close()

	var archives []*archive.Archive
	for rows.Next() {
		var (
			a            archive.Archive
			data         []byte
			metadataJSON []byte
		)
		err := rows.Scan(&a.ID, &a.SessionID, &data, &metadataJSON, &a.CreatedAt, &a.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to scan archive row: %w", err)
		}
		if err := s.decodeRow(&a, data, metadataJSON); err != nil {
			return nil, err
		}
		archives = append(archives, &a)
	}
	return archives, rows.Err()
}

// Delete removes an archive by ID.
func (s *ArchiveSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return archive.ErrInvalidArchiveID
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete archive: %w", err)
	}
	if result.RowsAffected() == 0 {
		return archive.ErrArchiveNotFound
	}
	return nil
}

// Close closes the connection pool.
func (s *ArchiveSaver) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *ArchiveSaver) decodeRow(a *archive.Archive, data, metadataJSON []byte) error {
	var graph flow.Graph
	if err := s.serializer.Deserialize(data, &graph); err != nil {
		return fmt.Errorf("failed to deserialize graph: %w", err)
	}
	a.Graph = &graph
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &a.Metadata); err != nil {
			return fmt.Errorf("failed to deserialize metadata: %w", err)
		}
	}
	return nil
}

func (s *ArchiveSaver) buildListQuery(filter archive.Filter) (string, []any) {
	query := fmt.Sprintf("SELECT id, session_id, graph, metadata, created_at, version FROM %s WHERE 1=1", s.tableName)
	args := make([]any, 0)
	argCount := 0

	if filter.SessionID != "" {
		argCount++
		query += fmt.Sprintf(" AND session_id = $%d", argCount)
		args = append(args, filter.SessionID)
	}
	if filter.Since != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *filter.Since)
	}
	if filter.Before != nil {
		argCount++
		query += fmt.Sprintf(" AND created_at < $%d", argCount)
		args = append(args, *filter.Before)
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		argCount++
		query += fmt.Sprintf(" LIMIT $%d", argCount)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		argCount++
		query += fmt.Sprintf(" OFFSET $%d", argCount)
		args = append(args, filter.Offset)
	}

	return query, args
}
