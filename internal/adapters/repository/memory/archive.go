// Package memory provides a thread-safe in-memory archive store, suitable
// for tests and single-process use.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/flowtrace/flowtrace/internal/core/archive"
)

// ArchiveSaver implements archive.Saver backed by a map. Archives are stored
// as deep copies so later builder activity cannot alias stored graphs.
type ArchiveSaver struct {
	mu       sync.RWMutex
	archives map[string]*archive.Archive
}

// NewArchiveSaver creates an empty in-memory archive store.
func NewArchiveSaver() *ArchiveSaver {
	return &ArchiveSaver{archives: make(map[string]*archive.Archive)}
}

// Save stores an archive, replacing any existing archive with the same ID.
func (s *ArchiveSaver) Save(_ context.Context, a *archive.Archive) error {
	if a == nil {
		return archive.ErrInvalidArchiveID
	}
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[a.ID] = copyArchive(a)
	return nil
}

// Load retrieves an archive by ID.
func (s *ArchiveSaver) Load(_ context.Context, id string) (*archive.Archive, error) {
	if id == "" {
		return nil, archive.ErrInvalidArchiveID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.archives[id]
	if !ok {
		return nil, archive.ErrArchiveNotFound
	}
	return copyArchive(a), nil
}

// List returns archives matching the filter, newest first.
func (s *ArchiveSaver) List(_ context.Context, filter archive.Filter) ([]*archive.Archive, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*archive.Archive
	for _, a := range s.archives {
		if filter.SessionID != "" && a.SessionID != filter.SessionID {
			continue
		}
		if filter.Since != nil && a.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Before != nil && !a.CreatedAt.Before(*filter.Before) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	out := make([]*archive.Archive, len(matched))
	for i, a := range matched {
		out[i] = copyArchive(a)
	}
	return out, nil
}

// Delete removes an archive by ID.
func (s *ArchiveSaver) Delete(_ context.Context, id string) error {
	if id == "" {
		return archive.ErrInvalidArchiveID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.archives[id]; !ok {
		return archive.ErrArchiveNotFound
	}
	delete(s.archives, id)
	return nil
}

func copyArchive(a *archive.Archive) *archive.Archive {
	clone := *a
	clone.Graph = a.Graph.Clone()
	clone.Metadata.Tags = append([]string(nil), a.Metadata.Tags...)
	return &clone
}
