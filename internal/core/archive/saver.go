// Package archive provides archive persistence interfaces.
package archive

import (
	"context"
	"time"
)

// Saver persists captured flow graphs. The core domain depends on this
// interface, never on a concrete store.
type Saver interface {
	// Save persists an archive.
	Save(ctx context.Context, a *Archive) error

	// Load retrieves an archive by ID.
	Load(ctx context.Context, id string) (*Archive, error)

	// List returns archives matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Archive, error)

	// Delete removes an archive by ID.
	Delete(ctx context.Context, id string) error
}

// Filter narrows archive queries.
type Filter struct {
	SessionID string     `json:"session_id,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
}

// Validate ensures filter parameters are valid.
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return ErrInvalidLimit
	}
	if f.Offset < 0 {
		return ErrInvalidOffset
	}
	if f.Since != nil && f.Before != nil && f.Since.After(*f.Before) {
		return ErrInvalidTimeRange
	}
	return nil
}
