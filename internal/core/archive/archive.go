// Package archive provides the captured-graph archive domain entities and
// persistence interfaces. An archive is one immutable flow graph snapshot
// taken at the end of a capture (or a chunk of one), keyed by the session
// that produced it.
package archive

import (
	"time"

	"github.com/flowtrace/flowtrace/internal/core/flow"
)

// Version is the current archive format version.
const Version = "1.0"

// Archive is one stored flow graph capture.
type Archive struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Graph     *flow.Graph `json:"graph"`
	Metadata  Metadata    `json:"metadata"`
	CreatedAt time.Time   `json:"created_at"`
	Version   string      `json:"version"`
}

// Metadata carries additional information about a capture.
type Metadata struct {
	Chunk     int      `json:"chunk"`
	Source    string   `json:"source,omitempty"`
	CreatedBy string   `json:"created_by,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Validate ensures archive integrity.
func (a *Archive) Validate() error {
	if a.ID == "" {
		return ErrInvalidArchiveID
	}
	if a.SessionID == "" {
		return ErrInvalidSessionID
	}
	if a.Graph == nil {
		return ErrNilGraph
	}
	return nil
}
