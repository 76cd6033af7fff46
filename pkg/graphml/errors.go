package graphml

import "errors"

var (
	// ErrNilDocument indicates a nil or empty document was passed to Write.
	ErrNilDocument = errors.New("graphml: nil document")
	// ErrNoRootNode indicates the document lacks a root node with a nested graph.
	ErrNoRootNode = errors.New("graphml: no root node")
	// ErrMissingSentinels indicates a graph element without sentinel identities.
	ErrMissingSentinels = errors.New("graphml: graph missing sentinel identities")
)
