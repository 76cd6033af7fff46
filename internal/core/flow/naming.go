package flow

import (
	"strings"

	"github.com/google/uuid"
)

// NodeName creates a string ID for a node. With overwhelming probability the
// name is unique not just in one graph but across all graphs ever built, which
// lets graph algebra merge node sets without renaming.
func NodeName(base string) string {
	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	if base != "" {
		name = base + ":" + name
	}
	return name
}

// NodeBase returns the base part of a node name produced by NodeName.
func NodeBase(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[:i]
	}
	return name
}
