// Package storage persists rendered compilation artifacts between runs.
package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no artifact is stored under a key
var ErrNotFound = errors.New("artifact not found")

// ArtifactKind represents the rendering an artifact holds
type ArtifactKind uint8

const (
	KindYAML  ArtifactKind = iota // Plan document for code generators
	KindTable                     // Markdown explain tables
)

// String returns the kind name used in keys and flags
func (k ArtifactKind) String() string {
	switch k {
	case KindYAML:
		return "yaml"
	case KindTable:
		return "table"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind maps a format name to its kind
func ParseKind(name string) (ArtifactKind, error) {
	switch name {
	case "yaml", "":
		return KindYAML, nil
	case "table":
		return KindTable, nil
	}
	return 0, fmt.Errorf("unknown artifact format %q (expected yaml or table)", name)
}

// Artifact is one rendered plan
type Artifact struct {
	Key     string       `yaml:"key"`  // Plan cache key
	File    string       `yaml:"file"` // Source file the plan was compiled from
	Kind    ArtifactKind `yaml:"kind"`
	Created time.Time    `yaml:"created"`
	Data    []byte       `yaml:"data"`
}

// Store is the interface for artifact storage
type Store interface {
	// Write operations
	Put(a Artifact) error
	Delete(kind ArtifactKind, key string) error

	// Read operations
	Get(kind ArtifactKind, key string) (*Artifact, error)
	List(kind ArtifactKind) ([]Artifact, error)

	// Lifecycle
	Close() error
}
