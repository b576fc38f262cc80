// Package docstore abstracts the external document store holding
// operational records. The store offers only flat collection reads and
// document writes; any filtering happens in memory at the caller.
package docstore

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the document store cannot be reached.
// Callers treat it as fatal to the current stage, unlike per-document
// decode problems which are skipped locally.
var ErrUnavailable = errors.New("document store unavailable")

// Document is a single record in a collection.
type Document struct {
	ID     string
	Fields map[string]any
}

// Store is the narrow document-store surface the learning core consumes.
type Store interface {
	// ListAll returns every document in a collection. No server-side
	// filtering is available; callers filter in memory.
	ListAll(ctx context.Context, collection string) ([]Document, error)

	// SetDocument creates or replaces a document in a collection.
	SetDocument(ctx context.Context, collection, id string, fields map[string]any) error
}
