// Package store defines the narrow document-store contract the engine is
// built on: per-document reads and writes, filtered multi-document reads,
// and multi-document transactions with field-level set mutations. It is not
// a general-purpose database layer; it exposes exactly the operations the
// repositories need.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get and transaction reads when no document
// exists under the requested id.
var ErrNotFound = errors.New("document not found")

// Document is the raw field map exchanged with the store. Readers must
// tolerate unknown fields; writers must only emit the wire-contract fields.
type Document = map[string]any

// Store is the document-store surface consumed by the repositories.
type Store interface {
	// Get returns the document stored under id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set creates or fully replaces the document under id.
	Set(ctx context.Context, collection, id string, doc Document) error

	// Update applies a partial field update to an existing document.
	// Returns ErrNotFound when the document does not exist.
	Update(ctx context.Context, collection, id string, fields Document) error

	// Delete removes the document under id. Deleting an absent document
	// is not an error.
	Delete(ctx context.Context, collection, id string) error

	// FindByIDs returns the documents whose ids appear in ids. Missing ids
	// are skipped; result order is unspecified.
	FindByIDs(ctx context.Context, collection string, ids []string) ([]Document, error)

	// FindNotContaining returns documents where none of the named array
	// fields contains member.
	FindNotContaining(ctx context.Context, collection string, arrayFields []string, member string) ([]Document, error)

	// RunTransaction executes fn inside a single transaction. The callback
	// may be invoked more than once when the store retries an optimistic
	// conflict, so it must be side-effect-free outside of tx operations.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the operation set available inside a transaction. All reads observe
// a consistent snapshot and all writes commit atomically or not at all.
type Tx interface {
	// Get returns the document under id as of the transaction snapshot,
	// or ErrNotFound.
	Get(collection, id string) (Document, error)

	// Set creates or fully replaces the document under id.
	Set(collection, id string, doc Document) error

	// Update applies a partial field update to an existing document.
	Update(collection, id string, fields Document) error

	// Delete removes the document under id; absent documents are ignored.
	Delete(collection, id string) error

	// AddToSet appends values to an array field with set semantics: values
	// already present are not duplicated. The document must exist.
	AddToSet(collection, id, field string, values ...string) error

	// RemoveFromSet removes values from an array field. Removing from an
	// absent document or field is not an error.
	RemoveFromSet(collection, id, field string, values ...string) error
}
