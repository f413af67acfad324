// Package media moves event imagery in and out of blob storage: bounded
// concurrent batch uploads that preserve caller order, prefix-scoped
// cleanup, and per-entity retrieval for feed rendering.
package media

import (
	"context"
	"fmt"
	"strings"
)

// EventsFolder is the top-level namespace for event media. An event's blobs
// live under events/<id>/, its guest avatars one level deeper under
// events/<id>/guests/.
const EventsFolder = "events"

// Image is one binary payload headed for blob storage.
type Image struct {
	Data        []byte
	ContentType string
}

// Blob is one stored object: its key (the storage path) and serving URL.
type Blob struct {
	Key string
	URL string
}

// BlobStore is the storage surface the media components run on.
type BlobStore interface {
	// Put stores data under key and returns its serving URL. Re-putting a
	// key overwrites the previous object.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// List returns every blob whose key starts with prefix.
	List(ctx context.Context, prefix string) ([]Blob, error)

	// Delete removes the blob under key. Absent keys are not an error.
	Delete(ctx context.Context, key string) error

	// DownloadURL resolves a bare storage key to its serving URL.
	DownloadURL(ctx context.Context, key string) (string, error)
}

// BatchError aggregates the individual failures of one batch operation.
// Every sub-operation is attempted before it is reported.
type BatchError struct {
	Op     string
	Errors []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%s: %d failed: %s", e.Op, len(e.Errors), strings.Join(msgs, "; "))
}

func (e *BatchError) Unwrap() []error { return e.Errors }

// EventKey is the deterministic blob key for an event image: the image's
// original index under the entity's namespace, so re-uploads overwrite
// rather than accumulate.
func EventKey(folder, entityID string, index int) string {
	return fmt.Sprintf("%s/%s/%d", folder, entityID, index)
}

// GuestAvatarKey is the blob key for a guest's avatar.
func GuestAvatarKey(folder, entityID, guestID string) string {
	return fmt.Sprintf("%s/%s/guests/%s", folder, entityID, guestID)
}

// entityPrefix is the slash-terminated listing prefix covering everything
// stored for one entity. The trailing slash keeps an id from matching
// other ids it happens to prefix.
func entityPrefix(folder, entityID string) string {
	return folder + "/" + entityID + "/"
}
