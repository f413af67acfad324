package media

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Lifecycle handles the read and teardown side of an entity's media
// namespace.
type Lifecycle struct {
	blobs BlobStore
}

func NewLifecycle(blobs BlobStore) *Lifecycle {
	return &Lifecycle{blobs: blobs}
}

// DeleteAll removes every blob under the entity's namespace, guest avatars
// included. Every deletion is attempted regardless of earlier failures;
// whatever failed is reported as one BatchError at the end.
func (l *Lifecycle) DeleteAll(ctx context.Context, folder, entityID string) error {
	prefix := entityPrefix(folder, entityID)
	blobs, err := l.blobs.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("failed to list media for %s: %w", entityID, err)
	}
	if len(blobs) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	sem := make(chan struct{}, maxConcurrentUploads)

	for _, b := range blobs {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := l.blobs.Delete(ctx, key); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(b.Key)
	}
	wg.Wait()

	if len(errs) > 0 {
		return &BatchError{Op: "delete media", Errors: errs}
	}
	return nil
}

// RetrieveBatch lists each entity's image blobs concurrently for feed
// rendering. Every requested id has an entry in the result; an entity with
// no media maps to an empty, non-nil slice. Guest avatars sit one path level
// deeper and are excluded. Listing failures are aggregated while the ids
// that did list are still returned.
func (l *Lifecycle) RetrieveBatch(ctx context.Context, folder string, entityIDs []string) (map[string][]string, error) {
	urlsByID := make(map[string][]string, len(entityIDs))
	for _, id := range entityIDs {
		urlsByID[id] = []string{}
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	sem := make(chan struct{}, maxConcurrentUploads)

	for id := range urlsByID {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			prefix := entityPrefix(folder, id)
			blobs, err := l.blobs.List(ctx, prefix)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("entity %s: %w", id, err))
				return
			}
			urlsByID[id] = directImageURLs(prefix, blobs)
		}(id)
	}
	wg.Wait()

	if len(errs) > 0 {
		return urlsByID, &BatchError{Op: "retrieve media", Errors: errs}
	}
	return urlsByID, nil
}

// directImageURLs keeps the blobs sitting directly under prefix and orders
// them by their numeric index key, so the URLs come back in upload order.
func directImageURLs(prefix string, blobs []Blob) []string {
	type keyed struct {
		key string
		url string
	}
	kept := []keyed{}
	for _, b := range blobs {
		rest, ok := strings.CutPrefix(b.Key, prefix)
		if !ok || rest == "" || strings.Contains(rest, "/") {
			continue
		}
		kept = append(kept, keyed{key: rest, url: b.URL})
	}
	sort.Slice(kept, func(a, b int) bool {
		ai, aerr := strconv.Atoi(kept[a].key)
		bi, berr := strconv.Atoi(kept[b].key)
		if aerr == nil && berr == nil {
			return ai < bi
		}
		return kept[a].key < kept[b].key
	})
	urls := make([]string, 0, len(kept))
	for _, k := range kept {
		urls = append(urls, k.url)
	}
	return urls
}
