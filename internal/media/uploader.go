package media

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// maxConcurrentUploads bounds the parallelism of one media batch so a large
// gallery cannot exhaust sockets or memory.
const maxConcurrentUploads = 8

// Uploader pushes ordered image batches into blob storage.
type Uploader struct {
	blobs BlobStore
}

func NewUploader(blobs BlobStore) *Uploader {
	return &Uploader{blobs: blobs}
}

// UploadBatch uploads every image concurrently and returns their URLs in the
// order the images were supplied, whatever order the transfers finish in:
// each task is tagged with its input index and results are re-sorted at the
// end. The batch is all-or-nothing: any failure discards the URL list and
// returns a BatchError carrying every per-item failure observed.
func (u *Uploader) UploadBatch(ctx context.Context, images []Image, folder, entityID string) ([]string, error) {
	if len(images) == 0 {
		return []string{}, nil
	}

	type indexed struct {
		index int
		url   string
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []indexed
		errs    []error
	)
	sem := make(chan struct{}, maxConcurrentUploads)

	for i, img := range images {
		wg.Add(1)
		go func(index int, img Image) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			compressed := Compress(img)
			url, err := u.blobs.Put(ctx, EventKey(folder, entityID, index), compressed.Data, compressed.ContentType)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("image %d: %w", index, err))
				return
			}
			results = append(results, indexed{index: index, url: url})
		}(i, img)
	}
	wg.Wait()

	if len(errs) > 0 {
		return nil, &BatchError{Op: "upload", Errors: errs}
	}

	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, r.url)
	}
	return urls, nil
}

// UploadGuestAvatar stores one guest avatar under the entity's namespace and
// returns its serving URL.
func (u *Uploader) UploadGuestAvatar(ctx context.Context, img Image, folder, entityID, guestID string) (string, error) {
	compressed := Compress(img)
	return u.blobs.Put(ctx, GuestAvatarKey(folder, entityID, guestID), compressed.Data, compressed.ContentType)
}

// ResolveURL turns a bare storage key into a serving URL.
func (u *Uploader) ResolveURL(ctx context.Context, key string) (string, error) {
	return u.blobs.DownloadURL(ctx, key)
}
