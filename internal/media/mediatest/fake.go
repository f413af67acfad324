// Package mediatest provides an in-memory BlobStore for tests:
// deterministic URLs, optional per-key failures, operation recording, and an
// in-flight high-water mark for asserting concurrency bounds.
package mediatest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gatherly/server/internal/media"
)

type Fake struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	ops      []string
	inFlight int
	peak     int

	// PutDelay holds each upload open briefly so concurrent puts overlap
	// and the peak becomes observable.
	PutDelay time.Duration

	FailPuts    map[string]error
	FailDeletes map[string]error
	FailList    error
}

var _ media.BlobStore = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		blobs:       map[string][]byte{},
		FailPuts:    map[string]error{},
		FailDeletes: map[string]error{},
	}
}

// URL is the deterministic serving URL the fake hands out for a key.
func (f *Fake) URL(key string) string {
	return "https://blobs.test/" + key
}

func (f *Fake) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.ops = append(f.ops, "put "+key)
	failErr := f.FailPuts[key]
	delay := f.PutDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if failErr != nil {
		return "", failErr
	}
	f.blobs[key] = append([]byte(nil), data...)
	return f.URL(key), nil
}

func (f *Fake) List(ctx context.Context, prefix string) ([]media.Blob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "list "+prefix)
	if f.FailList != nil {
		return nil, f.FailList
	}
	keys := make([]string, 0, len(f.blobs))
	for key := range f.blobs {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	blobs := make([]media.Blob, 0, len(keys))
	for _, key := range keys {
		blobs = append(blobs, media.Blob{Key: key, URL: f.URL(key)})
	}
	return blobs, nil
}

func (f *Fake) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "delete "+key)
	if err := f.FailDeletes[key]; err != nil {
		return err
	}
	delete(f.blobs, key)
	return nil
}

func (f *Fake) DownloadURL(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, "url "+key)
	return f.URL(key), nil
}

// Seed stores a blob directly, bypassing op recording.
func (f *Fake) Seed(key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = append([]byte(nil), data...)
}

// Keys returns every stored key, sorted.
func (f *Fake) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.blobs))
	for key := range f.blobs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether a blob exists under key.
func (f *Fake) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.blobs[key]
	return ok
}

// Peak returns the highest number of puts that were in flight at once.
func (f *Fake) Peak() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peak
}

// Ops returns the recorded operations in order.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}
