package media_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gatherly/server/internal/media"
	"github.com/gatherly/server/internal/media/mediatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImages(n int) []media.Image {
	images := make([]media.Image, 0, n)
	for i := 0; i < n; i++ {
		images = append(images, media.Image{
			Data:        []byte(fmt.Sprintf("image-%d", i)),
			ContentType: "image/jpeg",
		})
	}
	return images
}

func TestUploader_UploadBatch_PreservesInputOrder(t *testing.T) {
	fake := mediatest.NewFake()
	// Hold each put open so transfers overlap and finish out of order.
	fake.PutDelay = 3 * time.Millisecond
	up := media.NewUploader(fake)

	urls, err := up.UploadBatch(context.Background(), testImages(6), media.EventsFolder, "ev-1")
	require.NoError(t, err)

	want := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		want = append(want, fake.URL(media.EventKey(media.EventsFolder, "ev-1", i)))
	}
	assert.Equal(t, want, urls)
}

func TestUploader_UploadBatch_EmptyInput(t *testing.T) {
	fake := mediatest.NewFake()
	up := media.NewUploader(fake)

	urls, err := up.UploadBatch(context.Background(), nil, media.EventsFolder, "ev-1")
	require.NoError(t, err)
	assert.NotNil(t, urls)
	assert.Empty(t, urls)
	assert.Empty(t, fake.Ops())
}

func TestUploader_UploadBatch_AllOrNothing(t *testing.T) {
	fake := mediatest.NewFake()
	fake.FailPuts[media.EventKey(media.EventsFolder, "ev-1", 2)] = errors.New("quota exceeded")
	up := media.NewUploader(fake)

	urls, err := up.UploadBatch(context.Background(), testImages(4), media.EventsFolder, "ev-1")
	require.Error(t, err)
	assert.Nil(t, urls, "one failure discards the whole URL list")

	var batchErr *media.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, "upload", batchErr.Op)
	require.Len(t, batchErr.Errors, 1)
	assert.Contains(t, batchErr.Errors[0].Error(), "image 2")
	assert.Contains(t, batchErr.Errors[0].Error(), "quota exceeded")
}

func TestUploader_UploadBatch_BoundsConcurrency(t *testing.T) {
	fake := mediatest.NewFake()
	fake.PutDelay = 2 * time.Millisecond
	up := media.NewUploader(fake)

	_, err := up.UploadBatch(context.Background(), testImages(30), media.EventsFolder, "ev-1")
	require.NoError(t, err)

	assert.LessOrEqual(t, fake.Peak(), 8, "batch parallelism is bounded")
	assert.Greater(t, fake.Peak(), 1, "uploads actually overlap")
}

func TestUploader_UploadGuestAvatar(t *testing.T) {
	fake := mediatest.NewFake()
	up := media.NewUploader(fake)

	url, err := up.UploadGuestAvatar(context.Background(), media.Image{Data: []byte("face")}, media.EventsFolder, "ev-1", "guest-9")
	require.NoError(t, err)

	key := media.GuestAvatarKey(media.EventsFolder, "ev-1", "guest-9")
	assert.Equal(t, fake.URL(key), url)
	assert.True(t, fake.Has(key))
}

func TestUploader_ResolveURL(t *testing.T) {
	fake := mediatest.NewFake()
	up := media.NewUploader(fake)

	url, err := up.ResolveURL(context.Background(), "events/ev-1/0")
	require.NoError(t, err)
	assert.Equal(t, fake.URL("events/ev-1/0"), url)
}
