package media

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/admin"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore adapts a cloudinary client to the BlobStore contract. Blob
// keys map straight onto public ids, which is what makes uploads
// deterministic: putting the same key twice overwrites.
type CloudinaryStore struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryStore(cld *cloudinary.Cloudinary) *CloudinaryStore {
	return &CloudinaryStore{cld: cld}
}

func (cs *CloudinaryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	result, err := cs.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:  key,
		Overwrite: api.Bool(true),
		Tags:      []string{"gatherly"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("failed to upload %s: %s", key, result.Error.Message)
	}
	return result.SecureURL, nil
}

// List pages through every asset under prefix; the admin API caps one page
// at 500 results.
func (cs *CloudinaryStore) List(ctx context.Context, prefix string) ([]Blob, error) {
	blobs := []Blob{}
	cursor := ""
	for {
		res, err := cs.cld.Admin.Assets(ctx, admin.AssetsParams{
			Prefix:     prefix,
			MaxResults: 500,
			NextCursor: cursor,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, a := range res.Assets {
			blobs = append(blobs, Blob{Key: a.PublicID, URL: a.SecureURL})
		}
		if res.NextCursor == "" {
			return blobs, nil
		}
		cursor = res.NextCursor
	}
}

func (cs *CloudinaryStore) Delete(ctx context.Context, key string) error {
	result, err := cs.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: key})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("failed to delete %s: %s", key, result.Result)
	}
	return nil
}

func (cs *CloudinaryStore) DownloadURL(ctx context.Context, key string) (string, error) {
	img, err := cs.cld.Image(key)
	if err != nil {
		return "", fmt.Errorf("failed to resolve url for %s: %w", key, err)
	}
	url, err := img.String()
	if err != nil {
		return "", fmt.Errorf("failed to resolve url for %s: %w", key, err)
	}
	return url, nil
}
