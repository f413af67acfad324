package media_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/gatherly/server/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCompress_PassthroughOnUndecodableData(t *testing.T) {
	in := media.Image{Data: []byte("definitely not pixels"), ContentType: "image/png"}

	out := media.Compress(in)

	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, in.ContentType, out.ContentType)
}

func TestCompress_KeepsSmallerOriginal(t *testing.T) {
	// A tiny solid-colour PNG beats any JPEG of itself, so the original
	// must come back untouched.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	in := media.Image{Data: encodePNG(t, img), ContentType: "image/png"}

	out := media.Compress(in)

	assert.Equal(t, in.Data, out.Data)
	assert.Equal(t, "image/png", out.ContentType)
}

func TestCompress_NeverGrowsPayload(t *testing.T) {
	// Pseudo-random pixels keep PNG from compressing well; whichever branch
	// wins, the output may not be larger than the input.
	img := image.NewRGBA(image.Rect(0, 0, 160, 160))
	seed := uint32(2463534242)
	next := func() uint8 {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		return uint8(seed)
	}
	for y := 0; y < 160; y++ {
		for x := 0; x < 160; x++ {
			img.Set(x, y, color.RGBA{R: next(), G: next(), B: next(), A: 255})
		}
	}
	in := media.Image{Data: encodePNG(t, img), ContentType: "image/png"}

	out := media.Compress(in)

	assert.LessOrEqual(t, len(out.Data), len(in.Data))
	assert.Contains(t, []string{"image/png", "image/jpeg"}, out.ContentType)
	if out.ContentType == "image/jpeg" {
		_, format, err := image.Decode(bytes.NewReader(out.Data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	}
}
