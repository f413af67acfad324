package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
)

const jpegQuality = 80

// Compress re-encodes an image as JPEG at a bandwidth-friendly quality
// before it goes over the wire. An image that cannot be decoded, or whose
// recompression comes out larger, passes through unchanged.
func Compress(img Image) Image {
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return img
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return img
	}
	if buf.Len() >= len(img.Data) {
		return img
	}
	return Image{Data: buf.Bytes(), ContentType: "image/jpeg"}
}
