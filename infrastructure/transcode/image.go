package transcode

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// Image produces thumbnails and metadata-free copies of still images.
type Image struct{}

func NewImage() *Image {
	return &Image{}
}

// CreateThumbnail returns a JPEG thumbnail cropped to exactly the given
// dimensions.
func (i *Image) CreateThumbnail(sourcePath string, width, height int) ([]byte, error) {
	if width <= 0 {
		width = 200
	}
	if height <= 0 {
		height = 200
	}

	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &Error{Op: "image thumbnail", Err: err}
	}

	thumb := imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, &Error{Op: "image thumbnail", Err: err}
	}
	return buf.Bytes(), nil
}

// StripMetadata decodes and re-encodes the image, dropping embedded EXIF
// before any public distribution. Orientation is applied to the pixels so
// the visual result is unchanged.
func (i *Image) StripMetadata(sourcePath string, mimeType string) ([]byte, error) {
	img, err := imaging.Open(sourcePath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &Error{Op: "image strip", Err: err}
	}

	format := imaging.JPEG
	switch mimeType {
	case "image/png":
		format = imaging.PNG
	case "image/gif":
		format = imaging.GIF
	case "image/bmp":
		format = imaging.BMP
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(92)); err != nil {
		return nil, &Error{Op: "image strip", Err: err}
	}
	return buf.Bytes(), nil
}
