package storage

import (
	"fmt"

	"github.com/h2non/bimg"
)

const (
	MaxImageWidth = 1600
	ImageQuality  = 85
	ImageMimeType = "image/jpeg"
)

// ProcessImage normalizes an uploaded project image: JPEG, metadata stripped,
// no wider than MaxImageWidth.
func ProcessImage(data []byte) ([]byte, error) {
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, fmt.Errorf("read image size: %w", err)
	}

	opts := bimg.Options{
		Type:          bimg.JPEG,
		Quality:       ImageQuality,
		StripMetadata: true,
	}
	if size.Width > MaxImageWidth {
		opts.Width = MaxImageWidth
	}

	out, err := img.Process(opts)
	if err != nil {
		return nil, fmt.Errorf("process image: %w", err)
	}
	return out, nil
}
