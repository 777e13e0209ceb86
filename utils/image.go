package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	maxImageSize = 5 * 1024 * 1024
	// AvatarSize is the edge length of the stored square avatar
	AvatarSize = 512
)

// CropRect is the region of the source image the user selected, in pixels
type CropRect struct {
	X      int `json:"x" form:"x"`
	Y      int `json:"y" form:"y"`
	Width  int `json:"width" form:"width"`
	Height int `json:"height" form:"height"`
}

// ProcessAvatar decodes an uploaded image, applies the optional crop and
// returns a size×size JPEG. Without a crop the image is center-filled.
func ProcessAvatar(data []byte, crop *CropRect, size int) ([]byte, error) {
	if len(data) > maxImageSize {
		return nil, errors.New("file too large. Maximum size is 5MB")
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if crop != nil {
		if crop.Width <= 0 || crop.Height <= 0 {
			return nil, errors.New("crop width and height must be positive")
		}
		rect := image.Rect(crop.X, crop.Y, crop.X+crop.Width, crop.Y+crop.Height)
		if !rect.In(img.Bounds()) {
			return nil, errors.New("crop area is outside the image")
		}
		img = imaging.Crop(img, rect)
	}

	avatar := imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, avatar, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
