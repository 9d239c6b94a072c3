package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// MaxImageBytes is the upload ceiling for item and organization images.
	MaxImageBytes = 5 << 20
	// MinDimension is the smallest accepted width or height in pixels.
	MinDimension = 800
	// MaxDimension is the largest accepted width or height in pixels.
	MaxDimension = 3000
)

var (
	// ErrUnsupportedType indicates a content type outside the whitelist.
	ErrUnsupportedType = errors.New("assets: only JPEG, PNG and WEBP images are accepted")
	// ErrTooLarge indicates an upload above MaxImageBytes.
	ErrTooLarge = fmt.Errorf("assets: image exceeds %d MB", MaxImageBytes>>20)
	// ErrBadDimensions indicates a side outside the accepted pixel range.
	ErrBadDimensions = fmt.Errorf("assets: each side must be between %d and %d pixels", MinDimension, MaxDimension)
	// ErrNotAnImage indicates bytes the decoders cannot parse.
	ErrNotAnImage = errors.New("assets: file is not a decodable image")
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// ImageInfo describes a validated upload.
type ImageInfo struct {
	ContentType string `json:"content_type"`
	Extension   string `json:"extension"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Size        int64  `json:"size"`
}

// ValidateImage checks an upload against the type, size and dimension rules.
// The content type is sniffed from the bytes, not trusted from the request.
func ValidateImage(r io.Reader) (ImageInfo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("assets: read upload: %w", err)
	}
	if len(data) > MaxImageBytes {
		return ImageInfo{}, ErrTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return ImageInfo{}, ErrUnsupportedType
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, ErrNotAnImage
	}
	if cfg.Width < MinDimension || cfg.Height < MinDimension ||
		cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return ImageInfo{}, ErrBadDimensions
	}

	return ImageInfo{
		ContentType: contentType,
		Extension:   ext,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Size:        int64(len(data)),
	}, nil
}
