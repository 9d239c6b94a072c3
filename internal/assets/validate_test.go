package assets

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestValidateImageAcceptsPNGInRange(t *testing.T) {
	data := pngBytes(t, 1024, 900)

	info, err := ValidateImage(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, "image/png", info.ContentType)
	require.Equal(t, "png", info.Extension)
	require.Equal(t, 1024, info.Width)
	require.Equal(t, 900, info.Height)
	require.Equal(t, int64(len(data)), info.Size)
}

func TestValidateImageRejectsSmallSides(t *testing.T) {
	_, err := ValidateImage(bytes.NewReader(pngBytes(t, 799, 1000)))
	require.ErrorIs(t, err, ErrBadDimensions)
}

func TestValidateImageRejectsHugeSides(t *testing.T) {
	_, err := ValidateImage(bytes.NewReader(pngBytes(t, 3001, 1000)))
	require.ErrorIs(t, err, ErrBadDimensions)
}

func TestValidateImageRejectsNonImages(t *testing.T) {
	_, err := ValidateImage(strings.NewReader("%PDF-1.4 definitely not pixels"))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestValidateImageRejectsOversizedUploads(t *testing.T) {
	header := pngBytes(t, 1024, 1024)
	padded := append(header, make([]byte, MaxImageBytes)...)

	_, err := ValidateImage(bytes.NewReader(padded))
	require.ErrorIs(t, err, ErrTooLarge)
}
