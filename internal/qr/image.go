package qr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// PNG renders text as a QR symbol with high error correction.
func PNG(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	b, err := qrcode.Encode(text, qrcode.High, size)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return b, nil
}

// Terminal renders text as half-block art suitable for a terminal cell grid.
func Terminal(text string) (string, error) {
	q, err := qrcode.New(text, qrcode.High)
	if err != nil {
		return "", fmt.Errorf("qr encode: %w", err)
	}
	return strings.TrimRight(q.ToSmallString(false), "\n"), nil
}

// ReadImage decodes the first QR symbol found in a PNG, JPEG or GIF image.
func ReadImage(r io.Reader) (string, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize: %w", err)
	}
	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	res, err := zxqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return res.GetText(), nil
}

// ReadImageBytes is ReadImage over an in-memory image.
func ReadImageBytes(b []byte) (string, error) {
	return ReadImage(bytes.NewReader(b))
}
