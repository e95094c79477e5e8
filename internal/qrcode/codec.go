package qrcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"qrbot/internal/domain"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	skip2 "github.com/skip2/go-qrcode"
)

// DefaultSize is the edge length in pixels of generated images
const DefaultSize = 512

// Codec encodes text to PNG QR images and decodes QR codes from photos
type Codec struct {
	size  int
	level skip2.RecoveryLevel
}

// NewCodec creates a codec producing size x size images
func NewCodec(size int) *Codec {
	if size <= 0 {
		size = DefaultSize
	}
	return &Codec{size: size, level: skip2.Medium}
}

// Encode renders text as a PNG
func (c *Codec) Encode(text string) ([]byte, error) {
	png, err := skip2.Encode(text, c.level, c.size)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}

// Decode reads the first QR code in a JPEG, PNG or GIF image.
// It returns domain.ErrNoQRCode when the image holds no readable code.
func (c *Codec) Decode(data []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize image: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	result, err := zxingqr.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		if unreadable(err) {
			return "", domain.ErrNoQRCode
		}
		return "", fmt.Errorf("read qr: %w", err)
	}

	return result.GetText(), nil
}

// unreadable reports whether the reader found no code, or found one it
// could not read back
func unreadable(err error) bool {
	var (
		notFound gozxing.NotFoundException
		checksum gozxing.ChecksumException
		format   gozxing.FormatException
	)
	return errors.As(err, &notFound) || errors.As(err, &checksum) || errors.As(err, &format)
}
