package qrcode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"testing"

	"qrbot/internal/domain"

	"github.com/makiuchi-d/gozxing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_EncodeDecode(t *testing.T) {
	codec := NewCodec(256)

	payloads := []string{
		"hello world",
		"WIFI:T:WPA;S:Home;P:secret1;;",
	}

	for _, payload := range payloads {
		t.Run(payload, func(t *testing.T) {
			img, err := codec.Encode(payload)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

			decoded, err := codec.Decode(img)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestCodec_Decode_NoCode(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range blank.Pix {
		blank.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, blank))

	_, err := NewCodec(0).Decode(buf.Bytes())

	assert.ErrorIs(t, err, domain.ErrNoQRCode)
}

func TestCodec_Decode_NotAnImage(t *testing.T) {
	_, err := NewCodec(0).Decode([]byte("definitely not an image"))

	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNoQRCode)
}

func TestUnreadable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", gozxing.NewNotFoundException(), true},
		{"bad checksum", gozxing.NewChecksumException(), true},
		{"bad format", gozxing.NewFormatException("version"), true},
		{"wrapped checksum", fmt.Errorf("decode: %w", gozxing.NewChecksumException()), true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, unreadable(tt.err))
		})
	}
}
