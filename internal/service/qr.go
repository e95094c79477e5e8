package service

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"qrbot/internal/domain"
)

const (
	// MinInlineQueryLen and MaxInlineQueryLen bound inline queries, in characters
	MinInlineQueryLen = 3
	MaxInlineQueryLen = 1000
)

// ErrEmptyText is returned when there is nothing to encode
var ErrEmptyText = errors.New("empty text")

// Codec renders and reads QR images
type Codec interface {
	Encode(text string) ([]byte, error)
	Decode(image []byte) (string, error)
}

// ScanResult is the interpretation of a decoded QR payload
type ScanResult struct {
	Raw  string
	WiFi *domain.WiFi
}

// InlineCheck is the verdict on an inline query length
type InlineCheck int

const (
	InlineOK InlineCheck = iota
	InlineTooShort
	InlineTooLong
)

// QRService handles QR generation and scanning
type QRService struct {
	codec Codec
}

// NewQRService creates a new QR service
func NewQRService(codec Codec) *QRService {
	return &QRService{codec: codec}
}

// Generate renders text as a PNG QR code
func (s *QRService) Generate(text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	img, err := s.codec.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return img, nil
}

// Scan decodes an image and recognizes Wi-Fi payloads
func (s *QRService) Scan(image []byte) (ScanResult, error) {
	data, err := s.codec.Decode(image)
	if err != nil {
		return ScanResult{}, err
	}

	result := ScanResult{Raw: data}
	if wifi, ok := domain.ParseWiFi(data); ok {
		result.WiFi = &wifi
	}
	return result, nil
}

// CheckInlineQuery classifies a trimmed inline query by its length
func CheckInlineQuery(query string) InlineCheck {
	n := utf8.RuneCountInString(query)
	switch {
	case n < MinInlineQueryLen:
		return InlineTooShort
	case n > MaxInlineQueryLen:
		return InlineTooLong
	default:
		return InlineOK
	}
}

// ResultID returns the stable inline result id for query
func ResultID(query string) string {
	sum := md5.Sum([]byte(query))
	return hex.EncodeToString(sum[:])
}

// Preview shortens text to at most n characters for captions
func Preview(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return strings.TrimSpace(string(runes[:n])) + "..."
}
