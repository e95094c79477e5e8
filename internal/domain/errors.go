package domain

import "errors"

// ErrNoQRCode is returned by decoders when an image holds no readable QR code
var ErrNoQRCode = errors.New("no qr code found")
