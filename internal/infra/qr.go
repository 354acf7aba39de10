package infra

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// QRPNG renders contenido as a PNG QR code and returns it base64-encoded,
// without a data-URI prefix.
func QRPNG(contenido string) (string, error) {
	if contenido == "" {
		return "", fmt.Errorf("qr: contenido vacío")
	}
	png, err := qrcode.Encode(contenido, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("qr: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
