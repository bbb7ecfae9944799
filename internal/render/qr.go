package render

import (
	"github.com/skip2/go-qrcode"
)

// QRSize is the edge length of generated QR codes, in pixels
const QRSize = 320

// JoinQR renders url as a PNG QR code
func JoinQR(url string) ([]byte, error) {
	return qrcode.Encode(url, qrcode.Medium, QRSize)
}
