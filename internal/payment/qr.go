package payment

import qrcode "github.com/skip2/go-qrcode"

const qrSize = 256

// QRPNG renders a payment URI as a PNG image.
func QRPNG(uri string) ([]byte, error) {
	return qrcode.Encode(uri, qrcode.Medium, qrSize)
}
