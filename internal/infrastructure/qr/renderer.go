// Package qr renders voucher tokens as QR code images.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
)

// DefaultSize is the PNG edge length in pixels used when no size is given.
const DefaultSize = 256

// Renderer implements port.QRRenderer. Rendering is a pure function of the
// token: the same token always produces identical PNG bytes.
type Renderer struct {
	size int
}

// NewRenderer creates a renderer producing size x size pixel PNGs.
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{size: size}
}

// Render encodes the token's canonical textual form as a PNG QR code.
func (r *Renderer) Render(token entity.Token) ([]byte, error) {
	png, err := qrcode.Encode(token.String(), qrcode.Medium, r.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// Verify interface compliance
var _ port.QRRenderer = (*Renderer)(nil)
