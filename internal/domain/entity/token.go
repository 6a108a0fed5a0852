package entity

import (
	"strings"

	"github.com/google/uuid"
)

// Token is the unguessable identifier carried in a voucher's QR payload.
// Tokens are version-4 UUIDs in the canonical 8-4-4-4-12 hex form, drawn
// from crypto/rand, so they cannot be enumerated from a printed code.
type Token string

// NewToken generates a fresh random token.
func NewToken() Token {
	return Token(uuid.NewString())
}

// String returns the canonical textual form.
func (t Token) String() string {
	return string(t)
}

// ParseToken validates s as a token in canonical form. Only the plain
// hyphenated form is accepted; the braced, URN and compact encodings that
// uuid.Parse tolerates are rejected because scanners never produce them.
func ParseToken(s string) (Token, error) {
	if len(s) != 36 {
		return "", ErrMalformedCode
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return "", ErrMalformedCode
	}
	return Token(u.String()), nil
}

// NormalizeScan cleans a raw scanned string before parsing. Scanner hardware
// is known to wrap payloads in whitespace or quotes and to inject stray
// characters; anything outside the hex-and-hyphen alphabet is dropped.
func NormalizeScan(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.Trim(trimmed, `"'`)
	trimmed = strings.TrimSpace(trimmed)

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r >= '0' && r <= '9',
			r >= 'a' && r <= 'f',
			r >= 'A' && r <= 'F',
			r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}
