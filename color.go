package covergen

import (
	"fmt"
	"image/color"
	"strings"
)

// ParseHexColor parses a "#RRGGBB" or "#RRGGBBAA" string into an NRGBA color.
// A leading "#" is optional.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	if !isHex(hex) {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	c := color.NRGBA{
		R: hexByte(hex, 0),
		G: hexByte(hex, 2),
		B: hexByte(hex, 4),
		A: 0xFF,
	}
	if len(hex) == 8 {
		c.A = hexByte(hex, 6)
	}
	return c, nil
}

// parseOpaqueHex parses a strict "#RRGGBB" string. Gradient stops carry no
// per-stop alpha, so 8-digit values are rejected here.
func parseOpaqueHex(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 || !isHex(hex) {
		return color.NRGBA{}, fmt.Errorf("%w: %q (want #RRGGBB)", ErrInvalidColor, s)
	}
	return color.NRGBA{R: hexByte(hex, 0), G: hexByte(hex, 2), B: hexByte(hex, 4), A: 0xFF}, nil
}

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}

// hexByte parses two hex characters at offset i. The caller has already
// validated the string, so failures cannot occur.
func hexByte(s string, i int) uint8 {
	return hexNibble(s[i])<<4 | hexNibble(s[i+1])
}

func hexNibble(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

// applyOpacity scales an alpha channel value by an opacity in [0, 1].
func applyOpacity(a uint8, opacity float64) uint8 {
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	return uint8(float64(a)*opacity + 0.5)
}
