package capture

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ErrInvalidColor is returned by ParseColor for unrecognized input.
var ErrInvalidColor = errors.New("invalid color")

// NamedColor is a palette entry.
type NamedColor struct {
	Name  string
	Hex   string
	Color color.NRGBA
}

// Palette lists the stroke colors offered to the user.
var Palette = []NamedColor{
	{Name: "Negro", Hex: "#000000", Color: color.NRGBA{0x00, 0x00, 0x00, 0xff}},
	{Name: "Azul", Hex: "#1e40af", Color: color.NRGBA{0x1e, 0x40, 0xaf, 0xff}},
	{Name: "Azul Marino", Hex: "#1e3a8a", Color: color.NRGBA{0x1e, 0x3a, 0x8a, 0xff}},
	{Name: "Verde", Hex: "#059669", Color: color.NRGBA{0x05, 0x96, 0x69, 0xff}},
	{Name: "Rojo", Hex: "#dc2626", Color: color.NRGBA{0xdc, 0x26, 0x26, 0xff}},
}

// ParseColor accepts a palette name or a CSS color name (both
// case-insensitive), or a hex value in one of the forms "#rgb", "#rgba",
// "#rrggbb" and "#rrggbbaa". Palette names win over CSS names.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	for _, c := range Palette {
		if strings.EqualFold(s, c.Name) {
			return c.Color, nil
		}
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}

	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]}) + "ff"
	case 4:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	case 6:
		hex += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
