package capture

import (
	"errors"
	"image/color"
	"testing"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want color.NRGBA
	}{
		{"#000000", color.NRGBA{0, 0, 0, 255}},
		{"#1e40af", color.NRGBA{0x1e, 0x40, 0xaf, 255}},
		{"#1E3A8A", color.NRGBA{0x1e, 0x3a, 0x8a, 255}},
		{"#fff", color.NRGBA{255, 255, 255, 255}},
		{"#0a6", color.NRGBA{0x00, 0xaa, 0x66, 255}},
		{"verde", color.NRGBA{0x05, 0x96, 0x69, 255}},
		{" Azul Marino ", color.NRGBA{0x1e, 0x3a, 0x8a, 255}},
		{"#1e40af80", color.NRGBA{0x1e, 0x40, 0xaf, 0x80}},
		{"#0a68", color.NRGBA{0x00, 0xaa, 0x66, 0x88}},
		{"#000000FF", color.NRGBA{0, 0, 0, 255}},
		{"purple", color.NRGBA{0x80, 0x00, 0x80, 255}},
		{"DarkBlue", color.NRGBA{0x00, 0x00, 0x8b, 255}},
		{"chartreuse", color.NRGBA{0x7f, 0xff, 0x00, 255}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Errorf("ParseColor(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseColorErrors(t *testing.T) {
	for _, in := range []string{"", "000000", "#12", "#12345", "#1234567", "#123456789", "#gggggg", "#ggggggff", "notacolor", "dark blue"} {
		if _, err := ParseColor(in); !errors.Is(err, ErrInvalidColor) {
			t.Errorf("ParseColor(%q): got %v, want ErrInvalidColor", in, err)
		}
	}
}

func TestPalette(t *testing.T) {
	if len(Palette) != 5 {
		t.Fatalf("palette has %d entries, want 5", len(Palette))
	}
	for _, c := range Palette {
		got, err := ParseColor(c.Hex)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.Color {
			t.Errorf("%s: hex %s parses to %v, entry holds %v", c.Name, c.Hex, got, c.Color)
		}
	}
	if Palette[0].Name != "Negro" {
		t.Errorf("default color is %s, want Negro", Palette[0].Name)
	}
}
