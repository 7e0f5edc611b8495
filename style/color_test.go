package style

import (
	"image/color"
	"testing"
)

// TestFromRGBUint tests 0xRRGGBB unpacking.
func TestFromRGBUint(t *testing.T) {
	tests := []struct {
		in   uint32
		want Color
	}{
		{0xFF0000, Color{R: 1, G: 0, B: 0, A: 1}},
		{0x00FF00, Color{R: 0, G: 1, B: 0, A: 1}},
		{0x0000FF, Color{R: 0, G: 0, B: 1, A: 1}},
		{0x000000, Color{R: 0, G: 0, B: 0, A: 1}},
	}

	for _, tt := range tests {
		if got := FromRGBUint(tt.in); got != tt.want {
			t.Errorf("FromRGBUint(%#x) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestColor_Color tests conversion to the standard color interface with
// clamping.
func TestColor_Color(t *testing.T) {
	got := RGB(1, 0.5, 0).Color()
	want := color.NRGBA{R: 255, G: 127, B: 0, A: 255}
	if got != want {
		t.Errorf("Color() = %v, want %v", got, want)
	}

	clamped := Color{R: 2, G: -1, B: 0, A: 1}.Color()
	if clamped != (color.NRGBA{R: 255, G: 0, B: 0, A: 255}) {
		t.Errorf("clamped Color() = %v", clamped)
	}
}
