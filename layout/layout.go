// Package layout builds visual paragraph layouts: paragraph splitting,
// script segmentation, font fallback, HarfBuzz shaping, greedy line breaking
// at a width constraint, bidi reordering into visual runs, and glyph
// positioning. The resulting LayoutInfo answers the geometric queries the
// cursor controller and renderer need.
package layout

import "github.com/Mlleters/rich-text/fonts"

// XAlignment positions each line horizontally within the text area.
type XAlignment uint8

const (
	AlignLeft XAlignment = iota
	AlignRight
	AlignCenter
)

// String returns the string representation of the alignment.
func (a XAlignment) String() string {
	switch a {
	case AlignLeft:
		return "Left"
	case AlignRight:
		return "Right"
	case AlignCenter:
		return "Center"
	default:
		return "Unknown"
	}
}

// YAlignment positions the text block vertically within the text area.
type YAlignment uint8

const (
	AlignTop YAlignment = iota
	AlignMiddle
	AlignBottom
)

// String returns the string representation of the alignment.
func (a YAlignment) String() string {
	switch a {
	case AlignTop:
		return "Top"
	case AlignMiddle:
		return "Middle"
	case AlignBottom:
		return "Bottom"
	default:
		return "Unknown"
	}
}

// Flags adjust layout building.
type Flags uint8

const (
	// FlagRightToLeft makes the default paragraph direction right-to-left.
	FlagRightToLeft Flags = 1 << iota
	// FlagOverrideDirectionality forces the configured direction over the
	// directions the text's scripts imply.
	FlagOverrideDirectionality
)

// VisualRun is one run of the layout in visual order. Glyphs within the run
// render left to right; charStartIndex/charEndIndex are logical byte offsets
// regardless of direction.
type VisualRun struct {
	Font *fonts.FontData

	// GlyphEndIndex is the exclusive end of the run's glyph range.
	GlyphEndIndex uint32

	// CharStartIndex is the first (lowest) logical byte index of the run.
	CharStartIndex uint32

	// CharEndIndex is the first logical byte index not in the run.
	CharEndIndex uint32

	// CharEndOffset is the separator byte count ahead of CharEndIndex, when
	// the run ends its paragraph.
	CharEndOffset uint8

	RightToLeft bool
}

// LineInfo is one laid-out line.
type LineInfo struct {
	// VisualRunsEndIndex is the exclusive end of the line's run range.
	VisualRunsEndIndex uint32

	// Width is the line's total advance.
	Width float32

	// Ascent is the distance from the line top to its baseline.
	Ascent float32

	// TotalDescent is the distance from the top of the first line of the
	// layout to the bottom of this line. The difference from the previous line's
	// TotalDescent is this line's height.
	TotalDescent float32
}

// LayoutInfo is the positioned output of a layout build: lines of visual
// runs over a flat glyph array. Glyph positions are interleaved x,y pairs
// per run with one extra trailing pair per run recording the run's end
// position.
type LayoutInfo struct {
	VisualRuns     []VisualRun
	Lines          []LineInfo
	Glyphs         []uint32
	CharIndices    []int32
	GlyphPositions []float32
	TextStartY     float32

	rightToLeft bool
}

// Clear empties the layout for reuse, retaining allocations.
func (l *LayoutInfo) Clear() {
	l.VisualRuns = l.VisualRuns[:0]
	l.Lines = l.Lines[:0]
	l.Glyphs = l.Glyphs[:0]
	l.CharIndices = l.CharIndices[:0]
	l.GlyphPositions = l.GlyphPositions[:0]
	l.TextStartY = 0
	l.rightToLeft = false
}

// binarySearch returns the first index in [first, first+count) for which
// cond is false, assuming cond is monotone.
func binarySearch(first, count int, cond func(int) bool) int {
	for count > 0 {
		step := count / 2
		i := first + step

		if cond(i) {
			first = i + 1
			count -= step + 1
		} else {
			count = step
		}
	}

	return first
}
