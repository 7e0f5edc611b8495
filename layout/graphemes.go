package layout

import (
	"sort"

	"github.com/go-text/typesetting/segmenter"
)

// Done is returned by GraphemeBreaks methods when no boundary exists in the
// requested direction.
const Done = -1

// GraphemeBreaks holds the grapheme cluster boundaries of a text as byte
// offsets, including 0 and len(text), and answers the following/preceding
// queries cursor movement is built on.
type GraphemeBreaks struct {
	boundaries []int
}

// NewGraphemeBreaks segments text into grapheme clusters.
func NewGraphemeBreaks(text string) *GraphemeBreaks {
	g := &GraphemeBreaks{}

	runes := []rune(text)
	byteOf := make([]int, 0, len(runes)+1)
	for i := range text {
		byteOf = append(byteOf, i)
	}
	byteOf = append(byteOf, len(text))

	var seg segmenter.Segmenter
	seg.Init(runes)

	g.boundaries = append(g.boundaries, 0)
	iter := seg.GraphemeIterator()
	for iter.Next() {
		grapheme := iter.Grapheme()
		g.boundaries = append(g.boundaries, byteOf[grapheme.Offset+len(grapheme.Text)])
	}
	if len(g.boundaries) == 1 && len(text) > 0 {
		g.boundaries = append(g.boundaries, len(text))
	}

	return g
}

// Following returns the smallest boundary greater than index, or Done.
func (g *GraphemeBreaks) Following(index int) int {
	i := sort.SearchInts(g.boundaries, index+1)
	if i >= len(g.boundaries) {
		return Done
	}
	return g.boundaries[i]
}

// Preceding returns the largest boundary smaller than index, or Done.
func (g *GraphemeBreaks) Preceding(index int) int {
	i := sort.SearchInts(g.boundaries, index)
	if i == 0 {
		return Done
	}
	return g.boundaries[i-1]
}

// IsBoundary reports whether index is a grapheme cluster boundary.
func (g *GraphemeBreaks) IsBoundary(index int) bool {
	i := sort.SearchInts(g.boundaries, index)
	return i < len(g.boundaries) && g.boundaries[i] == index
}

// Last returns the final boundary, len(text).
func (g *GraphemeBreaks) Last() int {
	return g.boundaries[len(g.boundaries)-1]
}
