package ubidi

import (
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/unicode/bidi"
)

// Line is a view over a byte range of a resolved Paragraph. It aliases the
// paragraph's text, classes, and levels; visual runs are materialized lazily
// by CountRuns/VisualRun and the index-map operations.
type Line struct {
	para *Paragraph

	text   []byte
	levels []Level

	start           int
	length          int
	resultLength    int
	paraLevel       Level
	direction       Direction
	trailingWSStart int
	controlCount    int // bidi-control bytes counted for removal
	ctrlMask        []bool
	insertCount     int
	insertPoints    []insertPoint

	runs     []run
	runCount int // -1 until computed
}

// Line creates a view over the byte range [start, limit) of the paragraph.
// The range must be non-empty and lie within the paragraph.
func (p *Paragraph) Line(start, limit int) (*Line, error) {
	if start < 0 || start >= limit || limit > len(p.text) {
		return nil, fmt.Errorf("%w: line [%d, %d) of %d bytes", ErrInvalidRange, start, limit, len(p.text))
	}

	l := &Line{
		para:         p,
		text:         p.text[start:limit],
		levels:       p.levels[start:limit],
		start:        start,
		length:       limit - start,
		paraLevel:    p.paraLevel,
		runCount:     -1,
		resultLength: limit - start,
	}

	if p.controlCount > 0 {
		l.ctrlMask = make([]bool, l.length)
		for i := 0; i < l.length; {
			r, sz := utf8.DecodeRune(l.text[i:])
			if IsBidiControl(r) {
				for b := i; b < i+sz; b++ {
					l.ctrlMask[b] = true
				}
				l.controlCount += sz
			}
			i += sz
		}
		l.resultLength -= l.controlCount
	}

	for _, pt := range p.insertPoints {
		if pt.pos >= start && pt.pos < limit {
			l.insertPoints = append(l.insertPoints, insertPoint{pos: pt.pos - start, flag: pt.flag})
			l.insertCount++
		}
	}
	l.resultLength += l.insertCount

	if p.direction != DirMixed {
		// The parent is already trivial: all levels are implicitly or
		// explicitly at the paragraph level.
		l.direction = p.direction

		switch {
		case p.trailingWSStart <= start:
			l.trailingWSStart = 0
		case p.trailingWSStart < limit:
			l.trailingWSStart = p.trailingWSStart - start
		default:
			l.trailingWSStart = l.length
		}
		return l, nil
	}

	l.setTrailingWSStart()

	// Recalculate the line's direction from its own levels.
	switch {
	case l.trailingWSStart == 0:
		// All levels are at the paragraph level.
		l.direction = levelDirection(l.paraLevel)
	default:
		level := l.levels[0] & 1

		if l.trailingWSStart < l.length && l.paraLevel&1 != level {
			// The trailing WS is at the paragraph level, which differs
			// from levels[0].
			l.direction = DirMixed
		} else {
			l.direction = levelDirection(level)
			for i := 1; i < l.trailingWSStart; i++ {
				if l.levels[i]&1 != level {
					l.direction = DirMixed
					break
				}
			}
		}
	}

	switch l.direction {
	case DirLTR:
		// Make sure the paragraph level is even.
		l.paraLevel = (l.paraLevel + 1) &^ 1
		l.trailingWSStart = 0
	case DirRTL:
		// Make sure the paragraph level is odd.
		l.paraLevel |= 1
		l.trailingWSStart = 0
	}

	return l, nil
}

// setTrailingWSStart finds the start of the trailing whitespace run, a form
// of the L1 rule performed without modifying the paragraph's levels array.
// The run preceding the whitespace is merged when it is already at the
// paragraph level.
func (l *Line) setTrailingWSStart() {
	// If the line is terminated by a block separator, all preceding
	// whitespace is already at the paragraph level.
	if l.lastClassIsBlockSeparator() {
		l.trailingWSStart = l.length
		return
	}

	start := l.length
	dirProps := l.para.dirProps[l.start : l.start+l.length]

	for start > 0 && isWSForTrailing(dirProps[start-1]) {
		start--
	}
	for start > 0 && l.levels[start-1] == l.paraLevel {
		start--
	}

	l.trailingWSStart = start
}

func (l *Line) lastClassIsBlockSeparator() bool {
	dirProps := l.para.dirProps[l.start : l.start+l.length]
	return dirProps[l.length-1] == bidi.B
}

// Length returns the line length in bytes.
func (l *Line) Length() int { return l.length }

// ResultLength returns the reordered length: the line length plus inserted
// marks minus removed controls.
func (l *Line) ResultLength() int { return l.resultLength }

// Direction returns the line's directionality.
func (l *Line) Direction() Direction { return l.direction }

// ParaLevel returns the line's base level.
func (l *Line) ParaLevel() Level { return l.paraLevel }

// TrailingWSStart returns the byte offset within the line where the
// paragraph-level trailing whitespace begins.
func (l *Line) TrailingWSStart() int { return l.trailingWSStart }

// LevelAt returns the level of the byte at index: the paragraph level inside
// the trailing whitespace run, the resolved level otherwise.
func (l *Line) LevelAt(index int) Level {
	if index < 0 || index >= l.length {
		return 0
	}
	if l.direction != DirMixed || index >= l.trailingWSStart {
		return l.paraLevel
	}
	return l.levels[index]
}
