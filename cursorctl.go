package richtext

import (
	"unicode"
	"unicode/utf8"

	"github.com/Mlleters/rich-text/layout"
)

// CursorController navigates a cursor over the currently displayed text:
// by grapheme cluster, by word, by line, and by pixel position against the
// geometry of a freshly built layout.
type CursorController struct {
	text   string
	breaks *layout.GraphemeBreaks
}

// NewCursorController builds the controller's grapheme break iterator over
// text.
func NewCursorController(text string) *CursorController {
	return &CursorController{
		text:   text,
		breaks: layout.NewGraphemeBreaks(text),
	}
}

// Breaks exposes the controller's grapheme break iterator.
func (c *CursorController) Breaks() *layout.GraphemeBreaks {
	return c.breaks
}

// runeAt decodes the rune starting at byte offset i, or 0 past the end.
func (c *CursorController) runeAt(i int) rune {
	if i < 0 || i >= len(c.text) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(c.text[i:])
	return r
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

// NextCharacter advances the cursor to the next grapheme boundary, staying
// put at the text end.
func (c *CursorController) NextCharacter(cursor layout.CursorPosition) layout.CursorPosition {
	if next := c.breaks.Following(int(cursor.Position())); next != layout.Done {
		return layout.MakeCursor(uint32(next), false)
	}
	return cursor
}

// PrevCharacter moves the cursor to the previous grapheme boundary, staying
// put at the text start.
func (c *CursorController) PrevCharacter(cursor layout.CursorPosition) layout.CursorPosition {
	if prev := c.breaks.Preceding(int(cursor.Position())); prev != layout.Done {
		return layout.MakeCursor(uint32(prev), false)
	}
	return cursor
}

// NextWord advances the cursor to the next boundary where whitespace turns
// into non-whitespace, or onto a line break.
func (c *CursorController) NextWord(cursor layout.CursorPosition) layout.CursorPosition {
	lastWhitespace := unicode.IsSpace(c.runeAt(int(cursor.Position())))

	for {
		next := c.breaks.Following(int(cursor.Position()))
		if next == layout.Done {
			break
		}

		cursor = layout.MakeCursor(uint32(next), false)
		r := c.runeAt(next)
		whitespace := unicode.IsSpace(r)

		if (!whitespace && lastWhitespace) || isLineBreak(r) {
			break
		}

		lastWhitespace = whitespace
	}

	return cursor
}

// NextWordEnd advances to the end of the current word: the first boundary
// whose character is whitespace or a line break. Double-click word
// selection pairs it with PrevWord.
func (c *CursorController) NextWordEnd(cursor layout.CursorPosition) layout.CursorPosition {
	for {
		next := c.breaks.Following(int(cursor.Position()))
		if next == layout.Done {
			break
		}

		cursor = layout.MakeCursor(uint32(next), false)
		r := c.runeAt(next)

		if unicode.IsSpace(r) || isLineBreak(r) {
			break
		}
	}

	return cursor
}

// PrevWord moves the cursor back to the previous boundary where
// non-whitespace turns into whitespace. A line break stops the walk
// inclusively: the cursor lands on it.
func (c *CursorController) PrevWord(cursor layout.CursorPosition) layout.CursorPosition {
	lastWhitespace := true

	for {
		prev := c.breaks.Preceding(int(cursor.Position()))
		if prev == layout.Done {
			break
		}

		r := c.runeAt(prev)
		whitespace := unicode.IsSpace(r)

		if whitespace && !lastWhitespace {
			break
		}

		cursor = layout.MakeCursor(uint32(prev), false)

		if isLineBreak(r) {
			break
		}

		lastWhitespace = whitespace
	}

	return cursor
}

// ClosestInLine finds the cursor position on the line visually nearest
// targetX.
func (c *CursorController) ClosestInLine(info *layout.LayoutInfo, textWidth float32,
	xAlign layout.XAlignment, lineIndex int, targetX float32) layout.CursorPosition {
	return info.FindClosestCursorPosition(textWidth, xAlign, c.breaks, lineIndex, targetX)
}

// ClosestToPosition finds the cursor position nearest the pixel point
// (x, y): the line is located by y (clamped to the last line past the end),
// then the position within it by x.
func (c *CursorController) ClosestToPosition(info *layout.LayoutInfo, textWidth float32,
	xAlign layout.XAlignment, x, y float32) layout.CursorPosition {
	line := info.ClosestLineToHeight(y - info.TextStartY)
	return c.ClosestInLine(info, textWidth, xAlign, line, x)
}
