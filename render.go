package richtext

import (
	"github.com/Mlleters/rich-text/fonts"
	"github.com/Mlleters/rich-text/format"
	"github.com/Mlleters/rich-text/style"
)

var (
	selectionColor   = style.Color{R: 0.2, G: 0.45, B: 0.9, A: 0.9}
	selectedTextTint = style.RGB(1, 1, 1)
	cursorColor      = style.RGB(0, 0, 0)
	outlineColor     = style.Color{R: 0, G: 0.5, B: 0, A: 1}
)

// Debug toggles. ShowRunOutlines draws a box around every visual run;
// ShowGlyphBoundaries draws a hairline at every glyph position.
var (
	ShowRunOutlines     bool
	ShowGlyphBoundaries bool
)

// Rects returns the draw rectangles of the box's current state: selection
// highlights first, then stroke glyphs, main glyphs with decorations, and
// finally the cursor overlay.
func (b *TextBox) Rects() []Rect {
	return b.textRects
}

// buildTextRects regenerates the cached draw rectangles from the current
// layout.
func (b *TextBox) buildTextRects() {
	info := &b.layoutInfo

	selStart, selEnd, hasSelection := b.SelectionRange()

	// Selection highlights, one rect per visual run so runs never seam.
	if hasSelection {
		info.ForEachRun(b.size[0], b.xAlign, func(lineIndex, runIndex int, lineX, lineY float32) {
			if !info.RunContainsCharRange(runIndex, selStart, selEnd) {
				return
			}
			minX, maxX := info.PositionRangeInRun(runIndex, selStart, selEnd)
			b.textRects = append(b.textRects, Rect{
				X:        b.position[0] + lineX + minX,
				Y:        b.position[1] + info.TextStartY + lineY - info.Lines[lineIndex].Ascent,
				Width:    maxX - minX,
				Height:   info.LineHeight(lineIndex),
				Texture:  b.atlas.DefaultTexture(),
				Color:    selectionColor,
				Pipeline: PipelineRect,
			})
		})
	}

	// Stroke glyphs beneath the main pass.
	info.ForEachGlyph(b.size[0], b.xAlign, func(glyphID uint32, charIndex int32, posX, posY float32,
		font *fonts.FontData, lineX, lineY float32) {
		stroke := b.formatting.StrokeRuns.Value(charIndex)
		if stroke.Color.A <= 0 {
			return
		}

		quad, ok := b.atlas.StrokeInfo(font, glyphID, stroke.Thickness, stroke.Joins)
		if !ok {
			return
		}

		b.textRects = append(b.textRects, Rect{
			X:         b.position[0] + lineX + posX + quad.OffsetX,
			Y:         b.position[1] + info.TextStartY + lineY + posY + quad.OffsetY,
			Width:     quad.Width,
			Height:    quad.Height,
			TexCoords: quad.TexCoords,
			Texture:   quad.Texture,
			Color:     stroke.Color,
			Pipeline:  quad.Pipeline,
		})
	})

	// Main glyphs and decorations, walked run by run so the formatting
	// iterator can traverse RTL runs logically while glyphs stay visual.
	b.buildGlyphAndDecorationRects(selStart, selEnd, hasSelection)

	if ShowRunOutlines || ShowGlyphBoundaries {
		b.buildDebugRects()
	}

	b.emitCursorRect()
}

// buildDebugRects emits run outline and glyph boundary overlays.
func (b *TextBox) buildDebugRects() {
	info := &b.layoutInfo

	info.ForEachRun(b.size[0], b.xAlign, func(lineIndex, runIndex int, lineX, lineY float32) {
		positions := info.RunPositions(runIndex)
		glyphCount := info.RunGlyphCount(runIndex)
		top := b.position[1] + info.TextStartY + lineY - info.Lines[lineIndex].Ascent

		if ShowRunOutlines {
			b.textRects = append(b.textRects, Rect{
				X:        b.position[0] + lineX + positions[0],
				Y:        top,
				Width:    positions[2*glyphCount] - positions[0],
				Height:   info.LineHeight(lineIndex),
				Texture:  b.atlas.DefaultTexture(),
				Color:    outlineColor,
				Pipeline: PipelineOutline,
			})
		}

		if ShowGlyphBoundaries {
			for i := 0; i <= glyphCount; i++ {
				b.textRects = append(b.textRects, Rect{
					X:        b.position[0] + lineX + positions[2*i],
					Y:        top,
					Width:    0.5,
					Height:   info.LineHeight(lineIndex),
					Texture:  b.atlas.DefaultTexture(),
					Color:    outlineColor,
					Pipeline: PipelineOutline,
				})
			}
		}
	})
}

func (b *TextBox) buildGlyphAndDecorationRects(selStart, selEnd uint32, hasSelection bool) {
	info := &b.layoutInfo

	info.ForEachRun(b.size[0], b.xAlign, func(lineIndex, runIndex int, lineX, lineY float32) {
		run := &info.VisualRuns[runIndex]
		font := run.Font
		positions := info.RunPositions(runIndex)
		firstGlyph := info.FirstGlyphIndex(runIndex)
		glyphCount := info.RunGlyphCount(runIndex)

		baseX := b.position[0] + lineX
		baseY := b.position[1] + info.TextStartY + lineY

		// Selection clip span within this run, absolute coordinates.
		clipActive := false
		var clipX0, clipX1 float32
		if hasSelection && info.RunContainsCharRange(runIndex, selStart, selEnd) {
			minX, maxX := info.PositionRangeInRun(runIndex, selStart, selEnd)
			clipX0 = baseX + minX
			clipX1 = baseX + maxX
			clipActive = true
		}

		iterStart := run.CharStartIndex
		if run.RightToLeft {
			iterStart = run.CharEndIndex
		}
		it := format.NewIterator(&b.formatting, int32(iterStart))

		var underlineStartX, strikeStartX float32

		for g := 0; g < glyphCount; g++ {
			glyphIndex := firstGlyph + uint32(g)
			charIndex := info.CharIndices[glyphIndex]
			posX := positions[2*g]
			posY := positions[2*g+1]

			event := it.AdvanceTo(charIndex)

			if event&format.EventUnderlineEnd != 0 {
				b.emitDecorationRect(underlineStartX, baseX+posX, baseY,
					font.UnderlinePosition(), font.UnderlineThickness(), it.PrevColor())
			}
			if event&format.EventStrikethroughEnd != 0 {
				b.emitDecorationRect(strikeStartX, baseX+posX, baseY,
					font.StrikethroughPosition(), font.StrikethroughThickness(), it.PrevColor())
			}
			if event&format.EventUnderlineBegin != 0 {
				underlineStartX = baseX + posX
			}
			if event&format.EventStrikethroughBegin != 0 {
				strikeStartX = baseX + posX
			}

			quad, ok := b.atlas.GlyphInfo(font, info.Glyphs[glyphIndex])
			if !ok {
				continue
			}

			color := it.Color()
			if quad.HasColor {
				color = selectedTextTint
			}

			rect := Rect{
				X:         baseX + posX + quad.OffsetX,
				Y:         baseY + posY + quad.OffsetY,
				Width:     quad.Width,
				Height:    quad.Height,
				TexCoords: quad.TexCoords,
				Texture:   quad.Texture,
				Color:     color,
				Pipeline:  quad.Pipeline,
			}

			inSelection := hasSelection && uint32(charIndex) >= selStart && uint32(charIndex) < selEnd
			if clipActive && inSelection {
				b.emitClippedRect(rect, clipX0, clipX1, selectedTextTint)
			} else {
				b.textRects = append(b.textRects, rect)
			}
		}

		// Close decorations still open at the run's end.
		runEndX := baseX + positions[2*glyphCount]
		if it.HasUnderline() {
			b.emitDecorationRect(underlineStartX, runEndX, baseY,
				font.UnderlinePosition(), font.UnderlineThickness(), it.Color())
		}
		if it.HasStrikethrough() {
			b.emitDecorationRect(strikeStartX, runEndX, baseY,
				font.StrikethroughPosition(), font.StrikethroughThickness(), it.Color())
		}
	})
}

// emitDecorationRect adds an underline or strikethrough bar spanning
// [startX, endX) at the given baseline-relative position.
func (b *TextBox) emitDecorationRect(startX, endX, baselineY float32, offset, thickness float64, color style.Color) {
	if endX < startX {
		startX, endX = endX, startX
	}
	if endX-startX <= 0 {
		return
	}

	b.textRects = append(b.textRects, Rect{
		X:        startX,
		Y:        baselineY + float32(offset),
		Width:    endX - startX,
		Height:   float32(thickness) + 0.5,
		Texture:  b.atlas.DefaultTexture(),
		Color:    color,
		Pipeline: PipelineRect,
	})
}

// emitClippedRect splits rect against the horizontal clip span [clipX0,
// clipX1): the parts outside keep their color, the part inside renders with
// clippedColor. A part narrower than one pixel is absorbed into the clipped
// rect to avoid subpixel slivers.
func (b *TextBox) emitClippedRect(rect Rect, clipX0, clipX1 float32, clippedColor style.Color) {
	x0 := rect.X
	x1 := rect.X + rect.Width

	if x1 <= clipX0 || x0 >= clipX1 {
		b.textRects = append(b.textRects, rect)
		return
	}

	midX0 := x0
	if clipX0 > x0 {
		midX0 = clipX0
	}
	midX1 := x1
	if clipX1 < x1 {
		midX1 = clipX1
	}

	texWidth := rect.TexCoords[2] - rect.TexCoords[0]
	texAt := func(x float32) float32 {
		if rect.Width == 0 {
			return rect.TexCoords[0]
		}
		return rect.TexCoords[0] + texWidth*(x-x0)/rect.Width
	}

	// Absorb sub-pixel outer slivers into the clipped middle.
	if midX0-x0 < 1 {
		midX0 = x0
	}
	if x1-midX1 < 1 {
		midX1 = x1
	}

	if midX0 > x0 {
		left := rect
		left.Width = midX0 - x0
		left.TexCoords[2] = texAt(midX0)
		b.textRects = append(b.textRects, left)
	}

	mid := rect
	mid.X = midX0
	mid.Width = midX1 - midX0
	mid.TexCoords[0] = texAt(midX0)
	mid.TexCoords[2] = texAt(midX1)
	mid.Color = clippedColor
	b.textRects = append(b.textRects, mid)

	if x1 > midX1 {
		right := rect
		right.X = midX1
		right.Width = x1 - midX1
		right.TexCoords[0] = texAt(midX1)
		b.textRects = append(b.textRects, right)
	}
}

// emitCursorRect appends the caret overlay after all text rects.
func (b *TextBox) emitCursorRect() {
	if !b.isFocused() {
		return
	}

	b.textRects = append(b.textRects, Rect{
		X:        b.position[0] + b.cursorPixelX,
		Y:        b.position[1] + b.cursorPixelY,
		Width:    1,
		Height:   b.cursorHeight,
		Texture:  b.atlas.DefaultTexture(),
		Color:    cursorColor,
		Pipeline: PipelineRect,
	})
}
