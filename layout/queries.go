package layout

import "github.com/Mlleters/rich-text/fonts"

// CalcCursorPixelPos calculates the pixel position, height, and line number
// of the text cursor.
func (l *LayoutInfo) CalcCursorPixelPos(textWidth float32, textXAlignment XAlignment,
	cursor CursorPosition) CursorPositionResult {
	runIndex, lineIndex := l.RunContainingCursor(cursor)
	lineX := l.LineXStart(lineIndex, textWidth, textXAlignment)
	glyphOffset := l.GlyphOffsetInRun(runIndex, cursor.Position())

	var prevDescent float32
	if lineIndex > 0 {
		prevDescent = l.Lines[lineIndex-1].TotalDescent
	}

	return CursorPositionResult{
		X:          lineX + glyphOffset,
		Y:          l.TextStartY + prevDescent,
		Height:     l.Lines[lineIndex].TotalDescent - prevDescent,
		LineNumber: lineIndex,
	}
}

// RunContainingCursor finds the run holding the cursor position, resolving
// affinity at line breaks and direction boundaries:
// line-end default goes to the next run's start, an RTL-to-LTR boundary
// defaults to the current run's end, and an LTR-to-RTL boundary defaults to
// the next run's start.
func (l *LayoutInfo) RunContainingCursor(cursor CursorPosition) (runIndex, lineNumber int) {
	cursorPos := cursor.Position()

	for i := 0; i < len(l.VisualRuns); i++ {
		run := &l.VisualRuns[i]
		runBeforeLineBreak := i+1 < len(l.VisualRuns) && uint32(i+1) == l.Lines[lineNumber].VisualRunsEndIndex
		runAfterLineBreak := uint32(i) == l.Lines[lineNumber].VisualRunsEndIndex

		if runAfterLineBreak {
			lineNumber++
		}

		runBeforeSoftBreak := runBeforeLineBreak && run.CharEndOffset == 0
		runAfterSoftBreak := runAfterLineBreak && i > 0 && l.VisualRuns[i-1].CharEndOffset == 0

		usePrevRunEnd := i > 0 && affinityPreferPrevRun(runAfterLineBreak, runAfterSoftBreak,
			l.VisualRuns[i-1].RightToLeft, run.RightToLeft, cursor.Affinity())
		useNextRunStart := i+1 < len(l.VisualRuns) && !affinityPreferPrevRun(runBeforeLineBreak,
			runBeforeSoftBreak, run.RightToLeft, l.VisualRuns[i+1].RightToLeft, cursor.Affinity())

		ignoreStart := cursorPos == run.CharStartIndex && usePrevRunEnd
		ignoreEnd := cursorPos == run.CharEndIndex+uint32(run.CharEndOffset) && useNextRunStart

		if cursorPos >= run.CharStartIndex && cursorPos <= run.CharEndIndex+uint32(run.CharEndOffset) &&
			!ignoreStart && !ignoreEnd {
			return i, lineNumber
		}
	}

	return len(l.VisualRuns) - 1, len(l.Lines) - 1
}

// affinityPreferPrevRun decides whether an ambiguous boundary position
// belongs to the run before the boundary.
func affinityPreferPrevRun(atLineBreak, atSoftLineBreak, prevRunRTL, nextRunRTL bool,
	affinity CursorAffinity) bool {
	// Case 1: the boundary is a soft line break.
	return (atSoftLineBreak && affinity == AffinityOpposite) ||
		// Case 2: transition from RTL to LTR.
		(!atLineBreak && prevRunRTL && !nextRunRTL && affinity == AffinityDefault) ||
		// Case 3: transition from LTR to RTL.
		(!atLineBreak && !prevRunRTL && nextRunRTL && affinity == AffinityOpposite)
}

// ClosestLineToHeight returns the line closest to pixel height y: 0 above
// the first line, the last line's index past the end.
func (l *LayoutInfo) ClosestLineToHeight(y float32) int {
	idx := binarySearch(0, len(l.Lines), func(i int) bool {
		return l.Lines[i].TotalDescent < y
	})
	if idx == len(l.Lines) {
		return len(l.Lines) - 1
	}
	return idx
}

// LineStartPosition returns the logical position a cursor at the visual
// start of the line occupies.
func (l *LayoutInfo) LineStartPosition(lineIndex int) CursorPosition {
	lowestRun := l.FirstRunIndex(lineIndex)
	lowestRunEnd := l.VisualRuns[lowestRun].CharEndIndex

	for i := lowestRun + 1; i < int(l.Lines[lineIndex].VisualRunsEndIndex); i++ {
		if l.VisualRuns[i].CharEndIndex < lowestRunEnd {
			lowestRun = i
			lowestRunEnd = l.VisualRuns[i].CharEndIndex
		}
	}

	run := &l.VisualRuns[lowestRun]
	if run.RightToLeft {
		return MakeCursor(run.CharEndIndex, false)
	}
	return MakeCursor(run.CharStartIndex, false)
}

// LineEndPosition returns the logical position a cursor at the visual end of
// the line occupies. At a soft break the cursor carries opposite affinity so
// it stays on this line.
func (l *LayoutInfo) LineEndPosition(lineIndex int) CursorPosition {
	highestRun := l.FirstRunIndex(lineIndex)
	highestRunEnd := l.VisualRuns[highestRun].CharEndIndex

	for i := highestRun + 1; i < int(l.Lines[lineIndex].VisualRunsEndIndex); i++ {
		if l.VisualRuns[i].CharEndIndex > highestRunEnd {
			highestRun = i
			highestRunEnd = l.VisualRuns[i].CharEndIndex
		}
	}

	oppositeAffinity := highestRun == int(l.Lines[lineIndex].VisualRunsEndIndex)-1 &&
		l.VisualRuns[highestRun].CharEndOffset == 0

	run := &l.VisualRuns[highestRun]
	if run.RightToLeft {
		return MakeCursor(run.CharStartIndex, oppositeAffinity)
	}
	return MakeCursor(run.CharEndIndex, oppositeAffinity)
}

// LineXStart returns the x offset the alignment gives the line.
func (l *LayoutInfo) LineXStart(lineIndex int, textWidth float32, align XAlignment) float32 {
	lineWidth := l.Lines[lineIndex].Width

	switch align {
	case AlignLeft:
		if l.rightToLeft {
			return textWidth - lineWidth
		}
		return 0
	case AlignRight:
		return textWidth - lineWidth
	case AlignCenter:
		return 0.5 * (textWidth - lineWidth)
	}

	return 0
}

// FindClosestCursorPosition finds the cursor position on the line whose
// visual x is nearest cursorX, snapping to the grapheme boundaries iter
// delivers.
func (l *LayoutInfo) FindClosestCursorPosition(textWidth float32, textXAlignment XAlignment,
	iter *GraphemeBreaks, lineNumber int, cursorX float32) CursorPosition {
	cursorX -= l.LineXStart(lineNumber, textWidth, textXAlignment)

	// Find the run containing the x position.
	firstRunIndex := l.FirstRunIndex(lineNumber)
	lastRunIndex := int(l.Lines[lineNumber].VisualRunsEndIndex)
	runIndex := binarySearch(firstRunIndex, lastRunIndex-firstRunIndex, func(i int) bool {
		lastPosIndex := 2 * (int(l.VisualRuns[i].GlyphEndIndex) + i)
		return l.GlyphPositions[lastPosIndex] < cursorX
	})

	if runIndex == lastRunIndex {
		last := &l.VisualRuns[lastRunIndex-1]
		if last.RightToLeft {
			return MakeCursor(last.CharStartIndex, false)
		}
		return MakeCursor(last.CharEndIndex+uint32(last.CharEndOffset), false)
	}

	// Find the closest glyph within the run.
	firstGlyphIndex := l.FirstGlyphIndex(runIndex)
	lastGlyphIndex := l.VisualRuns[runIndex].GlyphEndIndex
	firstPosIndex := l.FirstPositionIndex(runIndex)
	rightToLeft := l.VisualRuns[runIndex].RightToLeft

	glyphIndex := firstGlyphIndex + uint32(binarySearch(0, int(lastGlyphIndex-firstGlyphIndex), func(i int) bool {
		return l.GlyphPositions[int(firstPosIndex)+2*i] < cursorX
	}))

	// Find the visual and logical bounds of the glyph's cluster.
	var clusterStartChar, clusterEndChar uint32
	var clusterStartPos, clusterEndPos float32

	if rightToLeft {
		if glyphIndex == firstGlyphIndex {
			clusterStartChar = l.VisualRuns[runIndex].CharEndIndex
			clusterEndChar = clusterStartChar
			clusterStartPos = l.GlyphPositions[firstPosIndex]
			clusterEndPos = clusterStartPos
		} else {
			clusterStartChar = uint32(l.CharIndices[glyphIndex-1])
			if glyphIndex-1 == firstGlyphIndex {
				clusterEndChar = l.VisualRuns[runIndex].CharEndIndex
			} else {
				clusterEndChar = uint32(l.CharIndices[glyphIndex-2])
			}
			clusterStartPos = l.GlyphPositions[firstPosIndex+2*(glyphIndex-firstGlyphIndex)]
			clusterEndPos = l.GlyphPositions[firstPosIndex+2*(glyphIndex-1-firstGlyphIndex)]
		}
	} else {
		if glyphIndex == firstGlyphIndex {
			clusterStartChar = l.VisualRuns[runIndex].CharStartIndex
		} else {
			clusterStartChar = uint32(l.CharIndices[glyphIndex-1])
		}
		if glyphIndex == lastGlyphIndex {
			clusterEndChar = l.VisualRuns[runIndex].CharEndIndex
		} else {
			clusterEndChar = uint32(l.CharIndices[glyphIndex])
		}
		if glyphIndex == firstGlyphIndex {
			clusterStartPos = l.GlyphPositions[firstPosIndex]
		} else {
			clusterStartPos = l.GlyphPositions[firstPosIndex+2*(glyphIndex-1-firstGlyphIndex)]
		}
		clusterEndPos = l.GlyphPositions[firstPosIndex+2*(glyphIndex-firstGlyphIndex)]
	}

	// Determine the necessary affinity of the cursor.
	firstRunInLine := runIndex == firstRunIndex
	lastRunInLine := runIndex == lastRunIndex-1
	atSoftLineBreak := lastRunInLine && l.VisualRuns[runIndex].CharEndOffset == 0

	firstGlyphAffinity := !firstRunInLine && !rightToLeft && l.VisualRuns[runIndex-1].RightToLeft
	lastGlyphAffinity := atSoftLineBreak ||
		(!lastRunInLine && !rightToLeft && l.VisualRuns[runIndex+1].RightToLeft)

	if clusterStartChar == clusterEndChar {
		return MakeCursor(clusterStartChar, firstGlyphAffinity)
	}

	currCharIndex := clusterStartChar
	currPos := clusterStartPos

	for {
		next := iter.Following(int(currCharIndex))
		if next == Done {
			return MakeCursor(clusterStartChar, false)
		}
		nextCharIndex := uint32(next)
		nextPos := clusterStartPos + float32(nextCharIndex-clusterStartChar)/
			float32(clusterEndChar-clusterStartChar)*(clusterEndPos-clusterStartPos)

		if rightToLeft {
			if cursorX > nextPos && cursorX <= currPos {
				selectedChar := currCharIndex
				if cursorX-nextPos < currPos-cursorX {
					selectedChar = nextCharIndex
				}
				affinity := (selectedChar == l.VisualRuns[runIndex].CharEndIndex && firstGlyphAffinity) ||
					(selectedChar == l.VisualRuns[runIndex].CharStartIndex && lastGlyphAffinity)
				return MakeCursor(selectedChar, affinity)
			}
		} else {
			if cursorX > currPos && cursorX <= nextPos {
				selectedChar := currCharIndex
				if nextPos-cursorX < cursorX-currPos {
					selectedChar = nextCharIndex
				}
				affinity := (selectedChar == l.VisualRuns[runIndex].CharStartIndex && firstGlyphAffinity) ||
					(selectedChar == l.VisualRuns[runIndex].CharEndIndex && lastGlyphAffinity)
				return MakeCursor(selectedChar, affinity)
			}
		}

		if nextCharIndex >= clusterEndChar {
			return MakeCursor(clusterStartChar, false)
		}

		currCharIndex = nextCharIndex
		currPos = nextPos
	}
}

// RunContainsCharRange reports whether any part of [firstCharIndex,
// lastCharIndex) falls inside the run's character range.
func (l *LayoutInfo) RunContainsCharRange(runIndex int, firstCharIndex, lastCharIndex uint32) bool {
	return l.VisualRuns[runIndex].CharStartIndex < lastCharIndex &&
		l.VisualRuns[runIndex].CharEndIndex > firstCharIndex
}

// PositionRangeInRun returns the horizontal pixel range covered by the
// character range [firstCharIndex, lastCharIndex) within the run. For RTL
// runs min and max swap relative to the logical direction.
func (l *LayoutInfo) PositionRangeInRun(runIndex int, firstCharIndex, lastCharIndex uint32) (minPos, maxPos float32) {
	run := &l.VisualRuns[runIndex]
	minPos = l.GlyphOffsetInRun(runIndex, clampUint32(firstCharIndex, run.CharStartIndex, run.CharEndIndex))
	maxPos = l.GlyphOffsetInRun(runIndex, clampUint32(lastCharIndex, run.CharStartIndex, run.CharEndIndex))

	if run.RightToLeft {
		minPos, maxPos = maxPos, minPos
	}
	return minPos, maxPos
}

func clampUint32(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FirstRunIndex returns the index of the line's first visual run.
func (l *LayoutInfo) FirstRunIndex(lineIndex int) int {
	if lineIndex == 0 {
		return 0
	}
	return int(l.Lines[lineIndex-1].VisualRunsEndIndex)
}

// FirstGlyphIndex returns the index of the run's first glyph.
func (l *LayoutInfo) FirstGlyphIndex(runIndex int) uint32 {
	if runIndex == 0 {
		return 0
	}
	return l.VisualRuns[runIndex-1].GlyphEndIndex
}

// FirstPositionIndex returns the index of the run's first glyph position
// entry.
func (l *LayoutInfo) FirstPositionIndex(runIndex int) uint32 {
	if runIndex == 0 {
		return 0
	}
	return 2 * (l.VisualRuns[runIndex-1].GlyphEndIndex + uint32(runIndex))
}

// LineHeight returns the height of a line.
func (l *LayoutInfo) LineHeight(lineIndex int) float32 {
	if lineIndex == 0 {
		return l.Lines[0].TotalDescent
	}
	return l.Lines[lineIndex].TotalDescent - l.Lines[lineIndex-1].TotalDescent
}

// RunPositions returns the run's interleaved x,y glyph positions, including
// the trailing end-of-run pair.
func (l *LayoutInfo) RunPositions(runIndex int) []float32 {
	first := l.FirstPositionIndex(runIndex)
	count := 2 * (l.RunGlyphCount(runIndex) + 1)
	return l.GlyphPositions[first : int(first)+count]
}

// RunGlyphCount returns the number of glyphs in the run.
func (l *LayoutInfo) RunGlyphCount(runIndex int) int {
	return int(l.VisualRuns[runIndex].GlyphEndIndex - l.FirstGlyphIndex(runIndex))
}

// GlyphOffsetInRun returns the horizontal offset of a cursor index from the
// start of the run's line.
func (l *LayoutInfo) GlyphOffsetInRun(runIndex int, cursor uint32) float32 {
	if l.VisualRuns[runIndex].RightToLeft {
		return l.glyphOffsetRTL(runIndex, cursor)
	}
	return l.glyphOffsetLTR(runIndex, cursor)
}

func (l *LayoutInfo) glyphOffsetLTR(runIndex int, cursor uint32) float32 {
	firstGlyphIndex := l.FirstGlyphIndex(runIndex)
	lastGlyphIndex := l.VisualRuns[runIndex].GlyphEndIndex
	firstPosIndex := l.FirstPositionIndex(runIndex)

	glyphIndex := uint32(binarySearch(int(firstGlyphIndex), int(lastGlyphIndex-firstGlyphIndex), func(i int) bool {
		return uint32(l.CharIndices[i]) < cursor
	}))

	var nextCharIndex uint32
	if glyphIndex == lastGlyphIndex {
		nextCharIndex = l.VisualRuns[runIndex].CharEndIndex
	} else {
		nextCharIndex = uint32(l.CharIndices[glyphIndex])
	}
	clusterDiff := nextCharIndex - cursor

	glyphOffset := l.GlyphPositions[firstPosIndex+2*(glyphIndex-firstGlyphIndex)]

	// A cursor inside a multi-byte cluster interpolates between the
	// neighboring glyph positions.
	if clusterDiff > 0 && glyphIndex > firstGlyphIndex {
		clusterByteCount := nextCharIndex - uint32(l.CharIndices[glyphIndex-1])
		prevGlyphOffset := l.GlyphPositions[firstPosIndex+2*(glyphIndex-firstGlyphIndex-1)]
		scaleFactor := float32(clusterByteCount-clusterDiff) / float32(clusterByteCount)

		glyphOffset = prevGlyphOffset + (glyphOffset-prevGlyphOffset)*scaleFactor
	}

	return glyphOffset
}

func (l *LayoutInfo) glyphOffsetRTL(runIndex int, cursor uint32) float32 {
	firstGlyphIndex := l.FirstGlyphIndex(runIndex)
	lastGlyphIndex := l.VisualRuns[runIndex].GlyphEndIndex
	firstPosIndex := l.FirstPositionIndex(runIndex)

	glyphIndex := uint32(binarySearch(int(firstGlyphIndex), int(lastGlyphIndex-firstGlyphIndex), func(i int) bool {
		return uint32(l.CharIndices[i]) >= cursor
	}))

	var nextCharIndex uint32
	if glyphIndex == firstGlyphIndex {
		nextCharIndex = l.VisualRuns[runIndex].CharEndIndex
	} else {
		nextCharIndex = uint32(l.CharIndices[glyphIndex-1])
	}
	clusterDiff := nextCharIndex - cursor

	glyphOffset := l.GlyphPositions[firstPosIndex+2*(glyphIndex-firstGlyphIndex)]

	if clusterDiff > 0 && glyphIndex < lastGlyphIndex {
		clusterByteCount := nextCharIndex - uint32(l.CharIndices[glyphIndex])
		prevGlyphOffset := l.GlyphPositions[firstPosIndex+2*(glyphIndex-firstGlyphIndex+1)]
		scaleFactor := float32(clusterByteCount-clusterDiff) / float32(clusterByteCount)

		glyphOffset = prevGlyphOffset + (glyphOffset-prevGlyphOffset)*scaleFactor
	}

	return glyphOffset
}

// ForEachLine calls visit for every line with the x offset its alignment
// gives it and its baseline y.
func (l *LayoutInfo) ForEachLine(textWidth float32, textXAlignment XAlignment,
	visit func(lineIndex int, lineX, lineY float32)) {
	if len(l.Lines) == 0 {
		return
	}

	lineY := l.Lines[0].Ascent
	for i := range l.Lines {
		lineX := l.LineXStart(i, textWidth, textXAlignment)
		visit(i, lineX, lineY)
		lineY += l.LineHeight(i)
	}
}

// ForEachRun calls visit for every visual run, grouped by line in visual
// order.
func (l *LayoutInfo) ForEachRun(textWidth float32, textXAlignment XAlignment,
	visit func(lineIndex, runIndex int, lineX, lineY float32)) {
	runIndex := 0

	l.ForEachLine(textWidth, textXAlignment, func(lineIndex int, lineX, lineY float32) {
		for ; runIndex < int(l.Lines[lineIndex].VisualRunsEndIndex); runIndex++ {
			visit(lineIndex, runIndex, lineX, lineY)
		}
	})
}

// ForEachGlyph calls visit for every glyph with its id, logical byte index,
// baseline-relative position, font, and line offsets.
func (l *LayoutInfo) ForEachGlyph(textWidth float32, textXAlignment XAlignment,
	visit func(glyphID uint32, charIndex int32, posX, posY float32, font *fonts.FontData, lineX, lineY float32)) {
	glyphIndex := uint32(0)
	glyphPosIndex := uint32(0)

	l.ForEachRun(textWidth, textXAlignment, func(lineIndex, runIndex int, lineX, lineY float32) {
		run := &l.VisualRuns[runIndex]

		for ; glyphIndex < run.GlyphEndIndex; glyphIndex, glyphPosIndex = glyphIndex+1, glyphPosIndex+2 {
			visit(l.Glyphs[glyphIndex], l.CharIndices[glyphIndex],
				l.GlyphPositions[glyphPosIndex], l.GlyphPositions[glyphPosIndex+1],
				run.Font, lineX, lineY)
		}

		glyphPosIndex += 2
	})
}
