package layout

import (
	"sync"
	"unicode/utf8"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/Mlleters/rich-text/fonts"
	"github.com/Mlleters/rich-text/ubidi"
	"github.com/Mlleters/rich-text/valuerun"
)

// shaperPool pools HarfbuzzShaper instances; they carry internal buffers and
// are not safe for concurrent use, but reuse across builds is cheap.
var shaperPool = sync.Pool{
	New: func() any {
		return &shaping.HarfbuzzShaper{}
	},
}

// logicalRun is a maximal span of uniform font, level, script, and language
// within one paragraph, in logical order.
type logicalRun struct {
	font          *fonts.FontData
	lang          language.Language
	level         ubidi.Level
	script        language.Script
	charEndIndex  int32 // paragraph-relative byte offset
	glyphEndIndex uint32
}

// buildState carries the per-paragraph shaping scratch: glyph arrays in
// logical order plus per-run positions in visual order, reused across
// paragraphs.
type buildState struct {
	shaper *shaping.HarfbuzzShaper

	glyphs         []uint32
	charIndices    []int32
	glyphPositions []float32
	glyphWidths    []float32

	runes      []rune
	runeStarts []int // byte offset of each rune, plus the end
	byteToRune []int32
}

// setParagraph decodes the paragraph bytes into the rune views shaping needs.
func (s *buildState) setParagraph(chars []byte) {
	s.runes = s.runes[:0]
	s.runeStarts = s.runeStarts[:0]
	s.byteToRune = s.byteToRune[:0]

	for i := 0; i < len(chars); {
		r, sz := utf8.DecodeRune(chars[i:])
		for b := 0; b < sz; b++ {
			s.byteToRune = append(s.byteToRune, int32(len(s.runes)))
		}
		s.runeStarts = append(s.runeStarts, i)
		s.runes = append(s.runes, r)
		i += sz
	}
	s.runeStarts = append(s.runeStarts, len(chars))
	s.byteToRune = append(s.byteToRune, int32(len(s.runes)))
}

// BuildLayoutInfo lays out text into result: one paragraph per separator
// (LF, CR, CRLF, LSEP, PSEP), wrapped at textAreaWidth when non-zero, and
// vertically aligned within textAreaHeight.
func BuildLayoutInfo(result *LayoutInfo, text []byte, fontRuns *valuerun.ValueRuns[fonts.Font],
	textAreaWidth, textAreaHeight float32, textYAlignment YAlignment, flags Flags) {
	result.Clear()
	result.rightToLeft = flags&FlagRightToLeft != 0

	state := &buildState{shaper: shaperPool.Get().(*shaping.HarfbuzzShaper)}
	defer shaperPool.Put(state.shaper)

	count := len(text)
	paragraphOffset := 0
	lastHighestRun := 0

	baseLevel := ubidi.DefaultLTR
	if flags&FlagRightToLeft != 0 {
		baseLevel = ubidi.DefaultRTL
	}
	if flags&FlagOverrideDirectionality != 0 {
		baseLevel &= 1
	}

	var subsetFontRuns valuerun.ValueRuns[fonts.Font]

	for paragraphOffset < count {
		paragraphLength, separatorLength := paragraphBoundary(text[paragraphOffset:])
		isLastParagraph := paragraphOffset+paragraphLength == count

		if paragraphLength-separatorLength > 0 {
			byteCount := paragraphLength
			if !isLastParagraph {
				byteCount -= separatorLength
			}

			subsetFontRuns.Clear()
			fontRuns.Subset(int32(paragraphOffset), int32(byteCount), &subsetFontRuns)

			chars := text[paragraphOffset : paragraphOffset+byteCount]
			para := ubidi.NewParagraph(chars, baseLevel, 0)
			lastHighestRun = buildSubParagraph(state, result, para, chars, byteCount,
				paragraphOffset, &subsetFontRuns, textAreaWidth)
		} else {
			// An empty paragraph still produces a line with the font's
			// height so the cursor has a home on it.
			f := fontRuns.Value(int32(min(paragraphOffset, count-1)))
			data := f.Registry().FontDataFor(f)
			height := float32(data.Ascent() + data.Descent())

			lastHighestRun = len(result.VisualRuns)

			// All inserted runs need at least two glyph position entries.
			result.GlyphPositions = append(result.GlyphPositions, 0, 0)

			glyphEnd := uint32(0)
			if len(result.VisualRuns) > 0 {
				glyphEnd = result.VisualRuns[len(result.VisualRuns)-1].GlyphEndIndex
			}
			result.VisualRuns = append(result.VisualRuns, VisualRun{
				Font:           data,
				GlyphEndIndex:  glyphEnd,
				CharStartIndex: uint32(paragraphOffset),
				CharEndIndex:   uint32(paragraphOffset),
			})

			totalDescent := height
			if len(result.Lines) > 0 {
				totalDescent += result.Lines[len(result.Lines)-1].TotalDescent
			}
			result.Lines = append(result.Lines, LineInfo{
				VisualRunsEndIndex: uint32(len(result.VisualRuns)),
				Width:              0,
				Ascent:             float32(data.Ascent()),
				TotalDescent:       totalDescent,
			})
		}

		if !isLastParagraph {
			result.VisualRuns[lastHighestRun].CharEndOffset = uint8(separatorLength)
		}

		paragraphOffset += paragraphLength
	}

	var totalHeight float32
	if len(result.Lines) > 0 {
		totalHeight = result.Lines[len(result.Lines)-1].TotalDescent
	}
	result.TextStartY = float32(textYAlignment) * (textAreaHeight - totalHeight) * 0.5
}

// paragraphBoundary returns the length of the first paragraph of sub,
// including its separator, plus the separator's byte length. CR+LF counts
// as one separator.
func paragraphBoundary(sub []byte) (length, separatorLength int) {
	for i := 0; i < len(sub); {
		r, sz := utf8.DecodeRune(sub[i:])

		switch r {
		case '\r':
			if i+1 < len(sub) && sub[i+1] == '\n' {
				return i + 2, 2
			}
			return i + 1, 1
		case '\n', '\u2028', '\u2029':
			return i + sz, sz
		}
		i += sz
	}
	return len(sub), 0
}

func buildSubParagraph(state *buildState, result *LayoutInfo, para *ubidi.Paragraph, chars []byte,
	count, stringOffset int, fontRuns *valuerun.ValueRuns[fonts.Font], textAreaWidth float32) int {
	levelRuns := compressLevels(para.Levels())

	var scriptRuns valuerun.ValueRuns[language.Script]
	computeScriptRuns(chars, &scriptRuns)

	subFontRuns := computeSubFonts(chars, fontRuns, &scriptRuns)
	lang := language.NewLanguage("en")

	// Intersect the font, level, and script runs into logical runs.
	var logicalRuns []logicalRun
	intersectRuns3(subFontRuns, &levelRuns, &scriptRuns,
		func(limit int32, sub fonts.SingleScriptFont, level ubidi.Level, script language.Script) {
			var reg *fonts.Registry
			if fontRuns.RunCount() > 0 {
				reg = fontRuns.RunValue(0).Registry()
			}
			logicalRuns = append(logicalRuns, logicalRun{
				font:         reg.SubFontData(sub),
				lang:         lang,
				level:        level,
				script:       script,
				charEndIndex: limit,
			})
		})

	state.setParagraph(chars)
	state.glyphs = state.glyphs[:0]
	state.charIndices = state.charIndices[:0]
	state.glyphPositions = state.glyphPositions[:0]
	state.glyphWidths = state.glyphWidths[:0]

	runStart := int32(0)
	for i := range logicalRuns {
		run := &logicalRuns[i]
		rightToLeft := run.level&1 != 0
		shapeLogicalRun(state, run.font, int(runStart), int(run.charEndIndex-runStart),
			run.script, run.lang, rightToLeft, stringOffset)
		run.glyphEndIndex = uint32(len(state.glyphs))
		runStart = run.charEndIndex
	}

	highestRun := 0
	highestRunCharEnd := int32(-0x80000000)

	// With no width constraint the paragraph is a single line.
	if textAreaWidth == 0 {
		computeLineVisualRuns(state, result, logicalRuns, para, stringOffset,
			stringOffset+count, stringOffset, &highestRun, &highestRunCharEnd)
		return highestRun
	}

	lb := newLineBreaks(chars)

	lineEnd := stringOffset
	for lineEnd < stringOffset+count {
		lineStart := lineEnd
		var lineWidthSoFar float32

		glyphIndex := binarySearch(0, len(state.charIndices), func(i int) bool {
			return state.charIndices[i] < int32(lineStart)
		})

		for glyphIndex < len(state.glyphs) &&
			lineWidthSoFar+state.glyphWidths[glyphIndex] <= textAreaWidth {
			lineWidthSoFar += state.glyphWidths[glyphIndex]
			glyphIndex++
		}

		// If no glyphs fit on the line, force one to fit. There shouldn't be
		// any zero-width glyphs at the start of a line unless the paragraph
		// consists only of them, because otherwise they will have been
		// included on the end of the previous line.
		if lineWidthSoFar == 0 && glyphIndex < len(state.glyphs) {
			glyphIndex++
		}

		if glyphIndex == len(state.glyphs) {
			lineEnd = stringOffset + count
		} else {
			charIndex := int(state.charIndices[glyphIndex])
			lineEnd = lb.previousBreak(charIndex-stringOffset) + stringOffset

			// If this break is at or before the last one, find a glyph that
			// produces a break after it, starting at the one which didn't
			// fit.
			for lineEnd <= lineStart {
				if glyphIndex >= len(state.charIndices) {
					lineEnd = stringOffset + count
					break
				}
				lineEnd = int(state.charIndices[glyphIndex])
				glyphIndex++
			}
		}

		computeLineVisualRuns(state, result, logicalRuns, para, lineStart, lineEnd,
			stringOffset, &highestRun, &highestRunCharEnd)
	}

	return highestRun
}

// compressLevels converts a per-byte level array into level runs.
func compressLevels(levels []ubidi.Level) valuerun.ValueRuns[ubidi.Level] {
	var runs valuerun.ValueRuns[ubidi.Level]
	if len(levels) == 0 {
		return runs
	}

	last := levels[0]
	for i := 1; i < len(levels); i++ {
		if levels[i] != last {
			runs.Add(int32(i), last)
			last = levels[i]
		}
	}
	runs.Add(int32(len(levels)), last)
	return runs
}

// computeSubFonts resolves each (font, script) intersection into maximal
// single-face spans via the registry's fallback walk.
func computeSubFonts(chars []byte, fontRuns *valuerun.ValueRuns[fonts.Font],
	scriptRuns *valuerun.ValueRuns[language.Script]) *valuerun.ValueRuns[fonts.SingleScriptFont] {
	result := valuerun.NewWithCapacity[fonts.SingleScriptFont](fontRuns.RunCount())
	offset := 0

	intersectRuns2(fontRuns, scriptRuns, func(limit int32, font fonts.Font, script language.Script) {
		for offset < int(limit) {
			sub := font.Registry().SubFont(font, chars, &offset, int(limit), script)
			result.Add(int32(offset), sub)
		}
	})

	return &result
}

// intersectRuns2 visits the boundaries of the intersection of two run sets.
func intersectRuns2[A, B any](a *valuerun.ValueRuns[A], b *valuerun.ValueRuns[B],
	visit func(limit int32, av A, bv B)) {
	ai, bi := 0, 0
	for ai < a.RunCount() && bi < b.RunCount() {
		limit := a.RunLimit(ai)
		if bl := b.RunLimit(bi); bl < limit {
			limit = bl
		}

		visit(limit, a.RunValue(ai), b.RunValue(bi))

		if a.RunLimit(ai) == limit {
			ai++
		}
		if b.RunLimit(bi) == limit {
			bi++
		}
	}
}

// intersectRuns3 visits the boundaries of the intersection of three run sets.
func intersectRuns3[A, B, C any](a *valuerun.ValueRuns[A], b *valuerun.ValueRuns[B],
	c *valuerun.ValueRuns[C], visit func(limit int32, av A, bv B, cv C)) {
	ai, bi, ci := 0, 0, 0
	for ai < a.RunCount() && bi < b.RunCount() && ci < c.RunCount() {
		limit := a.RunLimit(ai)
		if bl := b.RunLimit(bi); bl < limit {
			limit = bl
		}
		if cl := c.RunLimit(ci); cl < limit {
			limit = cl
		}

		visit(limit, a.RunValue(ai), b.RunValue(bi), c.RunValue(ci))

		if a.RunLimit(ai) == limit {
			ai++
		}
		if b.RunLimit(bi) == limit {
			bi++
		}
		if c.RunLimit(ci) == limit {
			ci++
		}
	}
}

// shapeLogicalRun shapes chars[offset:offset+count] within its paragraph
// context and appends glyphs, logical byte indices, widths (in logical
// order), and positions (in visual order, one trailing pair) to the state.
func shapeLogicalRun(state *buildState, font *fonts.FontData, offset, count int,
	script language.Script, lang language.Language, rightToLeft bool, stringOffset int) {
	if !font.Valid() {
		// A failed face shapes to nothing; the line computation still sees
		// the trailing position pair.
		state.glyphPositions = append(state.glyphPositions, 0, 0)
		return
	}

	dir := di.DirectionLTR
	if rightToLeft {
		dir = di.DirectionRTL
	}

	input := shaping.Input{
		Text:      state.runes,
		RunStart:  int(state.byteToRune[offset]),
		RunEnd:    int(state.byteToRune[offset+count]),
		Direction: dir,
		Face:      font.ShaperFace(),
		Size:      fixed.Int26_6(font.Size() * 64),
		Script:    script,
		Language:  lang,
	}

	out := state.shaper.Shape(input)
	glyphs := out.Glyphs
	glyphCount := len(glyphs)

	var cursorX, cursorY float32
	for i := 0; i < glyphCount; i++ {
		state.glyphPositions = append(state.glyphPositions,
			cursorX+fixedToFloat32(glyphs[i].XOffset),
			cursorY+fixedToFloat32(glyphs[i].YOffset))
		cursorX += fixedToFloat32(glyphs[i].XAdvance)
		cursorY += fixedToFloat32(glyphs[i].YAdvance)
	}
	state.glyphPositions = append(state.glyphPositions, cursorX, cursorY)

	if glyphCount == 0 {
		return
	}

	charIndexOf := func(i int) int32 {
		return int32(state.runeStarts[glyphs[i].TextIndex()] + stringOffset)
	}
	widthOf := func(i int) float32 {
		if i == glyphCount-1 {
			return fixedToFloat32(glyphs[i].XAdvance - glyphs[i].XOffset)
		}
		return fixedToFloat32(glyphs[i].XAdvance + glyphs[i+1].XOffset - glyphs[i].XOffset)
	}

	if rightToLeft {
		for i := glyphCount - 1; i >= 0; i-- {
			state.glyphs = append(state.glyphs, uint32(glyphs[i].GlyphID))
			state.charIndices = append(state.charIndices, charIndexOf(i))
			state.glyphWidths = append(state.glyphWidths, widthOf(i))
		}
	} else {
		for i := 0; i < glyphCount; i++ {
			state.glyphs = append(state.glyphs, uint32(glyphs[i].GlyphID))
			state.charIndices = append(state.charIndices, charIndexOf(i))
			state.glyphWidths = append(state.glyphWidths, widthOf(i))
		}
	}
}

func fixedToFloat32(v fixed.Int26_6) float32 {
	return float32(v) / 64.0
}

// computeLineVisualRuns reorders the line [lineStart, lineEnd) into visual
// runs, splits them at logical-run boundaries, and appends them with their
// glyphs to the result.
func computeLineVisualRuns(state *buildState, result *LayoutInfo, logicalRuns []logicalRun,
	para *ubidi.Paragraph, lineStart, lineEnd, stringOffset int, highestRun *int, highestRunCharEnd *int32) {
	line, err := para.Line(lineStart-stringOffset, lineEnd-stringOffset)

	var maxAscent, maxDescent float32
	var visualRunLastX float32

	noteFont := func(f *fonts.FontData) {
		if a := float32(f.Ascent()); a > maxAscent {
			maxAscent = a
		}
		if d := float32(f.Descent()); d > maxDescent {
			maxDescent = d
		}
	}

	if err == nil {
		runCount := line.CountRuns()

		for i := 0; i < runCount; i++ {
			visual := line.Run(i)
			runStart := int32(visual.LogicalStart + lineStart - stringOffset)
			runEnd := runStart + int32(visual.Length) - 1

			if !visual.RightToLeft {
				run := binarySearch(0, len(logicalRuns), func(idx int) bool {
					return logicalRuns[idx].charEndIndex <= runStart
				})
				chrIndex := runStart

				for {
					logicalRunEnd := logicalRuns[run].charEndIndex
					noteFont(logicalRuns[run].font)

					if runEnd < logicalRunEnd {
						appendVisualRun(state, result, logicalRuns, run, chrIndex+int32(stringOffset),
							runEnd+int32(stringOffset), &visualRunLastX, highestRun, highestRunCharEnd)
						break
					}
					appendVisualRun(state, result, logicalRuns, run, chrIndex+int32(stringOffset),
						logicalRunEnd-1+int32(stringOffset), &visualRunLastX, highestRun, highestRunCharEnd)
					chrIndex = logicalRunEnd
					run++
				}
			} else {
				run := binarySearch(0, len(logicalRuns), func(idx int) bool {
					return logicalRuns[idx].charEndIndex <= runEnd
				})
				chrIndex := runEnd

				for {
					logicalRunStart := int32(0)
					if run > 0 {
						logicalRunStart = logicalRuns[run-1].charEndIndex
					}
					noteFont(logicalRuns[run].font)

					if runStart >= logicalRunStart {
						appendVisualRun(state, result, logicalRuns, run, runStart+int32(stringOffset),
							chrIndex+int32(stringOffset), &visualRunLastX, highestRun, highestRunCharEnd)
						break
					}
					appendVisualRun(state, result, logicalRuns, run, logicalRunStart+int32(stringOffset),
						chrIndex+int32(stringOffset), &visualRunLastX, highestRun, highestRunCharEnd)
					chrIndex = logicalRunStart - 1
					run--
				}
			}
		}
	}

	height := maxAscent + maxDescent

	var width float32
	if lastRunIndex := len(result.VisualRuns) - 1; lastRunIndex >= 0 {
		width = result.GlyphPositions[2*(int(result.VisualRuns[lastRunIndex].GlyphEndIndex)+lastRunIndex)]
	}

	totalDescent := height
	if len(result.Lines) > 0 {
		totalDescent += result.Lines[len(result.Lines)-1].TotalDescent
	}
	result.Lines = append(result.Lines, LineInfo{
		VisualRunsEndIndex: uint32(len(result.VisualRuns)),
		Width:              width,
		Ascent:             maxAscent,
		TotalDescent:       totalDescent,
	})
}

// appendVisualRun copies the glyph range of logical run `run` covering the
// inclusive character range [charStartIndex, charEndIndex] into the result,
// in visual order, advancing the line's running x position.
func appendVisualRun(state *buildState, result *LayoutInfo, logicalRuns []logicalRun, run int,
	charStartIndex, charEndIndex int32, visualRunLastX *float32, highestRun *int, highestRunCharEnd *int32) {
	logicalFirstGlyph := uint32(0)
	logicalFirstPos := 0
	if run > 0 {
		logicalFirstGlyph = logicalRuns[run-1].glyphEndIndex
		logicalFirstPos = 2 * (int(logicalRuns[run-1].glyphEndIndex) + run)
	}
	logicalLastGlyph := logicalRuns[run].glyphEndIndex
	rightToLeft := logicalRuns[run].level&1 != 0

	if charEndIndex > *highestRunCharEnd {
		*highestRun = len(result.VisualRuns)
		*highestRunCharEnd = charEndIndex
	}

	visualFirstGlyph := uint32(binarySearch(int(logicalFirstGlyph),
		int(logicalLastGlyph-logicalFirstGlyph), func(i int) bool {
			return state.charIndices[i] < charStartIndex
		}))
	visualLastGlyph := uint32(binarySearch(int(visualFirstGlyph),
		int(logicalLastGlyph-visualFirstGlyph), func(i int) bool {
			return state.charIndices[i] <= charEndIndex
		}))

	var visualFirstPosIndex, visualLastPosIndex uint32

	if rightToLeft {
		for i := visualLastGlyph; i > visualFirstGlyph; i-- {
			result.Glyphs = append(result.Glyphs, state.glyphs[i-1])
			result.CharIndices = append(result.CharIndices, state.charIndices[i-1])
		}

		visualFirstPosIndex = logicalFirstGlyph + (logicalLastGlyph - visualLastGlyph)
		visualLastPosIndex = logicalLastGlyph - (visualFirstGlyph - logicalFirstGlyph)
	} else {
		for i := visualFirstGlyph; i < visualLastGlyph; i++ {
			result.Glyphs = append(result.Glyphs, state.glyphs[i])
			result.CharIndices = append(result.CharIndices, state.charIndices[i])
		}

		visualFirstPosIndex = visualFirstGlyph
		visualLastPosIndex = visualLastGlyph
	}

	*visualRunLastX -= state.glyphPositions[logicalFirstPos+2*int(visualFirstPosIndex-logicalFirstGlyph)]

	for i := visualFirstPosIndex; i < visualLastPosIndex; i++ {
		posIndex := logicalFirstPos + 2*int(i-logicalFirstGlyph)
		result.GlyphPositions = append(result.GlyphPositions,
			state.glyphPositions[posIndex]+*visualRunLastX,
			state.glyphPositions[posIndex+1])
	}

	logicalLastPos := logicalFirstPos + 2*int(visualLastPosIndex-logicalFirstGlyph)
	result.GlyphPositions = append(result.GlyphPositions,
		state.glyphPositions[logicalLastPos]+*visualRunLastX,
		state.glyphPositions[logicalLastPos+1])

	*visualRunLastX += state.glyphPositions[logicalLastPos]

	result.VisualRuns = append(result.VisualRuns, VisualRun{
		Font:           logicalRuns[run].font,
		GlyphEndIndex:  uint32(len(result.Glyphs)),
		CharStartIndex: uint32(charStartIndex),
		CharEndIndex:   uint32(charEndIndex + 1),
		RightToLeft:    rightToLeft,
	})
}
