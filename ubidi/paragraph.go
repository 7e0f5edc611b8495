package ubidi

import (
	"unicode/utf8"

	"golang.org/x/text/unicode/bidi"
)

// Paragraph holds the resolved bidi state of a single paragraph: one class
// and one embedding level per byte of text. Lines are carved out of a
// Paragraph with Line.
type Paragraph struct {
	text     []byte
	dirProps []bidi.Class
	levels   []Level

	paraLevel       Level
	direction       Direction
	trailingWSStart int
	controlCount    int
	options         Options

	// insertPoints records positions where an LRM or RLM would be inserted
	// during reordering, with the mark flag to attach to the containing run.
	insertPoints []insertPoint
}

type insertPoint struct {
	pos  int
	flag int32
}

// MarkFlag selects which directional mark an insertion point attaches to its
// containing visual run, and on which side.
type MarkFlag int32

const (
	LRMBefore MarkFlag = lrmBefore
	LRMAfter  MarkFlag = lrmAfter
	RLMBefore MarkFlag = rlmBefore
	RLMAfter  MarkFlag = rlmAfter
)

// AddInsertPoint records a position where an LRM or RLM mark is to be
// inserted during reordering. Lines created afterwards account for the mark
// in their visual indices and index maps.
func (p *Paragraph) AddInsertPoint(pos int, flag MarkFlag) {
	p.insertPoints = append(p.insertPoints, insertPoint{pos: pos, flag: int32(flag)})
}

// charRun is an internal per-rune view used during resolution.
type charRun struct {
	start int // byte offset
	class bidi.Class
}

// NewParagraph resolves text into embedding levels. paraLevel is either an
// explicit level (0 or 1) or one of DefaultLTR/DefaultRTL, in which case the
// level is taken from the first strong character.
func NewParagraph(text []byte, paraLevel Level, opts Options) *Paragraph {
	p := &Paragraph{
		text:    text,
		options: opts,
	}
	p.resolve(paraLevel)
	return p
}

// Text returns the paragraph's text.
func (p *Paragraph) Text() []byte { return p.text }

// Length returns the paragraph length in bytes.
func (p *Paragraph) Length() int { return len(p.text) }

// ParaLevel returns the resolved base embedding level.
func (p *Paragraph) ParaLevel() Level { return p.paraLevel }

// Direction returns the overall directionality of the paragraph.
func (p *Paragraph) Direction() Direction { return p.direction }

// Levels returns the per-byte resolved embedding levels. The returned slice
// is shared with the paragraph and must not be mutated.
func (p *Paragraph) Levels() []Level { return p.levels }

// LevelAt returns the resolved level of the byte at index, or the paragraph
// level for out-of-range indices.
func (p *Paragraph) LevelAt(index int) Level {
	if index < 0 || index >= len(p.levels) {
		return p.paraLevel
	}
	return p.levels[index]
}

// ControlCount returns the number of bidi-control bytes counted for
// removal. Zero unless OptionRemoveControls is set.
func (p *Paragraph) ControlCount() int { return p.controlCount }

// resolve runs the implicit part of the bidirectional algorithm: explicit
// embedding codes, weak and neutral type resolution, implicit levels, and
// the L1 whitespace reset.
func (p *Paragraph) resolve(paraLevel Level) {
	text := p.text
	n := len(text)
	p.dirProps = make([]bidi.Class, n)
	p.levels = make([]Level, n)

	if n == 0 {
		p.paraLevel = explicitBaseLevel(paraLevel, 0)
		p.direction = levelDirection(p.paraLevel)
		return
	}

	// Per-rune classification.
	var runes []charRun
	for i := 0; i < n; {
		props, sz := bidi.Lookup(text[i:])
		if sz == 0 {
			// Malformed byte; treat it as ON and skip one byte.
			runes = append(runes, charRun{start: i, class: bidi.ON})
			i++
			continue
		}
		runes = append(runes, charRun{start: i, class: props.Class()})
		i += sz
	}

	for ri, cr := range runes {
		end := n
		if ri+1 < len(runes) {
			end = runes[ri+1].start
		}
		for b := cr.start; b < end; b++ {
			p.dirProps[b] = cr.class
		}
	}

	// P2/P3: paragraph level from the first strong character.
	p.paraLevel = resolveBaseLevel(runes, paraLevel)

	// X1-X8: explicit embeddings and overrides. work[i] is the class each
	// rune carries into the weak/neutral rules; explicit codes become BN.
	work := make([]bidi.Class, len(runes))
	lv := make([]Level, len(runes))
	p.applyExplicit(runes, work, lv)

	// W1-W7, N1-N2, I1-I2 per level run.
	p.resolveImplicit(runes, work, lv)

	// L1: separators and trailing whitespace reset to the paragraph level.
	p.resetWhitespaceLevels(runes, work, lv)

	// Expand per-rune levels to per-byte levels.
	for ri, cr := range runes {
		end := n
		if ri+1 < len(runes) {
			end = runes[ri+1].start
		}
		for b := cr.start; b < end; b++ {
			p.levels[b] = lv[ri]
		}
	}

	// Overall direction.
	minLevel, maxLevel := lv[0], lv[0]
	for _, l := range lv {
		if l < minLevel {
			minLevel = l
		}
		if l > maxLevel {
			maxLevel = l
		}
	}
	switch {
	case minLevel == maxLevel:
		p.direction = levelDirection(minLevel)
	default:
		p.direction = DirMixed
	}

	p.trailingWSStart = p.computeTrailingWSStart()

	if p.options&OptionRemoveControls != 0 {
		for i := 0; i < n; {
			r, sz := utf8.DecodeRune(text[i:])
			if IsBidiControl(r) {
				p.controlCount += sz
			}
			i += sz
		}
	}
}

func explicitBaseLevel(paraLevel Level, strong Level) Level {
	switch paraLevel {
	case DefaultLTR:
		return strong &^ 1
	case DefaultRTL:
		return strong | 1
	default:
		return paraLevel & 1
	}
}

func resolveBaseLevel(runes []charRun, paraLevel Level) Level {
	if paraLevel != DefaultLTR && paraLevel != DefaultRTL {
		return paraLevel & 1
	}

	for _, cr := range runes {
		switch cr.class {
		case bidi.L:
			return 0
		case bidi.R, bidi.AL:
			return 1
		}
	}

	if paraLevel == DefaultRTL {
		return 1
	}
	return 0
}

// applyExplicit processes LRE/RLE/LRO/RLO/PDF with a bounded embedding
// stack. Isolate initiators and PDI are passed through as neutrals. The
// formatting codes themselves become BN at the current embedding level.
func (p *Paragraph) applyExplicit(runes []charRun, work []bidi.Class, lv []Level) {
	type stackEntry struct {
		level    Level
		override bidi.Class // bidi.ON when no override
	}

	stack := []stackEntry{{level: p.paraLevel, override: bidi.ON}}
	cur := func() stackEntry { return stack[len(stack)-1] }

	for i, cr := range runes {
		switch cr.class {
		case bidi.LRE, bidi.LRO, bidi.RLE, bidi.RLO:
			lv[i] = cur().level
			work[i] = bidi.BN

			var newLevel Level
			if cr.class == bidi.RLE || cr.class == bidi.RLO {
				newLevel = (cur().level + 1) | 1
			} else {
				newLevel = (cur().level + 2) &^ 1
			}
			if newLevel <= MaxExplicitLevel {
				override := bidi.ON
				if cr.class == bidi.LRO {
					override = bidi.L
				} else if cr.class == bidi.RLO {
					override = bidi.R
				}
				stack = append(stack, stackEntry{level: newLevel, override: override})
			}

		case bidi.PDF:
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
			lv[i] = cur().level
			work[i] = bidi.BN

		case bidi.B:
			lv[i] = p.paraLevel
			work[i] = bidi.B

		case bidi.BN:
			lv[i] = cur().level
			work[i] = bidi.BN

		case bidi.LRI, bidi.RLI, bidi.FSI, bidi.PDI:
			// Isolates are not resolved by this engine; treat as neutral.
			lv[i] = cur().level
			work[i] = bidi.ON

		default:
			lv[i] = cur().level
			if cur().override != bidi.ON {
				work[i] = cur().override
			} else {
				work[i] = cr.class
			}
		}
	}
}

// resolveImplicit applies the weak (W1-W7), neutral (N1-N2), and implicit
// (I1-I2) rules run by run over maximal spans of equal embedding level,
// with sos/eos boundary classes per UAX#9. BN characters are transparent.
func (p *Paragraph) resolveImplicit(runes []charRun, work []bidi.Class, lv []Level) {
	n := len(runes)
	start := 0

	for start < n {
		// Skip leading BN; they keep their embedding level.
		if work[start] == bidi.BN || work[start] == bidi.B {
			start++
			continue
		}

		level := lv[start]
		end := start + 1
		for end < n && (lv[end] == level || work[end] == bidi.BN) && work[end] != bidi.B {
			end++
		}
		// Back off trailing BN runs whose level differs.
		for end > start+1 && work[end-1] == bidi.BN && lv[end-1] != level {
			end--
		}

		sos := boundaryClass(levelBefore(lv, work, start, p.paraLevel), level)
		eos := boundaryClass(levelAfter(lv, work, end, n, p.paraLevel), level)

		resolveRun(work[start:end], lv[start:end], level, sos, eos)
		start = end
	}
}

func levelBefore(lv []Level, work []bidi.Class, i int, paraLevel Level) Level {
	for j := i - 1; j >= 0; j-- {
		if work[j] != bidi.BN && work[j] != bidi.B {
			return lv[j]
		}
	}
	return paraLevel
}

func levelAfter(lv []Level, work []bidi.Class, i, n int, paraLevel Level) Level {
	for j := i; j < n; j++ {
		if work[j] != bidi.BN && work[j] != bidi.B {
			return lv[j]
		}
	}
	return paraLevel
}

func boundaryClass(adjacent, level Level) bidi.Class {
	m := adjacent
	if level > m {
		m = level
	}
	if m&1 != 0 {
		return bidi.R
	}
	return bidi.L
}

// resolveRun mutates work and lv in place for one level run.
func resolveRun(work []bidi.Class, lv []Level, level Level, sos, eos bidi.Class) {
	n := len(work)

	classAt := func(i int) bidi.Class {
		for j := i; j >= 0; j-- {
			if work[j] != bidi.BN {
				return work[j]
			}
		}
		return sos
	}

	// W1: NSM takes the class of the preceding character (sos at start).
	for i := 0; i < n; i++ {
		if work[i] == bidi.NSM {
			if i == 0 {
				work[i] = sos
			} else {
				work[i] = classAt(i - 1)
			}
		}
	}

	// W2: EN becomes AN after an Arabic letter. W3: AL becomes R.
	lastStrong := sos
	for i := 0; i < n; i++ {
		switch work[i] {
		case bidi.L, bidi.R:
			lastStrong = work[i]
		case bidi.AL:
			lastStrong = bidi.AL
			work[i] = bidi.R
		case bidi.EN:
			if lastStrong == bidi.AL {
				work[i] = bidi.AN
			}
		}
	}

	// W4: a single ES between two EN becomes EN; a single CS between two
	// numbers of the same type becomes that type.
	for i := 1; i < n-1; i++ {
		prev, next := classAt(i-1), nextClass(work, i, eos)
		switch work[i] {
		case bidi.ES:
			if prev == bidi.EN && next == bidi.EN {
				work[i] = bidi.EN
			}
		case bidi.CS:
			if prev == bidi.EN && next == bidi.EN {
				work[i] = bidi.EN
			} else if prev == bidi.AN && next == bidi.AN {
				work[i] = bidi.AN
			}
		}
	}

	// W5: a sequence of ET adjacent to EN becomes EN.
	for i := 0; i < n; i++ {
		if work[i] != bidi.ET {
			continue
		}
		j := i
		for j < n && (work[j] == bidi.ET || work[j] == bidi.BN) {
			j++
		}
		before := sos
		if i > 0 {
			before = classAt(i - 1)
		}
		after := eos
		if j < n {
			after = work[j]
		}
		cls := bidi.ET
		if before == bidi.EN || after == bidi.EN {
			cls = bidi.EN
		}
		for k := i; k < j; k++ {
			if work[k] == bidi.ET {
				work[k] = cls
			}
		}
		i = j - 1
	}

	// W6: remaining separators and terminators become ON.
	for i := 0; i < n; i++ {
		switch work[i] {
		case bidi.ES, bidi.ET, bidi.CS:
			work[i] = bidi.ON
		}
	}

	// W7: EN after an L becomes L.
	lastStrong = sos
	for i := 0; i < n; i++ {
		switch work[i] {
		case bidi.L, bidi.R:
			lastStrong = work[i]
		case bidi.EN:
			if lastStrong == bidi.L {
				work[i] = bidi.L
			}
		}
	}

	// N1/N2: neutrals take the surrounding strong direction if it matches on
	// both sides (numbers count as R), else the embedding direction.
	embedding := bidi.L
	if level&1 != 0 {
		embedding = bidi.R
	}
	for i := 0; i < n; i++ {
		if !isNeutral(work[i]) {
			continue
		}
		j := i
		for j < n && (isNeutral(work[j]) || work[j] == bidi.BN) {
			j++
		}
		before := sos
		if i > 0 {
			before = strongSide(classAt(i - 1))
		}
		after := eos
		if j < n {
			after = strongSide(work[j])
		}
		cls := embedding
		if before == after && (before == bidi.L || before == bidi.R) {
			cls = before
		}
		for k := i; k < j; k++ {
			if isNeutral(work[k]) {
				work[k] = cls
			}
		}
		i = j - 1
	}

	// I1/I2: implicit levels.
	for i := 0; i < n; i++ {
		switch work[i] {
		case bidi.L:
			if level&1 != 0 {
				lv[i] = level + 1
			} else {
				lv[i] = level
			}
		case bidi.R:
			if level&1 != 0 {
				lv[i] = level
			} else {
				lv[i] = level + 1
			}
		case bidi.EN, bidi.AN:
			if level&1 != 0 {
				lv[i] = level + 1
			} else {
				lv[i] = level + 2
			}
		}
	}
}

func nextClass(work []bidi.Class, i int, eos bidi.Class) bidi.Class {
	for j := i + 1; j < len(work); j++ {
		if work[j] != bidi.BN {
			return work[j]
		}
	}
	return eos
}

func isNeutral(c bidi.Class) bool {
	return c == bidi.ON || c == bidi.WS || c == bidi.S
}

func strongSide(c bidi.Class) bidi.Class {
	switch c {
	case bidi.EN, bidi.AN, bidi.R:
		return bidi.R
	default:
		return c
	}
}

// resetWhitespaceLevels applies L1: segment and block separators, and any
// whitespace run that precedes them or ends the paragraph, return to the
// paragraph level.
func (p *Paragraph) resetWhitespaceLevels(runes []charRun, work []bidi.Class, lv []Level) {
	resettable := func(i int) bool {
		switch p.classOfRune(runes, i) {
		case bidi.WS, bidi.BN, bidi.LRE, bidi.RLE, bidi.LRO, bidi.RLO, bidi.PDF:
			return true
		}
		return false
	}

	n := len(runes)
	for i := 0; i < n; i++ {
		c := p.classOfRune(runes, i)
		if c == bidi.B || c == bidi.S {
			lv[i] = p.paraLevel
			for j := i - 1; j >= 0 && resettable(j); j-- {
				lv[j] = p.paraLevel
			}
		}
	}
	for j := n - 1; j >= 0 && resettable(j); j-- {
		lv[j] = p.paraLevel
	}
}

func (p *Paragraph) classOfRune(runes []charRun, i int) bidi.Class {
	return p.dirProps[runes[i].start]
}

// computeTrailingWSStart finds the byte offset where paragraph-level
// trailing whitespace begins, merging with a preceding run already at the
// paragraph level.
func (p *Paragraph) computeTrailingWSStart() int {
	n := len(p.text)
	if n == 0 {
		return 0
	}
	if p.direction != DirMixed {
		return 0
	}

	start := n
	for start > 0 && isWSForTrailing(p.dirProps[start-1]) {
		start--
	}
	for start > 0 && p.levels[start-1] == p.paraLevel {
		start--
	}
	return start
}

// isWSForTrailing reports classes that may be treated at paragraph level for
// the trailing-whitespace scan: whitespace, BN, and explicit format codes.
func isWSForTrailing(c bidi.Class) bool {
	switch c {
	case bidi.WS, bidi.BN, bidi.LRE, bidi.RLE, bidi.LRO, bidi.RLO, bidi.PDF:
		return true
	}
	return false
}
