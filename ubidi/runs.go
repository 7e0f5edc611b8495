package ubidi

// VisualRun describes one visual run of a line.
type VisualRun struct {
	// LogicalStart is the byte offset of the first logically-ordered byte of
	// the run within the line.
	LogicalStart int
	// Length is the run length in bytes.
	Length int
	// RightToLeft reports whether the run is rendered right to left.
	RightToLeft bool
}

// CountRuns materializes the visual run array if necessary and returns the
// number of visual runs on the line.
func (l *Line) CountRuns() int {
	l.getRuns()
	return l.runCount
}

// Run returns the visual run at index in visual order. CountRuns must have
// been consulted for the valid range.
func (l *Line) Run(index int) VisualRun {
	l.getRuns()

	r := l.runs[index]
	visualStart := int32(0)
	if index > 0 {
		visualStart = l.runs[index-1].visualLimit
	}

	return VisualRun{
		LogicalStart: int(indexOf(r.logicalStart)),
		Length:       int(r.visualLimit - visualStart),
		RightToLeft:  !isEvenRun(r.logicalStart),
	}
}

// getRuns computes the visual runs. It returns immediately if the runs are
// already set; this includes the single-run trivial cases.
func (l *Line) getRuns() {
	if l.runCount >= 0 {
		return
	}

	if l.direction != DirMixed {
		// Simple, single-run case.
		l.getSingleRun(l.paraLevel)
	} else {
		l.getMixedRuns()
	}

	// Attach insertion marks to their runs.
	for _, pt := range l.insertPoints {
		runIndex := l.runFromLogicalIndex(pt.pos)
		l.runs[runIndex].insertRemove |= pt.flag
	}

	// Account removed bidi-control bytes against their runs.
	if l.controlCount > 0 {
		for i := 0; i < l.length; i++ {
			if l.ctrlMask[i] {
				runIndex := l.runFromLogicalIndex(i)
				l.runs[runIndex].insertRemove--
			}
		}
	}
}

func (l *Line) getSingleRun(level Level) {
	l.runs = []run{{
		logicalStart: makeIndexOddPair(0, level),
		visualLimit:  int32(l.length),
	}}
	l.runCount = 1
}

func (l *Line) getMixedRuns() {
	length := l.length
	limit := l.trailingWSStart
	levels := l.levels

	// Count the runs; there is at least one non-WS run, and limit > 0.
	runCount := 0
	var level Level = DefaultLTR // no valid level
	for i := 0; i < limit; i++ {
		if levels[i] != level {
			runCount++
			level = levels[i]
		}
	}

	if runCount == 1 && limit == length {
		// One non-WS run and no trailing WS run.
		l.getSingleRun(levels[0])
		return
	}

	// A separate trailing WS run at the paragraph level.
	if limit < length {
		runCount++
	}

	runs := make([]run, runCount)
	minLevel := MaxExplicitLevel + 1
	var maxLevel Level

	runIndex := 0
	i := 0
	for i < limit {
		start := i
		level = levels[i]
		if level < minLevel {
			minLevel = level
		}
		if level > maxLevel {
			maxLevel = level
		}

		for i++; i < limit && levels[i] == level; i++ {
		}

		runs[runIndex] = run{
			logicalStart: int32(start),
			visualLimit:  int32(i - start),
		}
		runIndex++
	}

	if limit < length {
		runs[runIndex] = run{
			logicalStart: int32(limit),
			visualLimit:  int32(length - limit),
		}
		if l.paraLevel < minLevel {
			minLevel = l.paraLevel
		}
	}

	l.runs = runs
	l.runCount = runCount

	l.reorderLine(minLevel, maxLevel)

	// Add the direction flags and convert the visualLimit values from run
	// lengths into a prefix sum. This also covers the trailing WS run.
	var vl int32
	for i := range l.runs {
		addOddBitFromLevel(&l.runs[i].logicalStart, levels[indexOf(l.runs[i].logicalStart)])
		vl += l.runs[i].visualLimit
		l.runs[i].visualLimit = vl
	}

	// Set the odd bit for the trailing WS run; for an RTL paragraph it is
	// the first run in visual order.
	if runIndex < runCount {
		trailingRun := runIndex
		if l.paraLevel&1 != 0 {
			trailingRun = 0
		}
		addOddBitFromLevel(&l.runs[trailingRun].logicalStart, l.paraLevel)
	}
}

// reorderLine reorders the same-level runs in the runs array. The runs hold
// logical starts without odd bits and per-run lengths in visualLimit.
//
// Reordering proceeds from maxLevel down to minLevel|1, reversing each
// maximal sequence of runs at or above the current level. Reordering at an
// odd minimum level reverses the whole run array and is done in a separate
// final pass; ++minLevel covers that (see the all-runs segment below).
// The trailing WS run is at the paragraph level and is only included in the
// final all-runs reversal.
func (l *Line) reorderLine(minLevel, maxLevel Level) {
	if maxLevel <= minLevel|1 {
		return
	}

	minLevel++

	runs := l.runs
	levels := l.levels
	runCount := l.runCount

	// Do not include the trailing WS run except in the all-runs pass.
	if l.trailingWSStart < l.length {
		runCount--
	}

	for maxLevel--; maxLevel >= minLevel; maxLevel-- {
		firstRun := 0

		for {
			// Find the first run of a sequence at >= maxLevel.
			for firstRun < runCount && levels[runs[firstRun].logicalStart] < maxLevel {
				firstRun++
			}
			if firstRun >= runCount {
				break
			}

			// Find the run behind the sequence.
			limitRun := firstRun
			for limitRun++; limitRun < runCount && levels[runs[limitRun].logicalStart] >= maxLevel; limitRun++ {
			}

			// Reverse the sequence of runs [firstRun, limitRun).
			endRun := limitRun - 1
			for firstRun < endRun {
				runs[firstRun], runs[endRun] = runs[endRun], runs[firstRun]
				firstRun++
				endRun--
			}

			if limitRun == runCount {
				break
			}
			firstRun = limitRun + 1
		}
	}

	// Now do maxLevel == old minLevel (odd): reverse all runs, including the
	// trailing WS run.
	if minLevel&1 == 0 {
		firstRun := 0

		if l.trailingWSStart == l.length {
			runCount--
		}

		for firstRun < runCount {
			runs[firstRun], runs[runCount] = runs[runCount], runs[firstRun]
			firstRun++
			runCount--
		}
	}
}

// runFromLogicalIndex finds the visual run containing the logical index.
func (l *Line) runFromLogicalIndex(logicalIndex int) int {
	visualStart := int32(0)

	for i := 0; i < l.runCount; i++ {
		length := l.runs[i].visualLimit - visualStart
		logicalStart := indexOf(l.runs[i].logicalStart)

		if int32(logicalIndex) >= logicalStart && int32(logicalIndex) < logicalStart+length {
			return i
		}
		visualStart += length
	}

	// Unreachable for indices within the line.
	return l.runCount - 1
}
