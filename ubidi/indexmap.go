package ubidi

import "fmt"

// Control-character accounting operates on bytes: every byte of a removed
// directional formatting character is removed from the visual sequence, so
// ResultLength, run insertRemove counts, and the index maps all stay in the
// same byte-offset space as the rest of the engine.

// countControls returns the number of bidi-control bytes in the byte range
// [start, limit) of the line.
func (l *Line) countControls(start, limit int) int {
	if start < 0 {
		start = 0
	}
	if limit > l.length {
		limit = l.length
	}

	count := 0
	for i := start; i < limit; i++ {
		if l.ctrlMask[i] {
			count++
		}
	}
	return count
}

func (l *Line) isControlAt(index int) bool {
	return l.ctrlMask != nil && l.ctrlMask[index]
}

// VisualIndex maps a logical byte index on the line to its visual index,
// accounting for inserted marks and removed controls.
func (l *Line) VisualIndex(logicalIndex int) (int, error) {
	if logicalIndex < 0 || logicalIndex >= l.length {
		return MapNowhere, fmt.Errorf("%w: logical index %d of %d", ErrInvalidRange, logicalIndex, l.length)
	}

	visualIndex := MapNowhere

	// The trivial cases do not need the runs array.
	switch l.direction {
	case DirLTR:
		visualIndex = logicalIndex
	case DirRTL:
		visualIndex = l.length - logicalIndex - 1
	default:
		l.getRuns()
		visualStart := int32(0)

		// Linear search over the visual runs.
		found := false
		for i := 0; i < l.runCount; i++ {
			length := l.runs[i].visualLimit - visualStart
			offset := int32(logicalIndex) - indexOf(l.runs[i].logicalStart)

			if offset >= 0 && offset < length {
				if isEvenRun(l.runs[i].logicalStart) {
					visualIndex = int(visualStart + offset)
				} else {
					visualIndex = int(visualStart + length - offset - 1)
				}
				found = true
				break
			}
			visualStart += length
		}
		if !found {
			return MapNowhere, nil
		}
	}

	switch {
	case l.insertCount > 0:
		// Add the number of added marks preceding the visual index.
		l.getRuns()
		visualStart := int32(0)
		markFound := 0
		for i := 0; ; i++ {
			length := l.runs[i].visualLimit - visualStart
			insertRemove := l.runs[i].insertRemove
			if insertRemove&markBefore != 0 {
				markFound++
			}
			if int32(visualIndex) < l.runs[i].visualLimit {
				return visualIndex + markFound, nil
			}
			if insertRemove&markAfter != 0 {
				markFound++
			}
			visualStart += length
		}

	case l.controlCount > 0:
		// Subtract the number of control bytes preceding the visual index.
		l.getRuns()

		// A control character itself maps nowhere.
		if l.isControlAt(logicalIndex) {
			return MapNowhere, nil
		}

		visualStart := int32(0)
		controlFound := 0
		for i := 0; ; i++ {
			length := l.runs[i].visualLimit - visualStart
			insertRemove := l.runs[i].insertRemove

			// Calculated visual index beyond this run?
			if int32(visualIndex) >= l.runs[i].visualLimit {
				controlFound -= int(insertRemove)
				visualStart += length
				continue
			}

			// The visual index is within the current run.
			if insertRemove == 0 {
				return visualIndex - controlFound, nil
			}

			var start, limit int
			if isEvenRun(l.runs[i].logicalStart) {
				// LTR: check from run start to the logical index.
				start = int(indexOf(l.runs[i].logicalStart))
				limit = logicalIndex
			} else {
				// RTL: check from past the logical index to the run end.
				start = logicalIndex + 1
				limit = int(indexOf(l.runs[i].logicalStart) + length)
			}
			controlFound += l.countControls(start, limit)
			return visualIndex - controlFound, nil
		}
	}

	return visualIndex, nil
}

// LogicalIndex maps a visual index on the line to the logical byte index,
// accounting for inserted marks and removed controls.
func (l *Line) LogicalIndex(visualIndex int) (int, error) {
	if visualIndex < 0 || visualIndex >= l.resultLength {
		return MapNowhere, fmt.Errorf("%w: visual index %d of %d", ErrInvalidRange, visualIndex, l.resultLength)
	}

	// Trivial cases without the runs array.
	if l.insertCount == 0 && l.controlCount == 0 {
		switch l.direction {
		case DirLTR:
			return visualIndex, nil
		case DirRTL:
			return l.length - visualIndex - 1, nil
		}
	}

	l.getRuns()
	runs := l.runs

	switch {
	case l.insertCount > 0:
		// Subtract the number of marks preceding the visual index.
		markFound := 0
		visualStart := int32(0)
		for i := 0; ; i++ {
			length := runs[i].visualLimit - visualStart
			insertRemove := runs[i].insertRemove
			if insertRemove&markBefore != 0 {
				if visualIndex <= int(visualStart)+markFound {
					return MapNowhere, nil
				}
				markFound++
			}
			if visualIndex < int(runs[i].visualLimit)+markFound {
				visualIndex -= markFound
				break
			}
			if insertRemove&markAfter != 0 {
				if visualIndex == int(visualStart+length)+markFound {
					return MapNowhere, nil
				}
				markFound++
			}
			visualStart += length
		}

	case l.controlCount > 0:
		// Add the number of control bytes preceding the visual index.
		controlFound := 0
		visualStart := int32(0)
		for i := 0; ; i++ {
			length := runs[i].visualLimit - visualStart
			insertRemove := runs[i].insertRemove

			// Adjusted visual index beyond the current run?
			if visualIndex >= int(runs[i].visualLimit)-controlFound+int(insertRemove) {
				controlFound -= int(insertRemove)
				visualStart += length
				continue
			}

			if insertRemove == 0 {
				visualIndex += controlFound
				break
			}

			// Count non-control bytes until the visual index.
			logicalStart := int(indexOf(runs[i].logicalStart))
			evenRun := isEvenRun(runs[i].logicalStart)
			logicalEnd := logicalStart + int(length) - 1

			for j := 0; j < int(length); j++ {
				k := logicalStart + j
				if !evenRun {
					k = logicalEnd - j
				}
				if l.ctrlMask[k] {
					controlFound++
				}
				if visualIndex+controlFound == int(visualStart)+j {
					break
				}
			}
			visualIndex += controlFound
			break
		}
	}

	// Find the run containing the visual index; binary search over the runs
	// when there are many.
	var i int
	if l.runCount <= 10 {
		for i = 0; visualIndex >= int(runs[i].visualLimit); i++ {
		}
	} else {
		begin, limit := 0, l.runCount
		for {
			i = (begin + limit) / 2
			if visualIndex >= int(runs[i].visualLimit) {
				begin = i + 1
			} else if i == 0 || visualIndex >= int(runs[i-1].visualLimit) {
				break
			} else {
				limit = i
			}
		}
	}

	start := runs[i].logicalStart
	if isEvenRun(start) {
		// LTR: the offset in runs[i] is visualIndex - runs[i-1].visualLimit.
		if i > 0 {
			visualIndex -= int(runs[i-1].visualLimit)
		}
		return int(start) + visualIndex, nil
	}
	// RTL
	return int(indexOf(start)+runs[i].visualLimit) - visualIndex - 1, nil
}

// LogicalMap fills a logical-to-visual permutation over the line's bytes.
// Entries for removed control characters are MapNowhere.
func (l *Line) LogicalMap() []int {
	l.getRuns()

	if l.length <= 0 {
		return nil
	}

	indexMap := make([]int, l.length)
	if l.length > l.resultLength {
		for i := range indexMap {
			indexMap[i] = MapNowhere
		}
	}

	visualStart := 0
	for j := 0; j < l.runCount; j++ {
		logicalStart := int(indexOf(l.runs[j].logicalStart))
		visualLimit := int(l.runs[j].visualLimit)

		if isEvenRun(l.runs[j].logicalStart) {
			for visualStart < visualLimit {
				indexMap[logicalStart] = visualStart
				logicalStart++
				visualStart++
			}
		} else {
			logicalStart += visualLimit - visualStart // logical limit
			for visualStart < visualLimit {
				logicalStart--
				indexMap[logicalStart] = visualStart
				visualStart++
			}
		}
	}

	switch {
	case l.insertCount > 0:
		markFound := 0
		vs := int32(0)
		for i := 0; i < l.runCount; i++ {
			length := l.runs[i].visualLimit - vs
			insertRemove := l.runs[i].insertRemove
			if insertRemove&markBefore != 0 {
				markFound++
			}
			if markFound > 0 {
				logicalStart := int(indexOf(l.runs[i].logicalStart))
				for j := logicalStart; j < logicalStart+int(length); j++ {
					indexMap[j] += markFound
				}
			}
			if insertRemove&markAfter != 0 {
				markFound++
			}
			vs += length
		}

	case l.controlCount > 0:
		controlFound := 0
		vs := int32(0)
		for i := 0; i < l.runCount; i++ {
			length := l.runs[i].visualLimit - vs
			insertRemove := l.runs[i].insertRemove

			// No control found within previous runs nor within this one.
			if controlFound == 0 && insertRemove == 0 {
				vs += length
				continue
			}

			logicalStart := int(indexOf(l.runs[i].logicalStart))
			logicalLimit := logicalStart + int(length)

			if insertRemove == 0 {
				for j := logicalStart; j < logicalLimit; j++ {
					indexMap[j] -= controlFound
				}
				vs += length
				continue
			}

			evenRun := isEvenRun(l.runs[i].logicalStart)
			for j := 0; j < int(length); j++ {
				k := logicalStart + j
				if !evenRun {
					k = logicalLimit - j - 1
				}
				if l.ctrlMask[k] {
					controlFound++
					indexMap[k] = MapNowhere
					continue
				}
				indexMap[k] -= controlFound
			}
			vs += length
		}
	}

	return indexMap
}

// VisualMap fills a visual-to-logical permutation over the line's reordered
// positions. Entries for inserted marks are MapNowhere.
func (l *Line) VisualMap() []int {
	l.getRuns()

	if l.resultLength <= 0 {
		return nil
	}

	base := make([]int, 0, l.length)

	for j := 0; j < l.runCount; j++ {
		logicalStart := int(indexOf(l.runs[j].logicalStart))
		visualStart := 0
		if j > 0 {
			visualStart = int(l.runs[j-1].visualLimit)
		}
		visualLimit := int(l.runs[j].visualLimit)

		if isEvenRun(l.runs[j].logicalStart) {
			for v := visualStart; v < visualLimit; v++ {
				base = append(base, logicalStart)
				logicalStart++
			}
		} else {
			logicalStart += visualLimit - visualStart // logical limit
			for v := visualStart; v < visualLimit; v++ {
				logicalStart--
				base = append(base, logicalStart)
			}
		}
	}

	switch {
	case l.insertCount > 0:
		// Rebuild with MapNowhere at inserted mark positions.
		out := make([]int, 0, l.resultLength)
		visualStart := int32(0)
		for i := 0; i < l.runCount; i++ {
			length := l.runs[i].visualLimit - visualStart
			insertRemove := l.runs[i].insertRemove
			if insertRemove&markBefore != 0 {
				out = append(out, MapNowhere)
			}
			out = append(out, base[visualStart:l.runs[i].visualLimit]...)
			if insertRemove&markAfter != 0 {
				out = append(out, MapNowhere)
			}
			visualStart += length
		}
		return out

	case l.controlCount > 0:
		// Compact out removed control bytes.
		out := make([]int, 0, l.resultLength)
		for _, m := range base {
			if !l.ctrlMask[m] {
				out = append(out, m)
			}
		}
		return out
	}

	return base
}
