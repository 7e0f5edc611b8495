package format

import (
	"github.com/Mlleters/rich-text/style"
	"github.com/Mlleters/rich-text/valuerun"
)

// Event is a bitmask of decoration transitions crossed by an iterator
// advance.
type Event uint32

const (
	EventNone               Event = 0
	EventStrikethroughBegin Event = 1
	EventStrikethroughEnd   Event = 2
	EventUnderlineBegin     Event = 4
	EventUnderlineEnd       Event = 8
)

// Iterator walks formatting runs along glyph order, reporting decoration
// begin/end events as run boundaries are crossed. It supports logical
// traversal of right-to-left runs: construct it at the run's charEndIndex
// and advance toward lower indices.
type Iterator struct {
	runs *Runs

	colorRunIndex  int
	strokeRunIndex int
	strikeRunIndex int
	underRunIndex  int

	color     style.Color
	prevColor style.Color
	strike    bool
	underline bool
}

// NewIterator creates an iterator positioned at initialCharIndex.
func NewIterator(runs *Runs, initialCharIndex int32) *Iterator {
	it := &Iterator{
		runs:           runs,
		colorRunIndex:  clampRunIndex(&runs.ColorRuns, initialCharIndex),
		strokeRunIndex: clampRunIndex(&runs.StrokeRuns, initialCharIndex),
		strikeRunIndex: clampRunIndex(&runs.StrikethroughRuns, initialCharIndex),
		underRunIndex:  clampRunIndex(&runs.UnderlineRuns, initialCharIndex),
	}
	it.color = runs.ColorRuns.RunValue(it.colorRunIndex)
	return it
}

func clampRunIndex[T any](runs *valuerun.ValueRuns[T], index int32) int {
	i := runs.RunIndex(index)
	if i >= runs.RunCount() {
		i = runs.RunCount() - 1
	}
	return i
}

// AdvanceTo moves the iterator to charIndex, in either direction, and
// returns the decoration transitions crossed since the previous position.
// A color change inside an open decoration ends it and immediately
// restarts it, so the renderer can emit one decoration rect per color.
func (it *Iterator) AdvanceTo(charIndex int32) Event {
	it.strokeRunIndex = advanceRun(&it.runs.StrokeRuns, it.strokeRunIndex, charIndex)
	it.colorRunIndex = advanceRun(&it.runs.ColorRuns, it.colorRunIndex, charIndex)
	it.strikeRunIndex = advanceRun(&it.runs.StrikethroughRuns, it.strikeRunIndex, charIndex)
	it.underRunIndex = advanceRun(&it.runs.UnderlineRuns, it.underRunIndex, charIndex)

	color := it.runs.ColorRuns.RunValue(it.colorRunIndex)
	strike := it.runs.StrikethroughRuns.RunValue(it.strikeRunIndex)
	underline := it.runs.UnderlineRuns.RunValue(it.underRunIndex)
	colorChanged := color != it.color

	var event Event
	if strike && (!it.strike || colorChanged) {
		event |= EventStrikethroughBegin
	}
	if (!strike && it.strike) || (strike && colorChanged) {
		event |= EventStrikethroughEnd
	}
	if underline && (!it.underline || colorChanged) {
		event |= EventUnderlineBegin
	}
	if (!underline && it.underline) || (underline && colorChanged) {
		event |= EventUnderlineEnd
	}

	it.prevColor = it.color
	it.color = color
	it.strike = strike
	it.underline = underline

	return event
}

// Color returns the color at the current position.
func (it *Iterator) Color() style.Color { return it.color }

// PrevColor returns the color active immediately before the last transition.
func (it *Iterator) PrevColor() style.Color { return it.prevColor }

// StrokeState returns the stroke state at the current position.
func (it *Iterator) StrokeState() style.StrokeState {
	return it.runs.StrokeRuns.RunValue(it.strokeRunIndex)
}

// HasStrikethrough reports whether a strikethrough is open at the current
// position.
func (it *Iterator) HasStrikethrough() bool { return it.strike }

// HasUnderline reports whether an underline is open at the current position.
func (it *Iterator) HasUnderline() bool { return it.underline }

// advanceRun moves a run slot forward or backward to cover charIndex.
func advanceRun[T any](runs *valuerun.ValueRuns[T], runIndex int, charIndex int32) int {
	for runIndex+1 < runs.RunCount() && charIndex >= runs.RunLimit(runIndex) {
		runIndex++
	}
	for runIndex > 0 && charIndex < runs.RunLimit(runIndex-1) {
		runIndex--
	}
	return runIndex
}
