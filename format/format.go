// Package format turns source text with optional inline markup into
// per-character formatting runs over the markup-stripped content text, and
// provides the iterator the renderer uses to track color, stroke, and
// decoration transitions while walking glyphs.
package format

import (
	"github.com/Mlleters/rich-text/fonts"
	"github.com/Mlleters/rich-text/style"
	"github.com/Mlleters/rich-text/valuerun"
)

// ParseIssue is a diagnostic produced by the permissive markup parser.
// SourceIndex is a byte offset into the source text.
type ParseIssue struct {
	SourceIndex int32
	Message     string
}

// Runs bundles the per-attribute value runs of a piece of content text.
// All run sets share the domain [0, len(contentText)).
type Runs struct {
	FontRuns          valuerun.ValueRuns[fonts.Font]
	ColorRuns         valuerun.ValueRuns[style.Color]
	StrokeRuns        valuerun.ValueRuns[style.StrokeState]
	StrikethroughRuns valuerun.ValueRuns[bool]
	UnderlineRuns     valuerun.ValueRuns[bool]

	// SourceMap maps each content-text byte to its byte offset in the
	// source text, for error reporting. Nil for default runs, where content
	// and source coincide.
	SourceMap []int32

	// Issues lists problems the parser tolerated.
	Issues []ParseIssue
}

// MakeDefaultRuns builds single-span runs over text with the base values.
// The content text equals the source text.
func MakeDefaultRuns(text string, baseFont fonts.Font, baseColor style.Color, baseStroke style.StrokeState) (Runs, string) {
	length := int32(len(text))

	return Runs{
		FontRuns:          valuerun.New(baseFont, length),
		ColorRuns:         valuerun.New(baseColor, length),
		StrokeRuns:        valuerun.New(baseStroke, length),
		StrikethroughRuns: valuerun.New(false, length),
		UnderlineRuns:     valuerun.New(false, length),
	}, text
}
