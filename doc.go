// Package richtext is an interactive, bidirectional, rich-text layout and
// editing engine. It consumes a logical character sequence, optionally
// annotated with inline formatting, produces a visual paragraph layout
// (line-broken, script-segmented, bidi-reordered, font-fallback-resolved,
// glyph-positioned), and supports interactive editing with a caret and a
// selection driven by abstract mouse, key, and text events.
//
// The heavy lifting lives in the subpackages:
//
//   - valuerun: compact per-character attribute run storage
//   - fonts: the font registry, face fallback, and sized font data
//   - format: inline markup parsing and formatting iteration
//   - ubidi: UTF-8 bidi paragraph resolution and the line engine
//   - layout: paragraph/line layout and its geometric queries
//
// This package ties them together: the TextBox editor dispatches input
// events, maintains the cursor and selection through a CursorController,
// recomputes layout on every mutation, and emits abstract textured
// rectangles for a GPU-agnostic drawing sink.
//
// The engine is single-threaded with respect to the event loop: a TextBox
// must only be touched from one goroutine, and all event handlers complete
// synchronously before the next event is processed.
package richtext
