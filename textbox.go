package richtext

import (
	"time"
	"unicode/utf8"

	"github.com/Mlleters/rich-text/fonts"
	"github.com/Mlleters/rich-text/format"
	"github.com/Mlleters/rich-text/layout"
	"github.com/Mlleters/rich-text/style"
)

// DoubleClickTime is the window within which consecutive clicks at the same
// position escalate the click count.
const DoubleClickTime = 500 * time.Millisecond

// now is a monotonic clock hook, swappable by tests.
var now = time.Now

// focusedTextBox is the single box receiving key and text events. Mutated
// only from the event goroutine.
var focusedTextBox *TextBox

// FocusedTextBox returns the box currently holding focus, or nil.
func FocusedTextBox() *TextBox {
	return focusedTextBox
}

// postLayoutCursorMove tags a cursor move that can only be applied after a
// fresh layout exists, because line membership changes with wrapping.
type postLayoutCursorMove uint8

const (
	moveLineStart postLayoutCursorMove = iota
	moveLineEnd
	moveLineAbove
	moveLineBelow
	moveMousePosition
)

type postLayoutOp struct {
	move   postLayoutCursorMove
	mouseX float32
	mouseY float32
}

// TextBox owns a mutable text buffer with formatting flags, dispatches
// input events, recomputes layout on every mutation, and caches the draw
// rectangles for its current state.
type TextBox struct {
	font      fonts.Font
	text      string
	textColor style.Color

	contentText string
	formatting  format.Runs

	position [2]float32
	size     [2]float32

	xAlign      layout.XAlignment
	yAlign      layout.YAlignment
	textWrapped bool
	richText    bool
	editable    bool
	selectable  bool
	multiLine   bool

	cursor         layout.CursorPosition
	selectionStart layout.CursorPosition

	layoutInfo layout.LayoutInfo
	textRects  []Rect

	cursorCtl *CursorController

	cursorPixelX float32
	cursorPixelY float32
	cursorHeight float32
	lineNumber   int

	atlas     GlyphAtlas
	clipboard Clipboard

	lastClickTime time.Time
	lastClickPos  layout.CursorPosition
	clickCount    int
	dragSelecting bool
}

// NewTextBox creates an empty, selectable, single-line text box.
func NewTextBox() *TextBox {
	return &TextBox{
		textColor:      style.RGB(0, 0, 0),
		selectable:     true,
		cursor:         layout.MakeCursor(0, false),
		selectionStart: layout.CursorInvalid,
		atlas:          nopAtlas{},
	}
}

// Close releases focus if this box holds it. Call before discarding a box.
func (b *TextBox) Close() {
	b.ReleaseFocus()
}

// Setters; each invalidates and recomputes the layout.

// SetFont sets the base font.
func (b *TextBox) SetFont(f fonts.Font) {
	b.font = f
	b.recalcText()
}

// SetText replaces the source text.
func (b *TextBox) SetText(text string) {
	b.text = text
	b.selectionStart = layout.CursorInvalid
	if b.cursor.Position() > uint32(len(text)) {
		b.cursor = layout.MakeCursor(uint32(len(text)), false)
	}
	if b.isFocused() {
		b.cursorCtl = NewCursorController(b.text)
	}
	b.recalcText()
}

// SetTextColor sets the base text color.
func (b *TextBox) SetTextColor(c style.Color) {
	b.textColor = c
	b.recalcText()
}

// SetPosition moves the box.
func (b *TextBox) SetPosition(x, y float32) {
	b.position[0] = x
	b.position[1] = y
	b.recalcText()
}

// SetSize resizes the text area.
func (b *TextBox) SetSize(width, height float32) {
	b.size[0] = width
	b.size[1] = height
	b.recalcText()
}

// SetTextXAlignment sets horizontal line alignment.
func (b *TextBox) SetTextXAlignment(align layout.XAlignment) {
	b.xAlign = align
	b.recalcText()
}

// SetTextYAlignment sets vertical block alignment.
func (b *TextBox) SetTextYAlignment(align layout.YAlignment) {
	b.yAlign = align
	b.recalcText()
}

// SetTextWrapped toggles wrapping at the box width.
func (b *TextBox) SetTextWrapped(wrapped bool) {
	b.textWrapped = wrapped
	b.recalcText()
}

// SetRichText toggles inline markup interpretation.
func (b *TextBox) SetRichText(richText bool) {
	b.richText = richText
	b.recalcText()
}

// SetEditable toggles text mutation through events.
func (b *TextBox) SetEditable(editable bool) {
	b.editable = editable
	b.recalcText()
}

// SetSelectable toggles selection.
func (b *TextBox) SetSelectable(selectable bool) {
	b.selectable = selectable
	b.recalcText()
}

// SetMultiLine toggles Enter inserting newlines rather than dropping focus.
func (b *TextBox) SetMultiLine(multiLine bool) {
	b.multiLine = multiLine
	b.recalcText()
}

// SetAtlas attaches the glyph atlas glyph quads are fetched from.
func (b *TextBox) SetAtlas(atlas GlyphAtlas) {
	if atlas == nil {
		atlas = nopAtlas{}
	}
	b.atlas = atlas
	b.recalcText()
}

// SetClipboard attaches the clipboard capability.
func (b *TextBox) SetClipboard(clipboard Clipboard) {
	b.clipboard = clipboard
}

// Accessors.

// Text returns the source text.
func (b *TextBox) Text() string { return b.text }

// ContentText returns the markup-stripped projection of the source text
// from the latest recompute.
func (b *TextBox) ContentText() string { return b.contentText }

// CursorPosition returns the current cursor.
func (b *TextBox) CursorPosition() layout.CursorPosition { return b.cursor }

// Layout returns the cached layout of the latest recompute.
func (b *TextBox) Layout() *layout.LayoutInfo { return &b.layoutInfo }

// SelectionRange returns the normalized selection byte range, or ok=false
// when no selection exists.
func (b *TextBox) SelectionRange() (start, end uint32, ok bool) {
	if !b.hasSelection() {
		return 0, 0, false
	}
	start = b.selectionStart.Position()
	end = b.cursor.Position()
	if start > end {
		start, end = end, start
	}
	return start, end, true
}

func (b *TextBox) hasSelection() bool {
	return b.selectionStart.Valid() && b.selectionStart.Position() != b.cursor.Position()
}

// IsMouseInside reports whether the point is within the box bounds.
func (b *TextBox) IsMouseInside(mouseX, mouseY float32) bool {
	return mouseX >= b.position[0] && mouseY >= b.position[1] &&
		mouseX-b.position[0] <= b.size[0] && mouseY-b.position[1] <= b.size[1]
}

// Focus handling.

func (b *TextBox) isFocused() bool {
	return focusedTextBox == b
}

// CaptureFocus makes this box the focused one, building the cursor
// controller over the displayed text. While focused, markup is shown raw so
// the cursor addresses source bytes directly.
func (b *TextBox) CaptureFocus() {
	if focusedTextBox == b {
		return
	}
	if focusedTextBox != nil {
		focusedTextBox.ReleaseFocus()
	}

	focusedTextBox = b
	b.cursorCtl = NewCursorController(b.text)
	b.recalcTextInternal(false, nil)
}

// ReleaseFocus drops focus if this box holds it.
func (b *TextBox) ReleaseFocus() {
	if focusedTextBox != b {
		return
	}

	focusedTextBox = nil
	b.cursorCtl = nil
	b.dragSelecting = false
	b.selectionStart = layout.CursorInvalid
	b.recalcText()
}

// Event handling.

// HandleMouseButton processes a button event at (mouseX, mouseY). It
// reports whether the event landed inside the box.
func (b *TextBox) HandleMouseButton(button MouseButton, action Action, mods Mods, mouseX, mouseY float32) bool {
	if button != MouseButtonPrimary {
		return false
	}

	if action == ActionRelease {
		b.dragSelecting = false
		return b.IsMouseInside(mouseX, mouseY)
	}

	mouseInside := b.IsMouseInside(mouseX, mouseY)

	if b.isFocused() {
		if !mouseInside {
			b.ReleaseFocus()
			return false
		}
		b.handleFocusedClick(mods, mouseX, mouseY)
		return true
	}

	if mouseInside {
		b.CaptureFocus()
		b.moveCursorToMouse(mods, mouseX, mouseY)
		b.dragSelecting = b.selectable
		b.lastClickTime = now()
		b.lastClickPos = b.cursor
		b.clickCount = 0
	}
	return mouseInside
}

func (b *TextBox) handleFocusedClick(mods Mods, mouseX, mouseY float32) {
	b.moveCursorToMouse(mods, mouseX, mouseY)
	b.dragSelecting = b.selectable

	clickTime := now()
	if clickTime.Sub(b.lastClickTime) <= DoubleClickTime && b.cursor == b.lastClickPos {
		b.clickCount++
	} else {
		b.clickCount = 0
	}
	b.lastClickTime = clickTime
	b.lastClickPos = b.cursor

	if !b.selectable {
		return
	}

	switch b.clickCount % 4 {
	case 1:
		b.selectWordAtCursor()
	case 2:
		b.selectLineAtCursor()
	case 3:
		b.SelectAll()
	}
}

// moveCursorToMouse applies a post-layout mouse move, extending the
// selection when shift is held and replacing it otherwise.
func (b *TextBox) moveCursorToMouse(mods Mods, mouseX, mouseY float32) {
	b.prepareSelection(mods)
	op := postLayoutOp{
		move:   moveMousePosition,
		mouseX: mouseX - b.position[0],
		mouseY: mouseY - b.position[1],
	}
	b.recalcTextInternal(false, &op)
}

// prepareSelection anchors or clears the selection for a cursor move,
// following the shift modifier.
func (b *TextBox) prepareSelection(mods Mods) {
	if mods&ModShift != 0 && b.selectable {
		if !b.selectionStart.Valid() {
			b.selectionStart = b.cursor
		}
	} else {
		b.selectionStart = layout.CursorInvalid
	}
}

func (b *TextBox) selectWordAtCursor() {
	if b.cursorCtl == nil {
		return
	}
	start := b.cursorCtl.PrevWord(b.cursor)
	end := b.cursorCtl.NextWordEnd(b.cursor)
	b.selectionStart = start
	b.cursor = end
	b.recalcTextInternal(false, nil)
}

func (b *TextBox) selectLineAtCursor() {
	b.selectionStart = b.layoutInfo.LineStartPosition(b.lineNumber)
	b.cursor = b.layoutInfo.LineEndPosition(b.lineNumber)
	b.recalcTextInternal(false, nil)
}

// SelectAll selects the whole displayed text.
func (b *TextBox) SelectAll() {
	b.selectionStart = layout.MakeCursor(0, false)
	b.cursor = layout.MakeCursor(uint32(len(b.displayedText())), false)
	b.recalcTextInternal(false, nil)
}

// HandleMouseMove extends the selection while dragging with the primary
// button held.
func (b *TextBox) HandleMouseMove(mouseX, mouseY float32) {
	if !b.isFocused() || !b.dragSelecting {
		return
	}

	if !b.selectionStart.Valid() {
		b.selectionStart = b.cursor
	}
	op := postLayoutOp{
		move:   moveMousePosition,
		mouseX: mouseX - b.position[0],
		mouseY: mouseY - b.position[1],
	}
	b.recalcTextInternal(false, &op)
}

// HandleKeyPress processes a key event. Only the focused box responds.
func (b *TextBox) HandleKeyPress(key Key, action Action, mods Mods) bool {
	if action == ActionRelease || !b.isFocused() {
		return false
	}

	switch key {
	case KeyUp:
		b.prepareSelection(mods)
		b.applyPostLayoutMove(moveLineAbove)
	case KeyDown:
		b.prepareSelection(mods)
		b.applyPostLayoutMove(moveLineBelow)
	case KeyLeft:
		b.prepareSelection(mods)
		if mods&ModControl != 0 {
			b.cursor = b.cursorCtl.PrevWord(b.cursor)
		} else {
			b.cursor = b.cursorCtl.PrevCharacter(b.cursor)
		}
		b.recalcTextInternal(false, nil)
	case KeyRight:
		b.prepareSelection(mods)
		if mods&ModControl != 0 {
			b.cursor = b.cursorCtl.NextWord(b.cursor)
		} else {
			b.cursor = b.cursorCtl.NextCharacter(b.cursor)
		}
		b.recalcTextInternal(false, nil)
	case KeyHome:
		b.prepareSelection(mods)
		if mods&ModControl != 0 {
			b.cursor = layout.MakeCursor(0, false)
			b.recalcTextInternal(false, nil)
		} else {
			b.applyPostLayoutMove(moveLineStart)
		}
	case KeyEnd:
		b.prepareSelection(mods)
		if mods&ModControl != 0 {
			b.cursor = layout.MakeCursor(uint32(len(b.displayedText())), false)
			b.recalcTextInternal(false, nil)
		} else {
			b.applyPostLayoutMove(moveLineEnd)
		}
	case KeyBackspace:
		b.deleteBackward(mods)
	case KeyDelete:
		b.deleteForward(mods)
	case KeyEnter:
		if b.multiLine {
			if b.editable {
				b.insertAtCursor("\n")
			}
		} else {
			b.ReleaseFocus()
		}
	case KeyA:
		if mods&ModControl != 0 {
			b.SelectAll()
		}
	case KeyC:
		if mods&ModControl != 0 {
			b.copySelection()
		}
	case KeyX:
		if mods&ModControl != 0 {
			b.copySelection()
			if b.editable {
				b.deleteSelection()
				b.recalcTextInternal(false, nil)
			}
		}
	case KeyV:
		if mods&ModControl != 0 && b.editable && b.clipboard != nil {
			b.deleteSelection()
			b.insertAtCursor(b.clipboard.ClipboardString())
		}
	default:
		return true
	}

	return true
}

// HandleTextInput inserts a codepoint at the cursor, replacing any
// selection.
func (b *TextBox) HandleTextInput(codepoint rune) bool {
	if !b.isFocused() {
		return false
	}
	if !b.editable {
		return true
	}

	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], codepoint)
	b.deleteSelection()
	b.insertAtCursor(string(buf[:n]))
	return true
}

// Editing primitives. While focused the displayed text is the source text,
// so cursor offsets address the buffer directly.

func (b *TextBox) displayedText() string {
	if b.isFocused() || !b.richText {
		return b.text
	}
	return b.contentText
}

// insertAtCursor inserts s at the cursor and advances the cursor past it.
func (b *TextBox) insertAtCursor(s string) {
	pos := b.cursor.Position()
	b.text = b.text[:pos] + s + b.text[pos:]
	b.cursor = layout.MakeCursor(pos+uint32(len(s)), false)
	b.cursorCtl = NewCursorController(b.text)
	b.recalcTextInternal(false, nil)
}

// removeTextRange deletes [start, end) from the buffer and leaves the
// cursor at start.
func (b *TextBox) removeTextRange(start, end uint32) {
	b.text = b.text[:start] + b.text[end:]
	b.cursor = layout.MakeCursor(start, false)
	b.cursorCtl = NewCursorController(b.text)
}

// deleteSelection removes the selected range. It reports whether a
// selection was removed.
func (b *TextBox) deleteSelection() bool {
	start, end, ok := b.SelectionRange()
	b.selectionStart = layout.CursorInvalid
	if !ok {
		return false
	}
	b.removeTextRange(start, end)
	return true
}

func (b *TextBox) deleteBackward(mods Mods) {
	if !b.editable {
		return
	}
	if b.deleteSelection() {
		b.recalcTextInternal(false, nil)
		return
	}

	end := b.cursor
	var start layout.CursorPosition
	if mods&ModControl != 0 {
		start = b.cursorCtl.PrevWord(end)
	} else {
		start = b.cursorCtl.PrevCharacter(end)
	}
	if start.Position() != end.Position() {
		b.removeTextRange(start.Position(), end.Position())
	}
	b.recalcTextInternal(false, nil)
}

func (b *TextBox) deleteForward(mods Mods) {
	if !b.editable {
		return
	}
	if b.deleteSelection() {
		b.recalcTextInternal(false, nil)
		return
	}

	start := b.cursor
	var end layout.CursorPosition
	if mods&ModControl != 0 {
		end = b.cursorCtl.NextWord(start)
	} else {
		end = b.cursorCtl.NextCharacter(start)
	}
	if start.Position() != end.Position() {
		b.removeTextRange(start.Position(), end.Position())
	}
	b.recalcTextInternal(false, nil)
}

func (b *TextBox) copySelection() {
	start, end, ok := b.SelectionRange()
	if !ok || b.clipboard == nil {
		return
	}
	b.clipboard.SetClipboardString(b.displayedText()[start:end])
}

// Layout recomputation.

func (b *TextBox) applyPostLayoutMove(move postLayoutCursorMove) {
	op := postLayoutOp{move: move}
	b.recalcTextInternal(false, &op)
}

func (b *TextBox) recalcText() {
	b.recalcTextInternal(b.richText && !b.isFocused(), nil)
}

// recalcTextInternal reparses formatting, rebuilds the layout, applies any
// deferred cursor move against the new geometry, refreshes the cursor pixel
// position, and regenerates the draw rects.
func (b *TextBox) recalcTextInternal(richText bool, op *postLayoutOp) {
	b.textRects = b.textRects[:0]

	if !b.font.Valid() {
		return
	}

	var baseStroke style.StrokeState
	if richText {
		b.formatting, b.contentText = format.ParseInline(b.text, b.font, b.textColor, baseStroke)
	} else {
		b.formatting, b.contentText = format.MakeDefaultRuns(b.text, b.font, b.textColor, baseStroke)
	}

	if b.contentText == "" {
		b.layoutInfo.Clear()
		data := b.font.Registry().FontDataFor(b.font)
		b.cursorPixelX = 0
		b.cursorPixelY = 0
		b.cursorHeight = float32(data.Ascent() + data.Descent())
		b.lineNumber = 0
		b.emitCursorRect()
		return
	}

	wrapWidth := float32(0)
	if b.textWrapped {
		wrapWidth = b.size[0]
	}

	layout.BuildLayoutInfo(&b.layoutInfo, []byte(b.contentText), &b.formatting.FontRuns,
		wrapWidth, b.size[1], b.yAlign, 0)

	if op != nil {
		b.cursor = b.applyCursorMove(op)
	}

	cursorInfo := b.layoutInfo.CalcCursorPixelPos(b.size[0], b.xAlign, b.cursor)
	b.cursorPixelX = cursorInfo.X
	b.cursorPixelY = cursorInfo.Y
	b.cursorHeight = cursorInfo.Height
	b.lineNumber = cursorInfo.LineNumber

	b.buildTextRects()
}

// applyCursorMove evaluates a deferred cursor move against the fresh
// layout. cursorPixelX preserves the visual column across vertical moves
// through short lines.
func (b *TextBox) applyCursorMove(op *postLayoutOp) layout.CursorPosition {
	info := &b.layoutInfo

	switch op.move {
	case moveLineStart:
		return info.LineStartPosition(b.lineNumber)
	case moveLineEnd:
		return info.LineEndPosition(b.lineNumber)
	case moveLineAbove:
		if b.lineNumber > 0 {
			return b.cursorCtl.ClosestInLine(info, b.size[0], b.xAlign, b.lineNumber-1, b.cursorPixelX)
		}
	case moveLineBelow:
		if b.lineNumber < len(info.Lines)-1 {
			return b.cursorCtl.ClosestInLine(info, b.size[0], b.xAlign, b.lineNumber+1, b.cursorPixelX)
		}
	case moveMousePosition:
		return b.cursorCtl.ClosestToPosition(info, b.size[0], b.xAlign, op.mouseX, op.mouseY)
	}

	return b.cursor
}
