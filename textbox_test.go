package richtext

import (
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/Mlleters/rich-text/fonts"
	"github.com/Mlleters/rich-text/layout"
	"github.com/Mlleters/rich-text/style"
)

func testFont(t *testing.T) fonts.Font {
	t.Helper()

	r := fonts.NewRegistry()
	err := r.RegisterFamily(fonts.FamilyInfo{
		Name: "Go",
		Faces: []fonts.FaceInfo{
			{Name: "Go-Regular", Data: goregular.TTF, Weight: fonts.WeightRegular, Style: fonts.StyleNormal},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return fonts.NewFont(r, r.Family("Go"), fonts.WeightRegular, fonts.StyleNormal, 16)
}

func newTestBox(t *testing.T, text string) *TextBox {
	t.Helper()

	box := NewTextBox()
	box.SetFont(testFont(t))
	box.SetSize(500, 100)
	box.SetEditable(true)
	box.SetMultiLine(true)
	box.SetText(text)

	t.Cleanup(func() {
		box.ReleaseFocus()
		now = time.Now
	})
	return box
}

// fakeClipboard round-trips a string in memory.
type fakeClipboard struct {
	contents string
}

func (c *fakeClipboard) ClipboardString() string     { return c.contents }
func (c *fakeClipboard) SetClipboardString(s string) { c.contents = s }

// testAtlas returns fixed-size quads so glyph rects are emitted.
type testAtlas struct{}

func (testAtlas) GlyphInfo(font *fonts.FontData, glyphID uint32) (GlyphQuad, bool) {
	return GlyphQuad{Width: 8, Height: 12, Pipeline: PipelineMSDF}, true
}
func (testAtlas) StrokeInfo(font *fonts.FontData, glyphID uint32, thickness uint8, joins style.StrokeJoins) (GlyphQuad, bool) {
	return GlyphQuad{Width: 10, Height: 14, Pipeline: PipelineMSDF}, true
}
func (testAtlas) DefaultTexture() any { return nil }

// TestTextBox_TypeAndDelete tests text input and backspace.
func TestTextBox_TypeAndDelete(t *testing.T) {
	box := newTestBox(t, "")
	box.CaptureFocus()

	box.HandleTextInput('h')
	box.HandleTextInput('i')

	if box.Text() != "hi" {
		t.Fatalf("text = %q, want %q", box.Text(), "hi")
	}
	if box.CursorPosition().Position() != 2 {
		t.Errorf("cursor = %d, want 2", box.CursorPosition().Position())
	}

	box.HandleKeyPress(KeyBackspace, ActionPress, 0)

	if box.Text() != "h" {
		t.Errorf("text after backspace = %q, want %q", box.Text(), "h")
	}
	if box.CursorPosition().Position() != 1 {
		t.Errorf("cursor after backspace = %d, want 1", box.CursorPosition().Position())
	}
}

// TestTextBox_MultiByteInput tests that cursor advancement counts bytes.
func TestTextBox_MultiByteInput(t *testing.T) {
	box := newTestBox(t, "")
	box.CaptureFocus()

	box.HandleTextInput('é')

	if box.Text() != "é" {
		t.Fatalf("text = %q, want %q", box.Text(), "é")
	}
	if box.CursorPosition().Position() != 2 {
		t.Errorf("cursor = %d, want 2 (byte length)", box.CursorPosition().Position())
	}

	box.HandleKeyPress(KeyBackspace, ActionPress, 0)
	if box.Text() != "" {
		t.Errorf("text after backspace = %q, want empty", box.Text())
	}
}

// TestTextBox_SelectAllDelete tests the select-everything-then-backspace
// scenario: the buffer empties, the cursor returns to 0, the selection
// clears.
func TestTextBox_SelectAllDelete(t *testing.T) {
	box := newTestBox(t, "hello")
	box.CaptureFocus()

	box.HandleKeyPress(KeyA, ActionPress, ModControl)

	if _, _, ok := box.SelectionRange(); !ok {
		t.Fatal("select-all should produce a selection")
	}

	box.HandleKeyPress(KeyBackspace, ActionPress, 0)

	if box.Text() != "" {
		t.Errorf("text = %q, want empty", box.Text())
	}
	if box.CursorPosition().Position() != 0 {
		t.Errorf("cursor = %d, want 0", box.CursorPosition().Position())
	}
	if _, _, ok := box.SelectionRange(); ok {
		t.Error("selection should be cleared")
	}
}

// TestTextBox_EditingRoundTrip tests that inserting then deleting a span
// restores the original buffer.
func TestTextBox_EditingRoundTrip(t *testing.T) {
	const original = "hello world"
	box := newTestBox(t, original)
	box.CaptureFocus()

	// Move to offset 5 and type three characters.
	box.HandleKeyPress(KeyHome, ActionPress, ModControl)
	for i := 0; i < 5; i++ {
		box.HandleKeyPress(KeyRight, ActionPress, 0)
	}
	for _, r := range "abc" {
		box.HandleTextInput(r)
	}

	if box.Text() != "helloabc world" {
		t.Fatalf("text = %q, want %q", box.Text(), "helloabc world")
	}

	for i := 0; i < 3; i++ {
		box.HandleKeyPress(KeyBackspace, ActionPress, 0)
	}

	if box.Text() != original {
		t.Errorf("text = %q, want %q", box.Text(), original)
	}
}

// TestTextBox_WordNavigation tests ctrl+arrow word movement.
func TestTextBox_WordNavigation(t *testing.T) {
	box := newTestBox(t, "foo bar baz")
	box.CaptureFocus()

	box.HandleKeyPress(KeyRight, ActionPress, ModControl)
	if got := box.CursorPosition().Position(); got != 4 {
		t.Errorf("cursor after ctrl+right = %d, want 4", got)
	}

	box.HandleKeyPress(KeyRight, ActionPress, ModControl)
	if got := box.CursorPosition().Position(); got != 8 {
		t.Errorf("cursor after second ctrl+right = %d, want 8", got)
	}

	box.HandleKeyPress(KeyLeft, ActionPress, ModControl)
	if got := box.CursorPosition().Position(); got != 4 {
		t.Errorf("cursor after ctrl+left = %d, want 4", got)
	}

	// Repeated next-word terminates at the text end.
	for i := 0; i < 10; i++ {
		box.HandleKeyPress(KeyRight, ActionPress, ModControl)
	}
	if got := box.CursorPosition().Position(); got != 11 {
		t.Errorf("cursor after many ctrl+right = %d, want 11", got)
	}
}

// TestTextBox_DoubleClickSelectsWord tests the click-count escalation: a
// second click at the same position within the window selects the word.
func TestTextBox_DoubleClickSelectsWord(t *testing.T) {
	box := newTestBox(t, "foo bar baz")
	box.CaptureFocus()

	// Pixel x in the middle of "bar".
	x := box.Layout().CalcCursorPixelPos(500, layout.AlignLeft, layout.MakeCursor(5, false)).X + 1

	current := time.Now()
	now = func() time.Time { return current }

	box.HandleMouseButton(MouseButtonPrimary, ActionPress, 0, x, 5)
	box.HandleMouseButton(MouseButtonPrimary, ActionRelease, 0, x, 5)

	current = current.Add(100 * time.Millisecond)
	box.HandleMouseButton(MouseButtonPrimary, ActionPress, 0, x, 5)

	start, end, ok := box.SelectionRange()
	if !ok {
		t.Fatal("double click should select the word")
	}
	if start != 4 || end != 7 {
		t.Errorf("selection = [%d, %d), want [4, 7)", start, end)
	}
}

// TestTextBox_TripleClickSelectsLine tests the third click in the cycle.
func TestTextBox_TripleClickSelectsLine(t *testing.T) {
	box := newTestBox(t, "foo bar baz")
	box.CaptureFocus()

	x := box.Layout().CalcCursorPixelPos(500, layout.AlignLeft, layout.MakeCursor(5, false)).X + 1

	current := time.Now()
	now = func() time.Time { return current }

	for i := 0; i < 3; i++ {
		box.HandleMouseButton(MouseButtonPrimary, ActionPress, 0, x, 5)
		box.HandleMouseButton(MouseButtonPrimary, ActionRelease, 0, x, 5)
		current = current.Add(100 * time.Millisecond)
	}

	start, end, ok := box.SelectionRange()
	if !ok {
		t.Fatal("triple click should select the line")
	}
	if start != 0 || end != 11 {
		t.Errorf("selection = [%d, %d), want the whole line [0, 11)", start, end)
	}
}

// TestTextBox_ClickOutsideReleasesFocus tests the focus lifecycle.
func TestTextBox_ClickOutsideReleasesFocus(t *testing.T) {
	box := newTestBox(t, "text")

	box.HandleMouseButton(MouseButtonPrimary, ActionPress, 0, 10, 10)
	if FocusedTextBox() != box {
		t.Fatal("click inside should capture focus")
	}

	box.HandleMouseButton(MouseButtonPrimary, ActionPress, 0, 900, 900)
	if FocusedTextBox() != nil {
		t.Error("click outside should release focus")
	}
}

// TestTextBox_EnterSingleLine tests that Enter drops focus when the box is
// not multi-line.
func TestTextBox_EnterSingleLine(t *testing.T) {
	box := newTestBox(t, "x")
	box.SetMultiLine(false)
	box.CaptureFocus()

	box.HandleKeyPress(KeyEnter, ActionPress, 0)

	if FocusedTextBox() == box {
		t.Error("enter on a single-line box should release focus")
	}
	if box.Text() != "x" {
		t.Errorf("text = %q, want unchanged", box.Text())
	}
}

// TestTextBox_EnterMultiLine tests newline insertion.
func TestTextBox_EnterMultiLine(t *testing.T) {
	box := newTestBox(t, "ab")
	box.CaptureFocus()

	box.HandleKeyPress(KeyEnd, ActionPress, ModControl)
	box.HandleKeyPress(KeyEnter, ActionPress, 0)

	if box.Text() != "ab\n" {
		t.Errorf("text = %q, want %q", box.Text(), "ab\n")
	}
}

// TestTextBox_CutCopyPaste tests the clipboard round trip.
func TestTextBox_CutCopyPaste(t *testing.T) {
	box := newTestBox(t, "hello")
	clip := &fakeClipboard{}
	box.SetClipboard(clip)
	box.CaptureFocus()

	box.HandleKeyPress(KeyA, ActionPress, ModControl)
	box.HandleKeyPress(KeyX, ActionPress, ModControl)

	if clip.contents != "hello" {
		t.Errorf("clipboard = %q, want %q", clip.contents, "hello")
	}
	if box.Text() != "" {
		t.Errorf("text after cut = %q, want empty", box.Text())
	}

	box.HandleKeyPress(KeyV, ActionPress, ModControl)
	if box.Text() != "hello" {
		t.Errorf("text after paste = %q, want %q", box.Text(), "hello")
	}

	box.HandleKeyPress(KeyA, ActionPress, ModControl)
	box.HandleKeyPress(KeyC, ActionPress, ModControl)
	if clip.contents != "hello" {
		t.Errorf("clipboard after copy = %q, want %q", clip.contents, "hello")
	}
	if box.Text() != "hello" {
		t.Errorf("copy should not mutate the text: %q", box.Text())
	}
}

// TestTextBox_ShiftArrowSelection tests selection extension with shift.
func TestTextBox_ShiftArrowSelection(t *testing.T) {
	box := newTestBox(t, "abcd")
	box.CaptureFocus()

	box.HandleKeyPress(KeyHome, ActionPress, ModControl)
	box.HandleKeyPress(KeyRight, ActionPress, ModShift)
	box.HandleKeyPress(KeyRight, ActionPress, ModShift)

	start, end, ok := box.SelectionRange()
	if !ok {
		t.Fatal("shift+right should create a selection")
	}
	if start != 0 || end != 2 {
		t.Errorf("selection = [%d, %d), want [0, 2)", start, end)
	}

	// A plain arrow clears the selection.
	box.HandleKeyPress(KeyRight, ActionPress, 0)
	if _, _, ok := box.SelectionRange(); ok {
		t.Error("plain arrow should clear the selection")
	}
}

// TestTextBox_LineNavigation tests vertical movement across wrapped lines,
// landing at the nearest x on the target line.
func TestTextBox_LineNavigation(t *testing.T) {
	box := newTestBox(t, "aaaa bbbb cccc")
	box.SetTextWrapped(true)

	// Pick a width that fits two words per line.
	probe := newTestBox(t, "aaaa bbbb")
	wrapWidth := probe.Layout().Lines[0].Width + 1
	probe.ReleaseFocus()

	box.SetSize(wrapWidth, 100)
	box.CaptureFocus()

	if got := len(box.Layout().Lines); got != 2 {
		t.Fatalf("line count = %d, want 2", got)
	}

	// End of line 1, then down: lands at the end of "cccc".
	box.HandleKeyPress(KeyEnd, ActionPress, 0)
	box.HandleKeyPress(KeyDown, ActionPress, 0)

	if got := box.CursorPosition().Position(); got != 14 {
		t.Errorf("cursor after down = %d, want 14", got)
	}

	// Back up to line 0.
	box.HandleKeyPress(KeyUp, ActionPress, 0)
	if got := box.Layout().CalcCursorPixelPos(wrapWidth, layout.AlignLeft, box.CursorPosition()).LineNumber; got != 0 {
		t.Errorf("cursor line after up = %d, want 0", got)
	}
}

// TestTextBox_RichTextRects tests rich-text rendering: three
// glyphs, the middle one red.
func TestTextBox_RichTextRects(t *testing.T) {
	box := newTestBox(t, "A<color rgb=16711680>B</color>C")
	box.SetAtlas(testAtlas{})
	box.SetRichText(true)

	if box.ContentText() != "ABC" {
		t.Fatalf("content = %q, want %q", box.ContentText(), "ABC")
	}

	rects := box.Rects()
	if len(rects) != 3 {
		t.Fatalf("rect count = %d, want 3 glyph rects", len(rects))
	}

	red := style.RGB(1, 0, 0)
	black := style.RGB(0, 0, 0)

	if rects[0].Color != black {
		t.Errorf("glyph 0 color = %v, want black", rects[0].Color)
	}
	if rects[1].Color != red {
		t.Errorf("glyph 1 color = %v, want red", rects[1].Color)
	}
	if rects[2].Color != black {
		t.Errorf("glyph 2 color = %v, want black", rects[2].Color)
	}
}

// TestTextBox_CursorRectEmitted tests that the focused box appends the
// caret after all text rects.
func TestTextBox_CursorRectEmitted(t *testing.T) {
	box := newTestBox(t, "hi")
	box.SetAtlas(testAtlas{})
	box.CaptureFocus()

	rects := box.Rects()
	if len(rects) == 0 {
		t.Fatal("focused box should emit rects")
	}

	cursor := rects[len(rects)-1]
	if cursor.Width != 1 {
		t.Errorf("last rect width = %f, want the 1px caret", cursor.Width)
	}
	if cursor.Height <= 0 {
		t.Errorf("caret height = %f, want > 0", cursor.Height)
	}
}

// TestTextBox_SelectionRects tests that a selection emits a highlight rect
// before the glyph rects and renders selected glyphs white.
func TestTextBox_SelectionRects(t *testing.T) {
	box := newTestBox(t, "hello")
	box.SetAtlas(testAtlas{})
	box.CaptureFocus()
	box.SelectAll()

	rects := box.Rects()
	if len(rects) < 7 {
		t.Fatalf("rect count = %d, want highlight + 5 glyphs + caret", len(rects))
	}

	if rects[0].Color != selectionColor {
		t.Errorf("first rect color = %v, want the selection highlight", rects[0].Color)
	}

	sawWhite := false
	for _, r := range rects[1 : len(rects)-1] {
		if r.Color == selectedTextTint {
			sawWhite = true
		}
	}
	if !sawWhite {
		t.Error("selected glyphs should render white")
	}
}

// TestTextBox_FocusSwitch tests that focusing one box releases another.
func TestTextBox_FocusSwitch(t *testing.T) {
	a := newTestBox(t, "a")
	b := newTestBox(t, "b")

	a.CaptureFocus()
	b.CaptureFocus()

	if FocusedTextBox() != b {
		t.Error("second capture should move focus")
	}

	b.Close()
	if FocusedTextBox() != nil {
		t.Error("closing the focused box should clear focus")
	}
}

// TestTextBox_DragSelection tests extending a selection with mouse moves.
func TestTextBox_DragSelection(t *testing.T) {
	box := newTestBox(t, "hello world")

	startX := box.Layout().CalcCursorPixelPos(500, layout.AlignLeft, layout.MakeCursor(0, false)).X
	endX := box.Layout().CalcCursorPixelPos(500, layout.AlignLeft, layout.MakeCursor(5, false)).X

	box.HandleMouseButton(MouseButtonPrimary, ActionPress, 0, startX+1, 5)
	box.HandleMouseMove(endX+1, 5)
	box.HandleMouseButton(MouseButtonPrimary, ActionRelease, 0, endX+1, 5)

	start, end, ok := box.SelectionRange()
	if !ok {
		t.Fatal("drag should create a selection")
	}
	if start != 0 || end != 5 {
		t.Errorf("selection = [%d, %d), want [0, 5)", start, end)
	}
}
