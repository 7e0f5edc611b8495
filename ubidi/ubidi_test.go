package ubidi

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestParagraph_AllLTR tests that uniform left-to-right text resolves to a
// single even level and identity visual indices.
func TestParagraph_AllLTR(t *testing.T) {
	text := []byte("hello world")
	p := NewParagraph(text, DefaultLTR, 0)

	if p.Direction() != DirLTR {
		t.Fatalf("Direction() = %v, want LTR", p.Direction())
	}
	if p.ParaLevel() != 0 {
		t.Errorf("ParaLevel() = %d, want 0", p.ParaLevel())
	}
	for i, lv := range p.Levels() {
		if lv != 0 {
			t.Fatalf("Levels()[%d] = %d, want 0", i, lv)
		}
	}

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}
	if line.CountRuns() != 1 {
		t.Fatalf("CountRuns() = %d, want 1", line.CountRuns())
	}
	for k := 0; k < len(text); k++ {
		v, err := line.VisualIndex(k)
		if err != nil {
			t.Fatal(err)
		}
		if v != k {
			t.Errorf("VisualIndex(%d) = %d, want %d", k, v, k)
		}
	}
}

// TestParagraph_AllRTL tests that uniform Hebrew text resolves to RTL and
// reflected visual indices.
func TestParagraph_AllRTL(t *testing.T) {
	text := []byte("שלום")
	p := NewParagraph(text, DefaultLTR, 0)

	if p.Direction() != DirRTL {
		t.Fatalf("Direction() = %v, want RTL", p.Direction())
	}
	if p.ParaLevel() != 1 {
		t.Errorf("ParaLevel() = %d, want 1", p.ParaLevel())
	}

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}
	n := len(text)
	for k := 0; k < n; k++ {
		v, err := line.VisualIndex(k)
		if err != nil {
			t.Fatal(err)
		}
		if v != n-1-k {
			t.Errorf("VisualIndex(%d) = %d, want %d", k, v, n-1-k)
		}
	}
}

// TestLine_MixedRuns tests the visual run decomposition of an LTR paragraph
// with an embedded Hebrew span. Offsets are UTF-8 bytes: "abc" is [0, 3),
// the Hebrew letters are [3, 9), "def" is [9, 12).
func TestLine_MixedRuns(t *testing.T) {
	text := []byte("abcאבגdef")
	p := NewParagraph(text, DefaultLTR, 0)

	if p.Direction() != DirMixed {
		t.Fatalf("Direction() = %v, want Mixed", p.Direction())
	}

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}

	if got := line.CountRuns(); got != 3 {
		t.Fatalf("CountRuns() = %d, want 3", got)
	}

	wantRuns := []VisualRun{
		{LogicalStart: 0, Length: 3, RightToLeft: false},
		{LogicalStart: 3, Length: 6, RightToLeft: true},
		{LogicalStart: 9, Length: 3, RightToLeft: false},
	}
	for i, want := range wantRuns {
		if got := line.Run(i); got != want {
			t.Errorf("Run(%d) = %+v, want %+v", i, got, want)
		}
	}

	// The first Hebrew byte maps to the far visual end of its reversed run.
	v, err := line.VisualIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	if v != 8 {
		t.Errorf("VisualIndex(3) = %d, want 8", v)
	}
}

// TestLine_Inverse tests that LogicalIndex inverts VisualIndex on a mixed
// line with no inserted marks and no removed controls.
func TestLine_Inverse(t *testing.T) {
	text := []byte("abcאבגdef 123")
	p := NewParagraph(text, DefaultLTR, 0)

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}

	for k := 0; k < len(text); k++ {
		v, err := line.VisualIndex(k)
		if err != nil {
			t.Fatal(err)
		}
		back, err := line.LogicalIndex(v)
		if err != nil {
			t.Fatal(err)
		}
		if back != k {
			t.Errorf("LogicalIndex(VisualIndex(%d)) = %d, want %d", k, back, k)
		}
	}
}

// TestLine_MapsAgree tests that the full index maps agree with the per-index
// queries.
func TestLine_MapsAgree(t *testing.T) {
	text := []byte("abאבcd")
	p := NewParagraph(text, DefaultLTR, 0)

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}

	logicalMap := line.LogicalMap()
	visualMap := line.VisualMap()

	for k := 0; k < len(text); k++ {
		v, err := line.VisualIndex(k)
		if err != nil {
			t.Fatal(err)
		}
		if logicalMap[k] != v {
			t.Errorf("LogicalMap()[%d] = %d, want %d", k, logicalMap[k], v)
		}
	}
	for v := 0; v < line.ResultLength(); v++ {
		lg, err := line.LogicalIndex(v)
		if err != nil {
			t.Fatal(err)
		}
		if visualMap[v] != lg {
			t.Errorf("VisualMap()[%d] = %d, want %d", v, visualMap[v], lg)
		}
	}
}

// TestLine_TrailingWS tests that trailing spaces of a mixed line report the
// paragraph level and that trailingWSStart lands on the first of them.
func TestLine_TrailingWS(t *testing.T) {
	text := []byte("abcאבג   ")
	p := NewParagraph(text, DefaultLTR, 0)

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}

	if got, want := line.TrailingWSStart(), 9; got != want {
		t.Fatalf("TrailingWSStart() = %d, want %d", got, want)
	}
	for i := line.TrailingWSStart(); i < line.Length(); i++ {
		if got := line.LevelAt(i); got != line.ParaLevel() {
			t.Errorf("LevelAt(%d) = %d, want para level %d", i, got, line.ParaLevel())
		}
	}

	// The trailing WS forms its own visual run at the paragraph level.
	last := line.Run(line.CountRuns() - 1)
	if last.LogicalStart != 9 || last.RightToLeft {
		t.Errorf("trailing run = %+v, want LTR at 9", last)
	}
}

// TestLine_NumbersInRTL tests weak-type resolution: European numbers inside
// a right-to-left paragraph move to the visual left.
func TestLine_NumbersInRTL(t *testing.T) {
	text := []byte("אבג 123")
	p := NewParagraph(text, DefaultRTL, 0)

	if p.ParaLevel() != 1 {
		t.Fatalf("ParaLevel() = %d, want 1", p.ParaLevel())
	}

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}

	if got := line.CountRuns(); got != 2 {
		t.Fatalf("CountRuns() = %d, want 2", got)
	}

	// The digits run is first in visual order.
	first := line.Run(0)
	if first.LogicalStart != 7 || first.RightToLeft {
		t.Errorf("Run(0) = %+v, want LTR digits at 7", first)
	}

	v, err := line.VisualIndex(7)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Errorf("VisualIndex(7) = %d, want 0", v)
	}
}

// TestParagraph_ExplicitEmbedding tests that RLE/PDF raise the embedding
// level of enclosed left-to-right text.
func TestParagraph_ExplicitEmbedding(t *testing.T) {
	text := []byte("a\u202Bbc\u202Cd")
	p := NewParagraph(text, DefaultLTR, 0)

	// "b" starts after 'a' (1 byte) and the 3-byte RLE.
	bStart := 4
	if got := p.Levels()[bStart]; got != 2 {
		t.Errorf("level of 'b' = %d, want 2", got)
	}
	if got := p.Levels()[0]; got != 0 {
		t.Errorf("level of 'a' = %d, want 0", got)
	}
}

// TestLine_RemovedControls tests OptionRemoveControls accounting: control
// bytes vanish from the visual sequence and map nowhere.
func TestLine_RemovedControls(t *testing.T) {
	text := []byte("ab\u200Ecd")
	p := NewParagraph(text, DefaultLTR, OptionRemoveControls)

	if got := p.ControlCount(); got != 3 {
		t.Fatalf("ControlCount() = %d, want 3", got)
	}

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}

	if got := line.ResultLength(); got != 4 {
		t.Fatalf("ResultLength() = %d, want 4", got)
	}

	// 'c' sits at logical byte 5; two letters precede it visually.
	v, err := line.VisualIndex(5)
	if err != nil {
		t.Fatal(err)
	}
	if v != 2 {
		t.Errorf("VisualIndex(5) = %d, want 2", v)
	}

	// The control character itself maps nowhere.
	v, err = line.VisualIndex(2)
	if err != nil {
		t.Fatal(err)
	}
	if v != MapNowhere {
		t.Errorf("VisualIndex(2) = %d, want MapNowhere", v)
	}

	logicalMap := line.LogicalMap()
	if diff := cmp.Diff([]int{0, 1, MapNowhere, MapNowhere, MapNowhere, 2, 3}, logicalMap); diff != "" {
		t.Errorf("LogicalMap() mismatch (-want +got):\n%s", diff)
	}

	visualMap := line.VisualMap()
	if diff := cmp.Diff([]int{0, 1, 5, 6}, visualMap); diff != "" {
		t.Errorf("VisualMap() mismatch (-want +got):\n%s", diff)
	}
}

// TestLine_InsertMarks tests inserted-mark accounting in the index maps.
func TestLine_InsertMarks(t *testing.T) {
	text := []byte("abcd")
	p := NewParagraph(text, DefaultLTR, 0)
	p.AddInsertPoint(0, LRMBefore)

	line, err := p.Line(0, len(text))
	if err != nil {
		t.Fatal(err)
	}

	if got := line.ResultLength(); got != 5 {
		t.Fatalf("ResultLength() = %d, want 5", got)
	}

	v, err := line.VisualIndex(0)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("VisualIndex(0) = %d, want 1", v)
	}

	lg, err := line.LogicalIndex(0)
	if err != nil {
		t.Fatal(err)
	}
	if lg != MapNowhere {
		t.Errorf("LogicalIndex(0) = %d, want MapNowhere", lg)
	}

	visualMap := line.VisualMap()
	if diff := cmp.Diff([]int{MapNowhere, 0, 1, 2, 3}, visualMap); diff != "" {
		t.Errorf("VisualMap() mismatch (-want +got):\n%s", diff)
	}
}

// TestLine_CrossRangeErrors tests that invalid ranges surface errors without
// mutating state.
func TestLine_CrossRangeErrors(t *testing.T) {
	p := NewParagraph([]byte("abc"), DefaultLTR, 0)

	if _, err := p.Line(-1, 2); err == nil {
		t.Error("Line(-1, 2) should fail")
	}
	if _, err := p.Line(2, 2); err == nil {
		t.Error("Line(2, 2) should fail")
	}
	if _, err := p.Line(0, 4); err == nil {
		t.Error("Line(0, 4) should fail")
	}

	line, err := p.Line(0, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := line.VisualIndex(3); err == nil {
		t.Error("VisualIndex(3) should fail on a 3-byte line")
	}
	if _, err := line.LogicalIndex(-1); err == nil {
		t.Error("LogicalIndex(-1) should fail")
	}
}

// TestLine_SubLine tests carving a line out of the middle of a paragraph.
func TestLine_SubLine(t *testing.T) {
	text := []byte("abc def")
	p := NewParagraph(text, DefaultLTR, 0)

	line, err := p.Line(4, 7)
	if err != nil {
		t.Fatal(err)
	}

	if line.Length() != 3 {
		t.Fatalf("Length() = %d, want 3", line.Length())
	}
	if line.Direction() != DirLTR {
		t.Errorf("Direction() = %v, want LTR", line.Direction())
	}
	if line.CountRuns() != 1 {
		t.Errorf("CountRuns() = %d, want 1", line.CountRuns())
	}
}
