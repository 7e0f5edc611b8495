package fonts

import (
	"errors"
	"testing"

	"github.com/go-text/typesetting/language"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// registerGo registers the Go font family with Regular, Bold, and Italic
// faces and returns its handle.
func registerGo(t *testing.T, r *Registry) FamilyID {
	t.Helper()

	err := r.RegisterFamily(FamilyInfo{
		Name: "Go",
		Faces: []FaceInfo{
			{Name: "Go-Regular", Data: goregular.TTF, Weight: WeightRegular, Style: StyleNormal},
			{Name: "Go-Bold", Data: gobold.TTF, Weight: WeightBold, Style: StyleNormal},
			{Name: "Go-Italic", Data: goitalic.TTF, Weight: WeightRegular, Style: StyleItalic},
		},
	})
	if err != nil {
		t.Fatalf("RegisterFamily failed: %v", err)
	}

	family := r.Family("Go")
	if !family.Valid() {
		t.Fatal("registered family not found")
	}
	return family
}

// TestRegistry_RegisterFamily tests registration and face table filling.
func TestRegistry_RegisterFamily(t *testing.T) {
	r := NewRegistry()
	family := registerGo(t, r)

	regular := r.Face(NewFont(r, family, WeightRegular, StyleNormal, 16))
	bold := r.Face(NewFont(r, family, WeightBold, StyleNormal, 16))
	italic := r.Face(NewFont(r, family, WeightRegular, StyleItalic, 16))

	if !regular.Valid() || !bold.Valid() || !italic.Valid() {
		t.Fatal("registered faces should be valid")
	}
	if regular == bold || regular == italic {
		t.Error("distinct faces should have distinct handles")
	}

	// Missing cells fall back to the default (Regular/Normal) face.
	black := r.Face(NewFont(r, family, WeightBlack, StyleNormal, 16))
	if black != regular {
		t.Errorf("missing weight should resolve to the default face: got %d, want %d", black, regular)
	}
}

// TestRegistry_AlreadyLoaded tests double registration.
func TestRegistry_AlreadyLoaded(t *testing.T) {
	r := NewRegistry()
	registerGo(t, r)

	err := r.RegisterFamily(FamilyInfo{
		Name:  "Go",
		Faces: []FaceInfo{{Name: "Go-Regular", Data: goregular.TTF}},
	})
	if !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second registration error = %v, want ErrAlreadyLoaded", err)
	}
}

// TestRegistry_NoFaces tests that a faceless registration reverts the family
// to uninitialized.
func TestRegistry_NoFaces(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterFamily(FamilyInfo{Name: "Empty"})
	if !errors.Is(err, ErrNoFaces) {
		t.Fatalf("error = %v, want ErrNoFaces", err)
	}

	// The family name is reserved but can be registered again with faces.
	err = r.RegisterFamily(FamilyInfo{
		Name:  "Empty",
		Faces: []FaceInfo{{Name: "Empty-Regular", Data: goregular.TTF, Weight: WeightRegular}},
	})
	if err != nil {
		t.Fatalf("re-registration with faces failed: %v", err)
	}
}

// TestRegistry_FaceDedup tests that faces are deduplicated by name across
// families.
func TestRegistry_FaceDedup(t *testing.T) {
	r := NewRegistry()
	registerGo(t, r)

	err := r.RegisterFamily(FamilyInfo{
		Name:  "Go2",
		Faces: []FaceInfo{{Name: "Go-Regular", Data: goregular.TTF, Weight: WeightRegular, Style: StyleNormal}},
	})
	if err != nil {
		t.Fatal(err)
	}

	f1 := r.Face(NewFont(r, r.Family("Go"), WeightRegular, StyleNormal, 16))
	f2 := r.Face(NewFont(r, r.Family("Go2"), WeightRegular, StyleNormal, 16))
	if f1 != f2 {
		t.Errorf("same-named faces should share a handle: %d vs %d", f1, f2)
	}
}

// TestFontData_Metrics tests sized metrics and glyph coverage.
func TestFontData_Metrics(t *testing.T) {
	r := NewRegistry()
	family := registerGo(t, r)

	font := NewFont(r, family, WeightRegular, StyleNormal, 16)
	data := r.FontDataFor(font)

	if !data.Valid() {
		t.Fatal("FontData should be valid for a loaded face")
	}
	if data.Ascent() <= 0 {
		t.Errorf("Ascent() = %f, want > 0", data.Ascent())
	}
	if data.Descent() <= 0 {
		t.Errorf("Descent() = %f, want > 0", data.Descent())
	}
	if !data.HasGlyph('A') {
		t.Error("Go Regular should have a glyph for 'A'")
	}
	if data.HasGlyph('א') {
		t.Error("Go Regular should not have a glyph for Hebrew aleph")
	}
	if data.StrikethroughThickness() <= 0 {
		t.Errorf("StrikethroughThickness() = %f, want > 0", data.StrikethroughThickness())
	}
	if data.UnderlineThickness() <= 0 {
		t.Errorf("UnderlineThickness() = %f, want > 0", data.UnderlineThickness())
	}
	if data.ShaperFace() == nil {
		t.Error("ShaperFace() should not be nil")
	}
}

// TestFontData_InvalidFace tests the failure path: invalid handles yield
// invalid data treated as "no glyphs".
func TestFontData_InvalidFace(t *testing.T) {
	r := NewRegistry()

	data := r.FontData(0, 16)
	if data.Valid() {
		t.Error("FontData for the zero face should be invalid")
	}
	if data.HasGlyph('A') {
		t.Error("invalid FontData should report no glyphs")
	}
}

// TestFontData_CorruptBlob tests that a corrupt face blob fails locally.
func TestFontData_CorruptBlob(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterFamily(FamilyInfo{
		Name:  "Broken",
		Faces: []FaceInfo{{Name: "Broken-Regular", Data: []byte("not a font"), Weight: WeightRegular}},
	})
	if err != nil {
		t.Fatalf("registration itself should succeed: %v", err)
	}

	face := r.Face(NewFont(r, r.Family("Broken"), WeightRegular, StyleNormal, 16))
	data := r.FontData(face, 16)
	if data.Valid() {
		t.Error("FontData for a corrupt blob should be invalid")
	}
}

// TestSubFont_FullCoverage tests that fully covered text yields one span.
func TestSubFont_FullCoverage(t *testing.T) {
	r := NewRegistry()
	family := registerGo(t, r)
	font := NewFont(r, family, WeightRegular, StyleNormal, 16)

	text := []byte("hello world")
	offset := 0
	sub := r.SubFont(font, text, &offset, len(text), language.Latin)

	if offset != len(text) {
		t.Errorf("offset = %d, want %d (single span)", offset, len(text))
	}
	if sub.Face != r.Face(font) {
		t.Errorf("span face = %d, want base face %d", sub.Face, r.Face(font))
	}
	if sub.Size != 16 {
		t.Errorf("span size = %f, want 16", sub.Size)
	}
}

// TestSubFont_NoCoverage tests the degenerate span: when no face can draw
// anything the whole range is consumed with the base face.
func TestSubFont_NoCoverage(t *testing.T) {
	r := NewRegistry()
	family := registerGo(t, r)
	font := NewFont(r, family, WeightRegular, StyleNormal, 16)

	text := []byte("אבג")
	offset := 0
	sub := r.SubFont(font, text, &offset, len(text), language.Hebrew)

	if offset != len(text) {
		t.Errorf("offset = %d, want %d", offset, len(text))
	}
	if sub.Face != r.Face(font) {
		t.Errorf("span face = %d, want base face %d", sub.Face, r.Face(font))
	}
}

// TestSubFont_FallbackFamily tests that a family with a registered fallback
// family still yields one base-face span for text its base face fully covers.
func TestSubFont_FallbackFamily(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterFamily(FamilyInfo{
		Name:             "Main",
		FallbackFamilies: []string{"Fallback"},
		Faces: []FaceInfo{
			{Name: "Main-Regular", Data: goregular.TTF, Weight: WeightRegular, Style: StyleNormal},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = r.RegisterFamily(FamilyInfo{
		Name: "Fallback",
		Faces: []FaceInfo{
			{Name: "Fallback-Bold", Data: gobold.TTF, Weight: WeightRegular, Style: StyleNormal},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	font := NewFont(r, r.Family("Main"), WeightRegular, StyleNormal, 16)

	// Every codepoint is drawable by the base face, so the fallback is never
	// consulted and the whole text is one span.
	text := []byte("fallback walk")
	offset := 0
	sub := r.SubFont(font, text, &offset, len(text), language.Latin)

	if offset != len(text) {
		t.Errorf("offset = %d, want %d", offset, len(text))
	}
	if got, want := sub.Face, r.Face(font); got != want {
		t.Errorf("span face = %d, want %d", got, want)
	}
}

// TestSubFont_LinkedFamily tests script-based base face selection through
// linked families.
func TestSubFont_LinkedFamily(t *testing.T) {
	r := NewRegistry()

	err := r.RegisterFamily(FamilyInfo{
		Name:           "LatinOnly",
		Scripts:        []language.Script{language.Latin},
		LinkedFamilies: []string{"Wide"},
		Faces: []FaceInfo{
			{Name: "LatinOnly-Regular", Data: goregular.TTF, Weight: WeightRegular, Style: StyleNormal},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = r.RegisterFamily(FamilyInfo{
		Name: "Wide",
		Faces: []FaceInfo{
			{Name: "Wide-Regular", Data: gobold.TTF, Weight: WeightRegular, Style: StyleNormal},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	font := NewFont(r, r.Family("LatinOnly"), WeightRegular, StyleNormal, 16)

	// Greek is not covered by LatinOnly, so the linked family's face is the
	// base for the walk; gobold covers Greek letters.
	text := []byte("αβγ")
	offset := 0
	sub := r.SubFont(font, text, &offset, len(text), language.Greek)

	wideFace := r.Face(NewFont(r, r.Family("Wide"), WeightRegular, StyleNormal, 16))
	if sub.Face != wideFace {
		t.Errorf("span face = %d, want linked family face %d", sub.Face, wideFace)
	}
}
