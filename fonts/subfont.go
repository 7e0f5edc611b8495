package fonts

import (
	"unicode/utf8"

	"github.com/go-text/typesetting/language"
)

// SubFont walks the text from *offset toward limit and returns the face able
// to draw the longest prefix, advancing *offset past the covered span:
//
//  1. Resolve a base face for the font against script, consulting linked
//     families when the base family does not cover the script.
//  2. Find the first codepoint any face can draw: the base face if it has
//     the glyph, else the first fallback family whose (weight, style) face
//     has it.
//  3. If no face can draw anything, consume the whole range and return the
//     base face; the caller renders .notdef.
//  4. Otherwise keep walking while the chosen face has each codepoint, and
//     stop at the first miss.
//
// Offsets are byte offsets into text.
func (r *Registry) SubFont(f Font, text []byte, offset *int, limit int, script language.Script) SingleScriptFont {
	if !f.Valid() {
		panic("fonts: SubFont called with an invalid font")
	}

	r.mu.RLock()
	if !r.familyIsInitialized(f.family) {
		r.mu.RUnlock()
		panic("fonts: SubFont called with an uninitialized family")
	}
	baseFace := r.faceForScript(f.family, f.weight, f.style, script)
	fallbacks := append([]FamilyID(nil), r.families[f.family].fallbackFamilies...)
	r.mu.RUnlock()

	// Find the longest run that the base face or its fallbacks can draw.
	// First, the first face able to render a char from the string.
	var targetFace FaceID
	var fontData *FontData

	i := *offset
	for i < limit {
		c, sz := utf8.DecodeRune(text[i:])
		i += sz

		if face, data := r.findCompatibleFont(f, c, baseFace, fallbacks); face.Valid() {
			targetFace = face
			fontData = data
			break
		}
	}

	// No face can render this substring; just use the base face.
	if !targetFace.Valid() {
		*offset = limit
		return SingleScriptFont{Face: baseFace, Size: f.size}
	}

	// Then, see how far it is able to render characters.
	for i < limit {
		idx := i
		c, sz := utf8.DecodeRune(text[i:])
		i += sz

		if !fontData.HasGlyph(c) {
			*offset = idx
			return SingleScriptFont{Face: targetFace, Size: f.size}
		}
	}

	*offset = limit
	return SingleScriptFont{Face: targetFace, Size: f.size}
}

// faceForScript resolves (family, weight, style) against a script: the
// family's own face when it covers the script, else the face of the first
// initialized linked family that does, else the family's face regardless.
// Callers hold at least a read lock.
func (r *Registry) faceForScript(family FamilyID, weight Weight, style Style, script language.Script) FaceID {
	rec := r.families[family]

	if rec.hasScript(script) {
		return rec.face(weight, style)
	}

	for _, linked := range rec.linkedFamilies {
		lrec := r.families[linked]
		if lrec != nil && lrec.initialized && lrec.hasScript(script) {
			return lrec.face(weight, style)
		}
	}

	return rec.face(weight, style)
}

// findCompatibleFont returns the first face able to draw the codepoint: the
// base face, else a face from the fallback families in order. Load failures
// are treated as "no glyphs" and the walk continues.
func (r *Registry) findCompatibleFont(f Font, c rune, baseFace FaceID, fallbacks []FamilyID) (FaceID, *FontData) {
	if !baseFace.Valid() {
		return 0, nil
	}

	data := r.FontData(baseFace, f.size)
	if data.Valid() && data.HasGlyph(c) {
		return baseFace, data
	}

	for _, fam := range fallbacks {
		r.mu.RLock()
		initialized := r.familyIsInitialized(fam)
		var face FaceID
		if initialized {
			face = r.families[fam].face(f.weight, f.style)
		}
		r.mu.RUnlock()

		if !initialized || !face.Valid() {
			continue
		}

		data = r.FontData(face, f.size)
		if data.Valid() && data.HasGlyph(c) {
			return face, data
		}
	}

	return 0, nil
}
