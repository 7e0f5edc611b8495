package fonts

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/go-text/typesetting/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	xfont "golang.org/x/image/font"

	"github.com/Mlleters/rich-text/internal/logging"
)

// parsedFace holds the immutable parsed views of a face blob, shared across
// all sized FontData instances: the sfnt font for metrics and glyph
// coverage, the typesetting font for HarfBuzz shaping, and the raw table
// metrics in font units.
type parsedFace struct {
	sfnt   *sfnt.Font
	shaped *font.Font

	upem float64

	// OS/2 strikeout and post underline metrics, font units, y-down.
	strikePos       float64
	strikeThickness float64
	underPos        float64
	underThickness  float64
}

func parseFace(data []byte) (*parsedFace, error) {
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fonts: sfnt parse: %w", err)
	}

	shaped, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fonts: shaper parse: %w", err)
	}

	p := &parsedFace{
		sfnt:   sf,
		shaped: shaped.Font,
		upem:   1000,
	}

	if head, ok := sfntTable(data, "head"); ok && len(head) >= 20 {
		p.upem = float64(binary.BigEndian.Uint16(head[18:20]))
	}
	if os2, ok := sfntTable(data, "OS/2"); ok && len(os2) >= 30 {
		size := int16(binary.BigEndian.Uint16(os2[26:28]))
		pos := int16(binary.BigEndian.Uint16(os2[28:30]))
		p.strikeThickness = float64(size)
		p.strikePos = -float64(pos)
	}
	if post, ok := sfntTable(data, "post"); ok && len(post) >= 12 {
		pos := int16(binary.BigEndian.Uint16(post[8:10]))
		size := int16(binary.BigEndian.Uint16(post[10:12]))
		p.underPos = -float64(pos)
		p.underThickness = float64(size)
	}

	return p, nil
}

// sfntTable finds a raw table in an sfnt blob by tag.
func sfntTable(data []byte, tag string) ([]byte, bool) {
	if len(data) < 12 {
		return nil, false
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))

	for i := 0; i < numTables; i++ {
		rec := 12 + 16*i
		if rec+16 > len(data) {
			return nil, false
		}
		if string(data[rec:rec+4]) != tag {
			continue
		}
		offset := binary.BigEndian.Uint32(data[rec+8 : rec+12])
		length := binary.BigEndian.Uint32(data[rec+12 : rec+16])
		if uint64(offset)+uint64(length) > uint64(len(data)) {
			return nil, false
		}
		return data[offset : offset+length], true
	}
	return nil, false
}

// FontData is a face at a pixel size: metrics, glyph coverage, and the
// shaper-facing face. Instances are cheap views over the shared parsed face;
// each carries its own scratch buffer and is not safe for concurrent use.
type FontData struct {
	face   FaceID
	size   float64
	parsed *parsedFace
	buf    sfnt.Buffer

	ascent  float64
	descent float64
	lineGap float64
}

// FontData creates sized font data for a face. A failed face load yields an
// invalid FontData, which callers treat as "no glyphs".
func (r *Registry) FontData(face FaceID, size float64) *FontData {
	r.mu.RLock()
	var rec *faceRecord
	if int(face) < len(r.faces) {
		rec = r.faces[face]
	}
	r.mu.RUnlock()

	if rec == nil || size <= 0 {
		return &FontData{}
	}

	rec.parseOnce.Do(func() {
		p, err := parseFace(rec.data)
		if err != nil {
			logging.Logger().Warn("font face parse failed", "face", rec.name, "error", err)
			return
		}
		rec.parsed = p
	})

	if rec.parsed == nil {
		return &FontData{}
	}

	d := &FontData{
		face:   face,
		size:   size,
		parsed: rec.parsed,
	}

	ppem := fixed.Int26_6(size * 64)
	if m, err := d.parsed.sfnt.Metrics(&d.buf, ppem, xfont.HintingFull); err == nil {
		d.ascent = fixedToFloat(m.Ascent)
		d.descent = fixedToFloat(m.Descent)
		d.lineGap = fixedToFloat(m.Height) - d.ascent - d.descent
	}

	return d
}

// FontDataFor resolves the font's face and returns sized data for it.
func (r *Registry) FontDataFor(f Font) *FontData {
	return r.FontData(r.Face(f), f.size)
}

// SubFontData returns sized data for a fallback-resolved span font.
func (r *Registry) SubFontData(sf SingleScriptFont) *FontData {
	return r.FontData(sf.Face, sf.Size)
}

// Valid reports whether the face loaded and parsed successfully.
func (d *FontData) Valid() bool { return d.parsed != nil }

// Face returns the face handle the data was created from.
func (d *FontData) Face() FaceID { return d.face }

// Size returns the pixel size the data was created at.
func (d *FontData) Size() float64 { return d.size }

// Ascent returns the distance from the baseline to the top of a line.
func (d *FontData) Ascent() float64 { return d.ascent }

// Descent returns the distance from the baseline to the bottom of a line.
func (d *FontData) Descent() float64 { return d.descent }

// LineGap returns the extra leading between lines.
func (d *FontData) LineGap() float64 { return d.lineGap }

// HasGlyph reports whether the face has a glyph for the rune.
func (d *FontData) HasGlyph(r rune) bool {
	if d.parsed == nil {
		return false
	}
	gi, err := d.parsed.sfnt.GlyphIndex(&d.buf, r)
	return err == nil && gi != 0
}

// ShaperFace wraps the shared parsed font in a fresh shaper-facing face.
// The returned face is not safe for concurrent use.
func (d *FontData) ShaperFace() *font.Face {
	return font.NewFace(d.parsed.shaped)
}

func (d *FontData) scale() float64 {
	if d.parsed == nil || d.parsed.upem == 0 {
		return 0
	}
	return d.size / d.parsed.upem
}

// StrikethroughPosition returns the y-down offset from the baseline to the
// top of the strikeout bar.
func (d *FontData) StrikethroughPosition() float64 {
	return d.parsed.strikePos * d.scale()
}

// StrikethroughThickness returns the strikeout bar thickness.
func (d *FontData) StrikethroughThickness() float64 {
	return d.parsed.strikeThickness * d.scale()
}

// UnderlinePosition returns the y-down offset from the baseline to the top
// of the underline bar.
func (d *FontData) UnderlinePosition() float64 {
	return d.parsed.underPos * d.scale()
}

// UnderlineThickness returns the underline bar thickness.
func (d *FontData) UnderlineThickness() float64 {
	return d.parsed.underThickness * d.scale()
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64.0
}
