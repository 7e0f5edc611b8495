package richtext

import (
	"github.com/Mlleters/rich-text/fonts"
	"github.com/Mlleters/rich-text/style"
)

// Pipeline selects the GPU program a rect is drawn with.
type Pipeline uint8

const (
	// PipelineRect draws a plain textured or solid rectangle.
	PipelineRect Pipeline = iota
	// PipelineMSDF draws a multi-channel signed-distance-field glyph.
	PipelineMSDF
	// PipelineOutline draws debug outlines.
	PipelineOutline
)

// Rect is one abstract textured rectangle emitted by a TextBox render pass.
// Texture is an opaque handle owned by the embedding renderer.
type Rect struct {
	X, Y          float32
	Width, Height float32
	TexCoords     [4]float32
	Texture       any
	Color         style.Color
	Pipeline      Pipeline
}

// GlyphQuad locates one rasterized glyph within an atlas texture.
type GlyphQuad struct {
	TexCoords        [4]float32
	Texture          any
	Width, Height    float32
	OffsetX, OffsetY float32

	// HasColor marks a color glyph (emoji); its rect renders white.
	HasColor bool

	Pipeline Pipeline
}

// GlyphAtlas supplies rasterized glyph quads to the renderer. The engine
// never touches texture contents; it only forwards the opaque handles into
// the emitted rects.
type GlyphAtlas interface {
	// GlyphInfo returns the quad for a glyph, rasterizing on demand.
	// ok is false when the glyph cannot be rasterized; the renderer skips it.
	GlyphInfo(font *fonts.FontData, glyphID uint32) (quad GlyphQuad, ok bool)

	// StrokeInfo returns the quad for a glyph's stroke outline.
	StrokeInfo(font *fonts.FontData, glyphID uint32, thickness uint8, joins style.StrokeJoins) (quad GlyphQuad, ok bool)

	// DefaultTexture returns the solid-white texture used for selection,
	// decoration, and cursor rects.
	DefaultTexture() any
}

// nopAtlas renders no glyph imagery; selection, decoration, and cursor
// rects still come through. Used when no atlas has been attached.
type nopAtlas struct{}

func (nopAtlas) GlyphInfo(*fonts.FontData, uint32) (GlyphQuad, bool) { return GlyphQuad{}, false }
func (nopAtlas) StrokeInfo(*fonts.FontData, uint32, uint8, style.StrokeJoins) (GlyphQuad, bool) {
	return GlyphQuad{}, false
}
func (nopAtlas) DefaultTexture() any { return nil }
