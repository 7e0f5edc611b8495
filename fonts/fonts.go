// Package fonts implements the font registry: named families resolved to
// faces by weight and style, face byte blobs owned process-wide, sized font
// data with metrics, and the script-aware per-codepoint fallback walk that
// produces maximal single-face spans of text.
package fonts

import "errors"

// Weight selects a face weight within a family.
type Weight uint8

const (
	WeightThin Weight = iota
	WeightExtraLight
	WeightLight
	WeightRegular
	WeightMedium
	WeightSemiBold
	WeightBold
	WeightExtraBold
	WeightBlack

	weightCount
)

// String returns the string representation of the weight.
func (w Weight) String() string {
	switch w {
	case WeightThin:
		return "Thin"
	case WeightExtraLight:
		return "ExtraLight"
	case WeightLight:
		return "Light"
	case WeightRegular:
		return "Regular"
	case WeightMedium:
		return "Medium"
	case WeightSemiBold:
		return "SemiBold"
	case WeightBold:
		return "Bold"
	case WeightExtraBold:
		return "ExtraBold"
	case WeightBlack:
		return "Black"
	default:
		return "Unknown"
	}
}

// Style selects a face style within a family.
type Style uint8

const (
	StyleNormal Style = iota
	StyleItalic

	styleCount
)

// String returns the string representation of the style.
func (s Style) String() string {
	switch s {
	case StyleNormal:
		return "Normal"
	case StyleItalic:
		return "Italic"
	default:
		return "Unknown"
	}
}

// FamilyID is a small integer handle to a registered family. The zero value
// is invalid.
type FamilyID uint16

// Valid reports whether the handle refers to a family.
func (id FamilyID) Valid() bool { return id != 0 }

// FaceID is a small integer handle to a loaded face. The zero value is
// invalid.
type FaceID uint16

// Valid reports whether the handle refers to a face.
func (id FaceID) Valid() bool { return id != 0 }

// Font selects a sized, styled font within a registry: the starting point
// for script resolution and per-codepoint fallback.
type Font struct {
	reg    *Registry
	family FamilyID
	weight Weight
	style  Style
	size   float64
}

// NewFont binds a family, weight, style, and pixel size within a registry.
func NewFont(reg *Registry, family FamilyID, weight Weight, style Style, size float64) Font {
	return Font{reg: reg, family: family, weight: weight, style: style, size: size}
}

// Valid reports whether the font refers to a registry and family.
func (f Font) Valid() bool { return f.reg != nil && f.family.Valid() }

// Registry returns the registry the font is bound to.
func (f Font) Registry() *Registry { return f.reg }

// Family returns the font's family handle.
func (f Font) Family() FamilyID { return f.family }

// Weight returns the font's weight.
func (f Font) Weight() Weight { return f.weight }

// Style returns the font's style.
func (f Font) Style() Style { return f.style }

// Size returns the font's pixel size.
func (f Font) Size() float64 { return f.size }

// WithSize returns a copy of the font at a different pixel size.
func (f Font) WithSize(size float64) Font {
	f.size = size
	return f
}

// WithFamily returns a copy of the font bound to a different family.
func (f Font) WithFamily(family FamilyID) Font {
	f.family = family
	return f
}

// SingleScriptFont is a (face, size) pair bound to a maximal single-script,
// single-face span of text. Equality is by value.
type SingleScriptFont struct {
	Face FaceID
	Size float64
}

// Registration errors. Both are recoverable by the caller.
var (
	// ErrAlreadyLoaded is returned when registering a family that has
	// already been initialized.
	ErrAlreadyLoaded = errors.New("fonts: family already loaded")

	// ErrNoFaces is returned when a registration supplies no faces; the
	// family reverts to uninitialized.
	ErrNoFaces = errors.New("fonts: no faces supplied")
)
