package style

// StrokeJoins selects the join geometry used when rendering glyph strokes.
type StrokeJoins uint8

const (
	// JoinsRound produces rounded stroke corners (default).
	JoinsRound StrokeJoins = iota
	// JoinsBevel produces flattened stroke corners.
	JoinsBevel
	// JoinsMiter produces sharp stroke corners.
	JoinsMiter
)

// String returns the string representation of the join style.
func (j StrokeJoins) String() string {
	switch j {
	case JoinsRound:
		return "Round"
	case JoinsBevel:
		return "Bevel"
	case JoinsMiter:
		return "Miter"
	default:
		return "Unknown"
	}
}

// StrokeState describes the outline drawn behind glyphs. A zero alpha color
// disables the stroke.
type StrokeState struct {
	Color     Color
	Thickness uint8
	Joins     StrokeJoins
}
