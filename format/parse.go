package format

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Mlleters/rich-text/fonts"
	"github.com/Mlleters/rich-text/style"
	"github.com/Mlleters/rich-text/valuerun"
)

// ParseInline interprets the inline markup subset and produces content text
// stripped of markup plus value runs over the content-text domain.
//
// Recognized tags: <color rgb=…>, <font face=… size=… color=…>, <b>, <i>,
// <u>, <s>, <stroke color=… thickness=… joins=… transparency=…>, and
// <!-- comments -->. The parser is permissive: unknown tags pass through as
// literal text, unmatched closers are discarded, and ill-formed known tags
// are consumed with a diagnostic.
func ParseInline(source string, baseFont fonts.Font, baseColor style.Color, baseStroke style.StrokeState) (Runs, string) {
	p := parser{
		src:        source,
		fontRuns:   valuerun.NewBuilder(baseFont),
		colorRuns:  valuerun.NewBuilder(baseColor),
		strokeRuns: valuerun.NewBuilder(baseStroke),
		strikeRuns: valuerun.NewBuilder(false),
		underRuns:  valuerun.NewBuilder(false),
	}
	p.parse()
	return p.result()
}

// openTag records which run builders a tag pushed, so its closer pops the
// same set.
type openTag struct {
	name      string
	hasFont   bool
	hasColor  bool
	hasStroke bool
	hasStrike bool
	hasUnder  bool
}

type parser struct {
	src string
	pos int

	out       strings.Builder
	sourceMap []int32
	issues    []ParseIssue

	fontRuns   valuerun.Builder[fonts.Font]
	colorRuns  valuerun.Builder[style.Color]
	strokeRuns valuerun.Builder[style.StrokeState]
	strikeRuns valuerun.Builder[bool]
	underRuns  valuerun.Builder[bool]

	stack []openTag
}

func (p *parser) parse() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]

		if c != '<' {
			p.literal(p.pos, 1)
			p.pos++
			continue
		}

		if !p.parseTag() {
			// Not a recognizable tag; the '<' is literal text.
			p.literal(p.pos, 1)
			p.pos++
		}
	}

	// Close any scopes left open at the end of input.
	for len(p.stack) > 0 {
		p.closeScopes(p.stack[len(p.stack)-1])
		p.stack = p.stack[:len(p.stack)-1]
	}
}

func (p *parser) result() (Runs, string) {
	limit := int32(p.out.Len())
	p.finalize(limit)

	runs := Runs{
		FontRuns:          p.fontRuns.Runs(),
		ColorRuns:         p.colorRuns.Runs(),
		StrokeRuns:        p.strokeRuns.Runs(),
		StrikethroughRuns: p.strikeRuns.Runs(),
		UnderlineRuns:     p.underRuns.Runs(),
		SourceMap:         p.sourceMap,
		Issues:            p.issues,
	}
	return runs, p.out.String()
}

// finalize closes the base run of every attribute at the content length.
func (p *parser) finalize(limit int32) {
	p.fontRuns.Pop(limit)
	p.colorRuns.Pop(limit)
	p.strokeRuns.Pop(limit)
	p.strikeRuns.Pop(limit)
	p.underRuns.Pop(limit)
}

// literal copies n source bytes starting at src into the content text.
func (p *parser) literal(src, n int) {
	for i := 0; i < n; i++ {
		p.sourceMap = append(p.sourceMap, int32(src+i))
	}
	p.out.WriteString(p.src[src : src+n])
}

func (p *parser) issue(src int, format string, args ...any) {
	p.issues = append(p.issues, ParseIssue{
		SourceIndex: int32(src),
		Message:     fmt.Sprintf(format, args...),
	})
}

// parseTag consumes one tag at p.pos if the text there forms one. It returns
// false, leaving p.pos unchanged, when the text is not a tag at all.
func (p *parser) parseTag() bool {
	start := p.pos

	if strings.HasPrefix(p.src[start:], "<!--") {
		end := strings.Index(p.src[start+4:], "-->")
		if end < 0 {
			p.issue(start, "unterminated comment")
			p.pos = len(p.src)
			return true
		}
		p.pos = start + 4 + end + 3
		return true
	}

	gt := strings.IndexByte(p.src[start:], '>')
	if gt < 0 {
		return false
	}
	inner := p.src[start+1 : start+gt]
	end := start + gt + 1

	if strings.HasPrefix(inner, "/") {
		name := strings.TrimSpace(inner[1:])
		if !isKnownTag(name) {
			return false
		}
		p.closeTag(start, name)
		p.pos = end
		return true
	}

	name, attrs := splitTag(inner)
	if !isKnownTag(name) {
		return false
	}

	p.openKnownTag(start, name, attrs)
	p.pos = end
	return true
}

func splitTag(inner string) (name, attrs string) {
	if i := strings.IndexByte(inner, ' '); i >= 0 {
		return inner[:i], inner[i+1:]
	}
	return inner, ""
}

func isKnownTag(name string) bool {
	switch name {
	case "color", "font", "stroke", "b", "i", "u", "s":
		return true
	}
	return false
}

// closeTag pops scopes for a closing tag, discarding it silently when no
// matching open scope exists.
func (p *parser) closeTag(src int, name string) {
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.stack[i].name != name {
			continue
		}
		// Close the inner scopes this closer implicitly terminates.
		for j := len(p.stack) - 1; j >= i; j-- {
			p.closeScopes(p.stack[j])
		}
		p.stack = p.stack[:i]
		return
	}
	// Unmatched closer: discarded.
}

func (p *parser) closeScopes(tag openTag) {
	limit := int32(p.out.Len())
	if tag.hasFont {
		p.fontRuns.Pop(limit)
	}
	if tag.hasColor {
		p.colorRuns.Pop(limit)
	}
	if tag.hasStroke {
		p.strokeRuns.Pop(limit)
	}
	if tag.hasStrike {
		p.strikeRuns.Pop(limit)
	}
	if tag.hasUnder {
		p.underRuns.Pop(limit)
	}
}

func (p *parser) openKnownTag(src int, name, attrs string) {
	limit := int32(p.out.Len())
	tag := openTag{name: name}

	switch name {
	case "u":
		p.underRuns.Push(limit, true)
		tag.hasUnder = true

	case "s":
		p.strikeRuns.Push(limit, true)
		tag.hasStrike = true

	case "b":
		cur := p.fontRuns.CurrentValue()
		p.fontRuns.Push(limit, fonts.NewFont(cur.Registry(), cur.Family(), fonts.WeightBold, cur.Style(), cur.Size()))
		tag.hasFont = true

	case "i":
		cur := p.fontRuns.CurrentValue()
		p.fontRuns.Push(limit, fonts.NewFont(cur.Registry(), cur.Family(), cur.Weight(), fonts.StyleItalic, cur.Size()))
		tag.hasFont = true

	case "color":
		if c, ok := p.colorAttr(src, attrs, "rgb"); ok {
			p.colorRuns.Push(limit, c)
			tag.hasColor = true
		} else {
			p.issue(src, "color tag without a valid rgb attribute")
		}

	case "font":
		p.openFontTag(src, attrs, limit, &tag)

	case "stroke":
		p.strokeRuns.Push(limit, p.parseStrokeAttrs(src, attrs))
		tag.hasStroke = true
	}

	p.stack = append(p.stack, tag)
}

func (p *parser) openFontTag(src int, attrs string, limit int32, tag *openTag) {
	cur := p.fontRuns.CurrentValue()
	family := cur.Family()
	size := cur.Size()
	fontChange := false

	if faceName, ok := attrValue(attrs, "face"); ok {
		if reg := cur.Registry(); reg != nil {
			if fam := reg.Family(faceName); fam.Valid() {
				if fam != family {
					family = fam
					fontChange = true
				}
			} else {
				p.issue(src, "unknown font family %q", faceName)
			}
		}
	}
	if sizeStr, ok := attrValue(attrs, "size"); ok {
		if v, err := strconv.ParseFloat(sizeStr, 64); err == nil && v > 0 {
			if v != size {
				size = v
				fontChange = true
			}
		} else {
			p.issue(src, "bad font size %q", sizeStr)
		}
	}

	if fontChange {
		p.fontRuns.Push(limit, fonts.NewFont(cur.Registry(), family, cur.Weight(), cur.Style(), size))
		tag.hasFont = true
	}

	if c, ok := p.colorAttr(src, attrs, "color"); ok {
		p.colorRuns.Push(limit, c)
		tag.hasColor = true
	}
}

func (p *parser) parseStrokeAttrs(src int, attrs string) style.StrokeState {
	state := style.StrokeState{
		Color:     style.Color{A: 1},
		Thickness: 1,
		Joins:     style.JoinsRound,
	}

	if c, ok := p.colorAttr(src, attrs, "color"); ok {
		state.Color = style.Color{R: c.R, G: c.G, B: c.B, A: state.Color.A}
	}
	if v, ok := attrValue(attrs, "thickness"); ok {
		if t, err := strconv.ParseUint(v, 10, 8); err == nil {
			state.Thickness = uint8(t)
		} else {
			p.issue(src, "bad stroke thickness %q", v)
		}
	}
	if v, ok := attrValue(attrs, "transparency"); ok {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			state.Color.A = 1 - t
		} else {
			p.issue(src, "bad stroke transparency %q", v)
		}
	}
	if v, ok := attrValue(attrs, "joins"); ok {
		switch v {
		case "round":
			state.Joins = style.JoinsRound
		case "bevel":
			state.Joins = style.JoinsBevel
		case "miter":
			state.Joins = style.JoinsMiter
		default:
			p.issue(src, "bad stroke joins %q", v)
		}
	}

	return state
}

// colorAttr reads a color-valued attribute. Accepted forms: a bare decimal
// 0xRRGGBB integer, #RRGGBB, and rgb(r, g, b), optionally quoted.
func (p *parser) colorAttr(src int, attrs, name string) (style.Color, bool) {
	v, ok := attrValue(attrs, name)
	if !ok {
		return style.Color{}, false
	}

	c, err := parseColorValue(v)
	if err != nil {
		p.issue(src, "bad %s color %q", name, v)
		return style.Color{}, false
	}
	return c, true
}

func parseColorValue(v string) (style.Color, error) {
	v = strings.TrimSpace(v)

	switch {
	case strings.HasPrefix(v, "#"):
		n, err := strconv.ParseUint(v[1:], 16, 32)
		if err != nil || len(v) != 7 {
			return style.Color{}, fmt.Errorf("format: bad hex color %q", v)
		}
		return style.FromRGBUint(uint32(n)), nil

	case strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")"):
		parts := strings.Split(v[4:len(v)-1], ",")
		if len(parts) != 3 {
			return style.Color{}, fmt.Errorf("format: bad rgb() color %q", v)
		}
		var channels [3]uint8
		for i, part := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
			if err != nil {
				return style.Color{}, fmt.Errorf("format: bad rgb() channel %q", part)
			}
			channels[i] = uint8(n)
		}
		return style.FromRGBUint(uint32(channels[0])<<16 | uint32(channels[1])<<8 | uint32(channels[2])), nil

	default:
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return style.Color{}, fmt.Errorf("format: bad color %q", v)
		}
		return style.FromRGBUint(uint32(n)), nil
	}
}

// attrValue finds name=value within a tag's attribute text. Values may be
// double-quoted; unquoted values run to the next space.
func attrValue(attrs, name string) (string, bool) {
	rest := attrs
	for {
		i := strings.Index(rest, name+"=")
		if i < 0 {
			return "", false
		}
		// Must be at a word boundary.
		if i > 0 && rest[i-1] != ' ' {
			rest = rest[i+len(name):]
			continue
		}

		v := rest[i+len(name)+1:]
		if strings.HasPrefix(v, `"`) {
			if j := strings.IndexByte(v[1:], '"'); j >= 0 {
				return v[1 : 1+j], true
			}
			return "", false
		}
		if j := strings.IndexByte(v, ' '); j >= 0 {
			return v[:j], true
		}
		return v, true
	}
}
