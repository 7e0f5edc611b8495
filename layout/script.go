package layout

import (
	"unicode/utf8"

	"github.com/go-text/typesetting/language"

	"github.com/Mlleters/rich-text/valuerun"
)

// Inherited and Common script aliases as typesetting encodes them
// ("Zinh"/"Zyyy" tags).
var (
	scriptInherited = language.Script(0x5a696e68)
	scriptCommon    = language.Script(0x5a797979)
)

func isRealScript(s language.Script) bool {
	return s != scriptInherited && s != scriptCommon
}

// computeScriptRuns segments text into maximal same-script runs with byte
// limits. Characters of Common or Inherited script merge into the
// surrounding concrete script: first into a preceding one, else into the
// following one; text with no concrete script at all becomes one Latin run.
func computeScriptRuns(text []byte, out *valuerun.ValueRuns[language.Script]) {
	n := len(text)

	current := scriptCommon

	flush := func(limit int, next language.Script) {
		if !isRealScript(current) {
			if isRealScript(next) {
				current = next
			} else {
				current = language.Latin
			}
		}
		out.Add(int32(limit), current)
		current = next
	}

	for i := 0; i < n; {
		r, sz := utf8.DecodeRune(text[i:])
		script := language.LookupScript(r)

		switch {
		case !isRealScript(script):
			// Common and Inherited attach to the run in progress.
		case !isRealScript(current):
			// The run so far was all Common; adopt the concrete script.
			current = script
		case script != current:
			flush(i, script)
		}

		i += sz
	}

	flush(n, scriptCommon)
}
