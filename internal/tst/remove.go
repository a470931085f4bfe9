package tst

import "regexp"

// RemoveByPattern implements §4.6's "remove tests by pattern": drop any
// test whose SUBPROGRAM matches subprogramRe and any of whose lines
// matches contentRe. Inter-test text is emitted verbatim; if no test
// matches, the output equals the input byte-for-byte (§8 item 5).
func RemoveByPattern(script string, subprogramRe, contentRe *regexp.Regexp) string {
	segs := Segments(script)
	var out []Segment
	for _, seg := range segs {
		if seg.Test == nil {
			out = append(out, seg)
			continue
		}
		if matchesRemoval(seg.Test, subprogramRe, contentRe) {
			continue
		}
		out = append(out, seg)
	}
	return JoinSegments(out)
}

func matchesRemoval(t *Test, subprogramRe, contentRe *regexp.Regexp) bool {
	if !subprogramRe.MatchString(t.Subprogram) {
		return false
	}
	for _, l := range t.Lines {
		if contentRe.MatchString(l.Raw) {
			return true
		}
	}
	return false
}

// RemoveByName drops every test whose NAME line's value matches nameRe,
// for any subprogram — used by the Project Processor's Stage D splice
// to drop the previously-archived ATG tests (`^NAME:.*ATG`) before
// concatenating the freshly baselined ones, per §4.8 Stage D.
func RemoveByName(script string, nameRe *regexp.Regexp) string {
	segs := Segments(script)
	var out []Segment
	for _, seg := range segs {
		if seg.Test == nil {
			out = append(out, seg)
			continue
		}
		drop := false
		for _, l := range seg.Test.Lines {
			if l.Kind == Name && nameRe.MatchString("NAME:"+l.Value) {
				drop = true
				break
			}
		}
		if drop {
			continue
		}
		out = append(out, seg)
	}
	return JoinSegments(out)
}
