package tst

// MergeAttributes implements §4.6's "merge attributes" operation: for
// each SUBPROGRAM in src, collect its ATTRIBUTES lines; then copy dst
// unchanged except that, immediately before each END line whose test's
// subprogram matches, any of the collected attribute lines not already
// present verbatim in that test are spliced in, preserving their
// original insertion order. Tests in dst whose subprogram has no match
// in src copy through untouched.
//
// Grounded on original_source/atg_execution/merge_display_attributes.py.
// Idempotent per §8 item 4: since already-present lines are skipped,
// MergeAttributes(MergeAttributes(dst, src), src) equals
// MergeAttributes(dst, src).
func MergeAttributes(dst, src string) string {
	bySubprogram := collectAttributes(src)

	segs := Segments(dst)
	for _, seg := range segs {
		if seg.Test == nil {
			continue
		}
		attrs, ok := bySubprogram[seg.Test.Subprogram]
		if !ok {
			continue
		}
		seg.Test.Lines = spliceBeforeEnd(seg.Test.Lines, missingAttrs(seg.Test.Lines, attrs))
	}
	return JoinSegments(segs)
}

func missingAttrs(lines []Line, attrs []Line) []Line {
	present := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.Kind == Attributes {
			present[l.Raw] = true
		}
	}
	var out []Line
	for _, a := range attrs {
		if !present[a.Raw] {
			out = append(out, a)
		}
	}
	return out
}

func collectAttributes(script string) map[string][]Line {
	out := make(map[string][]Line)
	for _, seg := range Segments(script) {
		if seg.Test == nil {
			continue
		}
		for _, l := range seg.Test.Lines {
			if l.Kind == Attributes {
				out[seg.Test.Subprogram] = append(out[seg.Test.Subprogram], l)
			}
		}
	}
	return out
}

func spliceBeforeEnd(lines []Line, attrs []Line) []Line {
	out := make([]Line, 0, len(lines)+len(attrs))
	for _, l := range lines {
		if l.Kind == End {
			out = append(out, attrs...)
		}
		out = append(out, l)
	}
	return out
}
