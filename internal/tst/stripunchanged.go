package tst

// StripUnchangedAttributes implements §4.6's "strip unchanged
// attributes": per test, classify every dotted key in VALUE/EXPECTED
// lines that belongs to the test's own subprogram as internal or
// external, then drop any ATTRIBUTES or EXPECTED line whose (base) key
// classifies internal.
//
// A key is external if any of: its value is an allocation sentinel
// ("<<malloc…>>"/"<<null…>>"); its key path contains an array-index
// component ("[n]"); it names a global ("<<GLOBAL>>" in the key); or its
// tail field is "return". Otherwise it is internal. Classification is
// over base keys (the key with any trailing "[…]" stripped); once a base
// key classifies external, it stays external for the rest of the test
// even if a later occurrence would, on its own, look internal.
func StripUnchangedAttributes(script string) string {
	segs := Segments(script)
	for i := range segs {
		if segs[i].Test == nil {
			continue
		}
		segs[i].Test.Lines = stripUnchangedInTest(segs[i].Test)
	}
	return JoinSegments(segs)
}

func stripUnchangedInTest(t *Test) []Line {
	classified := make(map[string]bool)
	external := make(map[string]bool)

	classify := func(key, val string) {
		if !OwningSubprogram(key, t.Subprogram) {
			return
		}
		base := BaseKey(key)
		classified[base] = true
		if external[base] {
			return // sticky
		}
		if IsAllocationSentinel(val) || HasArrayIndex(key) || IsGlobalKey(key) || TailField(key) == "return" {
			external[base] = true
		}
	}

	for _, l := range t.Lines {
		switch l.Kind {
		case Value:
			key, val := ParseValue(l.Value)
			classify(key, val)
		case Expected:
			key, _, val := ParseExpected(l.Value)
			classify(key, val)
		}
	}

	isInternal := func(key string) bool {
		base := BaseKey(key)
		return classified[base] && !external[base]
	}

	out := make([]Line, 0, len(t.Lines))
	for _, l := range t.Lines {
		switch l.Kind {
		case Attributes:
			key, _ := ParseAttribute(l.Value)
			if isInternal(key) {
				continue
			}
		case Expected:
			key, _, _ := ParseExpected(l.Value)
			if isInternal(key) {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}
