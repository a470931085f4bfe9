package tst

import "strings"

// ParseSubprogram extracts the subprogram identifier from the value of a
// TEST.SUBPROGRAM: line.
//
// The original Python driver split on the first ":" to separate the
// subprogram name from a trailing parameter-list decoration, which is
// wrong for C++ "::"-qualified names (§9 design note): splitting
// "Foo::Bar(int)" on the first ":" yields "Foo", not "Foo::Bar".
//
// This implementation instead scans for the first single-colon boundary
// — a ':' that is neither preceded nor followed by another ':' — and
// treats everything before it as the name. If no such boundary exists
// (the common case: no decoration at all, or the whole value is a
// "::"-qualified name with no trailing parameter list), the value is
// taken as-is up to a trailing "(" parameter list, if present.
func ParseSubprogram(value string) string {
	n := len(value)
	for i := 0; i < n; i++ {
		if value[i] != ':' {
			continue
		}
		prevIsColon := i > 0 && value[i-1] == ':'
		nextIsColon := i+1 < n && value[i+1] == ':'
		if prevIsColon || nextIsColon {
			// part of a "::" qualifier; skip over the whole run of
			// colons and keep scanning.
			for i+1 < n && value[i+1] == ':' {
				i++
			}
			continue
		}
		// single-colon boundary: everything before it is the name,
		// unless a "(" appears even earlier.
		return trimParamList(value[:i])
	}
	return trimParamList(value)
}

func trimParamList(s string) string {
	if idx := strings.IndexByte(s, '('); idx >= 0 {
		return s[:idx]
	}
	return strings.TrimSpace(s)
}

// BaseKey returns the portion of a dotted key before its first "["
// array-index component, per §4.6's "strip unchanged attributes": "A
// key's base is the prefix before the first [".
func BaseKey(key string) string {
	if idx := strings.IndexByte(key, '['); idx >= 0 {
		return key[:idx]
	}
	return key
}

// HasArrayIndex reports whether key contains an array-index component
// ("[n]") anywhere in its path.
func HasArrayIndex(key string) bool {
	return strings.ContainsRune(key, '[')
}

// OwningSubprogram reports whether dotted key "unit.subprogram.field..."
// belongs to subprogram sub — i.e. whether its second dotted component
// equals sub. Per §3: "A dotted key has the form
// unit.subprogram.field[.more]".
func OwningSubprogram(key, sub string) bool {
	parts := strings.SplitN(key, ".", 3)
	if len(parts) < 2 {
		return false
	}
	return parts[1] == sub
}

// TailField returns the final dotted component of key's base (the part
// before array indices), e.g. "return" for "unit.sub.return" and "q" for
// "unit.sub.p.q[0]".
func TailField(key string) string {
	base := BaseKey(key)
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 {
		return base
	}
	return base[idx+1:]
}
