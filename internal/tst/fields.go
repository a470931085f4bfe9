package tst

import "strings"

// ParseAttribute splits a TEST.ATTRIBUTES: value ("key=value") into its
// key and value.
func ParseAttribute(value string) (key, val string) {
	if idx := strings.IndexByte(value, '='); idx >= 0 {
		return value[:idx], value[idx+1:]
	}
	return value, ""
}

// ParseValue splits a TEST.VALUE: value ("dotted.key : value") into its
// dotted key and value.
func ParseValue(value string) (key, val string) {
	parts := strings.SplitN(value, " : ", 2)
	if len(parts) != 2 {
		return strings.TrimSpace(value), ""
	}
	return strings.TrimSpace(parts[0]), parts[1]
}

// ParseExpected splits a TEST.EXPECTED: value
// ("dotted.key : something : value") into its dotted key, the middle
// "something" tag, and the value.
func ParseExpected(value string) (key, tag, val string) {
	parts := strings.SplitN(value, " : ", 3)
	switch len(parts) {
	case 3:
		return strings.TrimSpace(parts[0]), parts[1], parts[2]
	case 2:
		return strings.TrimSpace(parts[0]), parts[1], ""
	default:
		return strings.TrimSpace(value), "", ""
	}
}

// IsAllocationSentinel reports whether a VALUE/EXPECTED value is one of
// the allocation sentinels ("<<malloc…>>", "<<null…>>") that always make
// their key external, per §4.6.
func IsAllocationSentinel(val string) bool {
	v := strings.TrimSpace(val)
	return strings.HasPrefix(v, "<<malloc") || strings.HasPrefix(v, "<<null")
}

// IsGlobalKey reports whether a dotted key refers to a global
// ("<<GLOBAL>>" appears in the key), per §4.6.
func IsGlobalKey(key string) bool {
	return strings.Contains(key, "<<GLOBAL>>")
}
