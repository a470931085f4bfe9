package tst

import (
	"regexp"
	"strings"
)

// Outcome is one test's execution result, as recorded by the environment
// database after an execute pass — the input the Strip-failures step
// (§4.7) needs to decide what to drop and whether to disable a test.
type Outcome struct {
	// HadFailureReasons is true if the test recorded any failure
	// reason during execution.
	HadFailureReasons bool
	// HadTermination is true if the test received any termination
	// signal (a hard crash/abort, as opposed to an assertion mismatch).
	HadTermination bool
	// FailedKeys are the raw (un-normalised) dotted keys of the
	// EXPECTED records whose actual value disagreed with the expected
	// value.
	FailedKeys []string
}

// OutcomeLookup resolves a test's Outcome by its TEST.NAME value. The
// second return value is false if the test has no recorded outcome
// (e.g. it was never executed), in which case StripFailures leaves it
// untouched except for the universal ATTRIBUTES/out-of-range/
// IMPORT_FAILURES stripping.
type OutcomeLookup interface {
	Outcome(testName string) (Outcome, bool)
}

var instanceSentinelRe = regexp.MustCompile(`<<(\w+) instance>>`)

// NormalizeFailureKey normalises a raw dotted key as recorded by the
// environment database into the form used by EXPECTED lines in a test
// script, per §4.7: map ".[0]" → "[0]", drop ".class members", and
// rewrite "<<X instance>>" patterns to "(cl).X".
func NormalizeFailureKey(key string) string {
	key = strings.ReplaceAll(key, ".[0]", "[0]")
	key = strings.ReplaceAll(key, ".class members", "")
	key = instanceSentinelRe.ReplaceAllString(key, "(cl).$1")
	return key
}

const outOfRangeMarker = "<<out-of-range>>"
const displayStateMarker = "DISPLAY_STATE=DISPLAY"

// StripFailures implements §4.7's strip-failures step. For every test,
// if lookup has a recorded Outcome, its normalised FailedKeys are
// removed from consideration only for that test's EXPECTED lines; every
// test (with or without a recorded outcome) has its display-state
// ATTRIBUTES lines, any line containing "<<out-of-range>>", and any
// IMPORT_FAILURES…END_IMPORT_FAILURES block (markers included) dropped.
// A test that is marked for disabling (HadFailureReasons or
// HadTermination) and also had a hard termination gets
// "TEST.COMPOUND_ONLY:" prepended immediately before its END line.
func StripFailures(script string, lookup OutcomeLookup) string {
	segs := Segments(script)
	for i := range segs {
		if segs[i].Test == nil {
			continue
		}
		segs[i].Test.Lines = stripFailuresInTest(segs[i].Test, lookup)
	}
	return JoinSegments(segs)
}

func stripFailuresInTest(t *Test, lookup OutcomeLookup) []Line {
	testName := testNameOf(t)
	outcome, hasOutcome := lookup.Outcome(testName)

	var failedKeys map[string]bool
	if hasOutcome {
		failedKeys = make(map[string]bool, len(outcome.FailedKeys))
		for _, k := range outcome.FailedKeys {
			failedKeys[NormalizeFailureKey(k)] = true
		}
	}

	disable := hasOutcome && (outcome.HadFailureReasons || outcome.HadTermination)

	var out []Line
	inImportFailures := false
	for _, l := range t.Lines {
		switch {
		case l.Kind == ImportFailures:
			inImportFailures = true
			continue
		case l.Kind == EndImportFailures:
			inImportFailures = false
			continue
		case inImportFailures:
			continue
		case l.Kind == Attributes && strings.Contains(l.Raw, displayStateMarker):
			continue
		case strings.Contains(l.Raw, outOfRangeMarker):
			continue
		case l.Kind == Expected:
			key, _, _ := ParseExpected(l.Value)
			if failedKeys != nil && failedKeys[key] {
				continue
			}
		}
		if l.Kind == End && disable && outcome.HadTermination {
			out = append(out, Line{Raw: "TEST.COMPOUND_ONLY:", Kind: Other})
		}
		out = append(out, l)
	}
	return out
}

func testNameOf(t *Test) string {
	for _, l := range t.Lines {
		if l.Kind == Name {
			return l.Value
		}
	}
	return ""
}
