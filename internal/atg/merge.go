package atg

import (
	"fmt"
	"sort"
	"strings"
)

// MergeEnv implements §4.8 Stage B: concatenate one environment's
// per-routine scripts in sorted (unit, routine) order, each introduced
// by a three-line header naming the routine and its outcome. A failed
// routine contributes only its header.
func MergeEnv(results []RoutineResult) string {
	sorted := append([]RoutineResult(nil), results...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Unit != sorted[j].Unit {
			return sorted[i].Unit < sorted[j].Unit
		}
		return sorted[i].Routine < sorted[j].Routine
	})

	var b strings.Builder
	for _, r := range sorted {
		b.WriteString(routineHeader(r))
		if r.OK {
			b.WriteString(r.Script)
			if !strings.HasSuffix(r.Script, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

func routineHeader(r RoutineResult) string {
	status := "ok"
	if !r.OK {
		status = "failed"
	}
	return fmt.Sprintf(
		"-- ATG unit=%s routine=%s --\n-- status=%s --\n-- end header --\n",
		r.Unit, r.Routine, status,
	)
}
