// Package report renders a plain-text summary of an atg.Process run,
// printed once at the end when --report is set (§4.11). It is a pure
// side-effecting formatter over atg.Summary, never part of the
// pipeline's control flow, modelled on the teacher's log.Printf phase
// summaries in cmd/distri/batch.go.
package report

import (
	"fmt"
	"io"

	"github.com/vector-atg/atgdriver/internal/atg"
)

// Write renders summary to w as a multi-line plain-text report.
func Write(w io.Writer, summary atg.Summary) error {
	totalOK, totalFailed := 0, 0
	for _, es := range summary.Envs {
		totalOK += es.RoutinesOK
		totalFailed += es.RoutinesFailed
	}

	if _, err := fmt.Fprintf(w, "%d environments impacted, %d routines succeeded, %d failed\n",
		len(summary.Envs), totalOK, totalFailed); err != nil {
		return err
	}

	for _, es := range summary.Envs {
		if es.Err != nil {
			if _, err := fmt.Fprintf(w, "  %s: skipped: %v\n", es.Name, es.Err); err != nil {
				return err
			}
			continue
		}
		point := "exhausted iteration budget"
		if es.FixedPoint {
			point = "reached fixed point"
		}
		if _, err := fmt.Fprintf(w, "  %s: %d ok, %d failed, %d baseline iterations (%s), archived to %s\n",
			es.Name, es.RoutinesOK, es.RoutinesFailed, es.BaselineIterations, point, es.ArchivePath); err != nil {
			return err
		}
	}
	return nil
}
