package baseline

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/vector-atg/atgdriver/internal/tst"
)

// DBOutcomeLookup implements tst.OutcomeLookup against the environment's
// coverage.db (the same file internal/depgraph queries for routines;
// VectorCAST-shaped databases hold both coverage and execution results),
// standing in for the DataAPI queries
// original_source/atg_execution/strip_failures.py ran directly against a
// live environment — see DESIGN.md. It expects two additional tables:
//
//	test_results(test_name TEXT PRIMARY KEY, had_failure_reasons INTEGER, had_termination INTEGER)
//	test_failed_expected(test_name TEXT, failure_key TEXT)
type DBOutcomeLookup struct {
	DB *sql.DB
}

// Outcome implements tst.OutcomeLookup.
func (d DBOutcomeLookup) Outcome(testName string) (tst.Outcome, bool) {
	ctx := context.Background()
	var hadFailureReasons, hadTermination bool
	row := d.DB.QueryRowContext(ctx,
		`SELECT had_failure_reasons, had_termination FROM test_results WHERE test_name = ?`,
		testName)
	switch err := row.Scan(&hadFailureReasons, &hadTermination); err {
	case nil:
	case sql.ErrNoRows:
		return tst.Outcome{}, false
	default:
		return tst.Outcome{}, false
	}

	rows, err := d.DB.QueryContext(ctx,
		`SELECT failure_key FROM test_failed_expected WHERE test_name = ?`,
		testName)
	if err != nil {
		return tst.Outcome{}, false
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return tst.Outcome{}, false
		}
		keys = append(keys, k)
	}

	return tst.Outcome{
		HadFailureReasons: hadFailureReasons,
		HadTermination:    hadTermination,
		FailedKeys:        keys,
	}, true
}

// OpenResultsDB opens an environment's coverage.db read-only for result
// lookups. Baseline iterations rebuild the environment, rewriting this
// file while the connection is open, so no immutable/caching hint is
// passed.
func OpenResultsDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("baseline: open results db %s: %w", path, err)
	}
	return db, nil
}
