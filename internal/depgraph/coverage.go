package depgraph

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// OpenCoverageDB opens the per-environment coverage database (§3's
// "coverage.db inside the environment's build directory") read-only.
func OpenCoverageDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("depgraph: open coverage db %s: %w", path, err)
	}
	return db, nil
}

// RoutineInventory is env→(unit_source_path→ordered_list<routine_name>),
// per §3. Order is preserved exactly as returned by the coverage query,
// because the Project Processor's Stage B merge relies on it for
// deterministic output.
type RoutineInventory map[string][]Routine

// Routine names one instrumented function and the source file covering
// it, in the order the coverage database returns them.
type Routine struct {
	UnitSourcePath string
	Name           string
}

const routineQuery = `
SELECT source_files.path, functions.name
FROM functions
JOIN instrumented_files ON functions.file_id = instrumented_files.id
JOIN source_files ON instrumented_files.source_file_id = source_files.id
ORDER BY functions.id
`

// QueryRoutines runs the §4.4 join (functions → instrumented_files →
// source_files) and returns the ordered routine list for one
// environment, preserving functions.id order as the query requires.
func QueryRoutines(ctx context.Context, db *sql.DB) (RoutineInventory, error) {
	rows, err := db.QueryContext(ctx, routineQuery)
	if err != nil {
		return nil, fmt.Errorf("depgraph: query routines: %w", err)
	}
	defer rows.Close()

	inv := make(RoutineInventory)
	for rows.Next() {
		var path, name string
		if err := rows.Scan(&path, &name); err != nil {
			return nil, fmt.Errorf("depgraph: scan routine row: %w", err)
		}
		inv[path] = append(inv[path], Routine{UnitSourcePath: path, Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("depgraph: iterate routine rows: %w", err)
	}
	return inv, nil
}
