// Command atgctl drives one end-to-end incremental ATG run: build (or
// validate) every test environment under a project, discover which
// environments an SCM change set actually impacts, generate and
// baseline tests for each, and splice the results into the project's
// archive tree.
//
// Modelled on cmd/distri/distri.go's funcmain() error / main() split and
// its InterruptibleContext-based cancellation, generalised from that
// program's verb dispatch to the single flag.FlagSet this driver needs.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/vector-atg/atgdriver"
	"github.com/vector-atg/atgdriver/internal/atg"
	"github.com/vector-atg/atgdriver/internal/baseline"
	"github.com/vector-atg/atgdriver/internal/config"
	"github.com/vector-atg/atgdriver/internal/depgraph"
	"github.com/vector-atg/atgdriver/internal/env"
	"github.com/vector-atg/atgdriver/internal/exec2"
	"github.com/vector-atg/atgdriver/internal/impact"
	"github.com/vector-atg/atgdriver/internal/logging"
	"github.com/vector-atg/atgdriver/internal/oninterrupt"
	"github.com/vector-atg/atgdriver/internal/project"
	"github.com/vector-atg/atgdriver/internal/report"
	"github.com/vector-atg/atgdriver/internal/scm"
	"github.com/vector-atg/atgdriver/internal/toolcmd"
	"github.com/vector-atg/atgdriver/internal/tst"
)

var (
	configPy = flag.String("config_py", "", "path to the sidecar configuration script (required)")
	timeout  = flag.Duration("timeout", 10*time.Minute, "per-external-command timeout")
	doReport = flag.Bool("report", false, "print a textual summary at the end of the run")
	dryRun   = flag.Bool("dry_run", false, "compute impacted environments and print them, without running ATG")

	baselineIterations = flag.Int("baseline_iterations", 10, "maximum Baseliner iterations per environment (N >= 1)")
	cleanUp            = flag.Bool("clean_up", false, "rebuild every environment from scratch before processing")
	skipBuild          = flag.Bool("skip_build", false, "skip the build step; use already-built environments as-is")

	limitUnchanged          = flag.Int("limit_unchanged", 0, "treat the SCM hook as unavailable past this many unchanged files (0 = unbounded)")
	allowMoves              = flag.Bool("allow_moves", false, "allow the SCM hook to see renames instead of failing on them")
	allowBrokenEnvironments = flag.Bool("allow_broken_environments", false, "exclude invalid environments instead of failing the run")

	logFile = flag.String("log_file", "", "write log output to this file instead of stderr")
	verbose = flag.Bool("verbose", false, "log at verbose level")
	quiet   = flag.Bool("quiet", false, "suppress normal-level log output")

	strictRC = flag.Bool("strict_rc", false, "treat a non-zero ATG engine return code as routine failure")
	workers  = flag.Int("workers", runtime.NumCPU(), "number of parallel workers (default = CPU count)")
	atgWorkDir = flag.String("atg_work_dir", "", "scratch root for per-environment work (defaults to $ATGROOT)")

	compilerLevel = flag.String("compiler_level", "", "named compiler level passed to the build command")
)

func validateFlags() error {
	if *configPy == "" {
		return fmt.Errorf("atgctl: --config_py is required")
	}
	if *skipBuild == *cleanUp {
		return fmt.Errorf("atgctl: exactly one of --skip_build or --clean_up must be set")
	}
	if *verbose && *quiet {
		return fmt.Errorf("atgctl: --verbose and --quiet are mutually exclusive")
	}
	if *doReport && *quiet {
		return fmt.Errorf("atgctl: --report and --quiet are mutually exclusive")
	}
	if *baselineIterations < 1 {
		return fmt.Errorf("atgctl: --baseline_iterations must be >= 1")
	}
	return nil
}

func funcmain() error {
	flag.Parse()
	if err := validateFlags(); err != nil {
		return err
	}

	level, err := logging.ParseLevel(*verbose, *quiet)
	if err != nil {
		return fmt.Errorf("atgctl: %w", err)
	}
	logOut := os.Stderr
	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("atgctl: open --log_file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	log := logging.New(logOut, level)

	ctx, cancel := atgdriver.InterruptibleContext()
	defer cancel()

	if err := log.Traced("atgctl: run", func() error {
		return run(ctx, log)
	}); err != nil {
		return err
	}
	return atgdriver.RunAtExit()
}

func run(ctx context.Context, log *logging.Logger) error {
	workDir := *atgWorkDir
	if workDir == "" {
		workDir = env.ATGRoot
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("atgctl: create --atg_work_dir: %w", err)
	}

	cfg, err := config.LoadScript(ctx, *configPy, config.Options{DryRun: *dryRun, Verbose: *verbose}, *timeout)
	if err != nil {
		return fmt.Errorf("atgctl: load --config_py: %w", err)
	}
	applyAllowMoves(&cfg)

	pool := exec2.New(*workers)

	clicast := toolcmd.ResolveClicast()
	projectFile := filepath.Join(cfg.ProjectPath, "project.pj")
	builder := &project.Builder{
		ProjectFile:   projectFile,
		BuildCommand:  toolcmd.BuildProject(clicast, projectFile),
		CompilerLevel: *compilerLevel,
		Clicast:       clicast,
		SkipBuild:     *skipBuild,
		AllowBroken:   *allowBrokenEnvironments,
		Timeout:       *timeout,
		Pool:          pool,
		Log:           log,
	}

	oninterrupt.Register(func() {
		log.Errorf("interrupted: leaving %d workers' in-flight scratch state under %s for inspection", *workers, workDir)
	})

	envs, err := builder.Process(ctx)
	if err != nil {
		return fmt.Errorf("atgctl: build/validate environments: %w", err)
	}
	log.Printf("%d environments available after build", len(envs))

	graph := depgraph.NewGraph()
	routines := make(map[string]depgraph.RoutineInventory, len(envs))
	for _, e := range envs {
		if err := loadEnvironmentGraph(ctx, graph, routines, cfg.RepositoryPath, e); err != nil {
			return fmt.Errorf("atgctl: %s: %w", e.Name, err)
		}
	}

	var unchanged map[string]struct{}
	if cfg.FindUnchangedFiles != nil {
		before, after := os.Getenv("ATG_BEFORE_REV"), os.Getenv("ATG_AFTER_REV")
		unchanged, err = cfg.FindUnchangedFiles.UnchangedFiles(ctx, before, after)
		if err != nil {
			return fmt.Errorf("atgctl: scm hook: %w", err)
		}
		unchanged = scm.ApplyLimit(unchanged, *limitUnchanged)
	}

	impacted := impact.Impacted(unchanged, impact.EnvFiles(graph.EnvFiles()))
	var impactedEnvs []project.Environment
	for _, e := range envs {
		if _, ok := impacted[e.Name]; ok {
			impactedEnvs = append(impactedEnvs, e)
		}
	}
	log.Printf("%d of %d environments impacted", len(impactedEnvs), len(envs))

	if *dryRun {
		for _, e := range impactedEnvs {
			fmt.Fprintln(os.Stdout, e.Name)
		}
		return nil
	}
	if len(impactedEnvs) == 0 {
		return nil
	}

	archiveDir := cfg.FinalTstPath
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return fmt.Errorf("atgctl: create final_tst_path: %w", err)
	}

	lookup, closeLookup, err := openResultLookup(impactedEnvs)
	if err != nil {
		return fmt.Errorf("atgctl: open result databases: %w", err)
	}
	atgdriver.RegisterAtExit(func() error {
		closeLookup()
		return nil
	})

	atgCfg := atg.Config{
		Envs:     impactedEnvs,
		Routines: routines,
		Engine: atg.EngineConfig{
			Pyedg:            toolcmd.ResolvePyedg(),
			EngineScript:     toolcmd.ResolveEngineScript(),
			Timeout:          *timeout,
			StrictReturnCode: *strictRC,
		},
		Clicast:          clicast,
		BaselineN:        *baselineIterations,
		FixedPointCheck:  true,
		StrictReturnCode: *strictRC,
		Timeout:          *timeout,
		Lookup:           lookup,
		ArchiveDir:       archiveDir,
		ScratchRoot:      workDir,
		Pool:             pool,
		Log:              log,
	}

	var summary atg.Summary
	err = log.Traced("atgctl: process", func() error {
		var err error
		summary, err = atg.Process(ctx, atgCfg)
		return err
	})
	if err != nil {
		return fmt.Errorf("atgctl: process: %w", err)
	}

	if cfg.StoreUpdatedTests != nil {
		paths := make(map[string]struct{}, len(summary.Envs))
		for _, es := range summary.Envs {
			if es.Err != nil {
				continue
			}
			paths[es.ArchivePath] = struct{}{}
		}
		if err := cfg.StoreUpdatedTests(paths); err != nil {
			return fmt.Errorf("atgctl: store_updated_tests: %w", err)
		}
	}

	if *doReport {
		if err := report.Write(os.Stdout, summary); err != nil {
			return fmt.Errorf("atgctl: write report: %w", err)
		}
	}
	return nil
}

// applyAllowMoves overlays --allow_moves onto whichever SCM hook the
// configuration script selected, since the flag is a run-level override
// rather than something the sidecar script decides.
func applyAllowMoves(cfg *config.Configuration) {
	if !*allowMoves {
		return
	}
	switch h := cfg.FindUnchangedFiles.(type) {
	case scm.GitHook:
		h.AllowMoves = true
		cfg.FindUnchangedFiles = h
	case scm.GitHubHook:
		h.AllowMoves = true
		cfg.FindUnchangedFiles = h
	}
}

// loadEnvironmentGraph parses e's dependency manifest into graph and
// queries its coverage database for the Routine Inventory, per §4.4.
// Manifest paths are kept only if they lie under repoRoot, and are
// recorded relative to it.
func loadEnvironmentGraph(ctx context.Context, graph *depgraph.Graph, routines map[string]depgraph.RoutineInventory, repoRoot string, e project.Environment) error {
	f, err := os.Open(e.ManifestPath())
	if err != nil {
		return fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()
	if err := depgraph.ParseManifest(f, repoRoot, graph.ForEnv(e.Name)); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	db, err := depgraph.OpenCoverageDB(e.CoverageDBPath())
	if err != nil {
		return fmt.Errorf("open coverage db: %w", err)
	}
	defer db.Close()
	inv, err := depgraph.QueryRoutines(ctx, db)
	if err != nil {
		return fmt.Errorf("query routines: %w", err)
	}
	routines[e.Name] = inv
	return nil
}

// multiEnvLookup resolves test outcomes by trying every impacted
// environment's results database in turn, since atg.Config.Lookup is a
// single value shared across the whole run rather than scoped per
// environment like baseline.Config's own Lookup field. Test names are
// unique within an environment, so the first hit wins.
type multiEnvLookup struct {
	lookups []tst.OutcomeLookup
}

func (m multiEnvLookup) Outcome(testName string) (tst.Outcome, bool) {
	for _, l := range m.lookups {
		if o, ok := l.Outcome(testName); ok {
			return o, true
		}
	}
	return tst.Outcome{}, false
}

// openResultLookup opens a read-only connection to every environment's
// results database and returns a combined lookup plus a closer for all
// of them.
func openResultLookup(envs []project.Environment) (multiEnvLookup, func(), error) {
	var dbs []*sql.DB
	var lookups []tst.OutcomeLookup
	closeAll := func() {
		for _, db := range dbs {
			db.Close()
		}
	}
	for _, e := range envs {
		db, err := baseline.OpenResultsDB(e.CoverageDBPath())
		if err != nil {
			closeAll()
			return multiEnvLookup{}, func() {}, err
		}
		dbs = append(dbs, db)
		lookups = append(lookups, baseline.DBOutcomeLookup{DB: db})
	}
	return multiEnvLookup{lookups: lookups}, closeAll, nil
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
