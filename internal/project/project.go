package project

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/vector-atg/atgdriver/internal/exec2"
	"github.com/vector-atg/atgdriver/internal/logging"
	"github.com/vector-atg/atgdriver/internal/runner"
	"github.com/vector-atg/atgdriver/internal/toolcmd"
)

// ConfigFileName is the per-environment configuration file the
// co-location filter looks for beside a *.env rebuild script (§4.3b).
const ConfigFileName = "env.cfg"

// CompileFlagsKey is the documented flag key read out of an
// environment's configuration file (§4.8 Stage A).
const CompileFlagsKey = "TU_COMPILE_FLAGS"

// Builder drives the Project Builder's process() pipeline.
type Builder struct {
	ProjectFile   string // the test project's container file
	BuildCommand  []string
	CompilerLevel string // optional named compiler level
	Clicast       string // path to the tool's clicast binary, for per-env rebuilds
	SkipBuild     bool
	AllowBroken   bool
	Timeout       time.Duration
	Pool          *exec2.Pool
	Log           *logging.Logger
}

// Process runs §4.3's sequence a/b/c and returns the environments that
// are valid. Any invalid environment is a fatal error unless
// AllowBroken is set, in which case invalid environments are logged and
// left out of the result.
func (b *Builder) Process(ctx context.Context) ([]Environment, error) {
	if !b.SkipBuild {
		if err := b.attachAndBuild(ctx); err != nil {
			return nil, xerrors.Errorf("project: build: %w", err)
		}
	}

	buildTree := filepath.Dir(b.ProjectFile)
	if _, err := os.Stat(buildTree); err != nil {
		return nil, xerrors.Errorf("project: build tree %s missing after build: %w", buildTree, err)
	}

	envs, err := discoverEnvironments(buildTree)
	if err != nil {
		return nil, xerrors.Errorf("project: discover environments: %w", err)
	}

	results := make([]envResult, len(envs))
	if b.Pool != nil {
		items := make([]interface{}, len(envs))
		for i := range envs {
			items[i] = i
		}
		err := exec2.RunParallel(ctx, b.Pool, items, func(ctx context.Context, item interface{}) error {
			i := item.(int)
			results[i] = b.buildOrValidate(ctx, envs[i])
			return nil
		})
		if err != nil {
			return nil, xerrors.Errorf("project: build/validate environments: %w", err)
		}
	} else {
		for i := range envs {
			results[i] = b.buildOrValidate(ctx, envs[i])
		}
	}

	var valid []Environment
	var invalid []string
	for _, r := range results {
		if r.valid {
			valid = append(valid, r.env)
		} else {
			invalid = append(invalid, r.env.Name)
		}
	}
	if len(invalid) > 0 {
		if !b.AllowBroken {
			return nil, xerrors.Errorf("project: invalid environments %v (allow_broken_environments is false)", invalid)
		}
		if b.Log != nil {
			b.Log.Printf("excluding invalid environments: %v", invalid)
		}
	}
	return valid, nil
}

type envResult struct {
	env   Environment
	valid bool
}

// attachAndBuild implements §4.3a: write a transient build-trigger file
// referenced by the project's build step, invoke the tool's build
// command, then remove the trigger — the defer-cleaned temp file
// distri's autobuilder uses for its own stamp/trigger files.
func (b *Builder) attachAndBuild(ctx context.Context) error {
	trigger, err := os.CreateTemp("", "atgdriver-build-*.trigger")
	if err != nil {
		return xerrors.Errorf("create build trigger: %w", err)
	}
	triggerPath := trigger.Name()
	trigger.Close()
	defer os.Remove(triggerPath)

	argv := append([]string{}, b.BuildCommand...)
	if b.CompilerLevel != "" {
		argv = append(argv, "--compiler_level="+b.CompilerLevel)
	}
	argv = append(argv, "--build_trigger="+triggerPath)

	res, err := runner.Run(ctx, argv, runner.Options{Cwd: filepath.Dir(b.ProjectFile), Timeout: b.Timeout})
	if err != nil {
		return xerrors.Errorf("invoke build command: %w", err)
	}

	rec := buildRecord{
		Command:       argv,
		CompilerLevel: b.CompilerLevel,
		Elapsed:       res.Elapsed,
		Succeeded:     res.ExitCode == 0,
	}
	if err := writeBuildRecord(filepath.Dir(b.ProjectFile), rec); err != nil && b.Log != nil {
		b.Log.Errorf("writing build record: %v", err)
	}

	if missingLicense(res.Stderr) {
		return xerrors.New("missing license?")
	}
	if res.ExitCode != 0 {
		return xerrors.Errorf("build command exited %d: %s", res.ExitCode, res.Stderr)
	}
	return nil
}

func missingLicense(stderr string) bool {
	return strings.Contains(strings.ToLower(stderr), "license")
}

// discoverEnvironments walks the build tree collecting every *.env file
// that is co-located with ConfigFileName — the mandatory filter that
// excludes the archive directory, which contains *.env scripts but no
// configuration file (§4.3b).
func discoverEnvironments(buildTree string) ([]Environment, error) {
	var envs []Environment
	err := filepath.WalkDir(buildTree, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".env") {
			return nil
		}
		dir := filepath.Dir(path)
		cfg := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(cfg); err != nil {
			return nil // no co-located config: not a real environment
		}
		envs = append(envs, Environment{
			Name:          strings.TrimSuffix(filepath.Base(path), ".env"),
			BuildLocation: dir,
			EnvFile:       path,
			ConfigFile:    cfg,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return envs, nil
}

// buildOrValidate implements §4.3c: either run the environment's
// rebuild script through the tool's clicast binary (building it from
// scratch) or, under skip-build, verify it already meets the validity
// predicate.
func (b *Builder) buildOrValidate(ctx context.Context, e Environment) envResult {
	if b.SkipBuild {
		return envResult{env: e, valid: e.Valid(true)}
	}
	res, err := runner.Run(ctx, toolcmd.Rebuild(b.Clicast, e.Name), runner.Options{Cwd: e.BuildLocation, Timeout: b.Timeout})
	if err != nil {
		if b.Log != nil {
			b.Log.Errorf("rebuild %s: %v", e.Name, err)
		}
		return envResult{env: e, valid: false}
	}
	return envResult{env: e, valid: e.Valid(res.ExitCode == 0)}
}

// CompileFlags reads CompileFlagsKey out of e's configuration file: the
// first line starting with that key, per §4.8 Stage A.
func CompileFlags(e Environment) (string, error) {
	data, err := os.ReadFile(e.ConfigFile)
	if err != nil {
		return "", fmt.Errorf("project: read config %s: %w", e.ConfigFile, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, CompileFlagsKey) {
			_, v, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			return strings.TrimSpace(v), nil
		}
	}
	return "", nil
}
