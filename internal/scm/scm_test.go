package scm

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}

func revParse(t *testing.T, dir, rev string) string {
	t.Helper()
	cmd := exec.Command("git", "rev-parse", rev)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git rev-parse %s: %v", rev, err)
	}
	return string(out[:len(out)-1])
}

func newFixtureRepo(t *testing.T) (dir string, before, after string) {
	t.Helper()
	dir = t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "test")

	mustWrite := func(name, content string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("unchanged.c", "unchanged\n")
	mustWrite("touched.c", "v1\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	before = revParse(t, dir, "HEAD")

	mustWrite("touched.c", "v2\n")
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "second")
	after = revParse(t, dir, "HEAD")

	return dir, before, after
}

func TestGitHookUnchangedFilesExcludesTouched(t *testing.T) {
	dir, before, after := newFixtureRepo(t)
	hook := GitHook{RepositoryPath: dir, Timeout: 5 * time.Second}

	unchanged, err := hook.UnchangedFiles(context.Background(), before, after)
	if err != nil {
		t.Fatalf("UnchangedFiles: %v", err)
	}
	if _, ok := unchanged["unchanged.c"]; !ok {
		t.Errorf("unchanged.c missing from unchanged set: %v", unchanged)
	}
	if _, ok := unchanged["touched.c"]; ok {
		t.Errorf("touched.c should not be in unchanged set: %v", unchanged)
	}
}

func TestGitHookRejectsRenameWithoutAllowMoves(t *testing.T) {
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "old.c"), []byte("body\n"), 0644); err != nil {
		t.Fatal(err)
	}
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-q", "-m", "initial")
	before := revParse(t, dir, "HEAD")

	runGit(t, dir, "mv", "old.c", "new.c")
	runGit(t, dir, "commit", "-q", "-m", "rename")
	after := revParse(t, dir, "HEAD")

	hook := GitHook{RepositoryPath: dir, Timeout: 5 * time.Second}
	if _, err := hook.UnchangedFiles(context.Background(), before, after); err == nil {
		t.Fatal("UnchangedFiles: expected error for unapproved rename, got nil")
	}

	hook.AllowMoves = true
	if _, err := hook.UnchangedFiles(context.Background(), before, after); err != nil {
		t.Fatalf("UnchangedFiles with AllowMoves: %v", err)
	}
}

func TestSplitRepoURL(t *testing.T) {
	owner, repo, err := splitRepoURL("https://github.com/vector-atg/atgdriver")
	if err != nil {
		t.Fatalf("splitRepoURL: %v", err)
	}
	if owner != "vector-atg" || repo != "atgdriver" {
		t.Errorf("splitRepoURL = %q, %q, want vector-atg, atgdriver", owner, repo)
	}
	if _, _, err := splitRepoURL("not-a-github-url"); err == nil {
		t.Error("splitRepoURL: expected error for malformed URL")
	}
}

func TestApplyLimit(t *testing.T) {
	unchanged := map[string]struct{}{"a": {}, "b": {}, "c": {}}
	if got := ApplyLimit(unchanged, 0); len(got) != 3 {
		t.Errorf("ApplyLimit with limit 0: got %d entries, want 3", len(got))
	}
	if got := ApplyLimit(unchanged, 2); got != nil {
		t.Errorf("ApplyLimit over limit: got %v, want nil", got)
	}
	if got := ApplyLimit(unchanged, 10); len(got) != 3 {
		t.Errorf("ApplyLimit under limit: got %d entries, want 3", len(got))
	}
}
