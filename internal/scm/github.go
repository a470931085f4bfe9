package scm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v27/github"
	"golang.org/x/oauth2"
)

// GitHubHook computes the unchanged-file set via the GitHub API's
// compare and git-tree endpoints, for projects whose repository_path is
// a shallow or absent local checkout — adopted from
// cmd/autobuilder/autobuilder.go's oauth2.StaticTokenSource +
// github.NewClient construction.
type GitHubHook struct {
	Owner, Repo string
	Client      *github.Client
	AllowMoves  bool
}

// NewGitHubHook builds a GitHubHook for repoURL (an "https://github.com/
// owner/repo"-shaped URL), authenticated with accessToken.
func NewGitHubHook(ctx context.Context, repoURL, accessToken string, allowMoves bool) (GitHubHook, error) {
	owner, repo, err := splitRepoURL(repoURL)
	if err != nil {
		return GitHubHook{}, err
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	tc := oauth2.NewClient(ctx, ts)
	return GitHubHook{Owner: owner, Repo: repo, Client: github.NewClient(tc), AllowMoves: allowMoves}, nil
}

func splitRepoURL(repoURL string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimPrefix(repoURL, "https://github.com/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("scm: %q is not an https://github.com/<owner>/<repo> URL", repoURL)
	}
	return parts[0], parts[1], nil
}

// UnchangedFiles compares before..after via the GitHub compare API for
// the touched-file set, and walks the recursive git tree at after for
// the full file list, returning the files neither added to nor touched
// by the comparison.
func (h GitHubHook) UnchangedFiles(ctx context.Context, before, after string) (map[string]struct{}, error) {
	cmp, _, err := h.Client.Repositories.CompareCommits(ctx, h.Owner, h.Repo, before, after)
	if err != nil {
		return nil, fmt.Errorf("scm: compare %s..%s: %w", before, after, err)
	}

	touched := make(map[string]struct{})
	for _, f := range cmp.Files {
		if f.GetStatus() == "renamed" {
			if !h.AllowMoves {
				return nil, fmt.Errorf("scm: rename detected (%s -> %s) and allow_moves is not set",
					f.GetPreviousFilename(), f.GetFilename())
			}
			touched[f.GetPreviousFilename()] = struct{}{}
		}
		touched[f.GetFilename()] = struct{}{}
	}

	tree, _, err := h.Client.Git.GetTree(ctx, h.Owner, h.Repo, after, true)
	if err != nil {
		return nil, fmt.Errorf("scm: get tree %s: %w", after, err)
	}

	unchanged := make(map[string]struct{})
	for _, e := range tree.Entries {
		if e.GetType() != "blob" {
			continue
		}
		if _, ok := touched[e.GetPath()]; !ok {
			unchanged[e.GetPath()] = struct{}{}
		}
	}
	return unchanged, nil
}
