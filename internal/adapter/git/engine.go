// Package git computes review diffs from a local repository, backing the
// local review mode that runs without a GitHub PR.
package git

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// Engine reads diffs out of a local repository with go-git.
type Engine struct {
	repoDir string
}

// NewEngine constructs an engine for the provided repository directory.
func NewEngine(repoDir string) *Engine {
	return &Engine{repoDir: repoDir}
}

// ReviewContext builds a review context from the diff between two refs. The
// target ref's commit becomes the head SHA; targetRef may be "HEAD".
func (e *Engine) ReviewContext(ctx context.Context, repository, baseRef, targetRef string) (domain.ReviewContext, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return domain.ReviewContext{}, fmt.Errorf("open repo: %w", err)
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return domain.ReviewContext{}, fmt.Errorf("resolve base ref %q: %w", baseRef, err)
	}
	targetCommit, err := resolveCommit(repo, targetRef)
	if err != nil {
		return domain.ReviewContext{}, fmt.Errorf("resolve target ref %q: %w", targetRef, err)
	}

	patch, err := baseCommit.PatchContext(ctx, targetCommit)
	if err != nil {
		return domain.ReviewContext{}, fmt.Errorf("compute patch: %w", err)
	}

	diff := domain.Diff{}
	for _, fp := range patch.FilePatches() {
		fd, err := toFileDiff(fp)
		if err != nil {
			return domain.ReviewContext{}, err
		}
		diff.Files = append(diff.Files, fd)
	}

	return domain.ReviewContext{
		Repository: repository,
		Title:      strings.SplitN(targetCommit.Message, "\n", 2)[0],
		HeadSHA:    targetCommit.Hash.String(),
		Diff:       diff,
	}, nil
}

// CurrentBranch returns the name of the checked-out branch.
func (e *Engine) CurrentBranch() (string, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("open repo: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	if name := head.Name(); name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

// resolveCommit tries the ref as given, then as a local branch, then as an
// origin remote branch.
func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		hash, err := repo.ResolveRevision(plumbing.Revision(candidate))
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	return nil, lastErr
}

func toFileDiff(fp formatdiff.FilePatch) (domain.FileDiff, error) {
	path, status := pathAndStatus(fp)

	var patchText string
	if !fp.IsBinary() {
		var buf bytes.Buffer
		encoder := formatdiff.NewUnifiedEncoder(&buf, formatdiff.DefaultContextLines)
		if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
			return domain.FileDiff{}, fmt.Errorf("encode patch for %s: %w", path, err)
		}
		patchText = buf.String()
	}

	additions, deletions := countChanges(fp)
	return domain.FileDiff{
		Path:      path,
		Status:    status,
		Patch:     patchText,
		Additions: additions,
		Deletions: deletions,
	}, nil
}

// pathAndStatus maps a file patch to the diff path and change kind. Renames
// report the new path as modified.
func pathAndStatus(fp formatdiff.FilePatch) (string, domain.FileStatus) {
	from, to := fp.Files()
	switch {
	case from == nil && to != nil:
		return to.Path(), domain.FileAdded
	case from != nil && to == nil:
		return from.Path(), domain.FileRemoved
	case from != nil && to != nil:
		return to.Path(), domain.FileModified
	default:
		return "", domain.FileModified
	}
}

func countChanges(fp formatdiff.FilePatch) (additions, deletions int) {
	for _, chunk := range fp.Chunks() {
		lines := strings.Count(chunk.Content(), "\n")
		if !strings.HasSuffix(chunk.Content(), "\n") && chunk.Content() != "" {
			lines++
		}
		switch chunk.Type() {
		case formatdiff.Add:
			additions += lines
		case formatdiff.Delete:
			deletions += lines
		}
	}
	return additions, deletions
}

type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string { return "" }
