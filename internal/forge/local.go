// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package forge's Local implementation drives an on-disk git repository
// directly via go-git instead of a forge's REST API, mirroring
// original_source/src/forge/local.rs (the original project's own
// offline/no-network forge) and grounded on internal/gitrepo/gitrepo.go's
// go-git usage (CloneOrOpen, Commit with a fixed author signature,
// PushBranch's refspec construction, GetCommitsForPath's tree-hash-diff
// filtering). Local never talks to a PR API: release PRs and labels are
// modeled as no-ops, since there is no forge to host them.
package forge

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/releasaurus/releasaurus/internal/types"
)

// releasaurusSignature is the commit author used for every release-branch
// commit created locally.
var releasaurusSignature = object.Signature{
	Name:  "releasaurus",
	Email: "releasaurus@localhost",
}

// Local implements Forge directly against a go-git repository on disk. It
// has no PR/label concept: GetOpenReleasePR/GetMergedReleasePR always
// return nil, and ReplacePRLabels/CreatePR/UpdatePR are no-ops that return
// zero values. Since no merged release PR is ever found, the orchestrator's
// release phase tags and publishes nothing against Local; TagCommit and
// CreateRelease work when called directly.
type Local struct {
	repo *git.Repository
	dir  string

	defaultBranch string
}

// OpenLocal opens an existing repository at dir.
func OpenLocal(dir string) (*Local, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("opening local repository at %s: %w", dir, err)
	}
	return &Local{repo: repo, dir: dir}, nil
}

func (l *Local) RepoName(ctx context.Context) (string, error) {
	return filepath.Base(l.dir), nil
}

// WebURL returns empty link bases: a local on-disk repository has no web
// presence to link commits or releases against.
func (l *Local) WebURL(ctx context.Context) (commitBase, releaseBase string, err error) {
	return "", "", nil
}

func (l *Local) DefaultBranch(ctx context.Context) (string, error) {
	if l.defaultBranch != "" {
		return l.defaultBranch, nil
	}
	head, err := l.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	l.defaultBranch = head.Name().Short()
	return l.defaultBranch, nil
}

func (l *Local) GetLatestTagForPrefix(ctx context.Context, prefix string) (*types.Tag, error) {
	tagRefs, err := l.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	var best *types.Tag
	err = tagRefs.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		sv, err := parseSemverLoose(strings.TrimPrefix(name, prefix))
		if err != nil {
			return nil
		}
		commit, err := l.repo.CommitObject(ref.Hash())
		if err != nil {
			// Annotated tag: resolve the tag object to its target commit.
			tagObj, tErr := l.repo.TagObject(ref.Hash())
			if tErr != nil {
				return nil
			}
			commit, err = tagObj.Commit()
			if err != nil {
				return nil
			}
		}
		ts := commit.Committer.When
		if best == nil || ts.After(*best.Timestamp) {
			best = &types.Tag{SHA: commit.Hash.String(), Name: name, Semver: sv, Timestamp: &ts}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return best, nil
}

func (l *Local) GetCommits(ctx context.Context, branch, sinceSHA string, depth int) ([]types.ForgeCommit, error) {
	var from plumbing.Hash
	if branch == "" {
		head, err := l.repo.Head()
		if err != nil {
			return nil, fmt.Errorf("resolving HEAD: %w", err)
		}
		from = head.Hash()
	} else {
		ref, err := l.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
		if err != nil {
			return nil, fmt.Errorf("resolving branch %s: %w", branch, err)
		}
		from = ref.Hash()
	}

	logIter, err := l.repo.Log(&git.LogOptions{From: from, Order: git.LogOrderCommitterTime})
	if err != nil {
		return nil, fmt.Errorf("walking commit log: %w", err)
	}
	var out []types.ForgeCommit
	errStop := fmt.Errorf("stop iterating")
	err = logIter.ForEach(func(c *object.Commit) error {
		if sinceSHA != "" && c.Hash.String() == sinceSHA {
			return errStop
		}
		paths, err := changedPaths(c)
		if err != nil {
			return err
		}
		out = append(out, types.ForgeCommit{
			SHA:          c.Hash.String(),
			Message:      c.Message,
			Author:       c.Author.Name,
			AuthorEmail:  c.Author.Email,
			Timestamp:    c.Author.When,
			ChangedPaths: paths,
			ParentCount:  c.NumParents(),
		})
		if depth > 0 && len(out) >= depth {
			return errStop
		}
		return nil
	})
	if err != nil && err != errStop {
		return nil, err
	}
	return out, nil
}

// changedPaths diffs a commit's tree against its first parent's tree (or
// enumerates the whole tree for a root commit), following
// GetCommitsForPath's tree-hash-diff approach generalized from a single
// path to the full changed-file set.
func changedPaths(c *object.Commit) ([]string, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	if c.NumParents() == 0 {
		var paths []string
		err := tree.Files().ForEach(func(f *object.File) error {
			paths = append(paths, f.Name)
			return nil
		})
		return paths, err
	}
	parent, err := c.Parent(0)
	if err != nil {
		return nil, err
	}
	parentTree, err := parent.Tree()
	if err != nil {
		return nil, err
	}
	changes, err := parentTree.Diff(tree)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, change := range changes {
		if change.To.Name != "" {
			paths = append(paths, change.To.Name)
		} else {
			paths = append(paths, change.From.Name)
		}
	}
	return paths, nil
}

func (l *Local) GetFileContent(ctx context.Context, req GetFileRequest) (*string, error) {
	ref, err := l.resolveRef(req.Branch)
	if err != nil {
		return nil, err
	}
	commit, err := l.repo.CommitObject(ref)
	if err != nil {
		return nil, fmt.Errorf("resolving commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	f, err := tree.File(req.Path)
	if err != nil {
		return nil, nil
	}
	content, err := f.Contents()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", req.Path, err)
	}
	return &content, nil
}

func (l *Local) resolveRef(branch string) (plumbing.Hash, error) {
	if branch == "" {
		head, err := l.repo.Head()
		if err != nil {
			return plumbing.ZeroHash, err
		}
		return head.Hash(), nil
	}
	ref, err := l.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving branch %s: %w", branch, err)
	}
	return ref.Hash(), nil
}

// CreateReleaseBranch checks out BaseBranch into a new (or reset)
// ReleaseBranch, writes every FileChange to the worktree, and commits them
// all as one commit under releasaurusSignature.
func (l *Local) CreateReleaseBranch(ctx context.Context, req CreateReleaseBranchRequest) (types.ForgeCommit, error) {
	baseHash, err := l.resolveRef(req.BaseBranch)
	if err != nil {
		return types.ForgeCommit{}, err
	}

	branchRef := plumbing.NewBranchReferenceName(req.ReleaseBranch)
	if err := l.repo.Storer.SetReference(plumbing.NewHashReference(branchRef, baseHash)); err != nil {
		return types.ForgeCommit{}, fmt.Errorf("creating release branch ref: %w", err)
	}

	wt, err := l.repo.Worktree()
	if err != nil {
		return types.ForgeCommit{}, err
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
		return types.ForgeCommit{}, fmt.Errorf("checking out release branch: %w", err)
	}

	for _, fc := range req.FileChanges {
		content := fc.Content
		if fc.UpdateType == UpdatePrepend {
			existing, err := l.GetFileContent(ctx, GetFileRequest{Branch: req.ReleaseBranch, Path: fc.Path})
			if err != nil {
				return types.ForgeCommit{}, err
			}
			if existing != nil {
				content = fc.Content + *existing
			}
		}
		fullPath := filepath.Join(l.dir, fc.Path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
			return types.ForgeCommit{}, err
		}
		if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
			return types.ForgeCommit{}, fmt.Errorf("writing %s: %w", fc.Path, err)
		}
		if _, err := wt.Add(fc.Path); err != nil {
			return types.ForgeCommit{}, fmt.Errorf("staging %s: %w", fc.Path, err)
		}
	}

	sig := releasaurusSignature
	sig.When = nowFunc()
	hash, err := wt.Commit(req.Message, &git.CommitOptions{Author: &sig})
	if err != nil {
		return types.ForgeCommit{}, fmt.Errorf("committing release branch: %w", err)
	}
	return types.ForgeCommit{SHA: hash.String(), Message: req.Message}, nil
}

// nowFunc is a seam for deterministic tests.
var nowFunc = time.Now

// GetOpenReleasePR, GetMergedReleasePR, CreatePR, UpdatePR and
// ReplacePRLabels are no-ops for Local: there is no PR API to query.
// With GetMergedReleasePR always nil, release.Orchestrator.Release finds
// no merged release PR and tags or publishes nothing for a Local forge.
func (l *Local) GetOpenReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error) {
	return nil, nil
}

func (l *Local) GetMergedReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error) {
	return nil, nil
}

func (l *Local) CreatePR(ctx context.Context, req CreatePRRequest) (*types.PullRequest, error) {
	return &types.PullRequest{Number: 0, SHA: "", Body: req.Body, Labels: req.Labels}, nil
}

func (l *Local) UpdatePR(ctx context.Context, req UpdatePRRequest) error {
	return nil
}

func (l *Local) ReplacePRLabels(ctx context.Context, number int, labels []string) error {
	return nil
}

func (l *Local) TagCommit(ctx context.Context, tagName, sha string) error {
	hash := plumbing.NewHash(sha)
	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(tagName), hash)
	if err := l.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("creating tag %s: %w", tagName, err)
	}
	return nil
}

// CreateRelease records the release under .git/releasaurus-releases/<tag>
// as a simple notes file, since a bare local repository has no release
// store of its own.
func (l *Local) CreateRelease(ctx context.Context, req CreateReleaseRequest) error {
	dir := filepath.Join(l.dir, ".git", "releasaurus-releases")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, req.TagName+".md"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# %s\n\n%s\n", req.Name, req.Notes)
	return w.Flush()
}

func (l *Local) GetReleaseByTag(ctx context.Context, tagName string) (*types.Release, error) {
	path := filepath.Join(l.dir, ".git", "releasaurus-releases", tagName+".md")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &types.Release{Notes: string(data)}, nil
}
