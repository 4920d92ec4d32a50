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

// Package forge defines the uniform capability the release pipeline drives
// against a hosted Git platform (GitHub, GitLab, Gitea, or a local
// offline repo), plus a dry-run decorator that short-circuits mutations.
package forge

import (
	"context"

	"github.com/releasaurus/releasaurus/internal/types"
)

// FileChangeRequest is one file mutation bundled into CreateReleaseBranch's
// atomic commit.
type FileChangeRequest struct {
	Path       string
	Content    string
	UpdateType UpdateType
}

// UpdateType selects how a file's content is applied.
type UpdateType int

const (
	// UpdateReplace overwrites the file entirely.
	UpdateReplace UpdateType = iota
	// UpdatePrepend prepends content ahead of the file's existing body.
	UpdatePrepend
)

// CreateReleaseBranchRequest carries every input for an atomic release
// branch commit, spec.md §4.1.
type CreateReleaseBranchRequest struct {
	BaseBranch    string
	ReleaseBranch string
	Message       string
	FileChanges   []FileChangeRequest
}

// GetFileRequest identifies a single file read at a ref.
type GetFileRequest struct {
	Branch string
	Path   string
}

// ReleasePRQuery identifies the head/base branch tuple a release PR search
// is scoped to.
type ReleasePRQuery struct {
	HeadBranch string
	BaseBranch string
}

// CreatePRRequest carries the inputs to open a new pull request.
type CreatePRRequest struct {
	HeadBranch string
	BaseBranch string
	Title      string
	Body       string
	Labels     []string
}

// UpdatePRRequest carries the inputs to refresh an existing pull request's
// title and body in place.
type UpdatePRRequest struct {
	Number int
	Title  string
	Body   string
}

// CreateReleaseRequest carries the inputs to publish a forge release.
type CreateReleaseRequest struct {
	TagName string
	SHA     string
	Name    string
	Notes   string
}

// Forge is the uniform capability spec.md §4.1 defines: every operation the
// release pipeline needs against a hosted Git platform, normalized to
// plain structs so the orchestrator never branches on provider.
type Forge interface {
	// RepoName returns the "owner/name" (or namespace/project) identity of
	// the configured repository. Cached after first call.
	RepoName(ctx context.Context) (string, error)
	// DefaultBranch returns the repository's default branch. Cached after
	// first call.
	DefaultBranch(ctx context.Context) (string, error)

	// GetLatestTagForPrefix enumerates tags, filters by the prefix, parses
	// the remainder as semver, and returns the one with the latest commit
	// timestamp (not the latest semver). Returns (nil, nil) when no tag
	// matches.
	GetLatestTagForPrefix(ctx context.Context, prefix string) (*types.Tag, error)

	// GetCommits walks branch (or the default branch, if empty) backwards
	// from its head, stopping at sinceSHA (exclusive) or at depth commits,
	// whichever comes first. Each commit's changed file paths are
	// populated. depth <= 0 means "no depth bound, rely on sinceSHA".
	GetCommits(ctx context.Context, branch, sinceSHA string, depth int) ([]types.ForgeCommit, error)

	// GetFileContent reads a file at a ref. A missing file returns
	// (nil, nil), not an error.
	GetFileContent(ctx context.Context, req GetFileRequest) (*string, error)

	// CreateReleaseBranch atomically creates (or force-updates) a branch
	// from BaseBranch carrying every FileChange as one commit.
	CreateReleaseBranch(ctx context.Context, req CreateReleaseBranchRequest) (types.ForgeCommit, error)

	// GetOpenReleasePR finds the open pull request carrying the
	// "releasaurus:pending" label on the given branch tuple. Returns
	// (nil, nil) if none exists; a MultipleReleasePRsError if more than
	// one matches.
	GetOpenReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error)

	// GetMergedReleasePR finds the closed (merged) pull request
	// carrying the "releasaurus:pending" label on the given branch
	// tuple. Returns (nil, nil) if none exists; a MultipleReleasePRsError
	// if more than one matches.
	GetMergedReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error)

	// CreatePR opens a new pull request and returns its normalized form.
	CreatePR(ctx context.Context, req CreatePRRequest) (*types.PullRequest, error)

	// UpdatePR refreshes an existing pull request's title and body.
	UpdatePR(ctx context.Context, req UpdatePRRequest) error

	// ReplacePRLabels sets the pull request's labels to exactly the given
	// set, creating any missing labels (color #a47dab) as needed.
	ReplacePRLabels(ctx context.Context, number int, labels []string) error

	// TagCommit creates (or, if it already points at sha, no-ops) a tag
	// named tagName at sha.
	TagCommit(ctx context.Context, tagName, sha string) error

	// CreateRelease publishes a forge release for an existing tag.
	CreateRelease(ctx context.Context, req CreateReleaseRequest) error

	// GetReleaseByTag looks up a published release by tag name. A missing
	// release returns (nil, nil), not an error.
	GetReleaseByTag(ctx context.Context, tagName string) (*types.Release, error)

	// WebURL returns the browsable link bases the changelog analyzer
	// appends a commit SHA or tag name to (e.g.
	// "https://github.com/owner/repo/commit",
	// ".../releases/tag"). A forge with no web presence (Local) returns
	// two empty strings.
	WebURL(ctx context.Context) (commitBase, releaseBase string, err error)
}
