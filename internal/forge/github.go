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

package forge

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v69/github"
	"github.com/releasaurus/releasaurus/internal/types"
)

const (
	// PendingLabel marks a release PR awaiting merge.
	PendingLabel = "releasaurus:pending"
	// TaggedLabel marks a release PR whose packages have been tagged and
	// released.
	TaggedLabel = "releasaurus:tagged"
	// LabelColor is the forge label color used for both release labels.
	LabelColor = "a47dab"
)

// GitHub talks to the GitHub REST API via go-github, implementing Forge.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string

	defaultBranch string
}

// NewGitHub constructs a GitHub forge for owner/repo using accessToken.
// httpClient may be nil to use the default transport (tests inject a
// recorded transport here).
func NewGitHub(accessToken, owner, repo string, httpClient *http.Client) *GitHub {
	return &GitHub{
		client: github.NewClient(httpClient).WithAuthToken(accessToken),
		owner:  owner,
		repo:   repo,
	}
}

// ParseGitHubURL extracts owner/repo from a GitHub HTTPS repo URL.
func ParseGitHubURL(remoteURL string) (owner, repo string, err error) {
	if !strings.HasPrefix(remoteURL, "https://github.com/") {
		return "", "", &types.InvalidRepoURLError{URL: remoteURL, Reason: "not a github.com https URL"}
	}
	rest := strings.TrimPrefix(remoteURL, "https://github.com/")
	parts := strings.SplitN(strings.TrimSuffix(rest, ".git"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &types.InvalidRepoURLError{URL: remoteURL, Reason: "missing owner or repo segment"}
	}
	return parts[0], parts[1], nil
}

func (g *GitHub) RepoName(ctx context.Context) (string, error) {
	return fmt.Sprintf("%s/%s", g.owner, g.repo), nil
}

func (g *GitHub) WebURL(ctx context.Context) (commitBase, releaseBase string, err error) {
	root := fmt.Sprintf("https://github.com/%s/%s", g.owner, g.repo)
	return root + "/commit", root + "/releases/tag", nil
}

func (g *GitHub) DefaultBranch(ctx context.Context) (string, error) {
	if g.defaultBranch != "" {
		return g.defaultBranch, nil
	}
	repo, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		return "", &types.ForgeError{Op: "DefaultBranch", Cause: err}
	}
	g.defaultBranch = repo.GetDefaultBranch()
	return g.defaultBranch, nil
}

func (g *GitHub) GetLatestTagForPrefix(ctx context.Context, prefix string) (*types.Tag, error) {
	var best *types.Tag
	opts := &github.ListOptions{PerPage: 100}
	for {
		tags, resp, err := g.client.Repositories.ListTags(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, &types.ForgeError{Op: "GetLatestTagForPrefix", Cause: err}
		}
		for _, t := range tags {
			name := t.GetName()
			if !strings.HasPrefix(name, prefix) {
				continue
			}
			sv, err := parseSemverLoose(strings.TrimPrefix(name, prefix))
			if err != nil {
				continue
			}
			commit, _, err := g.client.Repositories.GetCommit(ctx, g.owner, g.repo, t.GetCommit().GetSHA(), nil)
			if err != nil {
				return nil, &types.ForgeError{Op: "GetLatestTagForPrefix", Cause: err}
			}
			ts := commit.GetCommit().GetCommitter().GetDate().Time
			candidate := &types.Tag{SHA: t.GetCommit().GetSHA(), Name: name, Semver: sv, Timestamp: &ts}
			if best == nil || ts.After(*best.Timestamp) {
				best = candidate
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return best, nil
}

func (g *GitHub) GetCommits(ctx context.Context, branch, sinceSHA string, depth int) ([]types.ForgeCommit, error) {
	if branch == "" {
		var err error
		branch, err = g.DefaultBranch(ctx)
		if err != nil {
			return nil, err
		}
	}
	var out []types.ForgeCommit
	opts := &github.CommitsListOptions{SHA: branch, ListOptions: github.ListOptions{PerPage: 100}}
	for {
		commits, resp, err := g.client.Repositories.ListCommits(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, &types.ForgeError{Op: "GetCommits", Cause: err}
		}
		for _, c := range commits {
			if sinceSHA != "" && c.GetSHA() == sinceSHA {
				return out, nil
			}
			full, _, err := g.client.Repositories.GetCommit(ctx, g.owner, g.repo, c.GetSHA(), nil)
			if err != nil {
				return nil, &types.ForgeError{Op: "GetCommits", Cause: err}
			}
			var paths []string
			for _, f := range full.Files {
				paths = append(paths, f.GetFilename())
			}
			out = append(out, types.ForgeCommit{
				SHA:          c.GetSHA(),
				Message:      c.GetCommit().GetMessage(),
				Author:       c.GetCommit().GetAuthor().GetName(),
				AuthorEmail:  c.GetCommit().GetAuthor().GetEmail(),
				Timestamp:    c.GetCommit().GetAuthor().GetDate().Time,
				ChangedPaths: paths,
				ParentCount:  len(c.Parents),
			})
			if depth > 0 && len(out) >= depth {
				return out, nil
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func (g *GitHub) GetFileContent(ctx context.Context, req GetFileRequest) (*string, error) {
	opts := &github.RepositoryContentGetOptions{Ref: req.Branch}
	fc, _, resp, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, req.Path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, &types.ForgeError{Op: "GetFileContent", Cause: err}
	}
	if fc == nil {
		return nil, nil
	}
	content, err := fc.GetContent()
	if err != nil {
		return nil, &types.ForgeError{Op: "GetFileContent", Cause: err}
	}
	return &content, nil
}

func (g *GitHub) CreateReleaseBranch(ctx context.Context, req CreateReleaseBranchRequest) (types.ForgeCommit, error) {
	baseRef, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, "refs/heads/"+req.BaseBranch)
	if err != nil {
		return types.ForgeCommit{}, &types.ForgeError{Op: "CreateReleaseBranch", Cause: err}
	}
	baseTreeSHA := baseRef.GetObject().GetSHA()

	var entries []*github.TreeEntry
	for _, fc := range req.FileChanges {
		content := fc.Content
		if fc.UpdateType == UpdatePrepend {
			existing, err := g.GetFileContent(ctx, GetFileRequest{Branch: req.BaseBranch, Path: fc.Path})
			if err != nil {
				return types.ForgeCommit{}, err
			}
			if existing != nil {
				content = fc.Content + *existing
			}
		}
		entries = append(entries, &github.TreeEntry{
			Path:    github.Ptr(fc.Path),
			Mode:    github.Ptr("100644"),
			Type:    github.Ptr("blob"),
			Content: github.Ptr(content),
		})
	}

	tree, _, err := g.client.Git.CreateTree(ctx, g.owner, g.repo, baseTreeSHA, entries)
	if err != nil {
		return types.ForgeCommit{}, &types.ForgeError{Op: "CreateReleaseBranch", Cause: err}
	}
	commit, _, err := g.client.Git.CreateCommit(ctx, g.owner, g.repo, &github.Commit{
		Message: github.Ptr(req.Message),
		Tree:    tree,
		Parents: []*github.Commit{{SHA: github.Ptr(baseRef.GetObject().GetSHA())}},
	}, nil)
	if err != nil {
		return types.ForgeCommit{}, &types.ForgeError{Op: "CreateReleaseBranch", Cause: err}
	}

	refName := "refs/heads/" + req.ReleaseBranch
	ref := &github.Reference{Ref: github.Ptr(refName), Object: &github.GitObject{SHA: commit.SHA}}
	if _, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, refName); err != nil {
		if _, _, err := g.client.Git.CreateRef(ctx, g.owner, g.repo, ref); err != nil {
			return types.ForgeCommit{}, &types.ForgeError{Op: "CreateReleaseBranch", Cause: err}
		}
	} else {
		if _, _, err := g.client.Git.UpdateRef(ctx, g.owner, g.repo, ref, true); err != nil {
			return types.ForgeCommit{}, &types.ForgeError{Op: "CreateReleaseBranch", Cause: err}
		}
	}

	return types.ForgeCommit{SHA: commit.GetSHA(), Message: req.Message}, nil
}

func (g *GitHub) findReleasePR(ctx context.Context, query ReleasePRQuery, state string) (*types.PullRequest, error) {
	q := fmt.Sprintf("repo:%s/%s is:pr label:%q state:%s head:%s base:%s",
		g.owner, g.repo, PendingLabel, state, query.HeadBranch, query.BaseBranch)
	result, _, err := g.client.Search.Issues(ctx, q, nil)
	if err != nil {
		return nil, &types.ForgeError{Op: "findReleasePR", Cause: err}
	}
	if len(result.Issues) > 1 {
		return nil, &types.MultipleReleasePRsError{HeadBranch: query.HeadBranch, BaseBranch: query.BaseBranch, Count: len(result.Issues)}
	}
	if len(result.Issues) == 0 {
		return nil, nil
	}
	pr, _, err := g.client.PullRequests.Get(ctx, g.owner, g.repo, result.Issues[0].GetNumber())
	if err != nil {
		return nil, &types.ForgeError{Op: "findReleasePR", Cause: err}
	}
	return toPullRequest(pr), nil
}

func (g *GitHub) GetOpenReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error) {
	return g.findReleasePR(ctx, query, "open")
}

func (g *GitHub) GetMergedReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error) {
	return g.findReleasePR(ctx, query, "closed")
}

func toPullRequest(pr *github.PullRequest) *types.PullRequest {
	sha := pr.GetHead().GetSHA()
	if pr.GetMerged() {
		sha = pr.GetMergeCommitSHA()
	}
	var labels []string
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}
	return &types.PullRequest{
		Number: pr.GetNumber(),
		SHA:    sha,
		Body:   pr.GetBody(),
		Labels: labels,
		Merged: pr.GetMerged(),
		Closed: pr.GetState() == "closed",
	}
}

func (g *GitHub) CreatePR(ctx context.Context, req CreatePRRequest) (*types.PullRequest, error) {
	pr, _, err := g.client.PullRequests.Create(ctx, g.owner, g.repo, &github.NewPullRequest{
		Title: github.Ptr(req.Title),
		Head:  github.Ptr(req.HeadBranch),
		Base:  github.Ptr(req.BaseBranch),
		Body:  github.Ptr(req.Body),
	})
	if err != nil {
		return nil, &types.ForgeError{Op: "CreatePR", Cause: err}
	}
	if len(req.Labels) > 0 {
		if err := g.ReplacePRLabels(ctx, pr.GetNumber(), req.Labels); err != nil {
			return nil, err
		}
	}
	return toPullRequest(pr), nil
}

func (g *GitHub) UpdatePR(ctx context.Context, req UpdatePRRequest) error {
	_, _, err := g.client.PullRequests.Edit(ctx, g.owner, g.repo, req.Number, &github.PullRequest{
		Title: github.Ptr(req.Title),
		Body:  github.Ptr(req.Body),
	})
	if err != nil {
		return &types.ForgeError{Op: "UpdatePR", Cause: err}
	}
	return nil
}

func (g *GitHub) ensureLabel(ctx context.Context, name string) error {
	_, resp, err := g.client.Issues.GetLabel(ctx, g.owner, g.repo, name)
	if err == nil {
		return nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return err
	}
	_, _, err = g.client.Issues.CreateLabel(ctx, g.owner, g.repo, &github.Label{
		Name:  github.Ptr(name),
		Color: github.Ptr(LabelColor),
	})
	return err
}

func (g *GitHub) ReplacePRLabels(ctx context.Context, number int, labels []string) error {
	for _, l := range labels {
		if l == PendingLabel || l == TaggedLabel {
			if err := g.ensureLabel(ctx, l); err != nil {
				return &types.ForgeError{Op: "ReplacePRLabels", Cause: err}
			}
		}
	}
	if _, _, err := g.client.Issues.ReplaceLabelsForIssue(ctx, g.owner, g.repo, number, labels); err != nil {
		return &types.ForgeError{Op: "ReplacePRLabels", Cause: err}
	}
	return nil
}

func (g *GitHub) TagCommit(ctx context.Context, tagName, sha string) error {
	refName := "refs/tags/" + tagName
	if existing, _, err := g.client.Git.GetRef(ctx, g.owner, g.repo, refName); err == nil {
		if existing.GetObject().GetSHA() == sha {
			return nil
		}
	}
	tagObj, _, err := g.client.Git.CreateTag(ctx, g.owner, g.repo, &github.Tag{
		Tag:     github.Ptr(tagName),
		Message: github.Ptr(tagName),
		Object:  &github.GitObject{SHA: github.Ptr(sha), Type: github.Ptr("commit")},
	})
	if err != nil {
		return &types.ForgeError{Op: "TagCommit", Cause: err}
	}
	_, _, err = g.client.Git.CreateRef(ctx, g.owner, g.repo, &github.Reference{
		Ref:    github.Ptr(refName),
		Object: &github.GitObject{SHA: tagObj.SHA},
	})
	if err != nil {
		return &types.ForgeError{Op: "TagCommit", Cause: err}
	}
	return nil
}

func (g *GitHub) CreateRelease(ctx context.Context, req CreateReleaseRequest) error {
	_, _, err := g.client.Repositories.CreateRelease(ctx, g.owner, g.repo, &github.RepositoryRelease{
		TagName:         github.Ptr(req.TagName),
		TargetCommitish: github.Ptr(req.SHA),
		Name:            github.Ptr(req.Name),
		Body:            github.Ptr(req.Notes),
	})
	if err != nil {
		return &types.ForgeError{Op: "CreateRelease", Cause: err}
	}
	return nil
}

func (g *GitHub) GetReleaseByTag(ctx context.Context, tagName string) (*types.Release, error) {
	rel, resp, err := g.client.Repositories.GetReleaseByTag(ctx, g.owner, g.repo, tagName)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, &types.ForgeError{Op: "GetReleaseByTag", Cause: err}
	}
	return &types.Release{
		Notes: rel.GetBody(),
		SHA:   rel.GetTargetCommitish(),
	}, nil
}
