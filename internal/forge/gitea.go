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

// Gitea, like GitLab, has no SDK anywhere in the retrieved pack. This
// client follows the same plain net/http + encoding/json shape as
// gitlab.go, with endpoint/payload shapes taken from
// original_source/src/forge/gitea.rs (this system's own original Gitea
// client): numeric label IDs requiring a name->ID lookup, and
// commits/tags/pulls nested under /repos/{owner}/{repo}.
package forge

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/releasaurus/releasaurus/internal/types"
)

// Gitea talks to a Gitea instance's REST API.
type Gitea struct {
	httpClient *authClient
	apiBaseURL string // e.g. https://gitea.example.com/api/v1
	owner      string
	repo       string

	defaultBranch string
	labelIDs      map[string]int64
}

// NewGitea constructs a Gitea forge for owner/repo against apiBaseURL
// (the instance's "/api/v1" root).
func NewGitea(httpClient *http.Client, apiBaseURL, accessToken, owner, repo string) *Gitea {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Gitea{
		httpClient: &authClient{base: httpClient, header: "Authorization", token: "token " + accessToken},
		apiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		owner:      owner,
		repo:       repo,
		labelIDs:   map[string]int64{},
	}
}

func (g *Gitea) do(ctx context.Context, method, path string, body any, out any) (*http.Response, error) {
	return doJSON(ctx, g.httpClient, g.apiBaseURL, method, path, body, out)
}

func (g *Gitea) repoPath() string {
	return fmt.Sprintf("/repos/%s/%s", g.owner, g.repo)
}

func (g *Gitea) RepoName(ctx context.Context) (string, error) {
	return fmt.Sprintf("%s/%s", g.owner, g.repo), nil
}

// WebURL derives the instance's web root by stripping the "/api/v1" API
// suffix from apiBaseURL.
func (g *Gitea) WebURL(ctx context.Context) (commitBase, releaseBase string, err error) {
	webRoot := strings.TrimSuffix(g.apiBaseURL, "/api/v1")
	root := fmt.Sprintf("%s/%s/%s", webRoot, g.owner, g.repo)
	return root + "/commit", root + "/releases/tag", nil
}

type giteaRepo struct {
	DefaultBranch string `json:"default_branch"`
}

func (g *Gitea) DefaultBranch(ctx context.Context) (string, error) {
	if g.defaultBranch != "" {
		return g.defaultBranch, nil
	}
	var r giteaRepo
	if _, err := g.do(ctx, http.MethodGet, g.repoPath(), nil, &r); err != nil {
		return "", &types.ForgeError{Op: "DefaultBranch", Cause: err}
	}
	g.defaultBranch = r.DefaultBranch
	return g.defaultBranch, nil
}

type giteaTag struct {
	Name   string `json:"name"`
	Commit struct {
		SHA     string `json:"sha"`
		Created string `json:"created"`
	} `json:"commit"`
}

func (g *Gitea) GetLatestTagForPrefix(ctx context.Context, prefix string) (*types.Tag, error) {
	var best *types.Tag
	page := 1
	for {
		var tags []giteaTag
		path := fmt.Sprintf("%s/tags?page=%d&limit=50", g.repoPath(), page)
		if _, err := g.do(ctx, http.MethodGet, path, nil, &tags); err != nil {
			return nil, &types.ForgeError{Op: "GetLatestTagForPrefix", Cause: err}
		}
		if len(tags) == 0 {
			break
		}
		for _, t := range tags {
			if !strings.HasPrefix(t.Name, prefix) {
				continue
			}
			sv, err := parseSemverLoose(strings.TrimPrefix(t.Name, prefix))
			if err != nil {
				continue
			}
			ts, err := time.Parse(time.RFC3339, t.Commit.Created)
			if err != nil {
				continue
			}
			if best == nil || ts.After(*best.Timestamp) {
				best = &types.Tag{SHA: t.Commit.SHA, Name: t.Name, Semver: sv, Timestamp: &ts}
			}
		}
		page++
	}
	return best, nil
}

type giteaCommit struct {
	SHA     string `json:"sha"`
	Created string `json:"created"`
	Commit  struct {
		Author struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"author"`
		Message string `json:"message"`
	} `json:"commit"`
	Files []struct {
		Filename string `json:"filename"`
	} `json:"files"`
	Parents []struct{} `json:"parents"`
}

func (g *Gitea) GetCommits(ctx context.Context, branch, sinceSHA string, depth int) ([]types.ForgeCommit, error) {
	if branch == "" {
		var err error
		branch, err = g.DefaultBranch(ctx)
		if err != nil {
			return nil, err
		}
	}
	var out []types.ForgeCommit
	page := 1
	for {
		var commits []giteaCommit
		path := fmt.Sprintf("%s/commits?sha=%s&stat=true&files=true&page=%d&limit=50",
			g.repoPath(), url.QueryEscape(branch), page)
		if _, err := g.do(ctx, http.MethodGet, path, nil, &commits); err != nil {
			return nil, &types.ForgeError{Op: "GetCommits", Cause: err}
		}
		if len(commits) == 0 {
			break
		}
		for _, c := range commits {
			if sinceSHA != "" && c.SHA == sinceSHA {
				return out, nil
			}
			ts, _ := time.Parse(time.RFC3339, c.Created)
			var paths []string
			for _, f := range c.Files {
				paths = append(paths, f.Filename)
			}
			out = append(out, types.ForgeCommit{
				SHA:          c.SHA,
				Message:      c.Commit.Message,
				Author:       c.Commit.Author.Name,
				AuthorEmail:  c.Commit.Author.Email,
				Timestamp:    ts,
				ChangedPaths: paths,
				ParentCount:  len(c.Parents),
			})
			if depth > 0 && len(out) >= depth {
				return out, nil
			}
		}
		page++
	}
	return out, nil
}

type giteaContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (g *Gitea) GetFileContent(ctx context.Context, req GetFileRequest) (*string, error) {
	path := fmt.Sprintf("%s/contents/%s?ref=%s", g.repoPath(), url.PathEscape(req.Path), url.QueryEscape(req.Branch))
	var c giteaContent
	resp, err := g.do(ctx, http.MethodGet, path, nil, &c)
	if err != nil {
		return nil, &types.ForgeError{Op: "GetFileContent", Cause: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if c.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(c.Content)
		if err != nil {
			return nil, &types.ForgeError{Op: "GetFileContent", Cause: err}
		}
		s := string(decoded)
		return &s, nil
	}
	return &c.Content, nil
}

type giteaFileUpdate struct {
	Content string `json:"content"`
	Message string `json:"message"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// CreateReleaseBranch creates the release branch (idempotent, ignoring a
// "branch already exists" failure) then applies each file change as an
// individual per-file commit on that branch, mirroring Gitea's
// per-file contents API (it has no multi-file atomic-commit endpoint).
func (g *Gitea) CreateReleaseBranch(ctx context.Context, req CreateReleaseBranchRequest) (types.ForgeCommit, error) {
	branchPayload := map[string]any{"new_branch_name": req.ReleaseBranch, "old_branch_name": req.BaseBranch}
	g.do(ctx, http.MethodPost, g.repoPath()+"/branches", branchPayload, nil)

	var lastSHA string
	for _, fc := range req.FileChanges {
		content := fc.Content
		existingSHA := ""
		existing, err := g.GetFileContent(ctx, GetFileRequest{Branch: req.ReleaseBranch, Path: fc.Path})
		if err != nil {
			return types.ForgeCommit{}, err
		}
		if fc.UpdateType == UpdatePrepend && existing != nil {
			content = fc.Content + *existing
		}
		if existing != nil {
			existingSHA = g.blobSHA(ctx, req.ReleaseBranch, fc.Path)
		}
		payload := giteaFileUpdate{
			Content: base64.StdEncoding.EncodeToString([]byte(content)),
			Message: req.Message,
			Branch:  req.ReleaseBranch,
			SHA:     existingSHA,
		}
		method := http.MethodPut
		if existing == nil {
			method = http.MethodPost
		}
		var result struct {
			Commit struct {
				SHA string `json:"sha"`
			} `json:"commit"`
		}
		path := fmt.Sprintf("%s/contents/%s", g.repoPath(), url.PathEscape(fc.Path))
		if _, err := g.do(ctx, method, path, payload, &result); err != nil {
			return types.ForgeCommit{}, &types.ForgeError{Op: "CreateReleaseBranch", Cause: err}
		}
		lastSHA = result.Commit.SHA
	}
	return types.ForgeCommit{SHA: lastSHA, Message: req.Message}, nil
}

// blobSHA fetches the current blob SHA for path, required by Gitea's
// update-contents endpoint to avoid a conflicting-write error.
func (g *Gitea) blobSHA(ctx context.Context, branch, path string) string {
	p := fmt.Sprintf("%s/contents/%s?ref=%s", g.repoPath(), url.PathEscape(path), url.QueryEscape(branch))
	var raw struct {
		SHA string `json:"sha"`
	}
	if _, err := g.do(ctx, http.MethodGet, p, nil, &raw); err != nil {
		return ""
	}
	return raw.SHA
}

type giteaPull struct {
	Number int `json:"number"`
	Head   struct {
		SHA string `json:"sha"`
		Ref string `json:"ref"`
	} `json:"head"`
	Base struct {
		Ref string `json:"ref"`
	} `json:"base"`
	Body            string `json:"body"`
	Merged          bool   `json:"merged"`
	MergeCommitSHA  string `json:"merge_commit_sha"`
	State           string `json:"state"`
	Labels          []struct {
		Name string `json:"name"`
		ID   int64  `json:"id"`
	} `json:"labels"`
}

func toGiteaPR(p giteaPull) *types.PullRequest {
	sha := p.Head.SHA
	if p.Merged && p.MergeCommitSHA != "" {
		sha = p.MergeCommitSHA
	}
	var labels []string
	for _, l := range p.Labels {
		labels = append(labels, l.Name)
	}
	return &types.PullRequest{
		Number: p.Number,
		SHA:    sha,
		Body:   p.Body,
		Labels: labels,
		Merged: p.Merged,
		Closed: p.State == "closed" || p.Merged,
	}
}

func (g *Gitea) findReleasePR(ctx context.Context, query ReleasePRQuery, state string) (*types.PullRequest, error) {
	path := fmt.Sprintf("%s/pulls?state=%s&labels=%s", g.repoPath(), state, url.QueryEscape(PendingLabel))
	var pulls []giteaPull
	if _, err := g.do(ctx, http.MethodGet, path, nil, &pulls); err != nil {
		return nil, &types.ForgeError{Op: "findReleasePR", Cause: err}
	}
	var matches []giteaPull
	for _, p := range pulls {
		if p.Head.Ref == query.HeadBranch && p.Base.Ref == query.BaseBranch {
			matches = append(matches, p)
		}
	}
	if len(matches) > 1 {
		return nil, &types.MultipleReleasePRsError{HeadBranch: query.HeadBranch, BaseBranch: query.BaseBranch, Count: len(matches)}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return toGiteaPR(matches[0]), nil
}

func (g *Gitea) GetOpenReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error) {
	return g.findReleasePR(ctx, query, "open")
}

func (g *Gitea) GetMergedReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error) {
	return g.findReleasePR(ctx, query, "closed")
}

func (g *Gitea) CreatePR(ctx context.Context, req CreatePRRequest) (*types.PullRequest, error) {
	payload := map[string]any{"title": req.Title, "body": req.Body, "head": req.HeadBranch, "base": req.BaseBranch}
	var p giteaPull
	if _, err := g.do(ctx, http.MethodPost, g.repoPath()+"/pulls", payload, &p); err != nil {
		return nil, &types.ForgeError{Op: "CreatePR", Cause: err}
	}
	if len(req.Labels) > 0 {
		if err := g.ReplacePRLabels(ctx, p.Number, req.Labels); err != nil {
			return nil, err
		}
	}
	return toGiteaPR(p), nil
}

func (g *Gitea) UpdatePR(ctx context.Context, req UpdatePRRequest) error {
	payload := map[string]any{"title": req.Title, "body": req.Body}
	path := fmt.Sprintf("%s/pulls/%d", g.repoPath(), req.Number)
	if _, err := g.do(ctx, http.MethodPatch, path, payload, nil); err != nil {
		return &types.ForgeError{Op: "UpdatePR", Cause: err}
	}
	return nil
}

func (g *Gitea) labelID(ctx context.Context, name string) (int64, error) {
	if id, ok := g.labelIDs[name]; ok {
		return id, nil
	}
	var labels []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if _, err := g.do(ctx, http.MethodGet, g.repoPath()+"/labels", nil, &labels); err != nil {
		return 0, err
	}
	for _, l := range labels {
		g.labelIDs[l.Name] = l.ID
		if l.Name == name {
			return l.ID, nil
		}
	}
	var created struct {
		ID int64 `json:"id"`
	}
	payload := map[string]any{"name": name, "color": "#" + LabelColor}
	if _, err := g.do(ctx, http.MethodPost, g.repoPath()+"/labels", payload, &created); err != nil {
		return 0, err
	}
	g.labelIDs[name] = created.ID
	return created.ID, nil
}

func (g *Gitea) ReplacePRLabels(ctx context.Context, number int, labels []string) error {
	var ids []int64
	for _, name := range labels {
		id, err := g.labelID(ctx, name)
		if err != nil {
			return &types.ForgeError{Op: "ReplacePRLabels", Cause: err}
		}
		ids = append(ids, id)
	}
	path := fmt.Sprintf("%s/issues/%d/labels", g.repoPath(), number)
	if _, err := g.do(ctx, http.MethodPut, path, map[string]any{"labels": ids}, nil); err != nil {
		return &types.ForgeError{Op: "ReplacePRLabels", Cause: err}
	}
	return nil
}

func (g *Gitea) TagCommit(ctx context.Context, tagName, sha string) error {
	payload := map[string]any{"tag_name": tagName, "target": sha}
	resp, err := g.do(ctx, http.MethodPost, g.repoPath()+"/tags", payload, nil)
	if err != nil && (resp == nil || resp.StatusCode != http.StatusConflict) {
		return &types.ForgeError{Op: "TagCommit", Cause: err}
	}
	return nil
}

func (g *Gitea) CreateRelease(ctx context.Context, req CreateReleaseRequest) error {
	payload := map[string]any{
		"tag_name":         req.TagName,
		"target_commitish": req.SHA,
		"name":             req.Name,
		"body":             req.Notes,
	}
	if _, err := g.do(ctx, http.MethodPost, g.repoPath()+"/releases", payload, nil); err != nil {
		return &types.ForgeError{Op: "CreateRelease", Cause: err}
	}
	return nil
}

type giteaRelease struct {
	Body            string `json:"body"`
	TargetCommitish string `json:"target_commitish"`
}

func (g *Gitea) GetReleaseByTag(ctx context.Context, tagName string) (*types.Release, error) {
	var rel giteaRelease
	path := fmt.Sprintf("%s/releases/tags/%s", g.repoPath(), url.PathEscape(tagName))
	resp, err := g.do(ctx, http.MethodGet, path, nil, &rel)
	if err != nil {
		return nil, &types.ForgeError{Op: "GetReleaseByTag", Cause: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	return &types.Release{Notes: rel.Body, SHA: rel.TargetCommitish}, nil
}
