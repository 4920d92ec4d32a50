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

// GitLab has no first-party Go SDK in use anywhere in the retrieved
// example pack, so this client is plain net/http + encoding/json against
// the v4 REST API, following the same page/per_page pagination and
// 404-as-absence handling other_examples' GitLabProvider demonstrates.
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

// GitLab talks to a GitLab instance's v4 REST API.
type GitLab struct {
	httpClient  *authClient
	apiBaseURL  string // e.g. https://gitlab.com/api/v4
	projectPath string // URL-encoded "group/subgroup/project"

	defaultBranch string
}

// NewGitLab constructs a GitLab forge. apiBaseURL is the host's API root
// (e.g. "https://gitlab.com/api/v4" or a self-hosted equivalent);
// projectPath is the unescaped "namespace/project" path.
func NewGitLab(httpClient *http.Client, apiBaseURL, accessToken, projectPath string) *GitLab {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &GitLab{
		httpClient:  &authClient{base: httpClient, header: "PRIVATE-TOKEN", token: accessToken},
		apiBaseURL:  strings.TrimRight(apiBaseURL, "/"),
		projectPath: url.PathEscape(projectPath),
	}
}

// authClient injects a static auth header on every request before
// delegating to the underlying *http.Client. Shared by both the GitLab
// and Gitea clients, which differ in header name and token format.
type authClient struct {
	base   *http.Client
	header string
	token  string
}

func (c *authClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set(c.header, c.token)
	return c.base.Do(req)
}

func (g *GitLab) do(ctx context.Context, method, path string, body any, out any) (*http.Response, error) {
	return doJSON(ctx, g.httpClient, g.apiBaseURL, method, path, body, out)
}

func (g *GitLab) RepoName(ctx context.Context) (string, error) {
	decoded, _ := url.PathUnescape(g.projectPath)
	return decoded, nil
}

// WebURL derives the instance's web root by stripping the "/api/v4" API
// suffix from apiBaseURL, then appends GitLab's "-/commit" and
// "-/releases" path conventions.
func (g *GitLab) WebURL(ctx context.Context) (commitBase, releaseBase string, err error) {
	webRoot := strings.TrimSuffix(g.apiBaseURL, "/api/v4")
	decoded, _ := url.PathUnescape(g.projectPath)
	root := webRoot + "/" + decoded
	return root + "/-/commit", root + "/-/releases", nil
}

type glProject struct {
	DefaultBranch string `json:"default_branch"`
}

func (g *GitLab) DefaultBranch(ctx context.Context) (string, error) {
	if g.defaultBranch != "" {
		return g.defaultBranch, nil
	}
	var p glProject
	if _, err := g.do(ctx, http.MethodGet, "/projects/"+g.projectPath, nil, &p); err != nil {
		return "", &types.ForgeError{Op: "DefaultBranch", Cause: err}
	}
	g.defaultBranch = p.DefaultBranch
	return g.defaultBranch, nil
}

type glTag struct {
	Name   string `json:"name"`
	Commit struct {
		ID           string    `json:"id"`
		CommittedAt  time.Time `json:"committed_date"`
		ParentIDs    []string  `json:"parent_ids"`
	} `json:"commit"`
}

func (g *GitLab) GetLatestTagForPrefix(ctx context.Context, prefix string) (*types.Tag, error) {
	var best *types.Tag
	page := 1
	for {
		var tags []glTag
		resp, err := g.do(ctx, http.MethodGet, fmt.Sprintf("/projects/%s/repository/tags?per_page=100&page=%d", g.projectPath, page), nil, &tags)
		if err != nil {
			return nil, &types.ForgeError{Op: "GetLatestTagForPrefix", Cause: err}
		}
		for _, t := range tags {
			if !strings.HasPrefix(t.Name, prefix) {
				continue
			}
			sv, err := parseSemverLoose(strings.TrimPrefix(t.Name, prefix))
			if err != nil {
				continue
			}
			ts := t.Commit.CommittedAt
			if best == nil || ts.After(*best.Timestamp) {
				best = &types.Tag{SHA: t.Commit.ID, Name: t.Name, Semver: sv, Timestamp: &ts}
			}
		}
		if len(tags) < 100 || resp.Header.Get("X-Next-Page") == "" {
			break
		}
		page++
	}
	return best, nil
}

type glCommit struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	CreatedAt   time.Time `json:"created_at"`
	ParentIDs   []string  `json:"parent_ids"`
}

type glDiffEntry struct {
	NewPath string `json:"new_path"`
	OldPath string `json:"old_path"`
}

func (g *GitLab) GetCommits(ctx context.Context, branch, sinceSHA string, depth int) ([]types.ForgeCommit, error) {
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
		var commits []glCommit
		path := fmt.Sprintf("/projects/%s/repository/commits?ref_name=%s&per_page=100&page=%d",
			g.projectPath, url.QueryEscape(branch), page)
		if _, err := g.do(ctx, http.MethodGet, path, nil, &commits); err != nil {
			return nil, &types.ForgeError{Op: "GetCommits", Cause: err}
		}
		if len(commits) == 0 {
			break
		}
		for _, c := range commits {
			if sinceSHA != "" && c.ID == sinceSHA {
				return out, nil
			}
			var diffs []glDiffEntry
			diffPath := fmt.Sprintf("/projects/%s/repository/commits/%s/diff", g.projectPath, c.ID)
			g.do(ctx, http.MethodGet, diffPath, nil, &diffs) // best-effort; 404 leaves diffs nil
			var paths []string
			for _, d := range diffs {
				p := d.NewPath
				if p == "" {
					p = d.OldPath
				}
				paths = append(paths, p)
			}
			out = append(out, types.ForgeCommit{
				SHA:          c.ID,
				Message:      c.Message,
				Author:       c.AuthorName,
				AuthorEmail:  c.AuthorEmail,
				Timestamp:    c.CreatedAt,
				ChangedPaths: paths,
				ParentCount:  len(c.ParentIDs),
			})
			if depth > 0 && len(out) >= depth {
				return out, nil
			}
		}
		page++
	}
	return out, nil
}

type glFile struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

func (g *GitLab) GetFileContent(ctx context.Context, req GetFileRequest) (*string, error) {
	path := fmt.Sprintf("/projects/%s/repository/files/%s?ref=%s",
		g.projectPath, url.PathEscape(req.Path), url.QueryEscape(req.Branch))
	var f glFile
	resp, err := g.do(ctx, http.MethodGet, path, nil, &f)
	if err != nil {
		return nil, &types.ForgeError{Op: "GetFileContent", Cause: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if f.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(f.Content)
		if err != nil {
			return nil, &types.ForgeError{Op: "GetFileContent", Cause: err}
		}
		s := string(decoded)
		return &s, nil
	}
	return &f.Content, nil
}

type glCommitAction struct {
	Action   string `json:"action"`
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

func (g *GitLab) CreateReleaseBranch(ctx context.Context, req CreateReleaseBranchRequest) (types.ForgeCommit, error) {
	branchPath := fmt.Sprintf("/projects/%s/repository/branches?branch=%s&ref=%s",
		g.projectPath, url.QueryEscape(req.ReleaseBranch), url.QueryEscape(req.BaseBranch))
	g.do(ctx, http.MethodPost, branchPath, nil, nil) // idempotent: 400 if it already exists

	var actions []glCommitAction
	for _, fc := range req.FileChanges {
		content := fc.Content
		action := "update"
		if fc.UpdateType == UpdatePrepend {
			existing, err := g.GetFileContent(ctx, GetFileRequest{Branch: req.BaseBranch, Path: fc.Path})
			if err != nil {
				return types.ForgeCommit{}, err
			}
			if existing == nil {
				action = "create"
			} else {
				content = fc.Content + *existing
			}
		}
		actions = append(actions, glCommitAction{Action: action, FilePath: fc.Path, Content: content})
	}

	payload := map[string]any{
		"branch":         req.ReleaseBranch,
		"commit_message": req.Message,
		"actions":        actions,
	}
	var commit glCommit
	if _, err := g.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/repository/commits", g.projectPath), payload, &commit); err != nil {
		return types.ForgeCommit{}, &types.ForgeError{Op: "CreateReleaseBranch", Cause: err}
	}
	return types.ForgeCommit{SHA: commit.ID, Message: req.Message}, nil
}

type glMergeRequest struct {
	IID          int      `json:"iid"`
	SHA          string   `json:"sha"`
	MergeCommit  string   `json:"merge_commit_sha"`
	Description  string   `json:"description"`
	Labels       []string `json:"labels"`
	State        string   `json:"state"`
	SourceBranch string   `json:"source_branch"`
	TargetBranch string   `json:"target_branch"`
}

func toGitLabPR(mr glMergeRequest) *types.PullRequest {
	sha := mr.SHA
	merged := mr.State == "merged"
	if merged && mr.MergeCommit != "" {
		sha = mr.MergeCommit
	}
	return &types.PullRequest{
		Number: mr.IID,
		SHA:    sha,
		Body:   mr.Description,
		Labels: mr.Labels,
		Merged: merged,
		Closed: mr.State == "closed" || merged,
	}
}

func (g *GitLab) findReleasePR(ctx context.Context, query ReleasePRQuery, state string) (*types.PullRequest, error) {
	path := fmt.Sprintf("/projects/%s/merge_requests?state=%s&labels=%s&source_branch=%s&target_branch=%s",
		g.projectPath, state, url.QueryEscape(PendingLabel), url.QueryEscape(query.HeadBranch), url.QueryEscape(query.BaseBranch))
	var mrs []glMergeRequest
	if _, err := g.do(ctx, http.MethodGet, path, nil, &mrs); err != nil {
		return nil, &types.ForgeError{Op: "findReleasePR", Cause: err}
	}
	if len(mrs) > 1 {
		return nil, &types.MultipleReleasePRsError{HeadBranch: query.HeadBranch, BaseBranch: query.BaseBranch, Count: len(mrs)}
	}
	if len(mrs) == 0 {
		return nil, nil
	}
	return toGitLabPR(mrs[0]), nil
}

func (g *GitLab) GetOpenReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error) {
	return g.findReleasePR(ctx, query, "opened")
}

func (g *GitLab) GetMergedReleasePR(ctx context.Context, query ReleasePRQuery) (*types.PullRequest, error) {
	return g.findReleasePR(ctx, query, "merged")
}

func (g *GitLab) CreatePR(ctx context.Context, req CreatePRRequest) (*types.PullRequest, error) {
	payload := map[string]any{
		"source_branch": req.HeadBranch,
		"target_branch": req.BaseBranch,
		"title":         req.Title,
		"description":   req.Body,
		"labels":        strings.Join(req.Labels, ","),
	}
	var mr glMergeRequest
	if _, err := g.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/merge_requests", g.projectPath), payload, &mr); err != nil {
		return nil, &types.ForgeError{Op: "CreatePR", Cause: err}
	}
	return toGitLabPR(mr), nil
}

func (g *GitLab) UpdatePR(ctx context.Context, req UpdatePRRequest) error {
	payload := map[string]any{"title": req.Title, "description": req.Body}
	path := fmt.Sprintf("/projects/%s/merge_requests/%d", g.projectPath, req.Number)
	if _, err := g.do(ctx, http.MethodPut, path, payload, nil); err != nil {
		return &types.ForgeError{Op: "UpdatePR", Cause: err}
	}
	return nil
}

func (g *GitLab) ReplacePRLabels(ctx context.Context, number int, labels []string) error {
	payload := map[string]any{"labels": strings.Join(labels, ",")}
	path := fmt.Sprintf("/projects/%s/merge_requests/%d", g.projectPath, number)
	if _, err := g.do(ctx, http.MethodPut, path, payload, nil); err != nil {
		return &types.ForgeError{Op: "ReplacePRLabels", Cause: err}
	}
	return nil
}

func (g *GitLab) TagCommit(ctx context.Context, tagName, sha string) error {
	path := fmt.Sprintf("/projects/%s/repository/tags?tag_name=%s&ref=%s",
		g.projectPath, url.QueryEscape(tagName), url.QueryEscape(sha))
	resp, err := g.do(ctx, http.MethodPost, path, nil, nil)
	if err != nil && (resp == nil || resp.StatusCode != http.StatusBadRequest) {
		return &types.ForgeError{Op: "TagCommit", Cause: err}
	}
	return nil
}

func (g *GitLab) CreateRelease(ctx context.Context, req CreateReleaseRequest) error {
	payload := map[string]any{
		"tag_name":    req.TagName,
		"name":        req.Name,
		"description": req.Notes,
		"ref":         req.SHA,
	}
	if _, err := g.do(ctx, http.MethodPost, fmt.Sprintf("/projects/%s/releases", g.projectPath), payload, nil); err != nil {
		return &types.ForgeError{Op: "CreateRelease", Cause: err}
	}
	return nil
}

type glRelease struct {
	Description string `json:"description"`
	Commit      struct {
		ID string `json:"id"`
	} `json:"commit"`
}

func (g *GitLab) GetReleaseByTag(ctx context.Context, tagName string) (*types.Release, error) {
	var rel glRelease
	path := fmt.Sprintf("/projects/%s/releases/%s", g.projectPath, url.PathEscape(tagName))
	resp, err := g.do(ctx, http.MethodGet, path, nil, &rel)
	if err != nil {
		return nil, &types.ForgeError{Op: "GetReleaseByTag", Cause: err}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	return &types.Release{Notes: rel.Description, SHA: rel.Commit.ID}, nil
}
