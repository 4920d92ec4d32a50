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
	"net/url"
	"strings"

	"github.com/releasaurus/releasaurus/internal/types"
)

// ParseGitLabURL splits a GitLab repository URL into the instance's v4
// API root and the project's namespace path, per spec.md §6's "only http
// and https schemes are accepted" rule.
func ParseGitLabURL(remoteURL string) (apiBaseURL, projectPath string, err error) {
	u, path, err := parseForgeURL(remoteURL)
	if err != nil {
		return "", "", err
	}
	return u + "/api/v4", path, nil
}

// ParseGiteaURL splits a Gitea repository URL into the instance's v1 API
// root and its owner/repo components.
func ParseGiteaURL(remoteURL string) (apiBaseURL, owner, repo string, err error) {
	u, path, err := parseForgeURL(remoteURL)
	if err != nil {
		return "", "", "", err
	}
	idx := strings.LastIndex(path, "/")
	if idx == -1 {
		return "", "", "", &types.InvalidRepoURLError{URL: remoteURL, Reason: "missing owner/repo path"}
	}
	return u + "/api/v1", path[:idx], path[idx+1:], nil
}

// parseForgeURL validates the scheme and returns the scheme://host origin
// plus the trimmed repository path, shared by every non-GitHub forge
// parser (GitHub keeps its own ParseGitHubURL, grounded on
// internal/github/github.go's exact shape).
func parseForgeURL(remoteURL string) (origin, path string, err error) {
	u, parseErr := url.Parse(remoteURL)
	if parseErr != nil {
		return "", "", &types.InvalidRepoURLError{URL: remoteURL, Reason: parseErr.Error()}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", &types.InvalidRepoURLError{URL: remoteURL, Reason: "unsupported scheme " + u.Scheme}
	}
	trimmed := strings.Trim(u.Path, "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")
	if trimmed == "" {
		return "", "", &types.InvalidRepoURLError{URL: remoteURL, Reason: "missing repository path"}
	}
	return u.Scheme + "://" + u.Host, trimmed, nil
}
